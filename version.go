package flowboard

// Version is overridden at build time with
// -ldflags "-X github.com/aretw0/flowboard.Version=v1.2.3".
var Version = "0.1.0-dev"
