// Package validation checks node configurations against their kind's rules.
//
// Button values are checked per action type (email, phone, URL); container
// limits come from the registry's schema for the node kind. Validation is
// advisory while editing and mandatory when saving: a save whose flow has any
// invalid result is rejected with an *Error listing every offending field.
package validation
