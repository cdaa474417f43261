/*
Package session serializes access to stored agent flows.

Every write of an agent's flow goes through a per-agent lock, optionally backed
by a distributed locker so several server replicas agree on one writer. Locks
are reference counted and dropped once no caller holds or waits for them.
*/
package session
