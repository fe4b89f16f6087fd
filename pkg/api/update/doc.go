// Package update provides the HTTP handler that triggers an update cycle.
//
// The handler shares its lock with the scheduler, so at most one cycle runs at
// a time. Full updates are rejected with 429 while a cycle is running; targeted
// updates wait for it.
package update
