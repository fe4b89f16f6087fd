// Package patterns suggests version regexes and base tags for an image from its
// tag list.
//
// Detection is a heuristic used to help write configuration. Tags are filtered
// for noise, split into typed tokens, grouped by token signature and turned into
// one anchored regex per group. The update path never consults it.
package patterns
