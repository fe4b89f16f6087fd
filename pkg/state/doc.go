// Package state persists the last observed resolution of every configured image.
//
// The state file is a JSON object keyed by image name. Reads and writes happen under an
// advisory exclusive lock held on a sibling file named after the state file with a
// ".lock" extension, and writes go through a temporary file that is renamed over the
// target so readers never see a partial file.
package state
