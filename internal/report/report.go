// Package report renders file tables for people and other tools: a TOML
// dump of the tree that can be restored onto a device, and a PNG image of
// slot occupancy.
package report

import "errors"

// ErrInvalidDump is an error that occurs when a TOML dump cannot be decoded
// or describes entries that cannot be restored.
var ErrInvalidDump = errors.New("invalid dump")
