// Package schema provides the principal schematics for all other packages. It
// defines the on-disk file table record, its byte-exact encoding and provides
// implementations for handling (Unix-based) operating system syscalls. The
// package serves as a foundational layer for device interactions throughout
// the codebase.
package schema
