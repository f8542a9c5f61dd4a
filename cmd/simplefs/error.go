package main

import "errors"

var (
	// ErrUsage occurs when a command is invoked with bad flags or arguments.
	ErrUsage = errors.New("invalid usage")

	// ErrNoDevice occurs when neither a flag nor the configuration names a
	// device.
	ErrNoDevice = errors.New("no device given (use -device or SIMPLEFS_DEVICE)")

	// ErrVerifyMapped occurs when write verification is requested for a
	// memory-mapped device, where reading back cannot observe the device.
	ErrVerifyMapped = errors.New("write verification is not possible with a mapped device")

	// ErrCheckFailed occurs when a consistency check found problems.
	ErrCheckFailed = errors.New("file table check found problems")
)
