package testutil

import "errors"

// Common test errors
var (
	ErrRemoteDown  = errors.New("remote backend unreachable")
	ErrTestFailure = errors.New("test failure")
)
