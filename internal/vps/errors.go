package vps

import "errors"

// Lifecycle errors
var (
	ErrAlreadyRunning   = errors.New("vps: already running")
	ErrAlreadyStopped   = errors.New("vps: already stopped")
	ErrInstanceNotFound = errors.New("vps: instance not found")
	ErrInvalidName      = errors.New("vps: invalid name")
	ErrNotRunning       = errors.New("vps: not running")
)
