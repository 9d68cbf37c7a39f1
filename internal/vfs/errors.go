package vfs

import "errors"

// Resolution errors
var (
	ErrInvalidPath        = errors.New("vfs: invalid path")
	ErrPathNotFound       = errors.New("vfs: path not found")
	ErrParentNotFound     = errors.New("vfs: parent not found")
	ErrParentNotDirectory = errors.New("vfs: parent is not a directory")
)

// Type errors
var (
	ErrNotADirectory = errors.New("vfs: not a directory")
	ErrNotAFile      = errors.New("vfs: not a file")
	ErrReadOnly      = errors.New("vfs: read-only node")
)
