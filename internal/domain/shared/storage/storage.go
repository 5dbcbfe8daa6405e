package storage

import "errors"

// ErrConcurrentUpdate is returned by versioned Save implementations when the
// stored aggregate moved on since it was read.
var ErrConcurrentUpdate = errors.New("storage: concurrent update detected")
