package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("rate limited")
	ErrFeedClosed   = errors.New("feed closed")
	ErrContextDone  = errors.New("context cancelled")
	ErrStoreFailure = errors.New("store operation failed")
)
