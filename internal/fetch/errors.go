package fetch

import (
	"errors"
	"fmt"
)

// ErrUnavailable marks a source that could not be fetched this cycle, after
// every retry and the backup URL were exhausted. Callers branch with
// errors.Is and decide between a stale cache fallback and skipping the source.
var ErrUnavailable = errors.New("source unavailable")

// StatusError is a non-2xx HTTP response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
}

// SizeError is a response body below the sanity threshold; empty or error
// pages masquerading as a guide document trip this.
type SizeError struct {
	URL  string
	Size int
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("undersized body (%d bytes) from %s", e.Size, e.URL)
}

// DecodeError is a gzip decompression failure. It is never retried.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decompress %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
