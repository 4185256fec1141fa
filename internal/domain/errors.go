package domain

import "errors"

var (
	// ErrUpstreamUnavailable is returned when the discovery feed cannot be read.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrRateLimited is returned when an operation is refused by a rate limit.
	ErrRateLimited = errors.New("rate limited")
)
