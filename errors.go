package vkg

import "github.com/pkg/errors"

var (
	// ErrTimeout is returned when a bounded wait expires.
	ErrTimeout = errors.New("vkg: timeout")
	// ErrSwapchainOutOfDate means the swapchain no longer matches the surface
	// and must be recreated before the next acquire.
	ErrSwapchainOutOfDate = errors.New("vkg: swapchain out of date")
)
