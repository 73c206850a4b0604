// I/O readiness polling for the fallback [SelectorLoop].
//
// Registration (registerFD, unregisterFD, modifyFD) and polling are
// implemented with platform-native mechanisms:
//   - Linux: epoll (poller_linux.go)
//   - Darwin: kqueue (poller_darwin.go)
//
// Always deregister an fd before closing it, to prevent stale event delivery
// due to fd recycling.

package corebridge

import "errors"

// IOEvents represents the type of I/O events to monitor.
type IOEvents uint32

const (
	// EventRead indicates the file descriptor is ready for reading.
	EventRead IOEvents = 1 << iota
	// EventWrite indicates the file descriptor is ready for writing.
	EventWrite
	// EventError indicates an error condition on the file descriptor.
	EventError
	// EventHangup indicates the peer closed its end of the connection.
	EventHangup
)

// Poller errors.
var (
	ErrFDOutOfRange        = errors.New("corebridge: fd out of range")
	ErrFDAlreadyRegistered = errors.New("corebridge: fd already registered")
	ErrFDNotRegistered     = errors.New("corebridge: fd not registered")
	ErrPollerClosed        = errors.New("corebridge: poller closed")
)

// Initial capacity of the direct-indexed fd table.
const initialFDs = 65536

// maxFDLimit is the maximum fd value supported by dynamic growth.
const maxFDLimit = 100000000

// ioCallback is the callback type for I/O events.
type ioCallback func(IOEvents)

// fdInfo stores per-fd callback information.
type fdInfo struct {
	callback ioCallback
	events   IOEvents
	active   bool
}
