package corebridge

import (
	"sync"

	"github.com/joeycumines/logiface"
)

// ConnState is the lifecycle state of a logical connection.
type ConnState int32

const (
	// ConnDisconnected indicates no connect attempt has been made.
	ConnDisconnected ConnState = iota
	// ConnConnecting indicates a connect attempt is in flight.
	ConnConnecting
	// ConnConnected indicates the connection is established.
	ConnConnected
	// ConnFailed indicates the most recent connect attempt failed.
	ConnFailed
)

// String returns a human-readable representation of the state.
func (s ConnState) String() string {
	switch s {
	case ConnDisconnected:
		return "Disconnected"
	case ConnConnecting:
		return "Connecting"
	case ConnConnected:
		return "Connected"
	case ConnFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// DialFunc dispatches a connect attempt to the native engine, returning the
// in-flight operation or a synchronous precondition error.
type DialFunc func() (PendingOperation, error)

// Connector manages idempotent connect/reconnect for one logical connection.
//
// "In flight" is an explicit state-machine field (the retained future), not
// an attribute-presence trick: the field is cleared exactly once, when the
// native completion fires, which is what permits a fresh attempt after a
// failure.
type Connector struct {
	bridge   *CompletionBridge
	dial     DialFunc
	inflight *Future
	settled  *Future
	logger   *logiface.Logger[logiface.Event]
	mu       sync.Mutex
	state    ConnState
}

// NewConnector constructs a Connector that dispatches attempts via dial and
// bridges their completions through bridge.
func NewConnector(bridge *CompletionBridge, dial DialFunc, opts ...Option) (*Connector, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	return &Connector{bridge: bridge, dial: dial, logger: cfg.logger}, nil
}

// State returns the current [ConnState].
func (c *Connector) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnConnect returns a future for the connection outcome.
//
// While an attempt is in flight the identical future is returned; connect is
// never issued twice concurrently. When already connected, the future
// carrying that outcome is returned without issuing new work. Otherwise a new
// attempt is dispatched; a synchronous dispatch error propagates directly and
// leaves the state unchanged.
func (c *Connector) OnConnect() (*Future, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inflight != nil {
		return c.inflight, nil
	}
	if c.state == ConnConnected {
		return c.settled, nil
	}

	op, err := c.dial()
	if err != nil {
		return nil, err
	}

	f := c.bridge.complete(op, c.onSettled)
	c.state = ConnConnecting
	c.inflight = f

	c.logger.Debug().Log("corebridge: connect dispatched")
	return f, nil
}

// onSettled runs on the goroutine delivering the native completion, before
// the future settles, so state is consistent by the time waiters wake.
func (c *Connector) onSettled(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f := c.inflight
	c.inflight = nil
	if err != nil {
		c.state = ConnFailed
		c.settled = nil
		c.logger.Warning().
			Err(err).
			Log("corebridge: connect failed")
		return
	}
	c.state = ConnConnected
	c.settled = f
	c.logger.Info().Log("corebridge: connected")
}
