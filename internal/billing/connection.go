package billing

import "billing-bridge/pkg/logging"

// ConnState is the session connection state.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateReady
	StateError
)

// String returns the state name.
func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	}
	return "unknown"
}

// connection owns the session state machine:
//
//	Disconnected -> Connecting -> {Ready | Error}
//	Ready -> Disconnected (service-initiated, any time)
//	Error -> Connecting (by calling connect again)
//
// All methods run on the service loop.
type connection struct {
	client   Client
	listener ConnectionListener
	state    ConnState
	// waiters are the continuations of connect calls made while a
	// connection attempt is in flight. All resolve with the attempt outcome.
	waiters []func(*Error)
}

func (c *connection) ready() bool {
	return c.state == StateReady
}

// connect is idempotent: when already Ready the continuation resolves
// immediately and no new connection is initiated. Concurrent connects during
// Connecting piggyback on the running attempt.
func (c *connection) connect(done func(*Error)) {
	switch c.state {
	case StateReady:
		done(nil)
		return
	case StateConnecting:
		c.waiters = append(c.waiters, done)
		return
	}
	c.state = StateConnecting
	c.waiters = append(c.waiters, done)
	c.client.StartConnection(c.listener)
}

// setupFinished resolves the in-flight connection attempt.
func (c *connection) setupFinished(r Result) {
	waiters := c.waiters
	c.waiters = nil

	if r.OK() {
		c.state = StateReady
		logging.Infof("billing session ready")
		for _, w := range waiters {
			w(nil)
		}
		return
	}

	c.state = StateError
	err := translateAs("connect", UnableToInitialize, r)
	logging.Errorf("billing session setup failed: %v", err)
	for _, w := range waiters {
		w(err)
	}
}

// disconnected handles a service-initiated drop. Subsequent operations fail
// fast with NotInitialized until connect is called again.
func (c *connection) disconnected() {
	if c.state == StateReady {
		logging.Infof("billing session disconnected by service")
	}
	c.state = StateDisconnected
}
