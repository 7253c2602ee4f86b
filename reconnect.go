package smpp

import (
	"sync"
	"time"
)

// ReconnectConf configures the supervisor's retry behavior.
type ReconnectConf struct {
	// InitialDelay is how long the supervisor waits before the first
	// reconnect attempt after a disconnect. Defaults to 5 seconds.
	InitialDelay time.Duration
	// Logger receives lifecycle events. Defaults to DefaultLogger.
	Logger Logger
}

func (c *ReconnectConf) setDefaults() {
	if c.InitialDelay == 0 {
		c.InitialDelay = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = DefaultLogger{}
	}
}

// Reconnector supervises a single ESME session: whenever the current
// session closes it waits InitialDelay and calls connect again, until
// StopTrying is called. It mirrors the reconnecting-factory pattern used by
// long-lived SMPP ESME clients, where a single bind is expected to stay
// open indefinitely and any disconnect is transient.
type Reconnector struct {
	conf    ReconnectConf
	connect func() (*Esme, error)

	mu      sync.Mutex
	current *Esme
	stopped bool
	done    chan struct{}
}

// NewReconnector creates a supervisor around connect, which must perform a
// full bind and return the resulting Esme. Call Start to begin supervising.
func NewReconnector(conf ReconnectConf, connect func() (*Esme, error)) *Reconnector {
	conf.setDefaults()
	return &Reconnector{
		conf:    conf,
		connect: connect,
		done:    make(chan struct{}),
	}
}

// Start performs the first connection attempt and then supervises
// reconnects in the background. It returns the error from the first
// attempt, if any, but continues retrying regardless.
func (r *Reconnector) Start() error {
	esme, err := r.connect()
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		if esme != nil {
			esme.Session.Close()
		}
		return err
	}
	r.current = esme
	r.mu.Unlock()
	go r.run(esme)
	return err
}

// run loops for the lifetime of the supervisor: wait for the current
// session (if any) to close, then retry connect on InitialDelay until it
// succeeds, repeating until StopTrying is called. It deliberately never
// recurses so a long-lived worker that reconnects many times over its
// lifetime doesn't grow an unbounded goroutine stack.
func (r *Reconnector) run(esme *Esme) {
	for {
		if esme != nil {
			<-esme.Session.NotifyClosed()
			r.mu.Lock()
			stopped := r.stopped
			r.mu.Unlock()
			if stopped {
				return
			}
			r.conf.Logger.InfoF("smpp: session disconnected, reconnecting in %s", r.conf.InitialDelay)
		}

		select {
		case <-r.done:
			return
		case <-time.After(r.conf.InitialDelay):
		}
		r.mu.Lock()
		if r.stopped {
			r.mu.Unlock()
			return
		}
		r.mu.Unlock()

		var err error
		esme, err = r.connect()
		if err != nil {
			r.conf.Logger.ErrorF("smpp: reconnect attempt failed: %+v", err)
			esme = nil
			continue
		}
		r.mu.Lock()
		if r.stopped {
			r.mu.Unlock()
			esme.Session.Close()
			return
		}
		r.current = esme
		r.mu.Unlock()
	}
}

// Current returns the currently active Esme, or nil if not yet connected.
func (r *Reconnector) Current() *Esme {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// StopTrying ends the supervision loop and closes the active session, if
// any. It is safe to call more than once.
func (r *Reconnector) StopTrying() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	cur := r.current
	r.mu.Unlock()
	close(r.done)
	if cur != nil {
		cur.Stop()
		cur.Session.Close()
	}
}
