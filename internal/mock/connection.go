// Package mock provides a scripted net.Conn stand-in used throughout this
// module's session and PDU tests: a test builds up an expected sequence of
// reads and writes with the scenario builder in scenario.go, hands the
// resulting Conn to smpp.NewSession, drives the session, then calls
// Validate to confirm every scripted exchange actually happened.
package mock

import (
	"io"
	"sync"
	"time"
)

// direction distinguishes a byte sequence the session is expected to read
// from one it is expected to write.
type direction string

const (
	directionRead  direction = "read"
	directionWrite direction = "write"
)

// exchange is one scripted read or write in a scenario. A read exchange
// becomes "waiting" once its bytes have been delivered, at which point the
// matching write (the session's response) is expected next; a write
// exchange starts "waiting" once matched and is satisfied when the session
// reads the scripted reply.
type exchange struct {
	dir          direction
	write        []byte
	read         []byte
	err          error
	closed       bool
	waiting      bool
	done         bool
	noResp       bool
	wait         int
	count        int
	processRead  func(step int, count int) ([]byte, error)
	processWrite func(step int, count int) ([]byte, error)
}

// Conn implements io.ReadWriteCloser by replaying a scripted sequence of
// exchanges built with the fluent methods in scenario.go.
type Conn struct {
	io.ReadWriteCloser
	done      chan struct{}
	mux       sync.Mutex
	errors    []error
	exchanges []*exchange
}

// NewConn returns an empty scenario; chain scenario-builder calls onto it
// before handing it to a Session.
func NewConn() *Conn {
	return &Conn{
		done: make(chan struct{}),
	}
}

// Read implements io.Reader, polling the scripted exchanges until one is
// ready or the connection is closed.
func (c *Conn) Read(out []byte) (int, error) {
	for {
		i, err := c.read(out)
		if i != -1 {
			return i, err
		}
		select {
		case <-time.After(2 * time.Millisecond):
		case <-c.done:
			return 0, io.EOF
		}
	}
}

func (c *Conn) read(out []byte) (int, error) {
	c.mux.Lock()
	defer c.mux.Unlock()
	finished := 0
	for i, ex := range c.exchanges {
		if ex.done || ex.closed {
			finished++
			if finished == len(c.exchanges) {
				return -1, io.EOF
			}
			continue
		}
		if ex.processRead != nil && ex.read == nil {
			var err error
			ex.read, err = ex.processRead(i, ex.count)
			if err != nil {
				return 0, err
			}
		}
		// A scripted read not yet delivered to the session.
		if ex.dir == directionRead && !ex.waiting {
			if ex.wait > 0 && !c.exchanges[ex.wait-1].done {
				continue
			}
			if ex.err != nil {
				ex.done = true
				return 0, ex.err
			}
			n := copy(out, ex.read)
			if n < len(ex.read) {
				ex.read = ex.read[n:]
				return n, nil
			}
			if ex.noResp {
				ex.done = true
			} else {
				ex.waiting = true
			}
			return n, nil
		}
		// A scripted write whose reply the session is now reading back.
		if ex.dir == directionWrite && ex.waiting {
			if ex.err != nil {
				ex.done = true
				return 0, ex.err
			}
			n := copy(out, ex.read)
			if n < len(ex.read) {
				ex.read = ex.read[n:]
				return n, nil
			}
			ex.done = true
			return n, nil
		}
	}
	return -1, nil
}

// Write implements io.Writer, matching in against the next scripted
// exchange that expects a write.
func (c *Conn) Write(in []byte) (int, error) {
	for {
		select {
		case <-time.After(2 * time.Millisecond):
		case <-c.done:
			return 0, io.EOF
		}
		i, err := c.write(in)
		if i != -1 {
			return i, err
		}
	}
}

func (c *Conn) write(in []byte) (int, error) {
	c.mux.Lock()
	defer c.mux.Unlock()
	for i, ex := range c.exchanges {
		if ex.done || ex.closed {
			continue
		}
		if ex.processWrite != nil && ex.write == nil {
			var err error
			ex.write, err = ex.processWrite(i, ex.count)
			if err != nil {
				return 0, err
			}
		}
		// The session is responding to a scripted read.
		if ex.dir == directionRead && ex.waiting {
			if !bytesEqual(ex.write, in) {
				continue
			}
			ex.done = true
			return len(in), nil
		}
		// A scripted write the session is initiating.
		if ex.dir == directionWrite && !ex.waiting {
			if ex.wait > 0 && !c.exchanges[ex.wait-1].done {
				continue
			}
			if ex.err != nil {
				ex.done = true
				return 0, ex.err
			}
			if ex.write != nil && !bytesEqual(ex.write, in) {
				continue
			}
			if ex.noResp {
				ex.done = true
			} else {
				ex.waiting = true
			}
			return len(in), nil
		}
	}
	err := unexpectedWriteError(in)
	c.errors = append(c.errors, err)
	return 0, err
}

// Close implements io.Closer. At least one scripted Closed() exchange must
// be present and every exchange must already be done, or Close records an
// error Validate will surface.
func (c *Conn) Close() error {
	c.mux.Lock()
	defer c.mux.Unlock()
	close(c.done)
	sawClose := false
	allDone := true
	for _, ex := range c.exchanges {
		sawClose = sawClose || ex.closed
		if ex.closed {
			ex.done = true
		}
		allDone = allDone && ex.done
	}
	if !sawClose {
		err := errUnexpectedClose
		c.errors = append(c.errors, err)
		return err
	}
	if !allDone {
		err := errUnfinishedScenario
		c.errors = append(c.errors, err)
		return err
	}
	return nil
}
