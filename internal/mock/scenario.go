package mock

import (
	"bytes"
	"errors"
	"fmt"
)

var (
	errUnexpectedClose    = errors.New("mock: unexpected call to Close")
	errUnfinishedScenario = errors.New("mock: closing unfinished scenario")
)

func bytesEqual(a, b []byte) bool {
	return bytes.Equal(a, b)
}

func unexpectedWriteError(in []byte) error {
	return fmt.Errorf("mock: unexpected write\n% X", in)
}

// ByteRead appends (or extends the last unfulfilled read exchange with) an
// expected incoming byte sequence.
func (c *Conn) ByteRead(read []byte) *Conn {
	c.mux.Lock()
	defer c.mux.Unlock()
	l := len(c.exchanges)
	if l != 0 && c.exchanges[l-1].read == nil && c.exchanges[l-1].processRead == nil && !c.exchanges[l-1].noResp && c.exchanges[l-1].err == nil {
		c.exchanges[l-1].read = read
	} else {
		c.exchanges = append(c.exchanges, &exchange{dir: directionRead, read: read})
	}
	return c
}

// ErrRead scripts the next read to fail with err, or a generic error if
// err is nil.
func (c *Conn) ErrRead(err error) *Conn {
	c.mux.Lock()
	defer c.mux.Unlock()
	if err == nil {
		err = errors.New("mock: generic read error")
	}
	l := len(c.exchanges)
	if l != 0 && c.exchanges[l-1].read == nil && c.exchanges[l-1].processRead == nil && !c.exchanges[l-1].noResp && c.exchanges[l-1].err == nil {
		c.exchanges[l-1].err = err
	} else {
		c.exchanges = append(c.exchanges, &exchange{dir: directionRead, err: err})
	}
	return c
}

// ByteWrite appends (or extends the last unfulfilled write exchange with)
// an expected outgoing byte sequence.
func (c *Conn) ByteWrite(write []byte) *Conn {
	c.mux.Lock()
	defer c.mux.Unlock()
	l := len(c.exchanges)
	if l != 0 && c.exchanges[l-1].write == nil && !c.exchanges[l-1].noResp && c.exchanges[l-1].err == nil {
		c.exchanges[l-1].write = write
	} else {
		c.exchanges = append(c.exchanges, &exchange{dir: directionWrite, write: write})
	}
	return c
}

// ErrWrite scripts the next write to fail with err, or a generic error if
// err is nil.
func (c *Conn) ErrWrite(err error) *Conn {
	c.mux.Lock()
	defer c.mux.Unlock()
	if err == nil {
		err = errors.New("mock: generic write error")
	}
	l := len(c.exchanges)
	if l != 0 && c.exchanges[l-1].write == nil && !c.exchanges[l-1].noResp && c.exchanges[l-1].err == nil {
		c.exchanges[l-1].err = err
	} else {
		c.exchanges = append(c.exchanges, &exchange{dir: directionWrite, err: err})
	}
	return c
}

// NoResp marks the preceding exchange as not expecting a counterpart
// read/write at all. Panics if there is nothing to mark.
func (c *Conn) NoResp() *Conn {
	c.mux.Lock()
	defer c.mux.Unlock()
	l := len(c.exchanges)
	if l == 0 {
		panic("mock: invalid call to NoResp")
	}
	if c.exchanges[l-1].write != nil && c.exchanges[l-1].read != nil && c.exchanges[l-1].processRead == nil {
		panic("mock: invalid call to NoResp")
	}
	c.exchanges[l-1].noResp = true
	return c
}

// Closed scripts an expected call to Close.
func (c *Conn) Closed() *Conn {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.exchanges = append(c.exchanges, &exchange{closed: true})
	return c
}

// Wait makes the exchange just appended block until the s-th scripted
// exchange (1-based, so Wait(1) waits on the first; 0 means no wait) has
// completed, letting a scenario pin down ordering across the session's
// concurrent read/write loops.
func (c *Conn) Wait(s int) *Conn {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.exchanges[len(c.exchanges)-1].wait = s
	return c
}

// ProcessRead derives the bytes for the next read from a callback instead
// of a fixed slice, for scenarios that depend on a running count.
func (c *Conn) ProcessRead(f func(step, count int) ([]byte, error)) *Conn {
	c.mux.Lock()
	defer c.mux.Unlock()
	l := len(c.exchanges)
	if l != 0 && c.exchanges[l-1].read == nil && c.exchanges[l-1].processRead == nil && !c.exchanges[l-1].noResp && c.exchanges[l-1].err == nil {
		c.exchanges[l-1].processRead = f
		c.exchanges[l-1].count = 1
	} else {
		c.exchanges = append(c.exchanges, &exchange{dir: directionRead, processRead: f, count: 1})
	}
	return c
}

// ProcessWrite derives the expected bytes for the next write from a
// callback instead of a fixed slice.
func (c *Conn) ProcessWrite(f func(step, count int) ([]byte, error)) *Conn {
	c.mux.Lock()
	defer c.mux.Unlock()
	l := len(c.exchanges)
	if l != 0 && c.exchanges[l-1].write == nil && c.exchanges[l-1].processWrite == nil && !c.exchanges[l-1].noResp && c.exchanges[l-1].err == nil {
		c.exchanges[l-1].processWrite = f
		c.exchanges[l-1].count = 1
	} else {
		c.exchanges = append(c.exchanges, &exchange{dir: directionWrite, processWrite: f, count: 1})
	}
	return c
}

// Times repeats the last scripted exchange n times, each with an
// incrementing count visible to its ProcessRead/ProcessWrite callback.
func (c *Conn) Times(n int) *Conn {
	c.mux.Lock()
	defer c.mux.Unlock()
	l := len(c.exchanges)
	if l == 0 {
		panic("mock: invalid call to Times")
	}
	c.exchanges[l-1].count = 1
	for i := 2; i <= n; i++ {
		dup := *c.exchanges[l-1]
		c.exchanges[l-1].count = i
		c.exchanges = append(c.exchanges, &dup)
	}
	return c
}

// Validate reports every scripted exchange that never completed. A nil
// result means the scenario played out exactly as scripted.
func (c *Conn) Validate() []error {
	c.mux.Lock()
	defer c.mux.Unlock()
	for _, ex := range c.exchanges {
		if ex.done {
			continue
		}
		var desc string
		switch {
		case ex.closed:
			desc = "closing connection"
		case ex.dir == directionRead:
			desc = fmt.Sprintf("%s % X", ex.dir, ex.read)
		case ex.dir == directionWrite:
			desc = fmt.Sprintf("%s % X", ex.dir, ex.write)
		}
		c.errors = append(c.errors, fmt.Errorf("mock: step not finished: %s", desc))
	}
	return c.errors
}
