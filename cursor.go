package veloxsql

import (
	"sync"

	"github.com/veloxsql/veloxsql/mapping"
)

// Cursor is the lazy, pull-based counterpart to a materialized SelectList
// result. It adapts the Result-Set Mapper's push-style Consumer callback
// into a pull API by running the underlying query on
// a background goroutine and handing rows across a channel one at a time.
//
// A goroutine plus two small channels is the standard shape for turning a
// push-style callback into a pull-style iterator, so no iterator library
// is warranted here.
type Cursor struct {
	rowCh    chan any
	resumeCh chan bool
	errCh    chan error
	stopCh   chan struct{}
	stopOnce sync.Once

	started  bool
	awaiting bool
	cur      any
	err      error
	closed   bool
}

func newCursor(run func(consumer mapping.Consumer) error) *Cursor {
	c := &Cursor{
		rowCh:    make(chan any),
		resumeCh: make(chan bool),
		errCh:    make(chan error, 1),
		stopCh:   make(chan struct{}),
	}
	go func() {
		err := run(func(row any) bool {
			select {
			case c.rowCh <- row:
			case <-c.stopCh:
				return false
			}
			select {
			case resume := <-c.resumeCh:
				return resume
			case <-c.stopCh:
				return false
			}
		})
		close(c.rowCh)
		c.errCh <- err
	}()
	return c
}

// Next advances the cursor to the following row, returning false once the
// underlying query is exhausted or has errored (check Err after a false
// return).
func (c *Cursor) Next() bool {
	if c.closed {
		return false
	}
	if c.awaiting {
		c.awaiting = false
		select {
		case c.resumeCh <- true:
		case <-c.stopCh:
		}
	}
	row, ok := <-c.rowCh
	if !ok {
		c.err = <-c.errCh
		return false
	}
	c.cur = row
	c.awaiting = true
	c.started = true
	return true
}

// Row returns the row Next most recently advanced to.
func (c *Cursor) Row() any { return c.cur }

// Err returns the error, if any, the underlying query finished with. It is
// only meaningful after Next returns false.
func (c *Cursor) Err() error { return c.err }

// Close stops row production and releases the background goroutine. It is
// safe to call more than once, and safe to call before exhausting Next.
func (c *Cursor) Close() error {
	if c.closed {
		return c.err
	}
	c.closed = true
	c.stopOnce.Do(func() { close(c.stopCh) })
	if c.awaiting {
		// The goroutine is parked waiting on resumeCh for the last row we
		// took; stopCh already unblocks it, so just drain to let it exit
		// and report its error.
		for range c.rowCh {
		}
		c.err = <-c.errCh
	} else if !c.started {
		// Next was never called: the goroutine may not have reached its
		// first send yet. Draining rowCh either observes that send (and
		// stopCh, raced concurrently, makes the consumer return false) or
		// observes the channel close from a query that produced zero
		// rows or failed before mapping any.
		for range c.rowCh {
		}
		select {
		case err := <-c.errCh:
			c.err = err
		default:
		}
	}
	return c.err
}
