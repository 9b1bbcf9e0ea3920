package client

import (
	"context"
	"errors"
	"sync"
)

var errConnClosed = errors.New("fake conn closed")

// fakeConn is a scriptable transport session: tests push inbound frames and
// inspect what the client wrote.
type fakeConn struct {
	inbound chan *Frame

	closeOnce sync.Once
	closed    chan struct{}

	mu      sync.Mutex
	written []outboundFrame
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan *Frame, 16),
		closed:  make(chan struct{}),
	}
}

func (c *fakeConn) push(frame *Frame) { c.inbound <- frame }

func (c *fakeConn) ReadFrame() (*Frame, error) {
	select {
	case f := <-c.inbound:
		return f, nil
	case <-c.closed:
		return nil, errConnClosed
	}
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	select {
	case <-c.closed:
		return errConnClosed
	default:
	}
	frame, ok := v.(outboundFrame)
	if !ok {
		return errors.New("unexpected write type")
	}
	c.mu.Lock()
	c.written = append(c.written, frame)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) writes() []outboundFrame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]outboundFrame, len(c.written))
	copy(out, c.written)
	return out
}

// fakeDialer hands out queued sessions and counts dial attempts. An empty
// queue fails the dial.
type fakeDialer struct {
	mu    sync.Mutex
	queue []*fakeConn
	dials int
}

func (d *fakeDialer) enqueue(conns ...*fakeConn) {
	d.mu.Lock()
	d.queue = append(d.queue, conns...)
	d.mu.Unlock()
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *fakeDialer) Dial(ctx context.Context, credential string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if len(d.queue) == 0 {
		return nil, errors.New("no session available")
	}
	conn := d.queue[0]
	d.queue = d.queue[1:]
	return conn, nil
}
