// Package bus decouples webhook ingestion from the relay worker with a
// buffered channel of inbound posts.
package bus

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrBusClosed is returned when publishing to a closed PostBus.
var ErrBusClosed = errors.New("post bus closed")

type PostBus struct {
	posts  chan Envelope
	done   chan struct{}
	closed atomic.Bool
}

func NewPostBus() *PostBus {
	return &PostBus{
		posts: make(chan Envelope, 100),
		done:  make(chan struct{}),
	}
}

func (pb *PostBus) Publish(ctx context.Context, env Envelope) error {
	if pb.closed.Load() {
		return ErrBusClosed
	}
	select {
	case pb.posts <- env:
		return nil
	case <-pb.done:
		return ErrBusClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (pb *PostBus) Consume(ctx context.Context) (Envelope, bool) {
	select {
	case env, ok := <-pb.posts:
		return env, ok
	case <-pb.done:
		return Envelope{}, false
	case <-ctx.Done():
		return Envelope{}, false
	}
}

func (pb *PostBus) Close() {
	if pb.closed.CompareAndSwap(false, true) {
		close(pb.done)
	}
}
