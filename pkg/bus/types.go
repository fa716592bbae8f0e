package bus

import (
	"github.com/google/uuid"

	"github.com/tinyland-inc/relaybot/pkg/forward"
)

// Envelope wraps an inbound channel post with a trace ID so ingest and
// relay log lines can be correlated.
type Envelope struct {
	TraceID string
	Post    forward.Post
}

func NewEnvelope(post forward.Post) Envelope {
	return Envelope{
		TraceID: uuid.New().String(),
		Post:    post,
	}
}
