package relay

import (
	"context"

	"github.com/tinyland-inc/relaybot/pkg/bus"
	"github.com/tinyland-inc/relaybot/pkg/config"
	"github.com/tinyland-inc/relaybot/pkg/forward"
	"github.com/tinyland-inc/relaybot/pkg/logger"
)

// Worker drains the post bus, decides each post against a fresh
// configuration snapshot and hands directives to the executor. Each post is
// processed independently; no ordering is guaranteed between posts.
type Worker struct {
	bus   *bus.PostBus
	store *config.Store
	exec  Executor
}

func NewWorker(postBus *bus.PostBus, store *config.Store, exec Executor) *Worker {
	return &Worker{bus: postBus, store: store, exec: exec}
}

// Run blocks until the context is canceled or the bus is closed.
func (w *Worker) Run(ctx context.Context) {
	for {
		env, ok := w.bus.Consume(ctx)
		if !ok {
			return
		}
		w.process(ctx, env)
	}
}

func (w *Worker) process(ctx context.Context, env bus.Envelope) {
	result := forward.Decide(env.Post, w.store.Snapshot())

	if result.Suppressed() {
		logger.DebugCF("relay", "Post suppressed", map[string]any{
			"trace_id": env.TraceID,
			"reason":   string(result.Reason),
			"chat_id":  env.Post.ChatID,
		})
		return
	}

	d := *result.Directive
	if err := w.exec.Execute(ctx, d); err != nil {
		logger.ErrorCF("relay", "Relay failed", map[string]any{
			"trace_id":   env.TraceID,
			"kind":       string(d.Kind),
			"chat_id":    env.Post.ChatID,
			"message_id": env.Post.MessageID,
			"error":      err.Error(),
		})
		return
	}

	logger.InfoCF("relay", "Post relayed", map[string]any{
		"trace_id":   env.TraceID,
		"kind":       string(d.Kind),
		"from":       env.Post.ChatID,
		"to":         d.Target,
		"message_id": env.Post.MessageID,
	})
}
