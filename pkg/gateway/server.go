// Package gateway runs the webhook HTTP server: it receives Telegram
// updates, demultiplexes them into channel posts (relayed via the bus),
// private messages (admin commands) and callback queries (acknowledged and
// dropped), and serves the status endpoint.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/mymmrac/telego"

	"github.com/tinyland-inc/relaybot/pkg/bus"
	"github.com/tinyland-inc/relaybot/pkg/config"
	"github.com/tinyland-inc/relaybot/pkg/forward"
	"github.com/tinyland-inc/relaybot/pkg/logger"
)

// botAPI is the slice of the telego.Bot surface the gateway needs.
// *telego.Bot satisfies it; tests substitute a recorder.
type botAPI interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *telego.AnswerCallbackQueryParams) error
	SetWebhook(ctx context.Context, params *telego.SetWebhookParams) error
	DeleteWebhook(ctx context.Context, params *telego.DeleteWebhookParams) error
}

type Server struct {
	store      *config.Store
	bus        *bus.PostBus
	bot        botAPI
	webhookURL string
	httpServer *http.Server

	commands map[string]commandHandler

	mu sync.Mutex
	// Chats waiting to reply with the first admin's user ID after /start
	// on an unconfigured bot.
	awaitingFirstAdmin map[int64]bool
}

func NewServer(store *config.Store, postBus *bus.PostBus, bot botAPI, webhookURL string, port int) *Server {
	s := &Server{
		store:              store,
		bus:                postBus,
		bot:                bot,
		webhookURL:         webhookURL,
		awaitingFirstAdmin: make(map[int64]bool),
	}
	s.commands = s.commandTable()

	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", s.handleWebhook)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	return s
}

// Start blocks serving HTTP until Stop is called.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// RegisterWebhook points Telegram at this server. Pending updates are
// dropped so posts from downtime are not replayed.
func (s *Server) RegisterWebhook(ctx context.Context) error {
	if s.webhookURL == "" {
		logger.WarnC("gateway", "No webhook URL configured, skipping webhook registration")
		return nil
	}
	return s.bot.SetWebhook(ctx, &telego.SetWebhookParams{
		URL:                s.webhookURL + "/webhook",
		MaxConnections:     40,
		DropPendingUpdates: true,
	})
}

func (s *Server) UnregisterWebhook(ctx context.Context) error {
	if s.webhookURL == "" {
		return nil
	}
	return s.bot.DeleteWebhook(ctx, &telego.DeleteWebhookParams{DropPendingUpdates: true})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			logger.ErrorCF("gateway", "Webhook processing panic", map[string]any{"panic": rec})
			http.Error(w, "error", http.StatusInternalServerError)
		}
	}()

	var update telego.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		logger.ErrorCF("gateway", "Webhook received invalid payload", map[string]any{"error": err.Error()})
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	s.processUpdate(r.Context(), update)

	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func (s *Server) processUpdate(ctx context.Context, update telego.Update) {
	switch {
	case update.ChannelPost != nil:
		s.handleChannelPost(ctx, update.ChannelPost)
	case update.Message != nil:
		s.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		// Inline menus are not supported; acknowledge so the client does
		// not spin on a loading state.
		err := s.bot.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{
			CallbackQueryID: update.CallbackQuery.ID,
		})
		if err != nil {
			logger.DebugCF("gateway", "Callback acknowledge failed", map[string]any{"error": err.Error()})
		}
	}
}

func (s *Server) handleChannelPost(ctx context.Context, msg *telego.Message) {
	env := bus.NewEnvelope(forward.FromMessage(msg))

	if err := s.bus.Publish(ctx, env); err != nil {
		logger.ErrorCF("gateway", "Failed to enqueue channel post", map[string]any{
			"trace_id": env.TraceID,
			"chat_id":  env.Post.ChatID,
			"error":    err.Error(),
		})
		return
	}

	logger.DebugCF("gateway", "Channel post enqueued", map[string]any{
		"trace_id": env.TraceID,
		"chat_id":  env.Post.ChatID,
		"media":    string(env.Post.Media),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.store.Status()); err != nil {
		logger.ErrorCF("gateway", "Status encode failed", map[string]any{"error": err.Error()})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "ok")
}

func (s *Server) reply(ctx context.Context, chatID int64, text string) {
	_, err := s.bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID:    telego.ChatID{ID: chatID},
		Text:      text,
		ParseMode: telego.ModeHTML,
	})
	if err != nil {
		logger.ErrorCF("gateway", "Reply failed", map[string]any{
			"chat_id": chatID,
			"error":   err.Error(),
		})
	}
}
