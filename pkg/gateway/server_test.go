package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/relaybot/pkg/bus"
	"github.com/tinyland-inc/relaybot/pkg/config"
	"github.com/tinyland-inc/relaybot/pkg/forward"
)

// fakeBot records outbound Bot API calls.
type fakeBot struct {
	sent        []telego.SendMessageParams
	callbackIDs []string
	setWebhook  *telego.SetWebhookParams
	deleted     bool
}

func (f *fakeBot) SendMessage(_ context.Context, p *telego.SendMessageParams) (*telego.Message, error) {
	f.sent = append(f.sent, *p)
	return &telego.Message{MessageID: 1}, nil
}

func (f *fakeBot) AnswerCallbackQuery(_ context.Context, p *telego.AnswerCallbackQueryParams) error {
	f.callbackIDs = append(f.callbackIDs, p.CallbackQueryID)
	return nil
}

func (f *fakeBot) SetWebhook(_ context.Context, p *telego.SetWebhookParams) error {
	f.setWebhook = p
	return nil
}

func (f *fakeBot) DeleteWebhook(_ context.Context, _ *telego.DeleteWebhookParams) error {
	f.deleted = true
	return nil
}

func (f *fakeBot) lastText(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.sent, "no message was sent")
	return f.sent[len(f.sent)-1].Text
}

type testServer struct {
	srv   *Server
	bot   *fakeBot
	store *config.Store
	bus   *bus.PostBus
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	store := config.NewStore(filepath.Join(t.TempDir(), "config.json"), cfg)
	postBus := bus.NewPostBus()
	t.Cleanup(postBus.Close)
	bot := &fakeBot{}
	srv := NewServer(store, postBus, bot, "https://bot.example.com", 8443)
	return &testServer{srv: srv, bot: bot, store: store, bus: postBus}
}

func (ts *testServer) postUpdate(t *testing.T, update telego.Update) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(update)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	w := httptest.NewRecorder()
	ts.srv.httpServer.Handler.ServeHTTP(w, req)
	return w
}

func TestHandleWebhook_MethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	w := httptest.NewRecorder()
	ts.srv.httpServer.Handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHandleWebhook_BadJSON(t *testing.T) {
	ts := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	ts.srv.httpServer.Handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleWebhook_ChannelPostEnqueued(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.postUpdate(t, telego.Update{
		ChannelPost: &telego.Message{
			MessageID: 42,
			Chat:      telego.Chat{ID: -1001111, Username: "newschannel"},
			Text:      "breaking news",
		},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	env, ok := ts.bus.Consume(ctx)
	require.True(t, ok, "no envelope reached the bus")
	assert.Equal(t, "-1001111", env.Post.ChatID)
	assert.Equal(t, "newschannel", env.Post.Username)
	assert.Equal(t, 42, env.Post.MessageID)
	assert.Equal(t, forward.MediaNone, env.Post.Media)
	assert.NotEmpty(t, env.TraceID)
}

func TestHandleWebhook_CallbackAcknowledged(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.postUpdate(t, telego.Update{
		CallbackQuery: &telego.CallbackQuery{ID: "cb-123"},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"cb-123"}, ts.bot.callbackIDs)
	assert.Empty(t, ts.bot.sent, "callbacks must not produce replies")
}

func TestHandleStatus(t *testing.T) {
	ts := newTestServer(t, func(cfg *config.Config) {
		cfg.AdminUsers = []int64{1111}
		cfg.SourceChannels = config.FlexibleStringSlice{"newschannel"}
		cfg.TargetChannel = "mytarget"
		cfg.ForwardingEnabled = true
	})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	ts.srv.httpServer.Handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var st config.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.True(t, st.BotRunning)
	assert.True(t, st.ForwardingEnabled)
	assert.Equal(t, 1, st.SourceChannels)
	assert.Equal(t, "mytarget", st.TargetChannel)
	assert.Equal(t, 1, st.AdminUsers)
}

func TestHandleStatus_MethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/status", nil)
	w := httptest.NewRecorder()
	ts.srv.httpServer.Handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHandleHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	ts.srv.httpServer.Handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestRegisterWebhook(t *testing.T) {
	ts := newTestServer(t, nil)
	require.NoError(t, ts.srv.RegisterWebhook(context.Background()))

	require.NotNil(t, ts.bot.setWebhook)
	assert.Equal(t, "https://bot.example.com/webhook", ts.bot.setWebhook.URL)
	assert.True(t, ts.bot.setWebhook.DropPendingUpdates)
}

func TestRegisterWebhook_SkippedWithoutURL(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.srv.webhookURL = ""

	require.NoError(t, ts.srv.RegisterWebhook(context.Background()))
	assert.Nil(t, ts.bot.setWebhook)

	require.NoError(t, ts.srv.UnregisterWebhook(context.Background()))
	assert.False(t, ts.bot.deleted)
}

func TestUnregisterWebhook(t *testing.T) {
	ts := newTestServer(t, nil)
	require.NoError(t, ts.srv.UnregisterWebhook(context.Background()))
	assert.True(t, ts.bot.deleted)
}
