// ABOUTME: Tests for gateway assembly, run/shutdown, and the admin REST surface
// ABOUTME: Handlers are exercised over httptest with real JWTs

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atendeai/chat-gateway/internal/auth"
	"github.com/atendeai/chat-gateway/internal/chat"
	"github.com/atendeai/chat-gateway/internal/config"
	"github.com/atendeai/chat-gateway/internal/presence"
	"github.com/atendeai/chat-gateway/internal/store"
)

const testSecret = "test-secret-key"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Server.HTTPAddr = "127.0.0.1:0"
	cfg.Database.Path = filepath.Join(t.TempDir(), "chat.db")
	cfg.Auth.JWTSecret = testSecret
	cfg.AI.Enabled = false
	return cfg
}

// newTestGateway builds a gateway on a mock store so handler tests can
// seed data and inject failures.
func newTestGateway(t *testing.T) (*Gateway, *store.MockStore) {
	t.Helper()
	logger := slog.Default()
	st := store.NewMockStore()
	verifier := auth.NewJWTVerifier([]byte(testSecret))
	registry := presence.NewRegistry(logger)
	rooms := chat.NewRooms(logger)
	hub := chat.NewHub(verifier, st, registry, rooms, nil, logger)

	gw := &Gateway{
		config:   testConfig(t),
		store:    st,
		verifier: verifier,
		presence: registry,
		hub:      hub,
		logger:   logger,
	}
	return gw, st
}

func adminToken(t *testing.T) string {
	t.Helper()
	verifier := auth.NewJWTVerifier([]byte(testSecret))
	token, err := verifier.Generate(&auth.Identity{UserID: 999, Role: auth.RoleAdmin, CompanyID: 1}, time.Minute)
	require.NoError(t, err)
	return token
}

func userToken(t *testing.T) string {
	t.Helper()
	verifier := auth.NewJWTVerifier([]byte(testSecret))
	token, err := verifier.Generate(&auth.Identity{UserID: 1, Role: "USER", CompanyID: 1}, time.Minute)
	require.NoError(t, err)
	return token
}

func doRequest(t *testing.T, gw *Gateway, method, path, token string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	gw.registerRoutes(mux)

	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	gw, _ := newTestGateway(t)

	rec := doRequest(t, gw, http.MethodGet, "/api/presence", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, gw, http.MethodGet, "/api/presence", userToken(t), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, gw, http.MethodGet, "/api/presence", adminToken(t), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	gw, _ := newTestGateway(t)

	rec := doRequest(t, gw, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestPresenceList(t *testing.T) {
	gw, _ := newTestGateway(t)
	gw.presence.Register(fakeConn{userID: 3})
	gw.presence.Register(fakeConn{userID: 1})

	rec := doRequest(t, gw, http.MethodGet, "/api/presence", adminToken(t), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp PresenceListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []int64{1, 3}, resp.Online)
	assert.Equal(t, 2, resp.Count)
}

func TestPresenceGet(t *testing.T) {
	gw, _ := newTestGateway(t)
	gw.presence.Register(fakeConn{userID: 7})

	rec := doRequest(t, gw, http.MethodGet, "/api/presence/7", adminToken(t), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp PresenceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Online)

	rec = doRequest(t, gw, http.MethodGet, "/api/presence/8", adminToken(t), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Online)

	rec = doRequest(t, gw, http.MethodGet, "/api/presence/nan", adminToken(t), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fakeConn struct {
	userID int64
}

func (f fakeConn) UserID() int64 { return f.userID }

func TestNotifyConversationOfflineOwner(t *testing.T) {
	gw, st := newTestGateway(t)
	conv := &store.Conversation{UserID: 5, CompanyID: 1, Title: "pedido"}
	require.NoError(t, st.CreateConversation(context.Background(), conv))

	rec := doRequest(t, gw, http.MethodPost, "/api/conversations/1/notify", adminToken(t), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp NotifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, conv.ID, resp.ConversationID)
	assert.Equal(t, int64(5), resp.UserID)
	assert.False(t, resp.Delivered)
}

func TestNotifyConversationNotFound(t *testing.T) {
	gw, _ := newTestGateway(t)

	rec := doRequest(t, gw, http.MethodPost, "/api/conversations/99/notify", adminToken(t), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminMessagePersistsBeforeBroadcast(t *testing.T) {
	gw, st := newTestGateway(t)
	conv := &store.Conversation{UserID: 5, CompanyID: 1, Title: "pedido"}
	require.NoError(t, st.CreateConversation(context.Background(), conv))

	body, _ := json.Marshal(AdminMessageRequest{Content: "Seu pedido foi atualizado"})
	rec := doRequest(t, gw, http.MethodPost, "/api/conversations/1/admin-message", adminToken(t), body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp AdminMessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, store.SenderBot, resp.Message.Sender)
	assert.Equal(t, "Seu pedido foi atualizado", resp.Message.Content)

	msgs, err := st.ListMessagesByConversation(context.Background(), conv.ID, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, resp.Message.ID, msgs[0].ID)
}

func TestAdminMessageValidation(t *testing.T) {
	gw, st := newTestGateway(t)
	conv := &store.Conversation{UserID: 5, CompanyID: 1, Title: "pedido"}
	require.NoError(t, st.CreateConversation(context.Background(), conv))

	body, _ := json.Marshal(AdminMessageRequest{Content: ""})
	rec := doRequest(t, gw, http.MethodPost, "/api/conversations/1/admin-message", adminToken(t), body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, gw, http.MethodPost, "/api/conversations/1/admin-message", adminToken(t), []byte("not json"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, _ = json.Marshal(AdminMessageRequest{Content: "olá"})
	rec = doRequest(t, gw, http.MethodPost, "/api/conversations/404/admin-message", adminToken(t), body)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGatewayNewAndShutdown(t *testing.T) {
	cfg := testConfig(t)
	gw, err := New(cfg, slog.Default())
	require.NoError(t, err)

	require.NoError(t, gw.Shutdown(context.Background()))
}

func TestGatewayRunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	gw, err := New(cfg, slog.Default())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- gw.Run(ctx)
	}()

	// Give the listener a moment, then cancel.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("gateway did not shut down")
	}
}
