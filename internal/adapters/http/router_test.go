package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/nexuschat/server/internal/adapters/ws"
	"github.com/nexuschat/server/internal/app"
	"github.com/nexuschat/server/internal/auth"
	"github.com/nexuschat/server/internal/config"
	"github.com/nexuschat/server/internal/domain"
	"github.com/nexuschat/server/internal/storage"
)

func newTestServer(t *testing.T) (*httptest.Server, *auth.JWT) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Mode:         "release",
		Secret:       "test-secret",
		ReadLimit:    32768,
		PingPeriod:   54 * time.Second,
		WriteTimeout: 5 * time.Second,
		SendBuffer:   32,
		TokenTTL:     time.Hour,
		RateLimit:    100,
		RateInterval: time.Second,
	}

	db, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	registry := app.NewRegistry()
	rooms := app.NewRoomIndex(registry)
	presence := app.NewPresence(registry, storage.NewPresenceRepository(db))
	calls := app.NewCalls()
	chat := app.NewRouter(registry, rooms, presence, calls, storage.NewMessageRepository(db), storage.NewUserRepository(db))

	verifier := auth.New(cfg.Secret, cfg.TokenTTL)
	engine := SetupRouter(context.Background(), cfg, chat, verifier)
	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	return srv, verifier
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func dial(t *testing.T, srv *httptest.Server, uid, token string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/api/ws/"+uid+"?token="+token), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestConnectReceivesOnlineUsers(t *testing.T) {
	req := require.New(t)
	srv, verifier := newTestServer(t)

	token, err := verifier.Issue(domain.UserID("alice"), "alice")
	req.NoError(err)
	conn := dial(t, srv, "alice", token)

	ev := readEvent(t, conn)
	req.Equal("online_users", ev["type"])
	req.Contains(ev["users"], "alice")
}

func TestConnectRefusedWithoutToken(t *testing.T) {
	srv, _ := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/api/ws/alice?token="), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	require.True(t, websocket.IsCloseError(err, ws.CloseAuthFailure), "expected close %d, got %v", ws.CloseAuthFailure, err)
}

func TestConnectRefusedOnIdentityMismatch(t *testing.T) {
	req := require.New(t)
	srv, verifier := newTestServer(t)

	token, err := verifier.Issue(domain.UserID("alice"), "alice")
	req.NoError(err)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/api/ws/bob?token="+token), nil)
	req.NoError(err)
	defer conn.Close()

	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, _, err = conn.ReadMessage()
	req.True(websocket.IsCloseError(err, ws.CloseAuthFailure))
}

func TestDirectMessageAcrossSockets(t *testing.T) {
	req := require.New(t)
	srv, verifier := newTestServer(t)

	tokenA, err := verifier.Issue(domain.UserID("alice"), "alice")
	req.NoError(err)
	tokenB, err := verifier.Issue(domain.UserID("bob"), "bob")
	req.NoError(err)

	alice := dial(t, srv, "alice", tokenA)
	req.Equal("online_users", readEvent(t, alice)["type"])

	bob := dial(t, srv, "bob", tokenB)
	req.Equal("online_users", readEvent(t, bob)["type"])

	// Alice hears bob come online before anything else.
	status := readEvent(t, alice)
	req.Equal("user_status", status["type"])
	req.Equal("bob", status["user_id"])

	req.NoError(alice.WriteJSON(map[string]any{
		"type":        "message",
		"receiver_id": "bob",
		"content":     "hi",
	}))

	got := readEvent(t, bob)
	req.Equal("message", got["type"])
	req.Equal("hi", got["content"])
	req.Equal("alice", got["sender_id"])

	echo := readEvent(t, alice)
	req.Equal("message", echo["type"])
	req.Equal(got["id"], echo["id"])
}

func TestPresenceOnlineEndpoint(t *testing.T) {
	req := require.New(t)
	srv, verifier := newTestServer(t)

	token, err := verifier.Issue(domain.UserID("alice"), "alice")
	req.NoError(err)
	conn := dial(t, srv, "alice", token)
	readEvent(t, conn) // registration is complete once online_users arrives

	resp, err := http.Get(srv.URL + "/api/presence/online")
	req.NoError(err)
	defer resp.Body.Close()

	var body struct {
		Users []string `json:"users"`
	}
	req.NoError(json.NewDecoder(resp.Body).Decode(&body))
	req.Contains(body.Users, "alice")
}
