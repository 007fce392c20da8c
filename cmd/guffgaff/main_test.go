package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ageniuscoder/guffgaff/backend/internal/auth"
	"github.com/ageniuscoder/guffgaff/backend/internal/config"
	"github.com/ageniuscoder/guffgaff/backend/internal/conversations"
	"github.com/ageniuscoder/guffgaff/backend/internal/delivery"
	"github.com/ageniuscoder/guffgaff/backend/internal/messages"
	"github.com/ageniuscoder/guffgaff/backend/internal/presence"
	"github.com/ageniuscoder/guffgaff/backend/internal/storage/sqlite"
	"github.com/ageniuscoder/guffgaff/backend/internal/users"
	"github.com/gin-gonic/gin"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	db, err := sqlite.New("file:" + filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())

	cfg := config.Config{
		JWTSecret:    "engine-secret",
		JWTTTLMin:    60,
		CORSOrigins:  []string{"http://localhost:5173"},
		WSSendBuffer: 16,
	}
	logger := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := presence.NewRegistry(logger)
	router := delivery.NewRouter(logger, registry)
	locks := messages.NewPairLocks()
	msgStore := messages.NewSQLStore(db)

	return newEngine(cfg, logger, routes{
		db:          db,
		registry:    registry,
		users:       users.NewStore(db),
		messages:    messages.NewService(logger, msgStore, locks, router),
		coordinator: conversations.NewCoordinator(logger, msgStore, locks, router),
	})
}

func request(e *gin.Engine, method, path, body string, ck *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if ck != nil {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	return w
}

func signup(t *testing.T, e *gin.Engine, username string) (string, *http.Cookie) {
	t.Helper()
	w := request(e, http.MethodPost, "/api/auth/signup",
		`{"fullName":"`+username+`","username":"`+username+`","password":"secret1"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var out struct {
		User users.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	for _, ck := range w.Result().Cookies() {
		if ck.Name == auth.CookieName {
			return out.User.ID, ck
		}
	}
	t.Fatal("no session cookie")
	return "", nil
}

func TestEngine_Health(t *testing.T) {
	e := newTestEngine(t)
	w := request(e, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestEngine_SendListDelete(t *testing.T) {
	req := require.New(t)
	e := newTestEngine(t)
	aliceID, alice := signup(t, e, "alice")
	bobID, bob := signup(t, e, "bob")

	// Given alice wrote to bob
	w := request(e, http.MethodPost, "/api/messages/send/"+bobID, `{"text":"hi"}`, alice)
	req.Equal(http.StatusCreated, w.Code)

	// Then bob sees it
	w = request(e, http.MethodGet, "/api/messages/"+aliceID, "", bob)
	req.Equal(http.StatusOK, w.Code)
	var list []messages.Message
	req.NoError(json.Unmarshal(w.Body.Bytes(), &list))
	req.Len(list, 1)
	req.Equal("hi", list[0].Text)

	// When both delete, the second delete purges
	w = request(e, http.MethodDelete, "/api/messages/conversation/"+bobID, "", alice)
	req.JSONEq(`{"message":"Conversation deleted for you","deleted":false}`, w.Body.String())
	w = request(e, http.MethodDelete, "/api/messages/conversation/"+aliceID, "", bob)
	req.JSONEq(`{"message":"Conversation permanently deleted","deleted":true}`, w.Body.String())

	w = request(e, http.MethodGet, "/api/messages/"+aliceID, "", bob)
	req.JSONEq(`[]`, w.Body.String())
}

func TestEngine_Routes(t *testing.T) {
	e := newTestEngine(t)
	_, alice := signup(t, e, "alice")
	signup(t, e, "bob")

	tests := []struct {
		name   string
		method string
		path   string
		ck     *http.Cookie
		status int
	}{
		{"users list", http.MethodGet, "/api/messages/users", alice, http.StatusOK},
		{"users list needs auth", http.MethodGet, "/api/messages/users", nil, http.StatusUnauthorized},
		{"me", http.MethodGet, "/api/auth/me", alice, http.StatusOK},
		{"presence", http.MethodGet, "/api/presence", alice, http.StatusOK},
		{"search", http.MethodGet, "/api/users/search?q=bo", alice, http.StatusOK},
		{"send without body", http.MethodPost, "/api/messages/send/ghost", alice, http.StatusBadRequest},
		{"ws without token", http.MethodGet, "/api/ws", nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := request(e, tt.method, tt.path, "", tt.ck)
			require.Equal(t, tt.status, w.Code)
		})
	}
}

func TestEngine_CORSPreflight(t *testing.T) {
	e := newTestEngine(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()

	e.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}

type slowMirror struct {
	cleared atomic.Bool
	done    chan struct{}
}

// run mimics the mirror worker: the clearing write starts on cancel.
func (m *slowMirror) run(ctx context.Context) {
	<-ctx.Done()
	time.Sleep(50 * time.Millisecond)
	m.cleared.Store(true)
	close(m.done)
}

func (m *slowMirror) Done() <-chan struct{} { return m.done }

type closer func() error

func (c closer) Close() error { return c() }

func TestShutdownMirror_ClosesClientAfterClearing(t *testing.T) {
	req := require.New(t)
	mirror := &slowMirror{done: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	go mirror.run(ctx)

	var clearedAtClose bool
	err := shutdownMirror(cancel, mirror, closer(func() error {
		clearedAtClose = mirror.cleared.Load()
		return nil
	}))

	req.NoError(err)
	req.True(clearedAtClose)
}
