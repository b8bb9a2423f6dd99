package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	domainbug "github.com/example/bugtracker-chat/domain/bug"
	domainchat "github.com/example/bugtracker-chat/domain/chat"
	"github.com/example/bugtracker-chat/modules/activity"
	"github.com/example/bugtracker-chat/modules/broadcast"
	"github.com/example/bugtracker-chat/modules/bug"
	"github.com/example/bugtracker-chat/modules/chat"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(msg string, args ...any)         {}
func (m *mockLogger) Info(msg string, args ...any)          {}
func (m *mockLogger) Warn(msg string, args ...any)          {}
func (m *mockLogger) Error(msg string, args ...any)         {}
func (m *mockLogger) With(args ...any) types.Logger         { return m }
func (m *mockLogger) WithError(err error) types.Logger      { return m }
func (m *mockLogger) WithModule(module string) types.Logger { return m }

type fakeBugs struct {
	mu      sync.Mutex
	bugs    map[string]*domainbug.Bug
	next    int
	failAll error
}

func newFakeBugs() *fakeBugs {
	return &fakeBugs{bugs: make(map[string]*domainbug.Bug)}
}

func (f *fakeBugs) Create(_ context.Context, req bug.CreateBugRequest) (*domainbug.Bug, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	b := &domainbug.Bug{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		Reporter:    req.Reporter,
	}
	b.Normalize()
	if err := b.Validate(); err != nil {
		return nil, err
	}
	f.next++
	b.ID = fmt.Sprintf("bug-%d", f.next)
	f.bugs[b.ID] = b
	return b, nil
}

func (f *fakeBugs) Get(_ context.Context, id string) (*domainbug.Bug, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	b, ok := f.bugs[id]
	if !ok {
		return nil, domainbug.ErrNotFound
	}
	return b, nil
}

func (f *fakeBugs) List(_ context.Context, status domainbug.Status) (*bug.ListBugsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domainbug.ErrInvalidBug, status)
	}
	out := []domainbug.Bug{}
	for _, b := range f.bugs {
		if status == "" || b.Status == status {
			out = append(out, *b)
		}
	}
	return &bug.ListBugsResponse{Bugs: out, Total: len(out)}, nil
}

func (f *fakeBugs) Update(_ context.Context, req bug.UpdateBugRequest) (*domainbug.Bug, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bugs[req.ID]
	if !ok {
		return nil, domainbug.ErrNotFound
	}
	if req.Title != nil {
		b.Title = *req.Title
	}
	if req.Status != nil {
		b.Status = *req.Status
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func (f *fakeBugs) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.bugs[id]; !ok {
		return domainbug.ErrNotFound
	}
	delete(f.bugs, id)
	return nil
}

type fakeChat struct {
	history map[string][]domainchat.Message
	rooms   []domainchat.RoomSummary
	stats   chat.Stats
	err     error
	limit   int
}

func (f *fakeChat) History(_ context.Context, room string, limit int) ([]domainchat.Message, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	msgs := f.history[room]
	if msgs == nil {
		msgs = []domainchat.Message{}
	}
	return msgs, nil
}

func (f *fakeChat) Rooms(context.Context) ([]domainchat.RoomSummary, error) {
	return f.rooms, f.err
}

func (f *fakeChat) Stats(context.Context) (chat.Stats, error) {
	return f.stats, f.err
}

type fakeActivity struct {
	summary activity.Summary
}

func (f *fakeActivity) Summary(context.Context) (activity.Summary, error) {
	return f.summary, nil
}

type fakeHub struct {
	mu      sync.Mutex
	members map[string]int
	clients int
	emitted []string
}

func (h *fakeHub) Register(*broadcast.Client) {}
func (h *fakeHub) Unregister(string)          {}

func (h *fakeHub) EmitTo(connID, event string, _ any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.emitted = append(h.emitted, connID+":"+event)
}

func (h *fakeHub) ClientCount() int                { return h.clients }
func (h *fakeHub) RoomClientCount(room string) int { return h.members[room] }

type testEnv struct {
	app  *fiber.App
	bugs *fakeBugs
	chat *fakeChat
	hub  *fakeHub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		bugs: newFakeBugs(),
		chat: &fakeChat{history: map[string][]domainchat.Message{}},
		hub:  &fakeHub{members: map[string]int{}},
	}
	m := NewModule(Config{Port: "0", ClientURL: "http://localhost:3000"}, &mockLogger{})
	m.bugs = env.bugs
	m.chat = env.chat
	m.activity = &fakeActivity{summary: activity.Summary{MessagesSent: 3}}
	m.hub = env.hub
	m.newID = func() string { return "conn-1" }
	env.app = m.buildApp()
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.app.Test(req)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"Server is healthy"}`, string(body))
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodGet, "/nope", "")

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"message":"Route not found"}`, string(body))
}

func TestChatRequiresUpgrade(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := env.do(t, http.MethodGet, "/chat", "")

	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func TestBugLifecycle(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/bugs", `{"title":"Crash on save","reporter":"alice"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created domainbug.Bug
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, "Crash on save", created.Title)
	assert.Equal(t, domainbug.StatusOpen, created.Status)

	resp, body = env.do(t, http.MethodGet, "/api/bugs/"+created.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Crash on save")

	resp, body = env.do(t, http.MethodPut, "/api/bugs/"+created.ID, `{"status":"resolved"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"resolved"`)

	resp, body = env.do(t, http.MethodGet, "/api/bugs?status=resolved", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list bug.ListBugsResponse
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, 1, list.Total)

	resp, _ = env.do(t, http.MethodDelete, "/api/bugs/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = env.do(t, http.MethodGet, "/api/bugs/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"message":"Bug not found"}`, string(body))
}

func TestBugErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		failAll    error
		wantStatus int
		wantMsg    string
	}{
		{"missing title", http.MethodPost, "/api/bugs", `{"reporter":"alice"}`, nil, http.StatusBadRequest, "invalid bug"},
		{"malformed body", http.MethodPost, "/api/bugs", `{`, nil, http.StatusBadRequest, "Invalid request body"},
		{"bad status filter", http.MethodGet, "/api/bugs?status=later", "", nil, http.StatusBadRequest, "invalid bug"},
		{"unknown id update", http.MethodPut, "/api/bugs/missing", `{"title":"x"}`, nil, http.StatusNotFound, "Bug not found"},
		{"unknown id delete", http.MethodDelete, "/api/bugs/missing", "", nil, http.StatusNotFound, "Bug not found"},
		{"internal error hidden", http.MethodGet, "/api/bugs", "", errors.New("disk on fire"), http.StatusInternalServerError, defaultMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.bugs.failAll = tt.failAll

			resp, body := env.do(t, tt.method, tt.path, tt.body)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			var errResp ErrorResponse
			require.NoError(t, json.Unmarshal(body, &errResp))
			assert.Contains(t, errResp.Message, tt.wantMsg)
			assert.NotContains(t, errResp.Message, "disk on fire")
		})
	}
}

func TestListRoomsAddsLiveMembers(t *testing.T) {
	env := newTestEnv(t)
	env.chat.rooms = []domainchat.RoomSummary{{Name: "lobby", Messages: 4}, {Name: "global", Messages: 1}}
	env.hub.members["lobby"] = 2

	resp, body := env.do(t, http.MethodGet, "/api/v1/rooms", "")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out RoomListResponse
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Rooms, 2)
	assert.Equal(t, 2, out.Rooms[0].Members)
	assert.Equal(t, 0, out.Rooms[1].Members)
}

func TestListRoomsEmpty(t *testing.T) {
	env := newTestEnv(t)
	_, body := env.do(t, http.MethodGet, "/api/v1/rooms", "")
	assert.JSONEq(t, `{"rooms":[]}`, string(body))
}

func TestRoomHistory(t *testing.T) {
	env := newTestEnv(t)
	env.chat.history["lobby"] = []domainchat.Message{
		domainchat.NewMessage(1, "alice", "hi", "lobby", fixedTime),
	}

	resp, body := env.do(t, http.MethodGet, "/api/v1/rooms/lobby/history?limit=5", "")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out HistoryResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "lobby", out.Room)
	require.Len(t, out.Messages, 1)
	assert.Equal(t, "hi", out.Messages[0].Body)
	assert.Equal(t, 5, env.chat.limit)

	resp, _ = env.do(t, http.MethodGet, "/api/v1/rooms/lobby/history?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChatStats(t *testing.T) {
	env := newTestEnv(t)
	env.chat.stats = chat.Stats{Connections: 2, NamedUsers: 1, Rooms: 1}
	env.hub.clients = 2

	resp, body := env.do(t, http.MethodGet, "/api/v1/chat/stats", "")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out ChatStatsResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, 2, out.ConnectedClients)
	assert.Equal(t, 1, out.Hub.NamedUsers)
	assert.Equal(t, 3, out.Activity.MessagesSent)
}

func TestChatStatsHubStopped(t *testing.T) {
	env := newTestEnv(t)
	env.chat.err = chat.ErrHubStopped

	resp, body := env.do(t, http.MethodGet, "/api/v1/chat/stats", "")

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"message":"Something went wrong!"}`, string(body))
}

func TestRateLimiterOnlyGuardsAPI(t *testing.T) {
	m := NewModule(Config{}, &mockLogger{})
	m.bugs = newFakeBugs()
	m.chat = &fakeChat{}
	m.activity = &fakeActivity{}
	m.hub = &fakeHub{}
	m.SetRateLimiter(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTooManyRequests, "Too many requests, please try again later.")
	})
	app := m.buildApp()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/bugs", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestModule_StartRequiresDependencies(t *testing.T) {
	m := NewModule(Config{}, &mockLogger{})
	assert.Equal(t, "api", m.Name())
	assert.ElementsMatch(t, []string{"chat", "bug", "activity"}, m.Dependencies())

	err := m.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat dependency not set")

	assert.NoError(t, m.Stop(context.Background()))
	assert.False(t, m.Health(context.Background()).Healthy)
}
