package api

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/example/bugtracker-chat/modules/broadcast"
	"github.com/example/bugtracker-chat/modules/chat"
	"github.com/gofiber/contrib/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeWSConn struct {
	mu        sync.Mutex
	reads     chan []byte
	frames    []chat.Frame
	readLimit int64
	closed    bool
}

func newFakeWSConn() *fakeWSConn {
	return &fakeWSConn{reads: make(chan []byte, 16)}
}

func (c *fakeWSConn) ReadMessage() (int, []byte, error) {
	data, ok := <-c.reads
	if !ok {
		return 0, nil, io.EOF
	}
	return websocket.TextMessage, data, nil
}

func (c *fakeWSConn) WriteMessage(messageType int, data []byte) error {
	if messageType != websocket.TextMessage {
		return nil
	}
	var f chat.Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeWSConn) SetWriteDeadline(time.Time) error  { return nil }
func (c *fakeWSConn) SetReadDeadline(time.Time) error   { return nil }
func (c *fakeWSConn) SetPongHandler(func(string) error) {}

func (c *fakeWSConn) SetReadLimit(limit int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readLimit = limit
}

func (c *fakeWSConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeWSConn) errors() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, f := range c.frames {
		if f.Event != chat.ServerError {
			continue
		}
		var p chat.ErrorPayload
		_ = json.Unmarshal(f.Data, &p)
		out = append(out, p.Message)
	}
	return out
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []chat.Event
	err    error
}

func (d *recordingDispatcher) record(ev chat.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, ev)
	return d.err
}

func (d *recordingDispatcher) Connect(_ context.Context, connID string) error {
	return d.record(chat.Event{Kind: chat.EventConnect, ConnID: connID})
}

func (d *recordingDispatcher) Dispatch(_ context.Context, ev chat.Event) error {
	return d.record(ev)
}

func (d *recordingDispatcher) Disconnect(_ context.Context, connID string) error {
	return d.record(chat.Event{Kind: chat.EventDisconnect, ConnID: connID})
}

func (d *recordingDispatcher) kinds() []chat.EventKind {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]chat.EventKind, len(d.events))
	for i, ev := range d.events {
		out[i] = ev.Kind
	}
	return out
}

func newSessionModule(t *testing.T) (*APIModule, *broadcast.Hub, *recordingDispatcher) {
	t.Helper()
	hub := broadcast.NewHub(&mockLogger{})
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		hub.Wait()
	})

	d := &recordingDispatcher{}
	m := NewModule(Config{MaxFrameBytes: 1024}, &mockLogger{})
	m.SetHub(hub)
	m.SetDispatcher(d)
	return m, hub, d
}

func runSession(m *APIModule, conn *fakeWSConn, id string) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		m.serveConn(conn, id)
		close(done)
	}()
	return done
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not end")
	}
}

func TestServeConn_DispatchesFramesInOrder(t *testing.T) {
	m, hub, d := newSessionModule(t)
	conn := newFakeWSConn()
	done := runSession(m, conn, "c1")

	conn.reads <- []byte(`{"event":"user_join","data":"alice"}`)
	conn.reads <- []byte(`{"event":"join_room","data":"lobby"}`)
	conn.reads <- []byte(`{"event":"send_message","data":{"message":"hi","room":"lobby"}}`)
	close(conn.reads)
	waitDone(t, done)

	assert.Equal(t, []chat.EventKind{
		chat.EventConnect,
		chat.EventUserJoin,
		chat.EventJoinRoom,
		chat.EventSendMessage,
		chat.EventDisconnect,
	}, d.kinds())

	d.mu.Lock()
	assert.Equal(t, "c1", d.events[1].ConnID)
	assert.JSONEq(t, `"alice"`, string(d.events[1].Data))
	d.mu.Unlock()

	conn.mu.Lock()
	assert.True(t, conn.closed)
	assert.Equal(t, int64(1024), conn.readLimit)
	conn.mu.Unlock()
	assert.Equal(t, 0, hub.ClientCount())
}

func TestServeConn_RejectsMalformedFrames(t *testing.T) {
	m, _, d := newSessionModule(t)
	conn := newFakeWSConn()
	done := runSession(m, conn, "c1")

	conn.reads <- []byte(`not json`)
	conn.reads <- []byte(`{"data":"alice"}`)
	conn.reads <- []byte(`{"event":"disconnect"}`)

	require.Eventually(t, func() bool { return len(conn.errors()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{
		invalidFrameMessage,
		invalidFrameMessage,
		"Unknown event: disconnect",
	}, conn.errors())

	close(conn.reads)
	waitDone(t, done)
	assert.Equal(t, []chat.EventKind{chat.EventConnect, chat.EventDisconnect}, d.kinds())
}

func TestServeConn_EndsWhenHubStopped(t *testing.T) {
	m, hub, d := newSessionModule(t)
	d.err = chat.ErrHubStopped
	conn := newFakeWSConn()

	waitDone(t, runSession(m, conn, "c1"))

	conn.mu.Lock()
	assert.True(t, conn.closed)
	conn.mu.Unlock()
	assert.Equal(t, 0, hub.ClientCount())
}
