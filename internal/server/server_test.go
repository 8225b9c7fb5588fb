package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/causeway/internal/engine"
	"github.com/roach88/causeway/internal/graph"
	"github.com/roach88/causeway/internal/testutil"
)

func newTestServer(t *testing.T) (*httptest.Server, *engine.Engine, *Hub) {
	t.Helper()
	hub := NewHub()
	e := engine.New(
		engine.WithSessionID("srv"),
		engine.WithStrings(testutil.StringTable()),
		engine.WithController(hub),
	)
	ts := httptest.NewServer(New(e, hub, Config{}).Handler())
	t.Cleanup(func() {
		hub.Close()
		ts.Close()
	})
	return ts, e, hub
}

func postChunk(t *testing.T, ts *httptest.Server, chunk []byte) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/v1/chunks", "application/octet-stream", bytes.NewReader(chunk))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestPostChunk_OK(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp := postChunk(t, ts, testutil.MainChunk())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res engine.FeedResult
	decodeBody(t, resp, &res)
	assert.Equal(t, int64(1), res.Seq)
	require.Len(t, res.Entities, 1)
	assert.Equal(t, "Main", res.Entities[0].Name)
}

func TestPostChunk_FormatError(t *testing.T) {
	ts, e, _ := newTestServer(t)

	resp := postChunk(t, ts, testutil.TruncatedChunk())
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var body FormatErrorResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, "TRUNCATED_RECORD", body.Code)
	assert.Equal(t, 0, body.Offset)
	assert.Equal(t, 3, body.Missing)
	assert.Empty(t, body.Entities)

	// The next chunk decodes normally.
	resp = postChunk(t, ts, testutil.MainChunk())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, e.History().Snapshot().Entities)
}

func TestGetNodesAndLinks(t *testing.T) {
	ts, _, _ := newTestServer(t)
	postChunk(t, ts, testutil.MainChunk())
	postChunk(t, ts, testutil.WorkersChunk(2))

	resp, err := http.Get(ts.URL + "/api/v1/nodes")
	require.NoError(t, err)
	defer resp.Body.Close()
	var nodes []graph.NodeView
	decodeBody(t, resp, &nodes)
	require.Len(t, nodes, 3)
	assert.Equal(t, "a1", nodes[0].DataID)

	resp2, err := http.Get(ts.URL + "/api/v1/links")
	require.NoError(t, err)
	defer resp2.Body.Close()
	var links []graph.LinkView
	decodeBody(t, resp2, &links)

	var creations int
	for _, l := range links {
		if l.Creation {
			creations++
			assert.Equal(t, "a1", l.Source)
		}
	}
	assert.Equal(t, 2, creations)
}

func TestGetStats(t *testing.T) {
	ts, _, _ := newTestServer(t)
	postChunk(t, ts, testutil.MainChunk())
	postChunk(t, ts, testutil.PingChunk(1, 1, 1, 3))

	resp, err := http.Get(ts.URL + "/api/v1/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var stats StatsResponse
	decodeBody(t, resp, &stats)
	assert.Equal(t, "srv", stats.Session)
	assert.Equal(t, int64(2), stats.Seq)
	assert.Equal(t, 1, stats.Entities)
	assert.Equal(t, 3, stats.Messages)
	assert.Equal(t, 0, stats.MaxMessageSends, "self-sends are not counted")
	assert.Equal(t, 3, stats.Strings)
	assert.Equal(t, 2, stats.Decoder.Chunks)
}

func TestGetSnapshot(t *testing.T) {
	ts, _, _ := newTestServer(t)
	postChunk(t, ts, testutil.MainChunk())

	resp, err := http.Get(ts.URL + "/api/v1/snapshot")
	require.NoError(t, err)
	defer resp.Body.Close()

	var snap graph.Snapshot
	decodeBody(t, resp, &snap)
	assert.Equal(t, 1, snap.Entities)
	_, ok := snap.Node("a1")
	assert.True(t, ok)
}

func TestGetEntity(t *testing.T) {
	ts, _, _ := newTestServer(t)
	postChunk(t, ts, testutil.MainChunk())

	resp, err := http.Get(ts.URL + "/api/v1/entities/1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body EntityResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, "Main", body.Entity.Name)
	assert.Equal(t, "#a1", body.Node.Query)

	for path, status := range map[string]int{
		"/api/v1/entities/99":  http.StatusNotFound,
		"/api/v1/entities/abc": http.StatusBadRequest,
	} {
		r, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		r.Body.Close()
		assert.Equal(t, status, r.StatusCode, path)
	}
}

func TestPostStrings(t *testing.T) {
	ts, e, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/v1/strings", "application/json",
		strings.NewReader(`{"ids":[40],"values":["Late"]}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	v, ok := e.Strings().Lookup(40)
	assert.True(t, ok)
	assert.Equal(t, "Late", v)

	for _, body := range []string{`{"ids":[1,2],"values":["a"]}`, `not json`} {
		r, err := http.Post(ts.URL+"/api/v1/strings", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		r.Body.Close()
		assert.Equal(t, http.StatusBadRequest, r.StatusCode, body)
	}
}

func TestWebSocket_BroadcastsNewEntities(t *testing.T) {
	ts, _, hub := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 5*time.Second, 10*time.Millisecond)

	postChunk(t, ts, testutil.MainChunk())

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MessageNewEntities, msg.Type)
	assert.Equal(t, int64(1), msg.Seq)
	require.Len(t, msg.Entities, 1)
	assert.Equal(t, "Main", msg.Entities[0].Name)
}

func TestHub_NoClients(t *testing.T) {
	hub := NewHub()
	hub.NewEntities(context.Background(), 1, nil)
	assert.Equal(t, 0, hub.Clients())
	hub.Close()
}

func TestOriginChecker(t *testing.T) {
	check := OriginChecker([]string{"http://localhost:3000"})

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, check(req), "no Origin header")

	req.Header.Set("Origin", "http://localhost:3000")
	assert.True(t, check(req))

	req.Header.Set("Origin", "http://evil.example")
	assert.False(t, check(req))

	assert.True(t, OriginChecker([]string{"*"})(req))
}
