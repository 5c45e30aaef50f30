package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/codefixlab/internal/domain/frame"
	"github.com/GriffinCanCode/codefixlab/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/codefixlab/internal/sandbox"
)

func setupServer(t *testing.T) (*httptest.Server, *frame.Manager) {
	t.Helper()
	return setupLimitedServer(t, nil)
}

func setupLimitedServer(t *testing.T, runs *rate.Limiter) (*httptest.Server, *frame.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	runner := sandbox.NewRunner(sandbox.DefaultConfig(), sandbox.NewPool(2, time.Second), nil)
	frames := frame.NewManager(runner, 10)
	handler := NewHandler(frames, nil).WithMetrics(monitoring.NewMetrics()).WithRunLimiter(runs)

	router := gin.New()
	router.GET("/frames/:id/live", handler.HandleConnection)
	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		srv.Close()
		frames.Close()
	})
	return srv, frames
}

func dial(t *testing.T, srv *httptest.Server, id string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/frames/" + id + "/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	welcome := read(t, conn)
	require.Equal(t, "system", welcome.Type)
	return conn
}

func write(t *testing.T, conn *websocket.Conn, msg Message) {
	t.Helper()
	data, err := sonic.Marshal(msg)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func read(t *testing.T, conn *websocket.Conn) Reply {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var reply Reply
	require.NoError(t, sonic.Unmarshal(data, &reply))
	return reply
}

func TestLiveRunSequence(t *testing.T) {
	srv, frames := setupServer(t)
	f, err := frames.Create()
	require.NoError(t, err)
	conn := dial(t, srv, f.ID())

	write(t, conn, Message{Type: "run", Markup: "<p id='a'>first</p>"})
	write(t, conn, Message{Type: "run", Markup: "<p id='b'>second</p>", Script: "throw new Error('boom')"})

	first := read(t, conn)
	require.Equal(t, "outcome", first.Type)
	assert.Equal(t, sandbox.StatusCompleted, first.Outcome.Status)
	assert.Contains(t, first.Outcome.Document, "first")

	second := read(t, conn)
	require.Equal(t, "outcome", second.Type)
	assert.Equal(t, sandbox.StatusFailed, second.Outcome.Status)
	assert.Equal(t, "boom", second.Outcome.Error)
	assert.NotContains(t, second.Outcome.Document, "first")
}

func TestLiveDispatchAndClear(t *testing.T) {
	srv, frames := setupServer(t)
	f, err := frames.Create()
	require.NoError(t, err)
	conn := dial(t, srv, f.ID())

	write(t, conn, Message{
		Type:   "run",
		Markup: "<button id='go'>Go</button><span id='out'></span>",
		Script: "document.getElementById('go').addEventListener('click', function () { document.getElementById('out').textContent = 'clicked'; });",
	})
	require.Equal(t, "outcome", read(t, conn).Type)

	write(t, conn, Message{Type: "dispatch", Selector: "#go"})
	reply := read(t, conn)
	require.Equal(t, "outcome", reply.Type)
	assert.Contains(t, reply.Outcome.Document, "clicked")

	write(t, conn, Message{Type: "clear"})
	assert.Equal(t, "cleared", read(t, conn).Type)
	assert.NotContains(t, f.HTML(), "clicked")

	write(t, conn, Message{Type: "dispatch", Selector: "#go"})
	assert.Equal(t, "error", read(t, conn).Type)
}

func TestLivePingAndUnknown(t *testing.T) {
	srv, frames := setupServer(t)
	f, err := frames.Create()
	require.NoError(t, err)
	conn := dial(t, srv, f.ID())

	write(t, conn, Message{Type: "ping"})
	assert.Equal(t, "pong", read(t, conn).Type)

	write(t, conn, Message{Type: "nope"})
	reply := read(t, conn)
	assert.Equal(t, "error", reply.Type)
	assert.Equal(t, "unknown message type", reply.Message)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	assert.Equal(t, "error", read(t, conn).Type)
}

func TestLiveUnknownFrame(t *testing.T) {
	srv, _ := setupServer(t)

	resp, err := http.Get(srv.URL + "/frames/missing/live")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLiveRunsShareBudget(t *testing.T) {
	// No refill, so only the burst is ever available
	budget := rate.NewLimiter(0, 2)
	srv, frames := setupLimitedServer(t, budget)
	f, err := frames.Create()
	require.NoError(t, err)
	conn := dial(t, srv, f.ID())

	write(t, conn, Message{Type: "run", Markup: "<button id='go'>go</button>"})
	assert.Equal(t, "outcome", read(t, conn).Type)

	write(t, conn, Message{Type: "dispatch", Selector: "#go"})
	assert.Equal(t, "outcome", read(t, conn).Type)

	write(t, conn, Message{Type: "run", Markup: "<p>again</p>"})
	denied := read(t, conn)
	assert.Equal(t, "error", denied.Type)
	assert.Equal(t, "rate limit exceeded", denied.Message)

	write(t, conn, Message{Type: "dispatch", Selector: "#go"})
	assert.Equal(t, "rate limit exceeded", read(t, conn).Message)

	// Messages that run nothing are not charged
	write(t, conn, Message{Type: "ping"})
	assert.Equal(t, "pong", read(t, conn).Type)
	write(t, conn, Message{Type: "clear"})
	assert.Equal(t, "cleared", read(t, conn).Type)
}
