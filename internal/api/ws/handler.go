package ws

import (
	"errors"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/codefixlab/internal/domain/frame"
	"github.com/GriffinCanCode/codefixlab/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/codefixlab/internal/sandbox"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 2 << 20
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Origins are enforced by the CORS middleware
	},
}

// Message is a client request on the live preview channel
type Message struct {
	Type     string `json:"type"`
	Markup   string `json:"markup,omitempty"`
	Style    string `json:"style,omitempty"`
	Script   string `json:"script,omitempty"`
	Selector string `json:"selector,omitempty"`
	Event    string `json:"event,omitempty"`
}

// Reply is sent back for every client message
type Reply struct {
	Type      string           `json:"type"`
	FrameID   string           `json:"frame_id,omitempty"`
	Outcome   *sandbox.Outcome `json:"outcome,omitempty"`
	Message   string           `json:"message,omitempty"`
	Timestamp int64            `json:"timestamp"`
}

// Handler manages live preview connections. Each connection is bound to one
// frame and handles its messages strictly in arrival order.
type Handler struct {
	frames  *frame.Manager
	metrics *monitoring.Metrics
	runs    *rate.Limiter
	logger  *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(frames *frame.Manager, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		frames: frames,
		logger: logger,
	}
}

// WithMetrics adds metrics tracking to the handler
func (h *Handler) WithMetrics(metrics *monitoring.Metrics) *Handler {
	h.metrics = metrics
	return h
}

// WithRunLimiter charges run and dispatch messages against a shared budget.
// A nil limiter leaves messages unmetered.
func (h *Handler) WithRunLimiter(limiter *rate.Limiter) *Handler {
	h.runs = limiter
	return h
}

// HandleConnection upgrades the request and serves the frame's live channel
func (h *Handler) HandleConnection(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.frames.Get(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}

	ctx := c.Request.Context()
	h.send(conn, Reply{Type: "system", FrameID: id, Message: "Connected to live preview"})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("WebSocket read error", zap.String("frame", id), zap.Error(err))
			}
			return
		}

		var msg Message
		if err := sonic.Unmarshal(data, &msg); err != nil {
			h.sendError(conn, "invalid message: "+err.Error())
			continue
		}
		h.record("in", msg.Type)

		if (msg.Type == "run" || msg.Type == "dispatch") && !h.allowRun() {
			h.sendError(conn, "rate limit exceeded")
			continue
		}

		switch msg.Type {
		case "run":
			bundle := sandbox.SourceBundle{Markup: msg.Markup, Style: msg.Style, Script: msg.Script}
			outcome, err := h.frames.Run(ctx, id, bundle)
			if err != nil {
				h.sendFailure(conn, err)
				continue
			}
			h.send(conn, Reply{Type: "outcome", FrameID: id, Outcome: outcome})
		case "dispatch":
			event := msg.Event
			if event == "" {
				event = "click"
			}
			outcome, err := h.frames.Dispatch(ctx, id, msg.Selector, event)
			if err != nil {
				h.sendFailure(conn, err)
				continue
			}
			h.send(conn, Reply{Type: "outcome", FrameID: id, Outcome: outcome})
		case "clear":
			if err := h.frames.Clear(id); err != nil {
				h.sendFailure(conn, err)
				continue
			}
			h.send(conn, Reply{Type: "cleared", FrameID: id})
		case "ping":
			h.send(conn, Reply{Type: "pong"})
		default:
			h.sendError(conn, "unknown message type")
		}
	}
}

func (h *Handler) allowRun() bool {
	return h.runs == nil || h.runs.Allow()
}

func (h *Handler) send(conn *websocket.Conn, reply Reply) error {
	if reply.Timestamp == 0 {
		reply.Timestamp = time.Now().Unix()
	}
	data, err := sonic.Marshal(reply)
	if err != nil {
		return err
	}
	h.record("out", reply.Type)
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (h *Handler) sendError(conn *websocket.Conn, msg string) error {
	return h.send(conn, Reply{Type: "error", Message: msg})
}

// sendFailure reports a host-side error without closing the connection
func (h *Handler) sendFailure(conn *websocket.Conn, err error) error {
	if errors.Is(err, frame.ErrNotFound) {
		return h.sendError(conn, "frame no longer exists")
	}
	return h.sendError(conn, err.Error())
}

func (h *Handler) record(direction, msgType string) {
	if h.metrics != nil {
		h.metrics.RecordWSMessage(direction, msgType)
	}
}
