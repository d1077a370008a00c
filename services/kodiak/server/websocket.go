package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/kodiak/services/kodiak"
	"github.com/AleutianAI/kodiak/services/kodiak/dispatch"
)

// syncFrame is one editor message on the sync stream. Buffer frames may
// carry a kind so an editor can apply an edit and trigger analysis in a
// single round trip.
type syncFrame struct {
	Op      string   `json:"op" validate:"required,oneof=open replace clear remove event"`
	File    string   `json:"file,omitempty"`
	Content string   `json:"content,omitempty"`
	Version *int64   `json:"version,omitempty"`
	Kind    string   `json:"kind,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// syncReply answers one frame. Exactly one reply is written per frame,
// plus the initial session_created reply on connect.
type syncReply struct {
	Op        string              `json:"op"`
	SessionID string              `json:"session_id,omitempty"`
	File      string              `json:"file,omitempty"`
	State     *kodiak.BufferState `json:"state,omitempty"`
	Accepted  *bool               `json:"accepted,omitempty"`
	Outcome   *dispatch.Outcome   `json:"outcome,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// frameValidate checks sync frames. Websocket payloads never pass
// through gin's binding layer, so validation happens by hand here.
var frameValidate *validator.Validate

func init() {
	frameValidate = validator.New()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	// Frames carry whole buffer contents on every edit.
	ReadBufferSize:  1024 * 1024,
	WriteBufferSize: 1024 * 1024,
}

func sendJSON(logger *slog.Logger, ws *websocket.Conn, v any) error {
	err := ws.WriteJSON(v)
	if err != nil {
		logger.Warn("Failed to write websocket JSON", "error", err)
	}
	return err
}

// HandleSync handles GET /v1/sync.
//
// Description:
//
//	Upgrades the connection and serves the editor sync stream. The
//	session ID is sent immediately on connect; after that the loop reads
//	one frame, applies it, and writes one reply until the client goes
//	away. Frames share the service entry points with the REST surface,
//	so a buffer opened here is visible to GET /v1/buffers and the other
//	way around.
func (h *Handlers) HandleSync(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("Failed to upgrade the sync websocket", "error", err)
		return
	}
	defer ws.Close()

	sessionID := uuid.NewString()
	logger := h.log.With("session_id", sessionID)
	logger.Info("Sync client connected")

	if err := sendJSON(logger, ws, syncReply{Op: "session_created", SessionID: sessionID}); err != nil {
		return
	}

	for {
		var frame syncFrame
		if err := ws.ReadJSON(&frame); err != nil {
			logger.Info("Sync client disconnected", "error", err.Error())
			break
		}
		if err := sendJSON(logger, ws, h.applyFrame(c.Request.Context(), frame)); err != nil {
			return
		}
	}
}

// applyFrame applies one sync frame and builds its reply. Errors are
// reported on the reply rather than tearing down the stream; a stuck
// editor should not lose its session over one bad frame.
func (h *Handlers) applyFrame(ctx context.Context, frame syncFrame) syncReply {
	reply := syncReply{Op: frame.Op, File: frame.File}

	if err := frameValidate.Struct(&frame); err != nil {
		reply.Error = fmt.Sprintf("invalid frame: %v", err)
		return reply
	}

	switch frame.Op {
	case "open", "replace", "clear", "remove":
		if frame.File == "" {
			reply.Error = fmt.Sprintf("op %q requires a file", frame.Op)
			return reply
		}
	}

	switch frame.Op {
	case "open":
		state, err := h.svc.OpenBuffer(frame.File, frame.Content)
		if err != nil {
			reply.Error = err.Error()
			return reply
		}
		reply.State = &state

	case "replace":
		if frame.Version == nil {
			reply.Error = "replace requires a version"
			return reply
		}
		state, accepted, err := h.svc.ReplaceBuffer(ctx, frame.File, frame.Content, *frame.Version)
		if err != nil {
			reply.Error = err.Error()
			return reply
		}
		reply.State = &state
		reply.Accepted = &accepted

	case "clear":
		state, err := h.svc.ClearBuffer(frame.File)
		if err != nil {
			reply.Error = err.Error()
			return reply
		}
		reply.State = &state

	case "remove":
		h.svc.RemoveBuffer(frame.File)
	}

	if frame.Op == "event" && frame.Kind == "" {
		reply.Error = `op "event" requires a kind`
		return reply
	}
	if frame.Kind == "" {
		return reply
	}

	kind, err := dispatch.ParseKind(frame.Kind)
	if err != nil {
		reply.Error = err.Error()
		return reply
	}
	outcome, err := h.svc.Dispatch(ctx, dispatch.NewEvent(kind, frame.Tags...))
	if outcome != nil {
		reply.Outcome = outcome
	}
	if err != nil {
		reply.Error = err.Error()
	}
	return reply
}
