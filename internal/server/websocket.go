package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/paiml/rosetta-ruchy-sub000/internal/constants"
	"github.com/paiml/rosetta-ruchy-sub000/internal/domain"
	apperrors "github.com/paiml/rosetta-ruchy-sub000/pkg/errors"
)

const (
	watchStage  = "stage"
	watchResult = "result"
	watchError  = "error"
)

// watchMessage is one frame of the /ws/translate stream. Stage frames carry
// the event fields inline.
type watchMessage struct {
	Type string `json:"type"`
	*domain.StageEvent
	Result *domain.TranslationResult `json:"result,omitempty"`
	Error  *errorResponse            `json:"error,omitempty"`
}

// watchConn serialises writes to one client. Only the handler goroutine
// writes.
type watchConn struct {
	conn    *websocket.Conn
	logger  *zap.Logger
	failed  bool
	timeout time.Duration
}

func (c *watchConn) send(msg watchMessage) {
	if c.failed {
		return
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	if err := c.conn.WriteJSON(msg); err != nil {
		c.failed = true
		c.logger.Debug("WebSocket write failed", zap.String("type", msg.Type), zap.Error(err))
	}
}

func (c *watchConn) close() {
	if !c.failed {
		deadline := time.Now().Add(c.timeout)
		_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	}
	_ = c.conn.Close()
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	requestID := RequestIDFrom(r.Context())
	logger := s.logger.With(zap.String("request_id", requestID))
	wc := &watchConn{conn: conn, logger: logger, timeout: constants.Timeouts.WSWrite}
	defer wc.close()

	if s.cfg.MaxBodyBytes > 0 {
		conn.SetReadLimit(s.cfg.MaxBodyBytes)
	}
	_ = conn.SetReadDeadline(time.Now().Add(constants.Timeouts.WSHandshake))

	var body translateRequest
	if err := conn.ReadJSON(&body); err != nil {
		if errors.Is(err, websocket.ErrReadLimit) {
			err = apperrors.NewAppError("request message too large", apperrors.CodePayloadTooLarge, http.StatusRequestEntityTooLarge, nil).WithCause(err)
		} else {
			err = apperrors.NewValidationError("malformed JSON message: "+err.Error(), "body", nil)
		}
		s.sendError(wc, requestID, err)
		return
	}

	req, err := body.toDomain(requestID)
	if err != nil {
		s.sendError(wc, requestID, err)
		return
	}

	res, err := s.pipeline.Translate(r.Context(), req, func(e domain.StageEvent) {
		event := e
		wc.send(watchMessage{Type: watchStage, StageEvent: &event})
	})
	if err != nil {
		s.sendError(wc, requestID, err)
		return
	}
	wc.send(watchMessage{Type: watchResult, Result: res})
	logger.Debug("WebSocket translation streamed", zap.String("language", res.SourceLanguage))
}

func (s *Server) sendError(wc *watchConn, requestID string, err error) {
	status, body := envelope(err, requestID)
	if status >= http.StatusInternalServerError {
		wc.logger.Error("WebSocket translation failed", zap.Error(err))
	}
	wc.send(watchMessage{Type: watchError, Error: &body})
}
