package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/RadishSystems/choiceview-webapi-demo/internal/config"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/domain"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/protocol"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/service"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/signalbridge"
)

// CallService runs answered calls.
type CallService interface {
	NewCallContext(callerID, callID, callSessionID string) domain.CallContext
	HandleCall(ctx context.Context, rt service.Runtime, cc domain.CallContext) (domain.CallOutcome, error)
}

// Server handles gateway WebSocket connections.
type Server struct {
	cfg      *config.Config
	hub      *Hub
	calls    CallService
	logger   *zap.Logger
	upgrader websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer creates a new WebSocket server.
func NewServer(cfg *config.Config, h *Hub, calls CallService, logger *zap.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:    cfg,
		hub:    h,
		calls:  calls,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Gateways are not browsers.
				return true
			},
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

// Close cancels running calls and waits for them to finish their cleanup.
func (s *Server) Close() {
	s.cancel()
	s.wg.Wait()
}

// ConnectionCount returns the number of connected gateways.
func (s *Server) ConnectionCount() int {
	return s.hub.GetConnectionCount()
}

// CallCount returns the number of gateway connections carrying a call.
func (s *Server) CallCount() int {
	return s.hub.GetCallCount()
}

// gatewaySession is the per-connection state owned by the read pump.
type gatewaySession struct {
	conn *Connection
	rt   *callRuntime
}

// HandleWebSocket handles WebSocket upgrade and connection lifecycle.
func (s *Server) HandleWebSocket(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn("failed to upgrade websocket", zap.Error(err))
		return err
	}

	conn := s.hub.NewConnection(ws)
	s.hub.Register(conn)

	ws.SetReadLimit(s.cfg.MaxMessageSize)

	go s.writePump(conn)
	go s.readPump(conn)

	return nil
}

// readPump reads messages from the WebSocket connection.
func (s *Server) readPump(conn *Connection) {
	sess := &gatewaySession{conn: conn}
	defer func() {
		if sess.rt != nil {
			sess.rt.hangup()
		}
		s.hub.Unregister(conn)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warn("websocket error", zap.Error(err))
			}
			break
		}
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))

		s.handleMessage(sess, message)
	}
}

// writePump writes messages to the WebSocket connection.
func (s *Server) writePump(conn *Connection) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if !ok {
				// Hub closed the channel
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.Warn("failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage dispatches incoming messages to appropriate handlers.
func (s *Server) handleMessage(sess *gatewaySession, data []byte) {
	var baseMsg protocol.BaseMessage
	if err := json.Unmarshal(data, &baseMsg); err != nil {
		s.sendError(sess.conn, protocol.ErrorCodeInvalidMessage, "invalid JSON message")
		return
	}

	switch baseMsg.Type {
	case protocol.TypeCallAnswered:
		s.handleCallAnswered(sess, data)
	case protocol.TypeSayDone:
		s.handlePromptReply(sess, baseMsg.PromptID, protocol.AskResultMessage{BaseMessage: baseMsg})
	case protocol.TypeAskResult:
		var msg protocol.AskResultMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError(sess.conn, protocol.ErrorCodeInvalidMessage, "invalid ask_result message")
			return
		}
		switch msg.Name {
		case service.ResultChoice, service.ResultTimeout, service.ResultNoMatch:
		default:
			s.sendError(sess.conn, protocol.ErrorCodeInvalidMessage, "name must be choice, timeout or nomatch")
			return
		}
		s.handlePromptReply(sess, msg.PromptID, msg)
	case protocol.TypeHangup:
		if sess.rt == nil {
			s.sendError(sess.conn, protocol.ErrorCodeCallRequired, "no call on this connection")
			return
		}
		s.logger.Info("caller hung up", zap.String("call_session_id", sess.conn.CallSessionID))
		sess.rt.hangup()
	default:
		s.sendError(sess.conn, protocol.ErrorCodeInvalidMessage, "unknown message type: "+baseMsg.Type)
	}
}

// handleCallAnswered starts the call flow for a new call.
func (s *Server) handleCallAnswered(sess *gatewaySession, data []byte) {
	var msg protocol.CallAnsweredMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(sess.conn, protocol.ErrorCodeInvalidMessage, "invalid call_answered message")
		return
	}
	if sess.rt != nil {
		s.sendError(sess.conn, protocol.ErrorCodeCallActive, "call already answered on this connection")
		return
	}
	if msg.CallerID == "" || msg.CallID == "" {
		s.sendError(sess.conn, protocol.ErrorCodeInvalidMessage, "caller_id and call_id are required")
		return
	}

	cc := s.calls.NewCallContext(msg.CallerID, msg.CallID, msg.CallSessionID)
	if !s.hub.BindCall(sess.conn, cc.CallSessionID) {
		s.sendError(sess.conn, protocol.ErrorCodeCallActive, "call session already active")
		return
	}
	rt := newCallRuntime(s.hub, sess.conn, cc.CallSessionID, s.cfg.AskGrace)
	sess.rt = rt

	s.hub.SendJSONToConnection(sess.conn, protocol.CallAcceptedMessage{
		BaseMessage: protocol.BaseMessage{
			Type:          protocol.TypeCallAccepted,
			Ts:            time.Now().UnixMilli(),
			CallSessionID: cc.CallSessionID,
		},
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		outcome, err := s.calls.HandleCall(s.ctx, rt, cc)
		switch {
		case errors.Is(err, signalbridge.ErrCallActive):
			s.sendError(sess.conn, protocol.ErrorCodeCallActive, err.Error())
		case err != nil:
			s.sendError(sess.conn, protocol.ErrorCodeStartupFailed, err.Error())
		}
		s.hub.SendJSONToConnection(sess.conn, protocol.CallEndedMessage{
			BaseMessage: protocol.BaseMessage{
				Type:          protocol.TypeCallEnded,
				Ts:            time.Now().UnixMilli(),
				CallSessionID: cc.CallSessionID,
			},
			Outcome: string(outcome),
		})
	}()
}

func (s *Server) handlePromptReply(sess *gatewaySession, promptID string, res protocol.AskResultMessage) {
	if sess.rt == nil {
		s.sendError(sess.conn, protocol.ErrorCodeCallRequired, "no call on this connection")
		return
	}
	if !sess.rt.resolve(promptID, res) {
		s.logger.Debug("reply for inactive prompt",
			zap.String("call_session_id", sess.conn.CallSessionID),
			zap.String("prompt_id", promptID))
	}
}

// sendError sends an error message to a connection.
func (s *Server) sendError(conn *Connection, code, message string) {
	errMsg := protocol.ErrorMessage{
		BaseMessage: protocol.BaseMessage{
			Type:          protocol.TypeError,
			Ts:            time.Now().UnixMilli(),
			CallSessionID: conn.CallSessionID,
		},
		Code:    code,
		Message: message,
	}
	s.hub.SendJSONToConnection(conn, errMsg)
}
