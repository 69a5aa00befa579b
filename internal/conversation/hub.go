package conversation

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yichen/compass/backend/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 8192
)

// Hub upgrades conversation websockets and drives one stage machine per
// session. 每个连接一个会话, 会话之间无共享可变状态.
// ⭐ SSOT: 会话编排只在这里
type Hub struct {
	flow    *Flow
	advisor Advisor
	checker MessageChecker
	logger  *logger.Logger

	upgrader websocket.Upgrader

	sessions map[*session]bool
	mu       sync.Mutex
}

// session binds one websocket connection to its conversation state
type session struct {
	conn  *websocket.Conn
	send  chan ServerMessage
	state sessionState
}

// push queues an outbound frame without blocking the read loop.
// 客户端停止读取时丢弃该帧, 读循环继续推进到连接关闭
func (s *session) push(msg ServerMessage) {
	select {
	case s.send <- msg:
	default:
	}
}

// NewHub creates a conversation hub
func NewHub(flow *Flow, advisor Advisor, checker MessageChecker, log *logger.Logger) *Hub {
	return &Hub{
		flow:    flow,
		advisor: advisor,
		checker: checker,
		logger:  log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 同源校验交给上层网关
			CheckOrigin: func(*http.Request) bool { return true },
		},
		sessions: make(map[*session]bool),
	}
}

// ServeHTTP upgrades the request and runs the session loops
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	returning := r.URL.Query().Get("returning") == "true"
	s := &session{
		conn: conn,
		send: make(chan ServerMessage, 16),
		state: sessionState{
			stage: h.flow.InitialStage(returning),
		},
	}

	h.mu.Lock()
	h.sessions[s] = true
	h.mu.Unlock()

	go h.writePump(s)
	s.push(ServerMessage{Type: "stage", Stage: s.state.stage, Progress: h.flow.Progress(s.state.stage)})
	h.readPump(s)
}

// SessionCount reports the number of live sessions
func (h *Hub) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

func (h *Hub) readPump(s *session) {
	defer h.drop(s)

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg ClientMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.WithError(err).Warn("WebSocket read failed")
			}
			return
		}
		h.handle(s, msg)
	}
}

func (h *Hub) writePump(s *session) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	// 写失败时关闭连接, 让读循环解除阻塞并走 drop 清理
	defer func() { _ = s.conn.Close() }()

	for {
		select {
		case msg, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handle advances the stage machine on one inbound frame
func (h *Hub) handle(s *session, msg ClientMessage) {
	// 合规检查先行, 命中违禁词直接拒绝本条消息
	if h.checker != nil && msg.Text != "" {
		if violations := h.checker.Check(msg.Text); len(violations) > 0 {
			s.push(ServerMessage{Type: "error", Violations: violations, Error: "message rejected by compliance filter"})
			return
		}
	}

	s.state.mergeElements(msg.Elements)

	previous := s.state.stage
	s.state.stage = h.flow.NextStage(previous, msg.Text, &s.state.elements)

	s.push(ServerMessage{
		Type:     "stage",
		Stage:    s.state.stage,
		Progress: h.flow.Progress(s.state.stage),
	})

	switch s.state.stage {
	case StageStrategyGeneration:
		h.generate(s)
	case StageStrategyOptimize:
		if previous == StageStrategyOptimize || msg.Text != "" {
			h.optimize(s, msg.Text)
		}
	}
}

func (h *Hub) generate(s *session) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	strategy, err := h.advisor.Generate(ctx, s.state.userID, "", &s.state.elements)
	if err != nil {
		s.push(ServerMessage{Type: "error", Error: err.Error()})
		return
	}
	s.state.strategyID = strategy.ID
	s.state.stage = StageStrategyPresent

	result, err := h.advisor.Backtest(ctx, strategy.ID, 0)
	if err != nil {
		h.logger.WithError(err).WithStrategy(strategy.ID).Warn("Backtest failed after generation")
	}

	s.push(ServerMessage{
		Type:     "strategy",
		Stage:    s.state.stage,
		Progress: h.flow.Progress(s.state.stage),
		Strategy: strategy,
		Backtest: result,
	})
}

func (h *Hub) optimize(s *session, feedback string) {
	if s.state.strategyID == 0 {
		s.push(ServerMessage{Type: "error", Error: "no strategy to optimize"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	strategy, changes, err := h.advisor.Optimize(ctx, s.state.strategyID, feedback)
	if err != nil {
		s.push(ServerMessage{Type: "error", Error: err.Error()})
		return
	}
	s.state.stage = StageStrategyPresent

	s.push(ServerMessage{
		Type:     "changes",
		Stage:    s.state.stage,
		Progress: h.flow.Progress(s.state.stage),
		Strategy: strategy,
		Changes:  changes,
	})
}

func (h *Hub) drop(s *session) {
	h.mu.Lock()
	delete(h.sessions, s)
	h.mu.Unlock()
	close(s.send)
	_ = s.conn.Close()
}
