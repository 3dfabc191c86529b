package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"postcode-api/internal/autocomplete"
	"postcode-api/internal/logger"
	"postcode-api/internal/metrics"
	"postcode-api/internal/postcode"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait   = 10 * time.Second
	wsPongWait    = 60 * time.Second
	wsPingPeriod  = wsPongWait * 9 / 10
	wsMaxInputLen = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// 文档注释：连接的待发送队列
// 背景：会话在发布锁内回调推送；回调只入队，由单独的写协程完成 websocket 写入与统计写库，慢客户端不会拖住输入处理。
// 约束：put 从不阻塞；队尾连续的 candidates 只保留最新一条，队列长度因此有界于非 candidates 消息数。
type outbox struct {
	mu   sync.Mutex
	q    []wsOut
	wake chan struct{}
}

func newOutbox() *outbox { return &outbox{wake: make(chan struct{}, 1)} }

func (o *outbox) put(m wsOut) {
	o.mu.Lock()
	if n := len(o.q); n > 0 && m.Type == "candidates" && o.q[n-1].Type == "candidates" {
		o.q[n-1] = m
	} else {
		o.q = append(o.q, m)
	}
	o.mu.Unlock()
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

func (o *outbox) drain() []wsOut {
	o.mu.Lock()
	defer o.mu.Unlock()
	q := o.q
	o.q = nil
	return q
}

// 文档注释：websocket 输入即搜
// 背景：每个连接独占一个会话；客户端逐键发送 input，服务端在每次发布新代次时推送 candidates，选择后推送 selected。
// 约束：读循环结束即关闭会话；只有写协程写连接，发送失败只记日志，由读循环感知断开。
func (h *handlers) ws(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.L().Debug("ws_upgrade_error", "err", err)
		return
	}
	defer conn.Close()

	out := newOutbox()
	sess := autocomplete.NewSession(h.Agg,
		autocomplete.WithDelay(h.Config.DebounceDelay),
		autocomplete.WithMinLength(h.Config.MinLength),
		autocomplete.WithOnUpdate(func(s autocomplete.State) {
			out.put(wsOut{Type: "candidates", State: &s})
		}),
		autocomplete.WithOnSelect(func(res postcode.LookupResult) {
			out.put(wsOut{Type: "selected", Result: &res})
		}))
	defer sess.Close()

	log := logger.Component("ws").With("session", sess.ID)
	metrics.SessionsActive.Inc()
	defer metrics.SessionsActive.Dec()
	log.Debug("ws_open", "remote", getVisitorIP(r))
	out.put(wsOut{Type: "session", Session: sess.ID})

	done := make(chan struct{})
	defer close(done)
	go h.writeLoop(conn, out, done, log)

	conn.SetReadLimit(wsMaxInputLen)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var m wsIn
		if err := conn.ReadJSON(&m); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("ws_read_error", "err", err)
			}
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		switch m.Type {
		case "input":
			sess.Submit(m.Value)
		case "select":
			if err := sess.SelectKey(m.Key); err != nil {
				out.put(wsOut{Type: "error", Message: err.Error()})
			}
		default:
			out.put(wsOut{Type: "error", Message: "unknown message type: " + m.Type})
		}
	}
	log.Debug("ws_close")
}

// writeLoop：连接唯一的写协程，负责推送、心跳与最近片段写库
func (h *handlers) writeLoop(conn *websocket.Conn, out *outbox, done <-chan struct{}, log *slog.Logger) {
	t := time.NewTicker(wsPingPeriod)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		case <-out.wake:
			for _, m := range out.drain() {
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteJSON(m); err != nil {
					log.Debug("ws_send_error", "type", m.Type, "err", err)
				}
				if m.State != nil && len(m.State.Candidates) > 0 {
					h.recordFragment(m.State.Fragment, len(m.State.Candidates))
				}
			}
		}
	}
}

// recordFragment：会话发布的非空结果写入最近片段表
func (h *handlers) recordFragment(fragment string, hits int) {
	if h.Store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.Store.RecordFragment(ctx, fragment, hits); err != nil {
		logger.L().Error("fragment_record_error", "err", err)
	}
}
