package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"Uni_Connect/internal/realtime"
	"Uni_Connect/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsReadLimit  = 512
	historyLimit = 50
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// RealtimeHandler /api/ws?topic=group:1&after_id=0
// 先订阅再下发历史，之后的实时事件经 Feed 去重，避免订阅间隙丢消息或重复
type RealtimeHandler struct {
	messages *service.MessageService
	notices  *service.NotificationService
	broker   realtime.Broker
	log      *zap.Logger
}

func NewRealtimeHandler(messages *service.MessageService, notices *service.NotificationService, broker realtime.Broker, log *zap.Logger) *RealtimeHandler {
	return &RealtimeHandler{messages: messages, notices: notices, broker: broker, log: log}
}

func (h *RealtimeHandler) Serve(c *gin.Context) {
	uid := currentUser(c)
	topic := c.Query("topic")
	t, err := h.messages.AuthorizeTopic(c.Request.Context(), uid, topic)
	if err != nil {
		fail(c, err)
		return
	}
	after, valid := uintQuery(c, "after_id")
	if !valid {
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	sub, err := h.broker.Subscribe(ctx, topic)
	if err != nil {
		fail(c, fmt.Errorf("%w: subscribe: %w", service.ErrStoreUnavailable, err))
		return
	}
	defer sub.Close()

	history, err := h.history(ctx, uid, topic, t, after)
	if err != nil {
		fail(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Debug("ws upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	feed := realtime.NewFeed()
	for _, ev := range history {
		feed.Admit(ev)
		if err := writeEvent(conn, ev); err != nil {
			return
		}
	}

	go readPump(conn, cancel)

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, open := <-sub.Events():
			if !open {
				return
			}
			if !feed.Admit(ev) {
				continue
			}
			if err := writeEvent(conn, ev); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// history 以插入事件的形式返回订阅前已存在的记录
func (h *RealtimeHandler) history(ctx context.Context, uid uint64, topic string, t realtime.Topic, after uint64) ([]realtime.Event, error) {
	var (
		out []realtime.Event
		add = func(id uint64, v any) error {
			ev, err := realtime.NewEvent(topic, realtime.KindInsert, id, v)
			if err != nil {
				return err
			}
			out = append(out, ev)
			return nil
		}
	)
	switch t.Kind {
	case realtime.TopicGroup:
		list, err := h.messages.ListGroupMessages(ctx, t.IDs[0], uid, after, historyLimit)
		if err != nil {
			return nil, err
		}
		for i := range list {
			if err := add(list[i].ID, &list[i]); err != nil {
				return nil, err
			}
		}
	case realtime.TopicDirect:
		peer := t.IDs[0]
		if peer == uid {
			peer = t.IDs[1]
		}
		list, err := h.messages.ListDirectMessages(ctx, uid, peer, after, historyLimit)
		if err != nil {
			return nil, err
		}
		for i := range list {
			if err := add(list[i].ID, &list[i]); err != nil {
				return nil, err
			}
		}
	case realtime.TopicUser:
		list, err := h.notices.FetchInbox(ctx, uid)
		if err != nil {
			return nil, err
		}
		for i := range list {
			if err := add(list[i].ID, &list[i]); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func writeEvent(conn *websocket.Conn, ev realtime.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(ev)
}

// readPump 只处理 pong 与关闭，客户端不通过 ws 写数据
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
