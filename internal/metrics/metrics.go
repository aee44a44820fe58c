package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// result 标签取值
const (
	ResultOK       = "ok"
	ResultFailed   = "failed"
	ResultConflict = "conflict"
	ResultRejected = "rejected"
)

var (
	// JoinRequests 入群申请的提交与处理结果
	// Labels: op (submit, approve, reject), result
	JoinRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "uni_connect",
		Subsystem: "groups",
		Name:      "join_requests_total",
		Help:      "Join request submissions and resolutions by outcome",
	}, []string{"op", "result"})

	// Notifications 通知写入结果，失败不影响主流程
	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "uni_connect",
		Subsystem: "notifications",
		Name:      "notifications_total",
		Help:      "Notification inserts by outcome",
	}, []string{"result"})

	RealtimeSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "uni_connect",
		Subsystem: "realtime",
		Name:      "subscriptions",
		Help:      "Currently open realtime subscriptions",
	})

	OutboxRelayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "uni_connect",
		Subsystem: "outbox",
		Name:      "relayed_total",
		Help:      "Outbox events relayed by outcome",
	}, []string{"result"})
)
