package events

import (
	"sync"

	"github.com/qidianbox/aicreator-client/internal/logger"

	"go.uber.org/zap"
)

// Event 核心向展示层广播的类型化事件。
// 取代原生端基于字符串的全局通知，事件只声明事实，不携带业务逻辑。
type Event interface {
	EventName() string
}

// TaskCompleted 生成任务成功结束
type TaskCompleted struct {
	TaskID    string
	ResultRef string
}

func (TaskCompleted) EventName() string { return "task_completed" }

// TaskFailed 生成任务失败
type TaskFailed struct {
	TaskID  string
	Code    int
	Message string
}

func (TaskFailed) EventName() string { return "task_failed" }

// SessionInvalidated 会话失效，需要强制回到登录页
type SessionInvalidated struct {
	Reason string
}

func (SessionInvalidated) EventName() string { return "session_invalidated" }

// EntitlementUpdated 权益缓存已更新
type EntitlementUpdated struct {
	Points           int
	MembershipActive bool
}

func (EntitlementUpdated) EventName() string { return "entitlement_updated" }

// Toast 一条用户可见的提示
type Toast struct {
	Kind    string // success / error
	Message string
}

func (Toast) EventName() string { return "toast" }

// Bus 类型化事件总线。发布不阻塞：订阅者通道已满时丢弃并记日志，
// 避免慢消费方拖住控制器的状态转移。
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

// NewBus 创建事件总线
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe 订阅事件，返回订阅通道和取消函数
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, buffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if existing, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(existing)
		}
	}
	return ch, cancel
}

// Publish 向所有订阅者广播事件
func (b *Bus) Publish(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs {
		select {
		case ch <- event:
		default:
			logger.Warn("事件订阅者积压，丢弃事件",
				zap.Int("subscriber", id),
				zap.String("event", event.EventName()),
			)
		}
	}
}
