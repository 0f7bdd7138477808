package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrBusClosed 事件总线已关闭
var ErrBusClosed = errors.New("事件总线已关闭")

// Bus 基于watermill gochannel的进程内事件总线（对外导出）
type Bus struct {
	pubsub *gochannel.GoChannel
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewBus 创建事件总线
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	pubsub := gochannel.NewGoChannel(
		gochannel.Config{
			Persistent:                     false,
			BlockPublishUntilSubscriberAck: false,
		},
		NewZapLoggerAdapter(logger.Named("watermill")),
	)
	return &Bus{pubsub: pubsub, logger: logger, done: make(chan struct{})}
}

// Publish 发布事件，没有订阅者时事件被丢弃
func (b *Bus) Publish(event *Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("event_type", string(event.Type))
	msg.Metadata.Set("roadmap_id", event.RoadmapID)
	msg.Metadata.Set("timestamp", event.Timestamp.Format(time.RFC3339Nano))

	if err := b.pubsub.Publish(string(event.Type), msg); err != nil {
		return fmt.Errorf("发布事件失败: %w", err)
	}
	return nil
}

// Subscribe 订阅一个或多个事件类型，不指定时订阅全部类型
// ctx取消或总线关闭后返回的通道被关闭
func (b *Bus) Subscribe(ctx context.Context, types ...EventType) (<-chan *Event, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrBusClosed
	}
	if len(types) == 0 {
		types = AllEventTypes
	}

	out := make(chan *Event)
	var fanIn sync.WaitGroup
	for _, t := range types {
		messages, err := b.pubsub.Subscribe(ctx, string(t))
		if err != nil {
			return nil, fmt.Errorf("订阅事件 %s 失败: %w", t, err)
		}
		fanIn.Add(1)
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			defer fanIn.Done()
			b.forward(ctx, messages, out)
		}()
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		fanIn.Wait()
		close(out)
	}()
	return out, nil
}

// forward 解码消息并转发，直到输入通道关闭
// 订阅方不再读取时消息被丢弃
func (b *Bus) forward(ctx context.Context, messages <-chan *message.Message, out chan<- *Event) {
	for msg := range messages {
		var event Event
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			b.logger.Warn("丢弃无法解析的事件", zap.String("message_id", msg.UUID), zap.Error(err))
			msg.Ack()
			continue
		}
		msg.Ack()

		select {
		case out <- &event:
		case <-ctx.Done():
		case <-b.done:
		}
	}
}

// Close 关闭总线并等待订阅协程退出
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.done)
	b.mu.Unlock()

	err := b.pubsub.Close()
	b.wg.Wait()
	if err != nil {
		return fmt.Errorf("关闭事件总线失败: %w", err)
	}
	return nil
}
