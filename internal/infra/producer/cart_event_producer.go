package producer

import (
	"context"
	"encoding/json"
	"fmt"

	evt_model "github.com/RoyceAzure/lab/storefront/internal/domain/model/event"
	"github.com/segmentio/kafka-go"
)

// ICartEventProducer 購物車事件發布
// 事件是次要輸出，呼叫端對發布失敗只記 log 不中斷主流程
type ICartEventProducer interface {
	Produce(ctx context.Context, evt evt_model.Event) error
	Close() error
}

// 以 aggregateID 當 message key 做分區
// 同一個使用者的事件落在同一分區，消費端看到的順序跟發生順序一致
type CartEventProducer struct {
	writer *kafka.Writer
}

func NewCartEventProducer(brokers []string, topic string) *CartEventProducer {
	return &CartEventProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (p *CartEventProducer) Produce(ctx context.Context, evt evt_model.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", evt.Type(), err)
	}

	msg := kafka.Message{
		Key:   []byte(evt.GetAggregateID()),
		Value: payload,
		Headers: []kafka.Header{
			{
				Key:   "event_type",
				Value: []byte(evt.Type()),
			},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *CartEventProducer) Close() error {
	return p.writer.Close()
}

// NopProducer 丟棄所有事件
// 單機或本地開發沒有 kafka 時使用
type NopProducer struct{}

func (NopProducer) Produce(ctx context.Context, evt evt_model.Event) error { return nil }
func (NopProducer) Close() error                                           { return nil }

var (
	_ ICartEventProducer = (*CartEventProducer)(nil)
	_ ICartEventProducer = NopProducer{}
)
