// Package events publishes order lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nikolayk812/ordermgr/internal/domain"
	"github.com/nikolayk812/ordermgr/internal/port"
	"github.com/samber/lo"
	"github.com/segmentio/kafka-go"
)

const OrderConfirmedType = "order.confirmed"

type OrderConfirmed struct {
	Type          string           `json:"type"`
	OrderID       string           `json:"orderId"`
	OwnerID       string           `json:"ownerId"`
	Status        string           `json:"status"`
	PostalAddress string           `json:"postalAddress"`
	TotalPrice    string           `json:"totalPrice"`
	Currency      string           `json:"currency"`
	Items         []OrderItemEvent `json:"items"`
	Revision      int64            `json:"revision"`
	ConfirmedAt   time.Time        `json:"confirmedAt"`
}

type OrderItemEvent struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one message per confirmed order, keyed by order id
// so events of an order stay in one partition.
type KafkaPublisher struct {
	writer messageWriter
	now    func() time.Time
}

var _ port.OrderEventPublisher = (*KafkaPublisher)(nil)

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka topic is empty")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}

	return newKafkaPublisher(writer), nil
}

func newKafkaPublisher(writer messageWriter) *KafkaPublisher {
	return &KafkaPublisher{
		writer: writer,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (p *KafkaPublisher) PublishOrderConfirmed(ctx context.Context, order domain.Order) error {
	event := OrderConfirmed{
		Type:          OrderConfirmedType,
		OrderID:       order.ID.String(),
		OwnerID:       order.OwnerID,
		Status:        order.Status.String(),
		PostalAddress: order.PostalAddress,
		TotalPrice:    order.TotalPrice.Amount.StringFixed(2),
		Currency:      order.TotalPrice.Currency.String(),
		Items: lo.Map(order.Items, func(item domain.OrderItem, _ int) OrderItemEvent {
			return OrderItemEvent{ItemID: item.ItemID.String(), Quantity: item.Quantity}
		}),
		Revision:    order.Revision,
		ConfirmedAt: p.now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.OrderID),
		Value: data,
		Time:  event.ConfirmedAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(OrderConfirmedType)},
		},
	}); err != nil {
		return fmt.Errorf("writer.WriteMessages: %w", err)
	}

	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
