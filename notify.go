package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AlarmEvent is published after the alarm flag was persisted.
type AlarmEvent struct {
	ViewID  string    `json:"view_id"`
	Vehicle string    `json:"vehicle"`
	Alert   bool      `json:"alert"`
	At      time.Time `json:"at"`
}

type AlarmNotifier interface {
	NotifyAlarm(ctx context.Context, e AlarmEvent) error
}

type noopNotifier struct{}

func (noopNotifier) NotifyAlarm(context.Context, AlarmEvent) error { return nil }

// AMQPNotifier publishes alarm events to a RabbitMQ topic exchange.
type AMQPNotifier struct {
	exchange   string
	routingKey string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPNotifier(url, exchange, routingKey string) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &AMQPNotifier{
		exchange:   exchange,
		routingKey: routingKey,
		conn:       conn,
		ch:         ch,
	}, nil
}

func (n *AMQPNotifier) NotifyAlarm(ctx context.Context, e AlarmEvent) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ch.PublishWithContext(ctx, n.exchange, n.routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    e.At,
		},
	)
}

func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.ch.Close(); err != nil {
		_ = n.conn.Close()
		return err
	}
	return n.conn.Close()
}
