package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const ExchangeName = "workflow.events"

// AMQPPublisher publishes every event to a topic exchange with routing key
// "workflow.<event type>", for mailers and analytics consumers.
type AMQPPublisher struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	mu      sync.Mutex
	log     *zap.Logger
}

func NewAMQPPublisher(url string, log *zap.Logger) (*AMQPPublisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		ExchangeName,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &AMQPPublisher{conn: conn, channel: ch, log: log}, nil
}

func (p *AMQPPublisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

func (p *AMQPPublisher) Notify(ctx context.Context, ev Event) {
	key, msg, err := publishing(ev)
	if err != nil {
		p.log.Error("marshal workflow event", zap.String("type", ev.Type), zap.Error(err))
		return
	}

	// amqp091 channels are not safe for concurrent publishers.
	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx,
		ExchangeName,
		key,
		false, // mandatory
		false, // immediate
		msg,
	)
	if err != nil {
		p.log.Warn("publish workflow event", zap.String("type", ev.Type), zap.Error(err))
	}
}

// publishing builds the routing key and persistent JSON message for ev.
// Recipients are included in the body since consumers address mail by them.
func publishing(ev Event) (string, amqp091.Publishing, error) {
	body, err := json.Marshal(struct {
		Event
		Recipients []string `json:"recipients"`
	}{Event: ev, Recipients: idStrings(ev)})
	if err != nil {
		return "", amqp091.Publishing{}, err
	}
	return "workflow." + ev.Type, amqp091.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    ev.At,
	}, nil
}

func idStrings(ev Event) []string {
	out := make([]string, 0, len(ev.Recipients))
	for _, id := range ev.Recipients {
		out = append(out, id.String())
	}
	return out
}
