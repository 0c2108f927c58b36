package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RawPage is the wire payload for one fetched page. Produced by the fetcher,
// consumed once by the ingester, then discarded.
type RawPage struct {
	URL         string `json:"url"`
	HTML        string `json:"html"`
	FetchedTime string `json:"fetched_time"`
}

func DecodeRawPage(body []byte) (RawPage, error) {
	var page RawPage
	if err := json.Unmarshal(body, &page); err != nil {
		return RawPage{}, fmt.Errorf("decode raw page: %w", err)
	}
	if page.URL == "" {
		return RawPage{}, fmt.Errorf("decode raw page: missing url")
	}
	return page, nil
}

// Client owns one AMQP connection and channel bound to a durable queue on
// the default exchange (routing key = queue name).
type Client struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func Dial(url, queueName string) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queueName, err)
	}

	return &Client{conn: conn, ch: ch, queue: queueName}, nil
}

func (c *Client) Close() error {
	if err := c.ch.Close(); err != nil {
		c.conn.Close()
		return err
	}
	return c.conn.Close()
}

// PublishRawPage sends one persistent message; it survives broker restarts
// once acked.
func (c *Client) PublishRawPage(ctx context.Context, page RawPage) error {
	body, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("encode raw page: %w", err)
	}

	err = c.ch.PublishWithContext(ctx, "", c.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", c.queue, err)
	}
	return nil
}

// Consume opens a manual-ack delivery stream. Callers ack after a successful
// upsert and nack(requeue) on processing failure; delivery is at-least-once.
func (c *Client) Consume() (<-chan amqp.Delivery, error) {
	if err := c.ch.Qos(1, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := c.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", c.queue, err)
	}
	return deliveries, nil
}
