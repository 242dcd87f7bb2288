// Package events publishes per-message pipeline outcomes on NATS so
// downstream consumers (monitoring, the report sender) see results without
// polling the database. Publishing is best effort; the pipeline never fails
// because the bus is down.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	SubjectAccepted = "bus.sms.accepted"
	SubjectRejected = "bus.sms.rejected"
)

// AcceptedEvent is published after a message has been persisted and confirmed.
type AcceptedEvent struct {
	Phone    string   `json:"phone"`
	Children []string `json:"children"`
	Days     []string `json:"days"`
	Records  int      `json:"records"`
}

// RejectedEvent is published after a validation failure.
type RejectedEvent struct {
	Phone string `json:"phone"`
	Kind  string `json:"kind"`
	Param string `json:"param,omitempty"`
}

type Client struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewClient(url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) Close() {
	c.conn.Close()
}
