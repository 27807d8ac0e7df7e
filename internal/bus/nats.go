// Package bus announces component status changes on NATS.
package bus

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const SubjectComponentUpdated = "statuspage.component.updated"

var ErrNotConnected = errors.New("nats publisher not connected")

// ComponentUpdated is published after a component's target status was written.
type ComponentUpdated struct {
	ComponentID   int       `json:"component_id"`
	ComponentName string    `json:"component_name"`
	Status        int       `json:"status"`
	StatusName    string    `json:"status_name"`
	Source        string    `json:"source"`
	At            time.Time `json:"at"`
}

// Publisher fire-and-forgets JSON events. Events published while the
// connection is reconnecting are buffered by the nats client.
type Publisher struct {
	conn *nats.Conn
}

func NewPublisher(url string, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := nats.Connect(url,
		nats.Name("statuspage-sync"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", slog.String("url", c.ConnectedUrlRedacted()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return &Publisher{conn: conn}, nil
}

// Close flushes pending events and closes the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	_ = p.conn.FlushTimeout(2 * time.Second)
	_ = p.conn.Drain()
}

func (p *Publisher) Publish(subject string, payload any) error {
	if p == nil || p.conn == nil || p.conn.IsClosed() {
		return ErrNotConnected
	}
	data, err := encode(payload)
	if err != nil {
		return err
	}
	return p.conn.Publish(subject, data)
}

func encode(payload any) ([]byte, error) {
	switch v := payload.(type) {
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return data, nil
}
