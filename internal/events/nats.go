package events

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/cochaviz/sdc-clients/internal/logging"
)

// ErrNotConnected is returned when publishing on a closed publisher.
var ErrNotConnected = errors.New("nats not connected")

const clientName = "sdc-clients-vmapi"

// Publisher sends payloads to a NATS server.
type Publisher struct {
	nc     *nats.Conn
	logger *slog.Logger
}

// NewPublisher connects to url and keeps reconnecting forever.
func NewPublisher(url string, logger *slog.Logger) (*Publisher, error) {
	logger = logging.Ensure(logger).With("component", "events", "nats_url", url)

	opts := []nats.Option{
		nats.Name(clientName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "connected_url", nc.ConnectedUrl())
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}
	return &Publisher{nc: nc, logger: logger}, nil
}

// Publish sends payload on subject. The context is only checked up front;
// core NATS publishes are fire and forget.
func (p *Publisher) Publish(ctx context.Context, subject string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p == nil || p.nc == nil || p.nc.IsClosed() {
		return ErrNotConnected
	}
	return p.nc.Publish(subject, payload)
}

// Close drains pending messages and closes the connection.
func (p *Publisher) Close() error {
	if p == nil || p.nc == nil {
		return nil
	}
	err := p.nc.Drain()
	p.nc.Close()
	return err
}

// Subject joins a subject prefix and a token, replacing characters NATS
// treats specially in a token.
func Subject(prefix, token string) string {
	token = strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_").Replace(token)
	if token == "" {
		token = "unknown"
	}
	prefix = strings.TrimSuffix(prefix, ".")
	if prefix == "" {
		return token
	}
	return prefix + "." + token
}
