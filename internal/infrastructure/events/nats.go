// Package events announces pipeline results on the NATS bus.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"AutoBlog/internal/domain"
	"AutoBlog/internal/ports"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "autoblog.post.published"

type conn interface {
	PublishMsg(msg *nats.Msg) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// Publisher sends PostPublishedEvent messages to a NATS subject.
type Publisher struct {
	nc      conn
	subject string
	logger  *slog.Logger
}

var _ ports.EventPublisher = (*Publisher)(nil)

// NewPublisher connects to url. The connection keeps retrying in the
// background, so a bus that is not up yet does not fail startup.
func NewPublisher(url, subject string, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "events")

	nc, err := nats.Connect(url,
		nats.Name("autoblog"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", "error", err)
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return newPublisher(nc, subject, logger), nil
}

func newPublisher(nc conn, subject string, logger *slog.Logger) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{nc: nc, subject: subject, logger: logger.With("component", "events")}
}

// PostPublished publishes event as JSON and flushes so delivery errors
// surface to the caller.
func (p *Publisher) PostPublished(ctx context.Context, event domain.PostPublishedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	msg := nats.NewMsg(p.subject)
	msg.Data = data
	msg.Header.Set("Content-Type", "application/json")
	msg.Header.Set(nats.MsgIdHdr, event.RunID+":"+event.FilePath)

	if err := p.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish event to subject %s: %w", p.subject, err)
	}
	if err := p.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush %s: %w", p.subject, err)
	}
	p.logger.Debug("post event published", "subject", p.subject, "title", event.Title)
	return nil
}

// Close closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
