package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/aliasdoc/internal/foundation/errors"
	"git.home.luguber.info/inful/aliasdoc/internal/logfields"
	"git.home.luguber.info/inful/aliasdoc/internal/retry"
)

const (
	// DefaultSubject is used when no subject is configured.
	DefaultSubject = "aliasdoc.bundles"
	// DefaultStream is the JetStream stream bound to the subject.
	DefaultStream = "ALIASDOC_BUNDLES"

	defaultTimeout = 5 * time.Second
)

// NATSConfig configures a NATSPublisher.
type NATSConfig struct {
	URL     string
	Subject string
	Stream  string
	Timeout time.Duration
	// Retry governs repeated publish attempts. Nil publishes once.
	Retry *retry.Policy
}

func (c NATSConfig) withDefaults() NATSConfig {
	if c.Subject == "" {
		c.Subject = DefaultSubject
	}
	if c.Stream == "" {
		c.Stream = DefaultStream
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return c
}

// jsPublisher is the slice of jetstream.JetStream the publisher uses.
type jsPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSPublisher publishes events to a JetStream subject.
type NATSPublisher struct {
	conn    *nats.Conn
	js      jsPublisher
	subject string
	timeout time.Duration
	retry   retry.Policy
	logger  *slog.Logger
}

// NewNATSPublisher connects to cfg.URL and makes sure a stream covers the subject.
func NewNATSPublisher(ctx context.Context, cfg NATSConfig, logger *slog.Logger) (*NATSPublisher, error) {
	cfg = cfg.withDefaults()
	if cfg.URL == "" {
		return nil, errors.ConfigError("nats url is required").Build()
	}
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(cfg.URL, nats.Name("aliasdoc"))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryNotify, "connect to NATS").
			WithContext("url", cfg.URL).Build()
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, errors.WrapError(err, errors.CategoryNotify, "create JetStream context").Build()
	}

	sctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if _, err := js.CreateOrUpdateStream(sctx, jetstream.StreamConfig{
		Name:        cfg.Stream,
		Description: "Bundles written by aliasdoc",
		Subjects:    []string{cfg.Subject},
		MaxAge:      30 * 24 * time.Hour,
	}); err != nil {
		conn.Close()
		return nil, errors.WrapError(err, errors.CategoryNotify, "ensure bundle stream").
			WithContext("stream", cfg.Stream).Build()
	}

	logger.Info("NATS publisher initialized",
		slog.String("url", cfg.URL),
		logfields.Subject(cfg.Subject),
		slog.String("stream", cfg.Stream))

	p := newPublisher(js, cfg, logger)
	p.conn = conn
	return p, nil
}

func newPublisher(js jsPublisher, cfg NATSConfig, logger *slog.Logger) *NATSPublisher {
	cfg = cfg.withDefaults()
	policy := retry.NoRetry()
	if cfg.Retry != nil {
		policy = *cfg.Retry
	}
	return &NATSPublisher{js: js, subject: cfg.Subject, timeout: cfg.Timeout, retry: policy, logger: logger}
}

// PublishBundleCreated publishes event. The bundle id is the message id so
// redelivered events are deduplicated by the stream.
func (p *NATSPublisher) PublishBundleCreated(ctx context.Context, event BundleCreated) error {
	if event.Type == "" {
		event.Type = EventBundleCreated
	}
	data, err := json.Marshal(event)
	if err != nil {
		return errors.WrapError(err, errors.CategoryNotify, "marshal event").Build()
	}

	attempt := 0
	err = p.retry.Do(ctx, func(ctx context.Context) error {
		attempt++
		ctx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		if _, err := p.js.Publish(ctx, p.subject, data, jetstream.WithMsgID(event.ID)); err != nil {
			p.logger.Debug("Publish attempt failed", logfields.BundleID(event.ID),
				slog.Int("attempt", attempt), logfields.Error(err))
			return errors.WrapError(err, errors.CategoryNotify, "publish bundle event").
				Warning().Retryable().
				WithContext("subject", p.subject).
				WithContext("id", event.ID).
				WithContext("attempts", attempt).Build()
		}
		return nil
	})
	if err != nil {
		return err
	}

	p.logger.Debug("Published bundle event", logfields.Subject(p.subject), logfields.BundleID(event.ID))
	return nil
}

// Close drains the NATS connection.
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}
