package agentauth

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Authorization]. Single-use: construction is
// allocation-only until Build, and Build validates everything at once.
type Builder struct {
	config      Config
	storage     Storage
	redis       redis.UniversalClient
	tokenClient UserTokenClient
	auditSink   AuditSink

	built bool
}

// New creates a Builder with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStorage sets the flow record store.
func (b *Builder) WithStorage(storage Storage) *Builder {
	b.storage = storage
	return b
}

// WithRedis builds a [RedisStorage] from the client at Build time, using
// the configured prefix and record TTL. Ignored when WithStorage was called.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithTokenClient sets the token-provider collaborator.
func (b *Builder) WithTokenClient(client UserTokenClient) *Builder {
	b.tokenClient = client
	return b
}

// WithHandlers appends auth handlers to the configuration.
func (b *Builder) WithHandlers(handlers ...AuthHandler) *Builder {
	b.config.Handlers = append(b.config.Handlers, handlers...)
	return b
}

// WithAuditSink enables audit dispatch into the given sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = true
	return b
}

// WithMetricsEnabled toggles the in-process metrics system.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles continuation-latency histograms.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and collaborators and constructs the
// [Authorization].
func (b *Builder) Build() (*Authorization, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.Handlers) == 0 {
		return nil, ErrNoHandlers
	}

	storage := b.storage
	if storage == nil && b.redis != nil {
		storage = NewRedisStorage(b.redis, cfg.Storage.RedisPrefix, cfg.Storage.RecordTTL)
	}
	if storage == nil {
		return nil, ErrStorageRequired
	}
	if b.tokenClient == nil {
		return nil, ErrTokenClientRequired
	}

	handlers := make(map[string]AuthHandler, len(cfg.Handlers))
	order := make([]string, 0, len(cfg.Handlers))
	for _, handler := range cfg.Handlers {
		handlers[handler.Name] = handler
		order = append(order, handler.Name)
	}

	b.built = true

	return &Authorization{
		config:      cfg,
		storage:     storage,
		tokenClient: b.tokenClient,
		handlers:    handlers,
		order:       order,
		audit:       newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:     NewMetrics(cfg.Metrics),
		now:         time.Now,
	}, nil
}
