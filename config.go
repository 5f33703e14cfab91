package agentauth

import (
	"errors"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// AuthHandler is one configured OAuth provider connection an agent can sign
// a user into. Handlers are constructed once at initialization and are
// read-only thereafter.
type AuthHandler struct {
	// Name is the handler id flows are addressed by.
	Name string
	// ConnectionName is the ABS OAuth connection backing this handler,
	// resolved into the flow record at begin time.
	ConnectionName string
	// OBOConnectionName is the connection used for on-behalf-of exchange;
	// empty disables OBO for this handler.
	OBOConnectionName string
	// Auto marks handlers whose sign-in the router starts automatically.
	Auto bool
	// Title and Text appear on the consent card.
	Title string
	Text  string
}

// FlowConfig bounds a single sign-in flow.
type FlowConfig struct {
	// TTL is the absolute flow deadline measured from BeginFlow.
	TTL time.Duration
	// MaxAttempts is the number of continuation failures a flow survives.
	MaxAttempts int
}

// StorageConfig configures the Redis record store built by
// [Builder.WithRedis].
type StorageConfig struct {
	RedisPrefix string
	// RecordTTL expires abandoned records at the storage layer. It must
	// comfortably exceed Flow.TTL; zero disables storage-side expiry.
	RecordTTL time.Duration
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process metrics system.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// Config is the full engine configuration. Configure during initialization
// and treat as immutable afterwards.
type Config struct {
	Flow     FlowConfig
	Storage  StorageConfig
	Handlers []AuthHandler
	Audit    AuditConfig
	Metrics  MetricsConfig
}

// DefaultConfig returns the baseline configuration: 30 second flows, three
// attempts, audit and metrics off.
func DefaultConfig() Config {
	return Config{
		Flow: FlowConfig{
			TTL:         30 * time.Second,
			MaxAttempts: 3,
		},
		Storage: StorageConfig{
			RedisPrefix: "aaf",
			RecordTTL:   5 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Handlers = make([]AuthHandler, len(cfg.Handlers))
	copy(out.Handlers, cfg.Handlers)
	return out
}

// Validate checks structural invariants that Build depends on.
func (c Config) Validate() error {
	if c.Flow.TTL <= 0 {
		return errors.New("flow TTL must be positive")
	}
	if c.Flow.MaxAttempts <= 0 {
		return errors.New("flow max attempts must be positive")
	}
	seen := make(map[string]struct{}, len(c.Handlers))
	for _, handler := range c.Handlers {
		if handler.Name == "" {
			return errors.New("auth handler name must not be empty")
		}
		if handler.ConnectionName == "" {
			return errors.New("auth handler connection name must not be empty")
		}
		if _, dup := seen[handler.Name]; dup {
			return ErrDuplicateHandler
		}
		seen[handler.Name] = struct{}{}
	}
	return nil
}

type envSettings struct {
	FlowTTL         time.Duration `env:"AGENTAUTH_FLOW_TTL" envDefault:"30s"`
	FlowMaxAttempts int           `env:"AGENTAUTH_FLOW_MAX_ATTEMPTS" envDefault:"3"`
	RedisPrefix     string        `env:"AGENTAUTH_REDIS_PREFIX" envDefault:"aaf"`
	RecordTTL       time.Duration `env:"AGENTAUTH_RECORD_TTL" envDefault:"5m"`
	AuditEnabled    bool          `env:"AGENTAUTH_AUDIT_ENABLED" envDefault:"false"`
	AuditBufferSize int           `env:"AGENTAUTH_AUDIT_BUFFER" envDefault:"1024"`
	MetricsEnabled  bool          `env:"AGENTAUTH_METRICS_ENABLED" envDefault:"false"`
	Handlers        []string      `env:"AGENTAUTH_HANDLERS"`
}

type envHandler struct {
	ConnectionName    string `env:"CONNECTION_NAME,notEmpty"`
	OBOConnectionName string `env:"OBO_CONNECTION_NAME"`
	Auto              bool   `env:"AUTO" envDefault:"true"`
	Title             string `env:"TITLE"`
	Text              string `env:"TEXT"`
}

// ConfigFromEnv builds a Config from AGENTAUTH_* environment variables.
// AGENTAUTH_HANDLERS lists handler names; each handler NAME reads its
// settings from AGENTAUTH_HANDLER_<NAME>_CONNECTION_NAME and friends
// (name upper-cased, dashes mapped to underscores).
func ConfigFromEnv() (Config, error) {
	settings, err := env.ParseAs[envSettings]()
	if err != nil {
		return Config{}, err
	}

	cfg := DefaultConfig()
	cfg.Flow.TTL = settings.FlowTTL
	cfg.Flow.MaxAttempts = settings.FlowMaxAttempts
	cfg.Storage.RedisPrefix = settings.RedisPrefix
	cfg.Storage.RecordTTL = settings.RecordTTL
	cfg.Audit.Enabled = settings.AuditEnabled
	cfg.Audit.BufferSize = settings.AuditBufferSize
	cfg.Metrics.Enabled = settings.MetricsEnabled

	for _, name := range settings.Handlers {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		prefix := "AGENTAUTH_HANDLER_" + strings.ReplaceAll(strings.ToUpper(name), "-", "_") + "_"
		parsed, err := env.ParseAsWithOptions[envHandler](env.Options{Prefix: prefix})
		if err != nil {
			return Config{}, err
		}
		cfg.Handlers = append(cfg.Handlers, AuthHandler{
			Name:              name,
			ConnectionName:    parsed.ConnectionName,
			OBOConnectionName: parsed.OBOConnectionName,
			Auto:              parsed.Auto,
			Title:             parsed.Title,
			Text:              parsed.Text,
		})
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
