package logging

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the service root logger. Components never use it directly; they
// receive a named child from Component.
type Logger struct {
	*zap.Logger
	level zap.AtomicLevel
}

// Config defines logger configuration.
type Config struct {
	Level       string // "debug", "info", "warn", "error"
	Development bool
	OutputPaths []string

	// Sample keeps the first Initial entries with the same message each
	// second, then every Thereafter-th. Zero disables sampling.
	SampleInitial    int
	SampleThereafter int
}

// DefaultConfig returns the JSON production configuration. Sandbox runs can
// log in bursts, so repeated messages are sampled.
func DefaultConfig() Config {
	return Config{
		Level:            "info",
		OutputPaths:      []string{"stdout"},
		SampleInitial:    100,
		SampleThereafter: 100,
	}
}

// DevelopmentConfig returns the colored console configuration.
func DevelopmentConfig() Config {
	return Config{
		Level:       "debug",
		Development: true,
		OutputPaths: []string{"stdout"},
	}
}

// New builds a logger from cfg.
func New(cfg Config) (*Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	if len(cfg.OutputPaths) == 0 {
		cfg.OutputPaths = []string{"stdout"}
	}

	atom := zap.NewAtomicLevelAt(level)
	zapCfg := zap.Config{
		Level:             atom,
		Development:       cfg.Development,
		Encoding:          "json",
		EncoderConfig:     productionEncoder(),
		OutputPaths:       cfg.OutputPaths,
		ErrorOutputPaths:  []string{"stderr"},
		DisableStacktrace: !cfg.Development,
	}
	if cfg.Development {
		zapCfg.Encoding = "console"
		zapCfg.EncoderConfig = developmentEncoder()
	}
	if cfg.SampleInitial > 0 && !cfg.Development {
		zapCfg.Sampling = &zap.SamplingConfig{
			Initial:    cfg.SampleInitial,
			Thereafter: cfg.SampleThereafter,
		}
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return &Logger{Logger: logger.Named("codefixlab"), level: atom}, nil
}

// NewDefault creates a logger with default configuration.
func NewDefault() *Logger {
	logger, err := New(DefaultConfig())
	if err != nil {
		return NewNop()
	}
	return logger
}

// NewNop returns a logger that discards everything. Handy in tests.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop(), level: zap.NewAtomicLevel()}
}

// Component returns a child logger tagged with the owning component
func (l *Logger) Component(name string) *zap.Logger {
	return l.Logger.Named(name)
}

// Level reports the current minimum level
func (l *Logger) Level() zapcore.Level {
	return l.level.Level()
}

// SetLevel changes the minimum level of this logger and every component
// derived from it
func (l *Logger) SetLevel(level zapcore.Level) {
	l.level.SetLevel(level)
}

// LevelHandler serves the current level on GET and changes it on PUT with a
// body such as {"level":"debug"}
func (l *Logger) LevelHandler() http.Handler {
	return l.level
}

func productionEncoder() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.MessageKey = "message"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeDuration = zapcore.MillisDurationEncoder
	return cfg
}

func developmentEncoder() zapcore.EncoderConfig {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder
	return cfg
}
