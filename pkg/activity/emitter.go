package activity

import (
	"context"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// DefaultChannel is applied to events emitted without an explicit channel.
const DefaultChannel = "props"

// Config controls activity emission defaults.
type Config struct {
	Enabled bool   `env:"PROPS_ACTIVITY_ENABLED" envDefault:"true"`
	Channel string `env:"PROPS_ACTIVITY_CHANNEL" envDefault:"props"`
}

// LoadConfig reads the emission configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("activity: parse env: %w", err)
	}
	return cfg, nil
}

// Emitter fans out events to hooks while applying defaults.
type Emitter struct {
	hooks   Hooks
	enabled bool
	channel string
}

// NewEmitter constructs an emitter from hooks and configuration.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = DefaultChannel
	}
	normalized := hooks.Clone()
	return &Emitter{
		hooks:   normalized,
		enabled: cfg.Enabled && len(normalized) > 0,
		channel: channel,
	}
}

// Enabled reports whether emissions should be attempted.
func (e *Emitter) Enabled() bool {
	return e != nil && e.enabled && len(e.hooks) > 0
}

// Emit forwards the event to all hooks, applying the default channel when
// missing.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.channel
	}
	return e.hooks.Notify(ctx, event)
}
