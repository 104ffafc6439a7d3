package core

import (
	"fmt"
	"strings"
	"time"
)

type ActivityConfig struct {
	BufferSize    int `koanf:"buffer_size" mapstructure:"buffer_size"`
	RetentionDays int `koanf:"retention_days" mapstructure:"retention_days"`
	RowCap        int `koanf:"row_cap" mapstructure:"row_cap"`
}

type Config struct {
	ServiceName    string         `koanf:"service_name" mapstructure:"service_name"`
	ProviderID     string         `koanf:"provider_id" mapstructure:"provider_id"`
	RequiredScopes []string       `koanf:"required_scopes" mapstructure:"required_scopes"`
	Activity       ActivityConfig `koanf:"activity" mapstructure:"activity"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "signon",
		Activity: ActivityConfig{
			BufferSize:    128,
			RetentionDays: 30,
			RowCap:        10000,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Activity.BufferSize < 0 {
		return fmt.Errorf("core: activity.buffer_size must not be negative")
	}
	if c.Activity.RetentionDays < 0 {
		return fmt.Errorf("core: activity.retention_days must not be negative")
	}
	if c.Activity.RowCap < 0 {
		return fmt.Errorf("core: activity.row_cap must not be negative")
	}
	return nil
}

// RetentionPolicy converts the activity settings into the pruning policy the
// sink enforces.
func (c Config) RetentionPolicy() ActivityRetentionPolicy {
	return ActivityRetentionPolicy{
		TTL:    time.Duration(c.Activity.RetentionDays) * 24 * time.Hour,
		RowCap: c.Activity.RowCap,
	}
}
