package config

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load reads the config file into config, which must be a pointer to a struct. The values already in config are
// the defaults, and every key can be overridden by an environment variable named after its path with "." replaced
// by "_", e.g. REDIS_PUBSUB_PREFIX. An empty file name loads from the environment only.
func Load(file string, config any) error {
	v := viper.New()
	m := make(map[string]any)

	// Keys unknown to viper are not looked up in the environment, so the defaults declare every key.
	if err := mapstructure.Decode(config, &m); err != nil {
		return fmt.Errorf("mapstructure: %w", err)
	}

	if err := v.MergeConfigMap(m); err != nil {
		return fmt.Errorf("merge config map: %w", err)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		// Merge rather than read, reading would drop the default keys.
		if err := v.MergeInConfig(); err != nil {
			return fmt.Errorf("read config from file %s: %w", file, err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	return nil
}
