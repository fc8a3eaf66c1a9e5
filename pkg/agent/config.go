package agent

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/jingkaihe/skillet/pkg/codegen"
	"github.com/jingkaihe/skillet/pkg/runner"
)

// Config configures the pipeline around the oracle.
type Config struct {
	SkillsDir   string `mapstructure:"skills_dir"`
	MaxAttempts int    `mapstructure:"max_attempts"`
	// Language is the code fence tag requested from the oracle.
	Language  string        `mapstructure:"language"`
	Skills    SkillsConfig  `mapstructure:"skills"`
	Execution runner.Config `mapstructure:"execution"`
}

// SkillsConfig restricts which discovered skills are offered.
type SkillsConfig struct {
	// Allowed lists skill names to offer; empty offers every skill.
	Allowed []string `mapstructure:"allowed"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		SkillsDir:   ".",
		MaxAttempts: codegen.DefaultMaxAttempts,
		Language:    "python",
		Execution:   runner.Config{Timeout: runner.DefaultTimeout},
	}
}

// GetConfigFromViper decodes the agent configuration, filling defaults for
// unset values.
func GetConfigFromViper() (Config, error) {
	config := DefaultConfig()
	if err := viper.Unmarshal(&config); err != nil {
		return config, errors.Wrap(err, "failed to unmarshal agent configuration")
	}
	if config.SkillsDir == "" {
		config.SkillsDir = "."
	}
	if config.MaxAttempts == 0 {
		config.MaxAttempts = codegen.DefaultMaxAttempts
	}
	if config.Language == "" {
		config.Language = "python"
	}
	return config, nil
}
