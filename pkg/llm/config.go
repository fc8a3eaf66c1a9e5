package llm

import (
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	llmtypes "github.com/jingkaihe/skillet/pkg/types/llm"
)

// GetConfigFromViper reads the oracle configuration, applies the active
// profile and resolves model aliases.
func GetConfigFromViper() (llmtypes.Config, error) {
	config, err := loadViperConfig()
	if err != nil {
		return config, err
	}

	if config.Profiles != nil {
		delete(config.Profiles, "default")
	}

	profileName := getActiveProfile()
	if profileName != "" {
		profile, exists := config.Profiles[profileName]
		if !exists {
			return config, errors.Errorf("profile %q is not defined", profileName)
		}
		if err := applyProfile(&config, profile); err != nil {
			return config, err
		}
	}

	config.Provider = strings.ToLower(config.Provider)
	config.Model = resolveModelAlias(config.Model, config.Aliases)

	return config, nil
}

func loadViperConfig() (llmtypes.Config, error) {
	var config llmtypes.Config

	if err := viper.Unmarshal(&config); err != nil {
		return config, errors.Wrap(err, "failed to unmarshal configuration")
	}

	if config.Retry.Attempts == 0 {
		config.Retry = llmtypes.DefaultRetryConfig
	}

	return config, nil
}

func getActiveProfile() string {
	profile := viper.GetString("profile")
	if profile == "default" || profile == "" {
		return ""
	}
	return profile
}

func applyProfile(config *llmtypes.Config, profile llmtypes.ProfileConfig) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           config,
		WeaklyTypedInput: true,
		ZeroFields:       false,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create profile decoder")
	}

	if err := decoder.Decode(map[string]any(profile)); err != nil {
		return errors.Wrap(err, "failed to apply profile configuration")
	}

	return nil
}

func resolveModelAlias(model string, aliases map[string]string) string {
	if resolved, ok := aliases[model]; ok {
		return resolved
	}
	return model
}
