package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/skillet/pkg/codegen"
	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/jingkaihe/skillet/pkg/presenter"
	"github.com/jingkaihe/skillet/pkg/runner"
)

func init() {
	viper.SetEnvPrefix("SKILLET")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.skillet")
	viper.AddConfigPath(".")

	// Missing config files are fine.
	_ = viper.ReadInConfig()

	setDefaults()
}

func setDefaults() {
	viper.SetDefault("provider", "openai")
	viper.SetDefault("skills_dir", ".")
	viper.SetDefault("max_attempts", codegen.DefaultMaxAttempts)
	viper.SetDefault("language", "python")
	viper.SetDefault("stream", true)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "pretty")
	viper.SetDefault("execution.interpreter", runner.DefaultInterpreter)
	viper.SetDefault("execution.script_path", runner.DefaultScriptPath)
	viper.SetDefault("execution.search_path_var", runner.DefaultSearchPathVar)
	viper.SetDefault("execution.timeout", runner.DefaultTimeout)
}

var rootCmd = &cobra.Command{
	Use:   "skillet",
	Short: "Run tasks with progressively disclosed skills",
	Long: `skillet discovers the skill that fits a task from the skills directory,
loads its instructions, and has an LLM write and run a script that carries the
task out, retrying with the error output when the script fails.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := logger.SetLogLevel(viper.GetString("log_level")); err != nil {
			return err
		}
		logger.SetLogFormat(viper.GetString("log_format"))
		if err := startTracing(cmd.Context()); err != nil {
			presenter.Error(err, "Failed to initialize tracing")
		}
		return nil
	},
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return runCmd.RunE(cmd, args)
		}
		return cmd.Help()
	},
}

func main() {
	flags := rootCmd.PersistentFlags()
	flags.String("provider", "", "LLM provider to use (openai, anthropic or google)")
	flags.String("model", "", "LLM model to use (overrides config)")
	flags.Int("max-tokens", 0, "Maximum tokens for each response")
	flags.String("skills-dir", "", "Directory holding the skills/ folder (or the skills folder itself)")
	flags.Int("max-attempts", 0, "Generation attempts per task")
	flags.String("log-level", "", "Log level (panic, fatal, error, warn, info, debug, trace)")
	flags.String("log-format", "", "Log format (fmt, json or pretty)")
	flags.Bool("stream", true, "Echo generated code as it streams in")
	flags.String("profile", "", "Named configuration profile to apply")

	bindings := map[string]string{
		"provider":     "provider",
		"model":        "model",
		"max_tokens":   "max-tokens",
		"skills_dir":   "skills-dir",
		"max_attempts": "max-attempts",
		"log_level":    "log-level",
		"log_format":   "log-format",
		"stream":       "stream",
		"profile":      "profile",
	}
	for key, flag := range bindings {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}

	rootCmd.AddCommand(withTracing(runCmd))
	rootCmd.AddCommand(withTracing(chatCmd))
	rootCmd.AddCommand(skillCmd)
	rootCmd.AddCommand(versionCmd)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := rootCmd.ExecuteContext(ctx)
	if shutdownErr := shutdownTracing(context.Background()); shutdownErr != nil {
		logger.G(ctx).WithError(shutdownErr).Warn("failed to shut down tracing")
	}
	if err != nil {
		presenter.Error(err, "")
		cancel()
		os.Exit(1)
	}
}
