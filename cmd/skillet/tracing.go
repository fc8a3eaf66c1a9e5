package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jingkaihe/skillet/pkg/telemetry"
	"github.com/jingkaihe/skillet/pkg/version"
)

var tracer = telemetry.Tracer("skillet.cli")

func tracingConfigFromViper() telemetry.Config {
	return telemetry.Config{
		Enabled:        viper.GetBool("tracing.enabled"),
		ServiceName:    "skillet",
		ServiceVersion: version.Get().Version,
		SamplerType:    viper.GetString("tracing.sampler"),
		SamplerRatio:   viper.GetFloat64("tracing.ratio"),
	}
}

var (
	initTracer      = telemetry.InitTracer
	shutdownTracing = func(context.Context) error { return nil }
)

// startTracing installs the tracer provider. It runs once flags are parsed so
// the --tracing-* flags take effect.
func startTracing(ctx context.Context) error {
	shutdown, err := initTracer(ctx, tracingConfigFromViper())
	if err != nil {
		return err
	}
	shutdownTracing = shutdown
	return nil
}

// withTracing wraps a command's RunE in a cli.command span.
func withTracing(cmd *cobra.Command) *cobra.Command {
	originalRunE := cmd.RunE

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		attrs := []attribute.KeyValue{
			attribute.String("command.name", cmd.Name()),
			attribute.String("command.path", cmd.CommandPath()),
			attribute.Int("args.count", len(args)),
		}
		cmd.Flags().Visit(func(flag *pflag.Flag) {
			if flag.Name != "api-key" {
				attrs = append(attrs, attribute.String("flag."+flag.Name, flag.Value.String()))
			}
		})

		ctx, span := tracer.Start(cmd.Context(), "cli.command", trace.WithAttributes(attrs...))
		defer span.End()
		cmd.SetContext(ctx)

		if err := originalRunE(cmd, args); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		span.SetStatus(codes.Ok, "")
		return nil
	}

	return cmd
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.Bool("tracing-enabled", false, "Enable OpenTelemetry tracing")
	flags.String("tracing-sampler", "always", "Tracing sampler type (always, never, ratio)")
	flags.Float64("tracing-ratio", 1, "Sampling ratio when using the ratio sampler")

	_ = viper.BindPFlag("tracing.enabled", flags.Lookup("tracing-enabled"))
	_ = viper.BindPFlag("tracing.sampler", flags.Lookup("tracing-sampler"))
	_ = viper.BindPFlag("tracing.ratio", flags.Lookup("tracing-ratio"))
}
