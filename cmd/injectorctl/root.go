package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/jingyiliu/injector"
)

var version = "dev"

type rootOptions struct {
	configFile string
	envFile    string
	trace      bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "injectorctl",
		Short: "Explore the injector dependency injection engine",
		Long: `injectorctl builds a demo container and either runs the bundled scenarios
or describes the registry.

Settings come from --config (YAML, JSON or TOML), then INJECTOR_* environment
variables, e.g. INJECTOR_ACTIVATION=compiled or INJECTOR_LOG_LEVEL=debug.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "dotenv file loaded before environment overrides")
	cmd.PersistentFlags().BoolVar(&opts.trace, "trace", false, "print resolution spans to stdout")

	cmd.AddCommand(newDemoCmd(opts), newDescribeCmd(opts))
	return cmd
}

// container loads the configuration and builds the demo container. The
// returned func flushes tracing and closes the container.
func (o *rootOptions) container(ctx context.Context, out io.Writer) (*injector.Container, func() error, error) {
	var loadOpts []injector.ConfigOption
	if o.envFile != "" {
		loadOpts = append(loadOpts, injector.WithEnvFile(o.envFile))
	}
	cfg, err := injector.LoadConfig(o.configFile, loadOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	var (
		extra []injector.Option
		tp    *sdktrace.TracerProvider
	)
	if o.trace {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(out), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, nil, fmt.Errorf("creating trace exporter: %w", err)
		}
		tp = sdktrace.NewTracerProvider(
			sdktrace.WithSyncer(exporter),
			sdktrace.WithResource(resource.NewSchemaless(
				attribute.String("service.name", "injectorctl"),
				attribute.String("service.version", version),
			)),
		)
		extra = append(extra, injector.WithTracerProvider(tp))
	}

	c, err := injector.NewFromConfig(cfg, extra...)
	if err != nil {
		return nil, nil, err
	}
	if err := registerDemo(c, out); err != nil {
		_ = c.Close()
		return nil, nil, fmt.Errorf("registering demo services: %w", err)
	}

	cleanup := func() error {
		err := c.Close()
		if tp != nil {
			if shutdownErr := tp.Shutdown(ctx); shutdownErr != nil && err == nil {
				err = shutdownErr
			}
		}
		return err
	}
	return c, cleanup, nil
}
