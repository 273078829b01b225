package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/specialistvlad/pipelinestudio/internal/app"
	"github.com/specialistvlad/pipelinestudio/internal/config"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) error {
	return &ExitError{Code: 2, Message: err.Error()}
}

// streams are the process handles commands read from and write to. Logs
// always go to errOut so that out stays machine readable.
type streams struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

// rootOptions holds the global flags.
type rootOptions struct {
	configPath string
	// flags receives flag values; only the flags the user set are copied
	// over the loaded configuration.
	flags      config.Config
	appOptions []app.Option
}

// Execute runs the command line given by args. Every failure is returned as
// an *ExitError.
func Execute(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer, opts ...app.Option) error {
	slog.Debug("CLI parser started.")
	root := NewRootCommand(in, out, errOut, opts...)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	msg := err.Error()
	if strings.HasPrefix(msg, "unknown command") || strings.HasPrefix(msg, "required flag") {
		return usageError(err)
	}
	return &ExitError{Code: 1, Message: msg}
}

// NewRootCommand builds the command tree. opts are passed to every app the
// commands create.
func NewRootCommand(in io.Reader, out, errOut io.Writer, opts ...app.Option) *cobra.Command {
	s := streams{in: in, out: out, errOut: errOut}
	o := &rootOptions{appOptions: opts}
	defaults := config.Default()

	root := &cobra.Command{
		Use:   "pipelinestudio",
		Short: "Pipeline Studio - edit, validate and normalize data pipeline configurations",
		Long: `Pipeline Studio models data pipelines as a graph of source, transform and sink
plugins drawn from a plugin catalog. It validates and normalizes exported
pipeline documents, manages plugin and pipeline templates, and serves a
headless editor session over JSON lines.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(s.in)
	root.SetOut(s.out)
	root.SetErr(s.errOut)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	pf := root.PersistentFlags()
	pf.StringVarP(&o.configPath, "config", "c", "", "Path to a YAML configuration file.")
	pf.StringVar(&o.flags.Namespace, "namespace", defaults.Namespace, "Namespace of catalog requests and templates.")
	pf.StringVar(&o.flags.ManifestsPath, "manifests-path", defaults.ManifestsPath, "Directory or file of HCL plugin manifests.")
	pf.StringVar(&o.flags.CatalogURL, "catalog-url", "", "Base URL of a remote plugin catalog. Overrides --manifests-path.")
	pf.DurationVar(&o.flags.CatalogTimeout, "catalog-timeout", defaults.CatalogTimeout, "Timeout of remote catalog requests.")
	pf.StringVar(&o.flags.TemplatesDB, "templates-db", defaults.TemplatesDB, "Path to the template database.")
	pf.StringVar(&o.flags.CanvasURL, "canvas-url", "", "socket.io endpoint that receives graph changes.")
	pf.StringVar(&o.flags.CanvasNamespace, "canvas-namespace", "", "socket.io namespace of the canvas endpoint.")
	pf.StringVar(&o.flags.DefaultArtifact, "default-artifact", "", "Pipeline artifact selected at start, as name[:version[:scope]].")
	pf.StringVar(&o.flags.LogFormat, "log-format", defaults.LogFormat, "Log output format. Options: 'text' or 'json'.")
	pf.StringVar(&o.flags.LogLevel, "log-level", defaults.LogLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.IntVar(&o.flags.HealthcheckPort, "healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")

	root.AddCommand(
		newValidateCommand(s, o),
		newNormalizeCommand(s, o),
		newArtifactsCommand(s, o),
		newPluginsCommand(s, o),
		newTemplatesCommand(s, o),
		newServeCommand(s, o),
	)
	return root
}

// config loads the configuration file and environment, then applies the
// flags that were set on the command line.
func (o *rootOptions) config(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, usageError(err)
	}

	flags := cmd.Flags()
	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}
	set("namespace", func() { cfg.Namespace = o.flags.Namespace })
	set("manifests-path", func() { cfg.ManifestsPath = o.flags.ManifestsPath })
	set("catalog-url", func() { cfg.CatalogURL = o.flags.CatalogURL })
	set("catalog-timeout", func() { cfg.CatalogTimeout = o.flags.CatalogTimeout })
	set("templates-db", func() { cfg.TemplatesDB = o.flags.TemplatesDB })
	set("canvas-url", func() { cfg.CanvasURL = o.flags.CanvasURL })
	set("canvas-namespace", func() { cfg.CanvasNamespace = o.flags.CanvasNamespace })
	set("default-artifact", func() { cfg.DefaultArtifact = o.flags.DefaultArtifact })
	set("log-format", func() { cfg.LogFormat = o.flags.LogFormat })
	set("log-level", func() { cfg.LogLevel = o.flags.LogLevel })
	set("healthcheck-port", func() { cfg.HealthcheckPort = o.flags.HealthcheckPort })

	if err := cfg.Validate(); err != nil {
		return cfg, usageError(err)
	}
	slog.Debug("CLI parameter validation complete.")
	return cfg, nil
}

// newApp builds the application for cmd. The caller closes it.
func (o *rootOptions) newApp(cmd *cobra.Command, s streams) (*app.App, error) {
	cfg, err := o.config(cmd)
	if err != nil {
		return nil, err
	}
	a, err := app.NewApp(cmd.Context(), s.errOut, cfg, o.appOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to start: %w", err)
	}
	return a, nil
}

// exactArgs is cobra.ExactArgs reported as a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}
