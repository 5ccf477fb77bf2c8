// Package cmd implements the cmrctl commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/donaldgifford/cmr-client/internal/config"
	"github.com/donaldgifford/cmr-client/internal/telemetry"
	"github.com/donaldgifford/cmr-client/pkg/cmr"
	"github.com/donaldgifford/cmr-client/pkg/logger"
)

// Version is set at build time via ldflags.
var Version = "dev"

// skipSetup marks commands that run without config or a CMR client.
const skipSetup = "skip-setup"

// flagKeys maps config keys onto the persistent flags that override them.
// Each key can also be set through the environment as CMRCTL_<KEY> with dots
// replaced by underscores, e.g. CMRCTL_CMR_PROVIDER.
var flagKeys = []struct{ key, flag string }{
	{"config", "config"},
	{"cmr.environment", "env"},
	{"cmr.host", "host"},
	{"cmr.provider", "provider"},
	{"cmr.client_id", "client-id"},
	{"cmr.auth.token", "token"},
	{"output", "output"},
	{"logging.level", "log-level"},
	{"logging.format", "log-format"},
	{"metrics.addr", "metrics-addr"},
}

// app holds what a command run needs once setup has loaded the config.
type app struct {
	v      *viper.Viper
	cfg    *config.Config
	logger *slog.Logger
	client *cmr.Client

	closers []func(context.Context) error
}

// Root returns the root cobra command for documentation generation.
func Root() *cobra.Command {
	root, _ := newRootCmd()
	return root
}

// Execute runs cmrctl with the process arguments, cancelling on SIGINT or
// SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// Run executes cmrctl with args and releases everything setup started, even
// when the command fails.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root, a := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	return errors.Join(err, a.close())
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "cmrctl",
		Short: "Command-line client for NASA's Common Metadata Repository",
		Long: "cmrctl talks to a CMR deployment (OPS, SIT or UAT).\n" +
			"It searches collections and granules, fetches metadata,\n" +
			"and validates, ingests or deletes concepts for a provider.",
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (YAML)")
	flags.String("env", "", "CMR environment (OPS, SIT, UAT)")
	flags.String("host", "", "CMR host or base URL, overriding --env")
	flags.String("provider", "", "CMR provider id")
	flags.String("client-id", "", "Client-Id header sent with every request")
	flags.String("token", "", "pre-issued CMR token")
	flags.String("output", "table", "output format (table, json)")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (text, json)")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address while running")

	for _, fk := range flagKeys {
		cobra.CheckErr(a.v.BindPFlag(fk.key, flags.Lookup(fk.flag)))
	}
	a.v.SetEnvPrefix("CMRCTL")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	root.AddCommand(searchCmd(a))
	root.AddCommand(metadataCmd(a))
	root.AddCommand(validateCmd(a))
	root.AddCommand(ingestCmd(a))
	root.AddCommand(deleteCmd(a))
	root.AddCommand(tokenCmd(a))
	root.AddCommand(versionCmd())

	return root, a
}

// setup loads config, applies flag and environment overrides, and builds the
// logger, tracing, metrics endpoint and CMR client.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[skipSetup] != "" {
		return nil
	}

	cfg := config.Default()
	if path := a.v.GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}
	a.overlay(cfg)
	if err := cfg.Finalize(); err != nil {
		return err
	}
	if out := a.output(); out != "table" && out != "json" {
		return fmt.Errorf("unknown output format %q (want table or json)", out)
	}
	a.cfg = cfg

	a.logger = logger.NewWithWriter(cmd.ErrOrStderr(), logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	shutdown, err := telemetry.Setup(cmd.Context(), cfg.Tracing, Version)
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	a.closers = append(a.closers, shutdown)

	if cfg.Metrics.Enabled {
		srv, err := startMetricsServer(cfg.Metrics, a.logger)
		if err != nil {
			return fmt.Errorf("starting metrics server: %w", err)
		}
		a.closers = append(a.closers, srv.Shutdown)
	}

	clientCfg, err := cfg.ClientConfig()
	if err != nil {
		return err
	}
	a.client, err = cmr.New(clientCfg, cmr.WithLogger(a.logger))
	if err != nil {
		return fmt.Errorf("creating CMR client: %w", err)
	}

	a.logger.Debug("cmrctl configured",
		"environment", cfg.CMR.Environment,
		"base_url", a.client.Resolver.BaseURL(),
		"provider", cfg.CMR.Provider,
	)
	return nil
}

// overlay copies explicitly set flags and CMRCTL_* variables onto cfg.
func (a *app) overlay(cfg *config.Config) {
	fields := map[string]*string{
		"cmr.environment": &cfg.CMR.Environment,
		"cmr.host":        &cfg.CMR.Host,
		"cmr.provider":    &cfg.CMR.Provider,
		"cmr.client_id":   &cfg.CMR.ClientID,
		"cmr.auth.token":  &cfg.CMR.Auth.Token,
		"logging.level":   &cfg.Logging.Level,
		"logging.format":  &cfg.Logging.Format,
	}
	for key, dst := range fields {
		if a.v.IsSet(key) {
			*dst = a.v.GetString(key)
		}
	}

	if a.v.IsSet("metrics.addr") {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = a.v.GetString("metrics.addr")
	}
}

func (a *app) output() string {
	return strings.ToLower(a.v.GetString("output"))
}

func (a *app) jsonOutput() bool {
	return a.output() == "json"
}

// close releases what setup started, newest first.
func (a *app) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	for _, closer := range slices.Backward(a.closers) {
		errs = append(errs, closer(ctx))
	}
	a.closers = nil
	return errors.Join(errs...)
}
