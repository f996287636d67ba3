package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/warmup/internal/app"
	"github.com/MrSnakeDoc/warmup/internal/config"
	"github.com/MrSnakeDoc/warmup/internal/domain"
	"github.com/MrSnakeDoc/warmup/internal/logger"
	"github.com/MrSnakeDoc/warmup/internal/scheduler"
	"github.com/MrSnakeDoc/warmup/internal/version"
)

// NewRootCmd builds the CLI. Without a subcommand it serves.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "warmup",
		Short: "Startup orchestration and background catalog sync",
		Long: `warmup runs a fixed sequence of startup health checks, then ingests a
paginated product catalog into a record store while serving read-only
queries over what has been ingested so far.`,
		SilenceUsage:      true,
		DisableAutoGenTag: true,
	}
	root.PersistentFlags().String("env-file", "", "Path to an env file (default: ./.env when present)")

	serve := newServeCmd()
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(serve)
	root.AddCommand(newChecksCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the startup orchestration and the HTTP host",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			log := logger.New(cfg.LogLevel, cfg.PrettyLog)
			defer func() { _ = log.Sync() }()

			a, err := app.New(cmd.Context(), cfg, log)
			if err != nil {
				log.Error("❌ warmup failed to start", logger.Error(err))
				return err
			}
			return a.Run(cmd.Context())
		},
	}
	cmd.Flags().String("mode", "", "Scheduling mode: gate or cooperative (overrides WARMUP_MODE)")
	return cmd
}

func newChecksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checks",
		Short: "Print the resolved health check plan",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			plan, err := scheduler.BuildPlan(cfg.ChecksFile, cfg.CheckScale)
			if err != nil {
				return err
			}
			return printPlan(cmd, plan, cfg.PingURL)
		},
	}
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := map[string]string{
				"version":    version.Version,
				"commit":     version.Commit,
				"build_date": version.BuildDate,
				"go_version": version.GoVersion,
			}
			format, _ := cmd.Flags().GetString("format")
			if format == "json" {
				out, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "warmup %s (commit=%s, built=%s, go=%s)\n",
				version.Version, version.Commit, version.BuildDate, version.GoVersion)
			return err
		},
	}
	cmd.Flags().String("format", "", "Output format (json)")
	return cmd
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if f := cmd.Flags().Lookup("mode"); f != nil && f.Changed {
		mode, err := domain.ParseMode(f.Value.String())
		if err != nil {
			return nil, err
		}
		cfg.Mode = mode
	}
	return cfg, nil
}

func printPlan(cmd *cobra.Command, plan scheduler.Plan, pingURL string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CHECK\tSTEP\tDELAY")
	for _, c := range plan {
		for _, s := range c.Steps {
			step := s.Name
			if s.Ping {
				step = fmt.Sprintf("%s (GET %s)", s.Name, pingURL)
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", c.Name, step, s.Delay)
		}
	}
	_, _ = fmt.Fprintf(w, "TOTAL\t\t%s\n", plan.Total())
	return w.Flush()
}
