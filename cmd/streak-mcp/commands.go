package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ironsheep/streak-tools-mcp/internal/batch"
	"github.com/ironsheep/streak-tools-mcp/internal/config"
	"github.com/ironsheep/streak-tools-mcp/internal/imaging"
	"github.com/ironsheep/streak-tools-mcp/internal/server"
)

// logLevelEnv selects the log level when --verbose is not given.
const logLevelEnv = "STREAK_MCP_LOG_LEVEL"

type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "streak-mcp",
		Short: "MCP server for finding satellite and meteor streaks in astronomical frames",
		Long: `streak-mcp traces the sources in an astronomical frame, keeps the thin
elongated ones and links fragments of the same trail into groups.

Without a subcommand it runs as an MCP server over stdin/stdout; configure it
in your MCP client. The detect command processes frames in batch instead.

Environment variables:
  ` + logLevelEnv + `=debug    Log level (debug, info, warn, error)`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a TOML configuration file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable development logging")

	root.AddCommand(
		newServeCmd(opts),
		newDetectCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return root
}

// newLogger writes to stderr; stdout is reserved for the MCP protocol.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		cfg := zap.NewDevelopmentConfig()
		cfg.OutputPaths = []string{"stderr"}
		return cfg.Build()
	}

	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if v := os.Getenv(logLevelEnv); v != "" {
		level, err := zap.ParseAtomicLevel(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", logLevelEnv, err)
		}
		cfg.Level = level
	}
	return cfg.Build()
}

// setup loads the configuration and builds the logger shared by all
// commands.
func setup(opts *rootOptions) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := newLogger(opts.verbose)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over stdin/stdout (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}
}

func runServe(opts *rootOptions) error {
	cfg, logger, err := setup(opts)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("starting streak MCP server",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("commit", GitCommit),
		zap.String("config", opts.configPath))

	srv := server.New(cfg, logger)
	if err := srv.Run(); err != nil {
		logger.Error("server stopped", zap.Error(err))
		return err
	}
	return nil
}

type detectOptions struct {
	outDir    string
	noFigures bool
}

func newDetectCmd(root *rootOptions) *cobra.Command {
	opts := &detectOptions{}

	cmd := &cobra.Command{
		Use:   "detect <image>...",
		Short: "Detect streaks in frames and write report, GeoJSON and figures",
		Long: `detect processes every frame given on the command line. For frame.png the
results go to frame/ next to it unless --out or [output].dir is set:

  streaks.txt      fixed-column report, one row per edge
  streaks.geojson  outlines and group boxes in pixel coordinates
  all.png          overview with every outline and group box
  <root>.png       one cut-out per group`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(root)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if opts.outDir != "" {
				cfg.Output.Dir = opts.outDir
			}
			if opts.noFigures {
				cfg.Output.Figures = false
			}
			return runDetect(cmd, args, cfg, logger)
		},
	}

	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "", "output directory; with several frames each gets a subdirectory")
	cmd.Flags().BoolVar(&opts.noFigures, "no-figures", false, "skip the PNG figures")
	return cmd
}

func runDetect(cmd *cobra.Command, inputs []string, cfg config.Config, logger *zap.Logger) error {
	cache := imaging.NewImageCache()
	out := cmd.OutOrStdout()
	failed := 0

	for _, input := range inputs {
		frameCfg := cfg
		if cfg.Output.Dir != "" && len(inputs) > 1 {
			frameCfg.Output.Dir = filepath.Join(cfg.Output.Dir, filepath.Base(batch.DefaultDir(input)))
		}

		outcome, err := batch.Process(cache, input, frameCfg, logger)
		cache.Evict(input)
		if err != nil {
			failed++
			logger.Error("frame failed", zap.String("input", input), zap.Error(err))
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", input, err)
			continue
		}

		d := outcome.Diagnostics
		fmt.Fprintf(out, "%s: %d streaks in %d groups from %d contours -> %s\n",
			input, d.Streaks, d.Groups, d.Contours, outcome.Dir)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d frames failed", failed, len(inputs))
	}
	return nil
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			return cfg.Write(cmd.OutOrStdout())
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "streak-tools-mcp %s (protocol server %s)\n", Version, server.Version)
			fmt.Fprintf(out, "  Build time: %s\n", BuildTime)
			fmt.Fprintf(out, "  Git commit: %s\n", GitCommit)
		},
	}
}
