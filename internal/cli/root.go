package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Ngone6325/graft"
	"github.com/Ngone6325/graft/config"
)

// Version is set at build time with -ldflags.
var Version = "0.1.0-dev"

// app is the state shared by every command once flags are parsed.
type app struct {
	// Global flags
	configFile   string
	envFiles     []string
	detectCycles bool

	cfg       *config.Config
	logger    *slog.Logger
	container *graft.Container
}

// setup loads configuration and bootstraps a container from the default
// catalog. Bootstrap failures are logged and do not stop the command.
func (a *app) setup(cmd *cobra.Command, logOut io.Writer) error {
	cfg, err := config.Load(config.Paths{File: a.configFile, EnvFiles: a.envFiles})
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("detect-cycles") {
		cfg.DetectCircularResolution = a.detectCycles
	}
	a.cfg = cfg
	a.logger = cfg.NewLogger(logOut)
	slog.SetDefault(a.logger)

	a.container = graft.NewContainer(
		graft.WithConfig(*cfg),
		graft.WithLogger(a.logger.With("component", "graft")),
	)
	if err := a.container.Bootstrap(); err != nil {
		a.logger.Warn("bootstrap finished with errors", "error", err)
	}
	return nil
}

// NewRootCommand builds the graft command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "graft",
		Short: "graft - runtime dependency resolution",
		Long: `graft inspects and exercises a dependency resolution container seeded
from the type catalog compiled into this binary.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.setup(cmd, cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "configuration file path")
	root.PersistentFlags().StringSliceVar(&a.envFiles, "env-file", nil, "dotenv files to load before reading the environment")
	root.PersistentFlags().BoolVar(&a.detectCycles, "detect-cycles", false, "fail resolutions that run into a dependency cycle")

	root.AddCommand(
		newInspectCmd(a),
		newResolveCmd(a),
		newServeCmd(a),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
