package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/houston-tools/unityFileTools/pkg/archive"
	"github.com/houston-tools/unityFileTools/pkg/config"
	"github.com/houston-tools/unityFileTools/pkg/export"
)

// app is the state shared by all commands.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	cmd := &cobra.Command{
		Use:           "unitytools",
		Short:         "Inspect and extract UnityFS asset bundles",
		SilenceUsage:  true,
		SilenceErrors: true,
		// Runs before every subcommand.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default ./unitytools.yaml, then $HOME/.unitytools/config.yaml)")
	flags.String("assets", "", "directory scanned for archives")
	flags.String("output", "", "directory exported files are written to")
	flags.Int("workers", 0, "archives processed in parallel")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	a.bind(flags, "assets", "assets")
	a.bind(flags, "output", "output")
	a.bind(flags, "workers", "workers")
	a.bind(flags, "log.level", "log-level")

	cmd.AddCommand(
		newListCmd(a),
		newTexturesCmd(a),
		newMeshesCmd(a),
		newTextCmd(a),
		newDumpCmd(a),
	)
	return cmd
}

// bind makes the flag override the config key when it is set.
func (a *app) bind(flags *pflag.FlagSet, key, name string) {
	if err := a.v.BindPFlag(key, flags.Lookup(name)); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", name, err))
	}
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	if cfg.File != "" {
		a.logger.Debug("using config file", "path", cfg.File)
	}
	return nil
}

// archives returns the archives named by args, each a file or a directory,
// or those under the configured assets directory when args is empty.
func (a *app) archives(args []string) ([]string, error) {
	roots := args
	if len(roots) == 0 {
		roots = []string{a.cfg.Assets}
	}

	var paths []string
	for _, root := range roots {
		found, err := export.Scan(root)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", root, err)
		}
		paths = append(paths, found...)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no UnityFS archives found in %v", roots)
	}
	a.logger.Debug("found archives", "count", len(paths))
	return paths, nil
}

// runExport exports every archive with method and writes the manifest.
func (a *app) runExport(cmd *cobra.Command, args []string, method func(*export.Exporter, string, *archive.Archive) error, opts ...export.Option) error {
	paths, err := a.archives(args)
	if err != nil {
		return err
	}

	opts = append([]export.Option{
		export.WithLogger(a.logger),
		export.WithFlip(a.cfg.Texture.Flip),
		export.WithCompression(a.cfg.Dump.Compress),
	}, opts...)
	e := export.New(a.cfg.Output, opts...)
	e.Reserve(paths...)

	failed, err := export.Each(cmd.Context(), a.logger, paths, a.cfg.Workers,
		func(_ context.Context, path string, ar *archive.Archive) error {
			return method(e, path, ar)
		})
	if err != nil {
		return err
	}
	if err := e.WriteManifest(); err != nil {
		return err
	}

	a.logger.Info("export complete",
		"archives", len(paths), "failed", failed, "files", len(e.Entries()), "output", a.cfg.Output)
	return nil
}
