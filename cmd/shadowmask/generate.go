package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/robert-malhotra/go-shadowmask/internal/config"
	"github.com/robert-malhotra/go-shadowmask/internal/experiment"
	"github.com/robert-malhotra/go-shadowmask/internal/goniometer"
	"github.com/robert-malhotra/go-shadowmask/internal/progress"
	"github.com/robert-malhotra/go-shadowmask/shadow"
)

func newGenerateCmd() *cobra.Command {
	v := config.New()
	var configFile string

	cmd := &cobra.Command{
		Use:   "generate [key=value ...] <experiments-file>",
		Short: "compute the shadow mask volume of a scan",
		Long: "Computes, for every image of the scan, which detector pixels the goniometer\n" +
			"hardware shadows and writes the masks as a chunked (frames, height, width)\n" +
			"int8 dataset, 1 where illuminated and 0 where shadowed.\n\n" +
			"Settings may be given as flags, as key=value arguments (output=shadow.h5,\n" +
			"compression=lz4), as SHADOWMASK_* environment variables or in a --config file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				if err := config.ReadFile(v, configFile); err != nil {
					return err
				}
			}
			rest, err := config.ApplyAssignments(v, args)
			if err != nil {
				return err
			}
			if len(rest) != 1 {
				return &shadow.ConfigurationError{
					Field:  "experiments",
					Reason: fmt.Sprintf("expected exactly one experiments file, got %d", len(rest)),
				}
			}
			return runGenerate(cmd, config.Load(v, rest[0]))
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configFile, "config", "", "YAML file with default settings")
	flags.StringP("output", "o", "shadow.h5", "output file")
	flags.StringP("compression", "c", "gzip", "gzip, lzf, lz4, none or an HDF5 filter id")
	flags.String("dataset", shadow.DefaultDatasetPath, "dataset path inside the output file")
	flags.String("log-level", "info", "panic, fatal, error, warn, info, debug or trace")
	flags.BoolP("quiet", "q", false, "no progress bar, log or summary")
	bindFlags(v, cmd)
	return cmd
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) {
	for key, flag := range map[string]string{
		config.KeyOutput:      "output",
		config.KeyCompression: "compression",
		config.KeyDataset:     "dataset",
		config.KeyLogLevel:    "log-level",
		config.KeyQuiet:       "quiet",
	} {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

func runGenerate(cmd *cobra.Command, opts *config.Options) error {
	log := config.NamedLogger("generate")
	if err := config.ConfigureLogger(log, opts.LogLevel, opts.Quiet); err != nil {
		return &shadow.ConfigurationError{Field: config.KeyLogLevel, Reason: err.Error()}
	}

	exp, err := experiment.Load(opts.Experiments)
	if err != nil {
		return err
	}
	masker, err := goniometer.New(exp)
	if err != nil {
		return err
	}
	job := shadow.Job{
		Scan:        exp.ScanGeometry(),
		ImageRange:  exp.ArrayRange(),
		Detector:    exp.ShadowDetector(),
		Masker:      masker,
		Output:      opts.Output,
		Compression: opts.Compression,
		Dataset:     opts.Dataset,
	}
	log.WithField("experiments", opts.Experiments).Debug("Loaded experiment")

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt)
	defer stop()

	runOpts := []shadow.Option{shadow.WithLogger(log)}
	var bar *progress.Bar
	if !opts.Quiet {
		bar = progress.NewBar(cmd.ErrOrStderr())
		runOpts = append(runOpts, shadow.WithObserver(bar))
	}
	summary, err := shadow.Generate(ctx, job, runOpts...)
	if bar != nil {
		bar.Stop()
	}
	if err != nil {
		return err
	}
	if opts.Quiet {
		return nil
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(cmd.OutOrStdout()).WithData([][]string{
		{"Output", "Shape", "Compression", "Shadowed frames", "Shadowed pixels"},
		{
			summary.Path,
			summary.Shape.String(),
			summary.Compression.String(),
			fmt.Sprintf("%d / %d", summary.ShadowedFrames, summary.Frames),
			strconv.FormatInt(summary.ShadowedPixels, 10),
		},
	}).Render()
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
