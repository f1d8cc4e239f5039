package cmd

import (
	"rowbook/internal/packager"
	"rowbook/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	rootDir             string
	manifestPath        string
	outputPath          string
	noData              bool
	allowMissingMarkers bool
	debug               bool
)

var rootCmd = &cobra.Command{
	Use:   "packager",
	Short: "Inline the editor page, its assets and data into one HTML file",
	Long: `packager reads templates/index.html, static/style.css, the page scripts and
static/data.json, and writes a self-contained page (docs/index.html by default)
that works from any static host without the data service.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runPackage,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&rootDir, "root", ".", "project directory the input paths are relative to")
	f.StringVarP(&manifestPath, "config", "c", "", "YAML manifest with packaging options")
	f.StringVarP(&outputPath, "output", "o", "", "output HTML file (default docs/index.html)")
	f.BoolVar(&noData, "no-data", false, "keep fetching /data instead of embedding a snapshot")
	f.BoolVar(&allowMissingMarkers, "allow-missing-markers", false, "warn instead of failing when the template lacks an asset tag")
	f.BoolVar(&debug, "debug", false, "verbose logging")
}

// Execute runs the root command and logs any failure.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		logger.Sugar.Errorf("Packaging failed: %v", err)
		logger.Sync()
	}
	return err
}

func runPackage(cmd *cobra.Command, args []string) error {
	logger.Init(debug)
	defer logger.Sync()

	opts, err := resolveOptions(cmd)
	if err != nil {
		return err
	}

	report, err := packager.Build(opts)
	if err != nil {
		return err
	}

	for _, s := range report.Substitutions {
		logger.Sugar.Debugw("Inlined asset", "asset", s.Asset, "matches", s.Count)
	}
	for _, m := range report.MissingMarkers {
		logger.Sugar.Warnf("Template has no %s; asset left as a link", m)
	}
	if opts.IncludeDataSnapshot && report.FetchRewrites == 0 {
		logger.Sugar.Warn("No script fetches /data; the embedded snapshot is unused")
	}
	logger.Sugar.Infow("Static HTML file generated",
		"output", report.OutputPath,
		"bytes", report.Bytes,
		"data_snapshot", opts.IncludeDataSnapshot,
	)
	return nil
}

// resolveOptions layers defaults, then the manifest, then explicit flags.
func resolveOptions(cmd *cobra.Command) (packager.Options, error) {
	opts := packager.DefaultOptions()
	if manifestPath != "" {
		var err error
		if opts, err = packager.LoadOptions(manifestPath); err != nil {
			return opts, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("root") || opts.Root == "" {
		opts.Root = rootDir
	}
	if flags.Changed("output") {
		opts.OutputPath = outputPath
	}
	if flags.Changed("no-data") {
		opts.IncludeDataSnapshot = !noData
	}
	if flags.Changed("allow-missing-markers") {
		opts.AllowMissingMarkers = allowMissingMarkers
	}
	return opts, nil
}
