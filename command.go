package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"strings"

	"imco/batch"
	"imco/codec"
	"imco/format"
	"imco/logger"

	"github.com/gen2brain/avif"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Inputs       []string
	Outputs      []string
	InputFormat  string
	OutputFormat string
	Batch        bool
	Workers      int
	KeepGoing    bool
	Quality      int
	QualityAlpha int
	Speed        int
	JPEGQuality  int
	MaxAllocMiB  int
	MaxWidth     int
	MaxHeight    int
	Verbose      bool
	NoColor      bool
	LogJSON      bool
	Version      string
}

var (
	Version    = "dev"
	BuildDate  = "unknown"
	GitCommit  = "unknown"
	QueueRatio = 3
)

const envPrefix = "IMCO"

// tunables can also be set through IMCO_* environment variables.
var tunables = []string{
	"workers", "keep-going", "quality", "quality-alpha", "speed",
	"jpeg-quality", "max-alloc", "max-width", "max-height",
	"verbose", "no-color", "log-json",
}

func NewCommand(stdout, stderr io.Writer) *cobra.Command {
	cfg := &Config{Version: Version}
	var v *viper.Viper
	var showVersion bool

	cmd := &cobra.Command{
		Use:   "imco -i <FILE,...> -o <FILE,...> [flags]",
		Short: "Convert images between formats",
		Long: "imco decodes each input image and re-encodes it to the requested path or format.\n\n" +
			"Formats: " + strings.Join(format.Supported(), ", "),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if showVersion {
				logger.Box(cmd.OutOrStdout(), "imco version information", versionInfo(cfg))
				return nil
			}

			cfg.load(v)
			if err := cfg.validate(cmd); err != nil {
				return err
			}

			opts, err := cfg.BatchOptions()
			if err != nil {
				return err
			}

			console := logger.NewConsole(cfg.LoggerOptions(cmd.ErrOrStderr()))
			console.Debug("starting", "inputs", len(opts.Inputs), "outputs", len(opts.Outputs),
				"batch", opts.Batch, "workers", cfg.Workers)

			processor := NewProcessor(cfg, console, cmd.OutOrStdout())
			_, err = processor.Run(cmd.Context(), opts)
			return err
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.Flags()
	flags.StringArrayVarP(&cfg.Inputs, "input", "i", nil, "Input files (separated by ',')")
	flags.StringArrayVarP(&cfg.Outputs, "output", "o", nil, "Output files (separated by ',')")
	flags.StringVarP(&cfg.InputFormat, "input-format", "f", "", "Input files format (see formats above)")
	flags.StringVarP(&cfg.OutputFormat, "output-format", "d", "", "Output files format (see formats above)")
	flags.BoolVarP(&cfg.Batch, "batch", "b", false, "Enables batch processing (using patterns to specify multiple files at once)")
	flags.BoolVarP(&showVersion, "version", "v", false, "Displays the version")

	flags.IntVarP(&cfg.Workers, "workers", "w", 1, "Number of concurrent conversions")
	flags.BoolVarP(&cfg.KeepGoing, "keep-going", "k", false, "Convert every file and report all failures at the end")
	flags.IntVar(&cfg.Quality, "quality", 80, "AVIF quality (0-100, higher is better)")
	flags.IntVar(&cfg.QualityAlpha, "quality-alpha", 80, "AVIF alpha channel quality (0-100)")
	flags.IntVar(&cfg.Speed, "speed", 6, "AVIF encoding speed (0-10, lower is better quality but slower)")
	flags.IntVar(&cfg.JPEGQuality, "jpeg-quality", 90, "JPEG quality (1-100)")
	flags.IntVar(&cfg.MaxAllocMiB, "max-alloc", codec.DefaultMaxAlloc>>20, "Largest decoded image in MiB (0 disables the limit)")
	flags.IntVar(&cfg.MaxWidth, "max-width", 0, "Largest accepted image width in pixels (0 disables the limit)")
	flags.IntVar(&cfg.MaxHeight, "max-height", 0, "Largest accepted image height in pixels (0 disables the limit)")
	flags.BoolVar(&cfg.Verbose, "verbose", false, "Log every conversion and print a summary")
	flags.BoolVar(&cfg.NoColor, "no-color", false, "Disable colored logs")
	flags.BoolVar(&cfg.LogJSON, "log-json", false, "Write logs as JSON")

	v = newViper(flags)

	return cmd
}

// newViper layers IMCO_* environment variables under the tunable flags. It
// panics if a tunable has no flag.
func newViper(flags *pflag.FlagSet) *viper.Viper {
	v := viper.New()
	for _, key := range tunables {
		if err := v.BindPFlag(key, flags.Lookup(key)); err != nil {
			panic(fmt.Sprintf("binding --%s: %v", key, err))
		}
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// exitMessage is the line printed for a failed run.
func exitMessage(err error) string {
	if errors.Is(err, context.Canceled) {
		return "Conversion interrupted"
	}
	return err.Error()
}

func versionInfo(cfg *Config) string {
	return fmt.Sprintf(
		"Version: %s\nBuild date: %s\nGit commit: %s",
		cfg.Version, BuildDate, GitCommit,
	)
}

// load applies flag, environment and default values, in that order of
// precedence, to the tunable settings.
func (cfg *Config) load(v *viper.Viper) {
	cfg.Workers = v.GetInt("workers")
	cfg.KeepGoing = v.GetBool("keep-going")
	cfg.Quality = v.GetInt("quality")
	cfg.QualityAlpha = v.GetInt("quality-alpha")
	cfg.Speed = v.GetInt("speed")
	cfg.JPEGQuality = v.GetInt("jpeg-quality")
	cfg.MaxAllocMiB = v.GetInt("max-alloc")
	cfg.MaxWidth = v.GetInt("max-width")
	cfg.MaxHeight = v.GetInt("max-height")
	cfg.Verbose = v.GetBool("verbose")
	cfg.NoColor = v.GetBool("no-color")
	cfg.LogJSON = v.GetBool("log-json")
}

func (cfg *Config) validate(cmd *cobra.Command) error {
	for _, name := range []string{"input", "output"} {
		if !cmd.Flags().Changed(name) {
			return fmt.Errorf("error: required flag --%s not set", name)
		}
	}
	if cfg.Quality < 0 || cfg.Quality > 100 {
		return fmt.Errorf("error: quality must be in range 0-100")
	}
	if cfg.QualityAlpha < 0 || cfg.QualityAlpha > 100 {
		return fmt.Errorf("error: alpha quality must be in range 0-100")
	}
	if cfg.Speed < 0 || cfg.Speed > 10 {
		return fmt.Errorf("error: encoding speed must be in range 0-10")
	}
	if cfg.JPEGQuality < 1 || cfg.JPEGQuality > 100 {
		return fmt.Errorf("error: jpeg quality must be in range 1-100")
	}
	if cfg.Workers < 1 {
		return fmt.Errorf("error: workers must be at least 1")
	}
	if cfg.MaxAllocMiB < 0 {
		return fmt.Errorf("error: max-alloc must not be negative")
	}
	if cfg.MaxWidth < 0 || cfg.MaxHeight < 0 {
		return fmt.Errorf("error: max-width and max-height must not be negative")
	}
	return nil
}

// BatchOptions resolves the format tokens. An unknown token fails with
// InvalidFormat before any file is touched.
func (cfg *Config) BatchOptions() (batch.Options, error) {
	opts := batch.Options{
		Inputs:  splitList(cfg.Inputs),
		Outputs: splitList(cfg.Outputs),
		Batch:   cfg.Batch,
	}

	var err error
	if cfg.InputFormat != "" {
		if opts.InputFormat, err = format.Resolve(cfg.InputFormat); err != nil {
			return batch.Options{}, err
		}
	}
	if cfg.OutputFormat != "" {
		if opts.OutputFormat, err = format.Resolve(cfg.OutputFormat); err != nil {
			return batch.Options{}, err
		}
	}
	return opts, nil
}

// splitList splits every flag value on ','. Quotes have no special meaning.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		out = append(out, strings.Split(v, ",")...)
	}
	return out
}

func (cfg *Config) GetEncodingOptions() codec.Options {
	return codec.Options{
		AVIF: avif.Options{
			Quality:           cfg.Quality,
			QualityAlpha:      cfg.QualityAlpha,
			Speed:             cfg.Speed,
			ChromaSubsampling: image.YCbCrSubsampleRatio420,
		},
		JPEGQuality: cfg.JPEGQuality,
	}
}

func (cfg *Config) GetLimits() codec.Limits {
	return codec.Limits{
		MaxWidth:  cfg.MaxWidth,
		MaxHeight: cfg.MaxHeight,
		MaxAlloc:  uint64(cfg.MaxAllocMiB) << 20,
	}
}

func (cfg *Config) LoggerOptions(out io.Writer) *logger.RichLoggerOptions {
	opts := logger.DefaultOptions()
	opts.Output = out
	opts.EnableColors = !cfg.NoColor
	opts.EnableJSON = cfg.LogJSON
	if cfg.Verbose {
		opts.Level = slog.LevelDebug
	}
	return opts
}
