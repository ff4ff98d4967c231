package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/qyzhao/star-trends/internal/cipher"
	"github.com/qyzhao/star-trends/internal/classifier"
	"github.com/qyzhao/star-trends/internal/config"
	"github.com/qyzhao/star-trends/internal/fetcher"
	"github.com/qyzhao/star-trends/internal/remote"
	"github.com/qyzhao/star-trends/internal/runner"
	"github.com/qyzhao/star-trends/internal/snapshot"
)

type options struct {
	Start       string  `long:"start" description:"Start date (YYYY-MM-DD)"`
	End         string  `long:"end" description:"End date (YYYY-MM-DD)"`
	Input       string  `long:"input" description:"Filter an existing JSON snapshot instead of fetching"`
	Raw         string  `long:"raw" default:"data/trends_raw.json" description:"Path for the raw snapshot"`
	Output      string  `long:"output" default:"data/trends_filtered.json" description:"Path for the filtered output"`
	WithHistory bool    `long:"with-history" description:"Fetch per-keyword rank history (slower)"`
	Workers     int     `long:"workers" default:"0" description:"Concurrent fetch workers (0 = config default)"`
	Model       string  `long:"model" env:"DEEPSEEK_MODEL" description:"Oracle model name"`
	Enhanced    bool    `long:"enhanced" description:"Infer an associated figure for topics that do not name one"`
	Delay       float64 `long:"delay" default:"-1" description:"Seconds between oracle requests (-1 = config default)"`
	NoDelay     bool    `long:"no-delay" description:"Disable the oracle request delay"`
	Config      string  `long:"config" env:"STAR_TRENDS_CONFIG" description:"Path to YAML config file"`
	Schedule    string  `long:"schedule" description:"Cron expression; when set, run daily for the previous day"`
	Verbose     bool    `long:"verbose" short:"v" description:"Enable debug logging"`
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return
		}
		os.Exit(1)
	}

	logger, err := buildLogger(opts.Verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(opts, logger); err != nil {
		logger.Fatal("pipeline failed", zap.Error(err))
	}
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

func run(opts options, logger *zap.Logger) error {
	cfg, err := loadConfig(opts.Config)
	if err != nil {
		return err
	}
	applyOverrides(&opts, cfg)

	codec := cipher.NewCodec(cfg.SecretKey)
	client := remote.NewClient(codec)
	oracle := classifier.NewChatOracle(cfg.Oracle.APIKey, cfg.Oracle.BaseURL, cfg.Oracle.Model)
	store := snapshot.NewStore(logger)
	r := runner.New(fetcher.NewRangeFetcher(client, logger), store, oracle, logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	delay := resolveDelay(opts, cfg)

	// Filter-only mode: classify an existing snapshot, no fetching.
	if opts.Input != "" {
		result, err := r.FilterFile(ctx, opts.Input, opts.Output, opts.Enhanced, delay)
		if err != nil {
			return err
		}
		logResult(logger, result)
		return nil
	}

	if opts.Schedule != "" {
		return runScheduled(ctx, r, opts, delay, logger)
	}

	if !validDate(opts.Start) || !validDate(opts.End) {
		return fmt.Errorf("start and end dates are required in YYYY-MM-DD form")
	}

	result, err := r.FetchAndProcess(ctx, runner.Options{
		Start:       opts.Start,
		End:         opts.End,
		RawPath:     opts.Raw,
		OutputPath:  opts.Output,
		WithHistory: opts.WithHistory,
		Workers:     opts.Workers,
		Enhanced:    opts.Enhanced,
		Delay:       delay,
	})
	if err != nil {
		return err
	}
	logResult(logger, result)
	return nil
}

// runScheduled runs the pipeline on a cron schedule, each trigger covering
// the previous calendar day with date-stamped snapshot paths.
func runScheduled(ctx context.Context, r *runner.Runner, opts options, delay time.Duration, logger *zap.Logger) error {
	c := cron.New()
	_, err := c.AddFunc(opts.Schedule, func() {
		date := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
		logger.Info("scheduled run triggered", zap.String("date", date))

		result, err := r.FetchAndProcess(ctx, runner.Options{
			Start:       date,
			End:         date,
			RawPath:     datedPath(opts.Raw, date),
			OutputPath:  datedPath(opts.Output, date),
			WithHistory: opts.WithHistory,
			Workers:     opts.Workers,
			Enhanced:    opts.Enhanced,
			Delay:       delay,
		})
		if err != nil {
			logger.Error("scheduled run failed", zap.Error(err))
			return
		}
		logResult(logger, result)
	})
	if err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", opts.Schedule, err)
	}

	c.Start()
	logger.Info("scheduler started", zap.String("schedule", opts.Schedule))

	<-ctx.Done()
	c.Stop()
	logger.Info("scheduler stopped")
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.FromEnv()
}

// applyOverrides merges CLI flags over config-file values.
func applyOverrides(opts *options, cfg *config.Config) {
	if opts.Model != "" {
		cfg.Oracle.Model = opts.Model
	}
	if opts.Workers <= 0 {
		opts.Workers = cfg.Fetch.Workers
	}
	if !opts.WithHistory {
		opts.WithHistory = cfg.Fetch.WithHistory
	}
	if !opts.Enhanced {
		opts.Enhanced = cfg.Classify.Enhanced
	}
}

func resolveDelay(opts options, cfg *config.Config) time.Duration {
	if opts.NoDelay {
		return 0
	}
	if opts.Delay >= 0 {
		return time.Duration(opts.Delay * float64(time.Second))
	}
	return time.Duration(cfg.Classify.DelayMS) * time.Millisecond
}

func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// datedPath inserts the date before the file extension.
func datedPath(path, date string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_" + date + ext
}

func signalContext(logger *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	}()
	return ctx, cancel
}

func logResult(logger *zap.Logger, result *runner.Result) {
	logger.Info("pipeline complete",
		zap.Int("total", result.Total),
		zap.Int("kept", result.Kept),
		zap.Int("filtered", result.Filtered),
		zap.String("output", result.OutputPath))
}
