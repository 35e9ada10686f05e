package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tclab/textbench/internal/artifacts"
	"github.com/tclab/textbench/internal/bench"
	"github.com/tclab/textbench/internal/cache"
	"github.com/tclab/textbench/internal/config"
	"github.com/tclab/textbench/internal/encoder"
	"github.com/tclab/textbench/internal/inference"
	"github.com/tclab/textbench/internal/logger"
	"github.com/tclab/textbench/internal/pipeline"
	"github.com/tclab/textbench/internal/server"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

// Exit codes distinguish setup failures from runtime failures so callers
// can script around them.
const (
	exitUsage     = 1
	exitArtifacts = 2
	exitInference = 3
)

func main() {
	// Parse command line flags
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		benchmark   = flag.Int("benchmark", 0, "Run a benchmark with N timed iterations")
		datasetPath = flag.String("dataset", "", "Benchmark over a dataset file (csv, parquet, jsonl)")
		serveMode   = flag.Bool("serve", false, "Run as an HTTP classification server")
		showVersion = flag.Bool("version", false, "Show version information")
		healthCheck = flag.Bool("health-check", false, "Perform health check and exit")
	)
	flag.Parse()

	// Show version and exit
	if *showVersion {
		fmt.Printf("textbench %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	// Perform health check and exit
	if *healthCheck {
		performHealthCheck()
		return
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(exitUsage)
	}

	// Initialize logger
	loggerConfig := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}

	if cfg.Logging.File.Enabled {
		loggerConfig.File = &logger.FileConfig{
			Enabled:  cfg.Logging.File.Enabled,
			Path:     cfg.Logging.File.Path,
			MaxSize:  cfg.Logging.File.MaxSize,
			MaxAge:   cfg.Logging.File.MaxAge,
			Compress: cfg.Logging.File.Compress,
		}
	}

	log, err := logger.New(loggerConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(exitUsage)
	}
	defer log.Sync()

	log.Info("Starting textbench",
		zap.String("version", version),
		zap.String("encoder", cfg.Encoder.Type),
	)

	// Build the prediction pipeline from configured artifacts
	classifier, features, invoker, err := buildClassifier(cfg, log)
	if err != nil {
		log.Error("Failed to build pipeline", zap.Error(err))
		log.Sync()
		if artifacts.IsLoadError(err) || errors.Is(err, inference.ErrModelLoad) {
			os.Exit(exitArtifacts)
		}
		os.Exit(exitUsage)
	}
	defer invoker.Close()
	if features != nil {
		defer features.Close()
	}

	switch {
	case *serveMode:
		runServer(cfg, log, classifier, features)
	case *benchmark > 0 || *datasetPath != "":
		runBenchmark(cfg, log, classifier, *benchmark, *datasetPath, flag.Args())
	default:
		runSingle(log, classifier, flag.Args())
	}
}

// buildClassifier loads artifacts, creates the encoder, inference session and
// optional feature cache, and wires them into a classifier.
func buildClassifier(cfg *config.Config, log *logger.Logger) (*pipeline.Classifier, *cache.FeatureCache, inference.Invoker, error) {
	store := artifacts.NewStore(log.WithComponent("artifacts").Logger)

	var enc encoder.Encoder
	var scaler *encoder.Scaler

	switch cfg.Encoder.Type {
	case "tfidf":
		vocab, err := store.LoadVocabulary(cfg.Artifacts.VocabPath)
		if err != nil {
			return nil, nil, nil, err
		}
		enc = encoder.NewTfidfEncoder(vocab, cfg.Encoder.Normalize, log.WithComponent("encoder").Logger)

		if cfg.Encoder.Scale {
			params, err := store.LoadScaler(cfg.Artifacts.ScalerPath, vocab.Dim())
			if err != nil {
				return nil, nil, nil, err
			}
			scaler = encoder.NewScaler(params)
		}
	case "sequence":
		tokens, err := store.LoadTokenMap(cfg.Artifacts.TokensPath)
		if err != nil {
			return nil, nil, nil, err
		}
		enc = encoder.NewSequenceEncoder(tokens, cfg.Encoder.SequenceLength, log.WithComponent("encoder").Logger)
	default:
		return nil, nil, nil, fmt.Errorf("unsupported encoder type: %s", cfg.Encoder.Type)
	}

	var labels *artifacts.LabelMap
	if cfg.Artifacts.LabelsPath != "" {
		var err error
		labels, err = store.LoadLabels(cfg.Artifacts.LabelsPath)
		if err != nil {
			return nil, nil, nil, err
		}
	} else {
		labels = &artifacts.LabelMap{}
	}

	invoker, err := inference.NewSession(cfg.Artifacts.ModelPath, log.WithComponent("inference").Logger)
	if err != nil {
		return nil, nil, nil, err
	}

	// A cache failure degrades to uncached encoding rather than aborting.
	var features *cache.FeatureCache
	if cfg.Cache.Enabled {
		features, err = cache.NewFeatureCache(&cfg.Cache, log.WithComponent("cache").Logger)
		if err != nil {
			log.Warn("Feature cache unavailable, continuing without it", zap.Error(err))
			features = nil
		}
	}

	classifier := pipeline.New(enc, invoker, pipeline.Options{
		Scaler:         scaler,
		Labels:         labels,
		FeatureCache:   features,
		SampleInterval: cfg.Monitor.SampleInterval,
	}, log.WithComponent("pipeline").Logger)

	return classifier, features, invoker, nil
}

// runSingle classifies one text and prints the prediction as JSON.
func runSingle(log *logger.Logger, classifier *pipeline.Classifier, args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: textbench [flags] <text>")
		log.Sync()
		os.Exit(exitUsage)
	}

	pred, err := classifier.Classify(context.Background(), args[0])
	if err != nil {
		log.Error("Classification failed", zap.Error(err))
		log.Sync()
		os.Exit(exitInference)
	}

	printJSON(pred)
}

// runBenchmark runs the harness over the positional text or a dataset file
// and prints the aggregated result as JSON.
func runBenchmark(cfg *config.Config, log *logger.Logger, classifier *pipeline.Classifier, iterations int, datasetPath string, args []string) {
	var texts []string
	var err error

	if datasetPath != "" {
		texts, err = bench.LoadDataset(datasetPath, log.WithComponent("dataset").Logger)
		if err != nil {
			log.Error("Failed to load dataset", zap.Error(err))
			log.Sync()
			os.Exit(exitArtifacts)
		}
		if iterations <= 0 {
			iterations = len(texts)
		}
	} else {
		if len(args) == 0 {
			fmt.Fprintln(os.Stderr, "Usage: textbench --benchmark N [flags] <text>")
			log.Sync()
			os.Exit(exitUsage)
		}
		texts = []string{args[0]}
	}

	var sink bench.Sink
	if cfg.Benchmark.DatabaseURL != "" {
		pgSink, err := bench.NewPostgresSink(cfg.Benchmark.DatabaseURL, log.WithComponent("sink").Logger)
		if err != nil {
			log.Warn("Result sink unavailable, continuing without it", zap.Error(err))
		} else {
			defer pgSink.Close()
			sink = pgSink
		}
	}

	harness, err := bench.New(classifier, bench.Options{
		Texts:      texts,
		Warmup:     cfg.Benchmark.Warmup,
		TargetRate: cfg.Benchmark.TargetRate,
		Sink:       sink,
	}, log.WithComponent("bench").Logger)
	if err != nil {
		log.Error("Failed to create benchmark harness", zap.Error(err))
		log.Sync()
		os.Exit(exitUsage)
	}

	result, err := harness.Run(context.Background(), iterations)
	if err != nil {
		log.Error("Benchmark failed", zap.Error(err))
		log.Sync()
		os.Exit(exitInference)
	}

	printJSON(result)
}

// runServer exposes the pipeline over HTTP until interrupted.
func runServer(cfg *config.Config, log *logger.Logger, classifier *pipeline.Classifier, features *cache.FeatureCache) {
	srv := server.New(cfg, log, classifier, features)

	// Reload logging level hints on config changes; artifacts stay pinned
	// for the lifetime of the process.
	if err := config.Watch(cfg, func(updated *config.Config) {
		log.Info("Configuration file changed",
			zap.String("log_level", updated.Logging.Level))
	}); err != nil {
		log.Warn("Config watch unavailable", zap.Error(err))
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		serverErrors <- srv.Start()
	}()

	// Setup graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErrors:
		log.Error("Server error", zap.Error(err))
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		// Give outstanding requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Stop(ctx); err != nil {
			log.Error("Failed to shutdown server gracefully", zap.Error(err))
			os.Exit(exitUsage)
		}

		log.Info("Server shutdown complete")
	}
}

func printJSON(v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode result: %v\n", err)
		os.Exit(exitUsage)
	}
	fmt.Println(string(out))
}

// performHealthCheck performs a health check against the running server
func performHealthCheck() {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get("http://localhost:8080/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: HTTP %d\n", resp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("Health check passed")
	os.Exit(0)
}
