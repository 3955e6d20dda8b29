// Command eval runs a detection metric over an annotated dataset,
// using either stored predictions or live model inference, and reports
// the scores.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nvr-ai/go-eval/dataset"
	"github.com/nvr-ai/go-eval/detector"
	"github.com/nvr-ai/go-eval/harness"
	"github.com/nvr-ai/go-eval/metrics"
	"github.com/nvr-ai/go-eval/metrics/metric"
)

func main() {
	configPath := flag.String("config", "eval.yaml", "path to the YAML run configuration")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		zap.NewExample().Fatal("loading config", zap.Error(err))
	}

	log, err := newLogger(cfg.Mode)
	if err != nil {
		zap.NewExample().Fatal("building logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("evaluation failed", zap.Error(err))
	}
}

func run(cfg *Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	samples, err := dataset.LoadVOC(cfg.Dataset.AnnotationDir, cfg.Dataset.ListFile)
	if err != nil {
		return err
	}
	log.Info("dataset loaded",
		zap.Int("samples", len(samples)),
		zap.String("annotations", cfg.Dataset.AnnotationDir))

	source, cleanup, err := buildSource(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	m, err := metrics.New(metric.Name(cfg.Metric.Name), cfg.Metric.toMetric())
	if err != nil {
		return err
	}

	runner := harness.NewRunner(cfg.Run, source, log)
	rm, err := runner.Run(ctx, samples, m)
	if err != nil {
		return err
	}

	fields := []zap.Field{
		zap.Int("samples", rm.SampleCount),
		zap.Int("detections", rm.DetectionCount),
		zap.Duration("elapsed", rm.TotalDuration),
	}
	for name, value := range rm.Results {
		fields = append(fields, zap.Float64(name, value))
	}
	log.Info("evaluation complete", fields...)
	return nil
}

// buildSource picks stored predictions when a prediction file is
// configured, live inference otherwise.
func buildSource(cfg *Config, log *zap.Logger) (harness.Source, func(), error) {
	if cfg.Dataset.PredictionsFile != "" {
		set, err := dataset.LoadPredictions(cfg.Dataset.PredictionsFile)
		if err != nil {
			return nil, nil, err
		}
		log.Info("using stored predictions",
			zap.String("path", cfg.Dataset.PredictionsFile),
			zap.Int("images", len(set)))
		return harness.NewPredictionSource(set), func() {}, nil
	}

	det, err := detector.New(detector.Backend(cfg.Detector.Backend), cfg.Detector.toDetector())
	if err != nil {
		return nil, nil, err
	}
	log.Info("detector ready",
		zap.String("backend", cfg.Detector.Backend),
		zap.String("model", cfg.Detector.ModelPath))

	source := harness.NewDetectorSource(det, cfg.Dataset.ImageDir)
	return source, func() { _ = source.Close() }, nil
}

func newLogger(mode string) (*zap.Logger, error) {
	var config zap.Config
	if mode == "release" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return config.Build()
}
