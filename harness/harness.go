package harness

import (
	"context"
	"encoding/json"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-eval/dataset"
	"github.com/nvr-ai/go-eval/metrics/metric"
	"github.com/nvr-ai/go-eval/metrics/voc"
)

// Config holds evaluation run parameters.
type Config struct {
	// Workers sets the shard count for parallel accumulation. Zero or
	// one runs the pass sequentially.
	Workers int `json:"workers" yaml:"workers"`
	// ReportPath is where the JSON run report is written. Empty skips
	// the report.
	ReportPath string `json:"reportPath" yaml:"reportPath"`
}

// Runner drives an evaluation pass over a dataset.
type Runner struct {
	cfg    Config
	source Source
	log    *zap.Logger
}

// NewRunner creates a runner over the given prediction source.
func NewRunner(cfg Config, source Source, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{cfg: cfg, source: source, log: log}
}

// Run feeds every sample's predictions and ground truth into the
// metric, accumulates once, and returns the run report.
//
// Arguments:
//   - ctx: Cancels the pass between samples.
//   - samples: The annotated dataset.
//   - m: The metric to evaluate; it is reset first.
//
// Returns:
//   - The run report with the metric's results, or an error.
func (r *Runner) Run(
	ctx context.Context, samples []*dataset.Sample, m metric.Metric,
) (*RunMetrics, error) {
	m.Reset()

	var startMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&startMem)

	rm := &RunMetrics{
		Timestamp:   time.Now(),
		SampleCount: len(samples),
		NumCPU:      runtime.NumCPU(),
	}

	start := time.Now()
	for i, sample := range samples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		t0 := time.Now()
		dets, err := r.source.Detections(ctx, sample)
		rm.InferenceDuration += time.Since(t0)
		if err != nil {
			rm.ErrorCount++
			r.log.Warn("prediction source failed",
				zap.String("sample", sample.Name), zap.Error(err))
			continue
		}

		batch := &metric.Batch{
			ImageID:     i,
			Detections:  dets,
			GroundTruth: sample.GroundTruth,
		}

		t0 = time.Now()
		err = m.Update(batch)
		rm.UpdateDuration += time.Since(t0)
		if err != nil {
			return nil, errors.Wrapf(err, "harness: sample %s", sample.Name)
		}
		rm.DetectionCount += len(dets)
	}

	t0 := time.Now()
	if err := m.Accumulate(); err != nil {
		return nil, errors.Wrap(err, "harness: accumulate")
	}
	rm.AccumulateDuration = time.Since(t0)
	rm.TotalDuration = time.Since(start)
	if secs := rm.TotalDuration.Seconds(); secs > 0 {
		rm.SamplesPerSecond = float64(len(samples)) / secs
	}
	rm.Results = m.Results()

	r.captureMemory(rm, &startMem)
	m.Log(r.log)

	if err := r.writeReport(rm); err != nil {
		return nil, err
	}
	return rm, nil
}

// RunParallelVOC evaluates VOC mAP with per-worker accumulator shards.
// Each worker folds a contiguous slice of the dataset into its own
// accumulator; the shards are merged and accumulated once at the end,
// which yields the same result as a sequential pass.
func (r *Runner) RunParallelVOC(
	ctx context.Context, samples []*dataset.Sample, cfg voc.Config,
) (*RunMetrics, error) {
	workers := r.cfg.Workers
	if workers <= 1 {
		m, err := voc.New(metric.Config{
			NumClasses:        cfg.NumClasses,
			OverlapThresh:     cfg.OverlapThresh,
			MapType:           cfg.MapType,
			Normalized:        cfg.Normalized,
			EvaluateDifficult: cfg.EvaluateDifficult,
		})
		if err != nil {
			return nil, err
		}
		return r.Run(ctx, samples, m)
	}
	if workers > len(samples) {
		workers = len(samples)
	}

	rm := &RunMetrics{
		Timestamp:   time.Now(),
		SampleCount: len(samples),
		NumCPU:      runtime.NumCPU(),
	}

	var startMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&startMem)

	shards := make([]*voc.DetectionMAP, workers)
	errs := make([]error, workers)
	counts := make([]int, workers)

	start := time.Now()
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo := w * len(samples) / workers
		hi := (w + 1) * len(samples) / workers

		wg.Add(1)
		go func(w, lo, hi int) {
			defer wg.Done()

			shard, err := voc.NewDetectionMAP(cfg)
			if err != nil {
				errs[w] = err
				return
			}
			shards[w] = shard

			for _, sample := range samples[lo:hi] {
				if err := ctx.Err(); err != nil {
					errs[w] = err
					return
				}

				dets, err := r.source.Detections(ctx, sample)
				if err != nil {
					errs[w] = errors.Wrapf(err, "harness: sample %s", sample.Name)
					return
				}
				if err := shard.Update(dets, sample.GroundTruth); err != nil {
					errs[w] = errors.Wrapf(err, "harness: sample %s", sample.Name)
					return
				}
				counts[w] += len(dets)
			}
		}(w, lo, hi)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	merged := shards[0]
	for _, shard := range shards[1:] {
		if err := merged.Merge(shard); err != nil {
			return nil, errors.Wrap(err, "harness: merging shards")
		}
	}

	t0 := time.Now()
	if err := merged.Accumulate(); err != nil {
		return nil, errors.Wrap(err, "harness: accumulate")
	}
	rm.AccumulateDuration = time.Since(t0)
	rm.TotalDuration = time.Since(start)
	if secs := rm.TotalDuration.Seconds(); secs > 0 {
		rm.SamplesPerSecond = float64(len(samples)) / secs
	}
	for _, c := range counts {
		rm.DetectionCount += c
	}

	mAP, err := merged.MAP()
	if err != nil {
		return nil, err
	}
	rm.Results = map[string]float64{"mAP": mAP}
	aps, err := merged.ClassAPs()
	if err != nil {
		return nil, err
	}
	for id, ap := range aps {
		rm.Results[voc.APKey(id)] = ap
	}

	r.captureMemory(rm, &startMem)
	r.log.Info("evaluation finished",
		zap.Int("workers", workers),
		zap.String("summary", merged.Summary()))

	if err := r.writeReport(rm); err != nil {
		return nil, err
	}
	return rm, nil
}

func (r *Runner) captureMemory(rm *RunMetrics, startMem *runtime.MemStats) {
	var endMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&endMem)

	rm.MemoryStats = MemoryMetrics{
		AllocBytes:      endMem.Alloc,
		TotalAllocBytes: endMem.TotalAlloc - startMem.TotalAlloc,
		SysBytes:        endMem.Sys,
		NumGC:           endMem.NumGC - startMem.NumGC,
		HeapAllocBytes:  endMem.HeapAlloc,
		HeapSysBytes:    endMem.HeapSys,
	}
}

func (r *Runner) writeReport(rm *RunMetrics) error {
	if r.cfg.ReportPath == "" {
		return nil
	}

	data, err := json.MarshalIndent(rm, "", "  ")
	if err != nil {
		return errors.Wrap(err, "harness: encoding report")
	}
	if err := os.WriteFile(r.cfg.ReportPath, data, 0o644); err != nil {
		return errors.Wrapf(err, "harness: writing report %s", r.cfg.ReportPath)
	}
	return nil
}
