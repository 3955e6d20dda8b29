// Package harness - Runs evaluation passes over annotated datasets,
// feeding per-image predictions into a metric and reporting the
// results alongside run performance data.
package harness

import "time"

// RunMetrics captures the outcome and performance profile of one
// evaluation pass.
type RunMetrics struct {
	Timestamp          time.Time     `json:"timestamp"`
	SampleCount        int           `json:"sample_count"`
	DetectionCount     int           `json:"detection_count"`
	ErrorCount         int           `json:"error_count"`
	TotalDuration      time.Duration `json:"total_duration"`
	InferenceDuration  time.Duration `json:"inference_duration"`
	UpdateDuration     time.Duration `json:"update_duration"`
	AccumulateDuration time.Duration `json:"accumulate_duration"`
	SamplesPerSecond   float64       `json:"samples_per_second"`
	MemoryStats        MemoryMetrics `json:"memory_stats"`
	NumCPU             int           `json:"num_cpu"`
	Results            map[string]float64 `json:"results"`
}

// MemoryMetrics captures memory usage statistics for the pass.
type MemoryMetrics struct {
	AllocBytes      uint64 `json:"alloc_bytes"`
	TotalAllocBytes uint64 `json:"total_alloc_bytes"`
	SysBytes        uint64 `json:"sys_bytes"`
	NumGC           uint32 `json:"num_gc"`
	HeapAllocBytes  uint64 `json:"heap_alloc_bytes"`
	HeapSysBytes    uint64 `json:"heap_sys_bytes"`
}
