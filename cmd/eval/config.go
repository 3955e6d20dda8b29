package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/nvr-ai/go-eval/detector"
	"github.com/nvr-ai/go-eval/harness"
	"github.com/nvr-ai/go-eval/metrics/metric"
)

// Config is the evaluation run configuration loaded from YAML.
type Config struct {
	// Mode selects the logger profile, "release" or "debug".
	Mode     string         `mapstructure:"mode"`
	Dataset  DatasetConfig  `mapstructure:"dataset"`
	Metric   MetricConfig   `mapstructure:"metric"`
	Detector DetectorConfig `mapstructure:"detector"`
	Run      harness.Config `mapstructure:"run"`
}

// DatasetConfig locates the evaluation inputs.
type DatasetConfig struct {
	// AnnotationDir holds the Pascal VOC XML annotations.
	AnnotationDir string `mapstructure:"annotation_dir"`
	// ListFile names the image list; each line is an image stem.
	ListFile string `mapstructure:"list_file"`
	// ImageDir holds the evaluation images (live inference only).
	ImageDir string `mapstructure:"image_dir"`
	// PredictionsFile holds stored model output; set it to evaluate
	// without running a model.
	PredictionsFile string `mapstructure:"predictions_file"`
}

// MetricConfig selects and parameterizes the metric.
type MetricConfig struct {
	Name              string    `mapstructure:"name"`
	NumClasses        int       `mapstructure:"num_classes"`
	Categories        string    `mapstructure:"categories"`
	OverlapThresh     float32   `mapstructure:"overlap_thresh"`
	MapType           string    `mapstructure:"map_type"`
	Normalized        bool      `mapstructure:"normalized"`
	EvaluateDifficult bool      `mapstructure:"evaluate_difficult"`
	FARLevels         []float64 `mapstructure:"far_levels"`
	OutputPath        string    `mapstructure:"output_path"`
	Bias              float32   `mapstructure:"bias"`
}

// DetectorConfig parameterizes live inference.
type DetectorConfig struct {
	Backend             string  `mapstructure:"backend"`
	ModelPath           string  `mapstructure:"model_path"`
	InputWidth          int     `mapstructure:"input_width"`
	InputHeight         int     `mapstructure:"input_height"`
	ConfidenceThreshold float32 `mapstructure:"confidence_threshold"`
	NMSThreshold        float32 `mapstructure:"nms_threshold"`
	InputName           string  `mapstructure:"input_name"`
	OutputName          string  `mapstructure:"output_name"`
}

// LoadConfig reads and unmarshals the YAML config file.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "debug")
	v.SetDefault("metric.name", string(metric.NameVOC))
	v.SetDefault("metric.num_classes", 20)
	v.SetDefault("metric.categories", "voc")
	v.SetDefault("metric.overlap_thresh", 0.5)
	v.SetDefault("metric.map_type", string(metric.MapType11Point))
	v.SetDefault("detector.backend", string(detector.BackendONNX))
	v.SetDefault("detector.input_width", 640)
	v.SetDefault("detector.input_height", 640)
	v.SetDefault("detector.confidence_threshold", 0.25)
	v.SetDefault("detector.nms_threshold", 0.45)
	v.SetDefault("run.workers", 1)
}

func (c MetricConfig) toMetric() metric.Config {
	return metric.Config{
		NumClasses:        c.NumClasses,
		Categories:        c.Categories,
		OverlapThresh:     c.OverlapThresh,
		MapType:           metric.MapType(c.MapType),
		Normalized:        c.Normalized,
		EvaluateDifficult: c.EvaluateDifficult,
		FARLevels:         c.FARLevels,
		OutputPath:        c.OutputPath,
		Bias:              c.Bias,
	}
}

func (c DetectorConfig) toDetector() detector.Config {
	return detector.Config{
		ModelPath:           c.ModelPath,
		InputWidth:          c.InputWidth,
		InputHeight:         c.InputHeight,
		ConfidenceThreshold: c.ConfidenceThreshold,
		NMSThreshold:        c.NMSThreshold,
		InputName:           c.InputName,
		OutputName:          c.OutputName,
	}
}
