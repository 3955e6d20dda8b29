// Package metrics - registry for evaluation metrics.
package metrics

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-eval/metrics/coco"
	"github.com/nvr-ai/go-eval/metrics/metric"
	"github.com/nvr-ai/go-eval/metrics/reid"
	"github.com/nvr-ai/go-eval/metrics/voc"
)

// Constructor builds a metric from a validated configuration.
type Constructor func(cfg metric.Config) (metric.Metric, error)

// constructors is the complete metric catalog, resolved once at package
// initialization. Configuration keys map to constructors here; there is
// no dynamic registration.
var constructors = map[metric.Name]Constructor{
	metric.NameVOC: func(cfg metric.Config) (metric.Metric, error) {
		return voc.New(cfg)
	},
	metric.NameCOCO: func(cfg metric.Config) (metric.Metric, error) {
		return coco.New(cfg)
	},
	metric.NameReID: func(cfg metric.Config) (metric.Metric, error) {
		return reid.New(cfg)
	},
}

// New creates a metric instance by name.
//
// Arguments:
//   - name: The metric identifier from the catalog.
//   - cfg: Construction parameters; fields irrelevant to the named
//     metric are ignored.
//
// Returns:
//   - metric.Metric: A fresh metric in the reset state.
//   - error: If the name is unknown or the configuration is invalid.
func New(name metric.Name, cfg metric.Config) (metric.Metric, error) {
	ctor, ok := constructors[name]
	if !ok {
		return nil, errors.Errorf("metrics: unknown metric %q (have %v)", name, Names())
	}
	return ctor(cfg)
}

// Names lists the registered metric identifiers in sorted order.
func Names() []metric.Name {
	names := make([]metric.Name, 0, len(constructors))
	for n := range constructors {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
