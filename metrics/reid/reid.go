// Package reid - Re-identification evaluation: pairwise embedding
// similarity reduced to an ROC curve and reported as the true-positive
// rate at fixed false-acceptance rates.
package reid

import (
	"fmt"
	"sort"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/stat"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-eval/metrics/metric"
)

// DefaultFARLevels are the false-acceptance rates reported when the
// configuration does not name its own.
var DefaultFARLevels = []float64{1e-6, 1e-5, 1e-4, 1e-3, 1e-2, 1e-1}

// Metric accumulates (embedding, identity) pairs across a dataset pass
// and, at accumulate time, scores every embedding pair by cosine
// similarity, treats same-identity pairs as the positive class, and
// interpolates the ROC curve at the configured FAR levels.
type Metric struct {
	farLevels []float64

	dim        int
	features   [][]float32
	identities []int

	accumulated bool
	results     map[string]float64
}

// New validates the FAR levels and returns an empty metric.
func New(cfg metric.Config) (*Metric, error) {
	levels := cfg.FARLevels
	if len(levels) == 0 {
		levels = DefaultFARLevels
	}
	for _, far := range levels {
		if far <= 0 || far >= 1 {
			return nil, errors.Errorf("reid: FAR level %v outside (0,1)", far)
		}
	}

	sorted := make([]float64, len(levels))
	copy(sorted, levels)
	sort.Float64s(sorted)

	m := &Metric{farLevels: sorted}
	m.Reset()
	return m, nil
}

// Name returns the metric identifier.
func (m *Metric) Name() metric.Name { return metric.NameReID }

// Reset discards all accumulated embeddings and results.
func (m *Metric) Reset() {
	m.dim = 0
	m.features = nil
	m.identities = nil
	m.accumulated = false
	m.results = nil
}

// Update appends the batch's labeled embeddings. Instances with
// identity -1 are unlabeled and skipped.
func (m *Metric) Update(batch *metric.Batch) error {
	if m.accumulated {
		return metric.ErrAccumulated
	}

	for _, e := range batch.Embeddings {
		if e.Identity == -1 {
			continue
		}
		if m.dim == 0 {
			m.dim = len(e.Feature)
		}
		if len(e.Feature) != m.dim {
			return errors.Errorf("reid: embedding length %d, expected %d", len(e.Feature), m.dim)
		}
		m.features = append(m.features, e.Feature)
		m.identities = append(m.identities, e.Identity)
	}
	return nil
}

// Accumulate normalizes the embeddings, computes all pairwise cosine
// similarities with one dense matmul, builds the ROC curve over the
// strict upper triangle, and records TPR at each FAR level. With fewer
// than two embeddings there are no pairs and the results are empty.
func (m *Metric) Accumulate() error {
	if m.accumulated {
		return nil
	}

	n := len(m.features)
	m.results = make(map[string]float64, len(m.farLevels))
	if n < 2 {
		m.accumulated = true
		return nil
	}

	sim, err := m.pairwiseSimilarity()
	if err != nil {
		return err
	}

	// Strict upper triangle: each unordered pair once, self-pairs
	// excluded.
	type pair struct {
		score float64
		same  bool
	}
	pairs := make([]pair, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, pair{
				score: float64(sim[i*n+j]),
				same:  m.identities[i] == m.identities[j],
			})
		}
	}

	// stat.ROC wants scores ascending with aligned class flags.
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].score < pairs[j].score })
	scores := make([]float64, len(pairs))
	classes := make([]bool, len(pairs))
	for i, p := range pairs {
		scores[i] = p.score
		classes[i] = p.same
	}

	tpr, fpr, _ := stat.ROC(nil, scores, classes, nil)

	predict, err := tprAtFarCurve(tpr, fpr)
	if err != nil {
		return err
	}
	for _, far := range m.farLevels {
		m.results[farKey(far)] = predict(far)
	}

	m.accumulated = true
	return nil
}

// pairwiseSimilarity L2-normalizes the accumulated embeddings and
// returns the flattened n-by-n cosine similarity matrix emb x embT.
func (m *Metric) pairwiseSimilarity() ([]float32, error) {
	n, d := len(m.features), m.dim

	flat := make([]float32, n*d)
	flatT := make([]float32, d*n)
	for i, feat := range m.features {
		norm := normalize(feat)
		copy(flat[i*d:(i+1)*d], norm)
		for j, v := range norm {
			flatT[j*n+i] = v
		}
	}

	emb := tensor.New(tensor.WithShape(n, d), tensor.WithBacking(flat))
	embT := tensor.New(tensor.WithShape(d, n), tensor.WithBacking(flatT))

	product, err := tensor.MatMul(emb, embT)
	if err != nil {
		return nil, errors.Wrap(err, "reid: pairwise similarity matmul")
	}
	dense, ok := product.(*tensor.Dense)
	if !ok {
		return nil, errors.Errorf("reid: unexpected matmul result %T", product)
	}
	return dense.Data().([]float32), nil
}

// Log writes one line per FAR level, lowest first.
func (m *Metric) Log(log *zap.Logger) {
	keys := make([]string, 0, len(m.results))
	for k := range m.results {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		log.Info(fmt.Sprintf("%s: %.4f", k, m.results[k]))
	}
}

// Results returns TPR keyed by "TPR@FAR=<level>".
func (m *Metric) Results() map[string]float64 {
	if !m.accumulated {
		return nil
	}
	out := make(map[string]float64, len(m.results))
	for k, v := range m.results {
		out[k] = v
	}
	return out
}

func farKey(far float64) string {
	return fmt.Sprintf("TPR@FAR=%.7f", far)
}

// tprAtFarCurve fits a piecewise-linear interpolant of TPR as a
// function of FAR. The ROC arrays arrive ordered by ascending cutoff;
// duplicate FAR values collapse to their best TPR so the abscissae are
// strictly increasing, and queries are clamped to the observed range.
func tprAtFarCurve(tpr, fpr []float64) (func(float64) float64, error) {
	type point struct{ far, tpr float64 }
	points := make([]point, len(fpr))
	for i := range fpr {
		points[i] = point{far: fpr[i], tpr: tpr[i]}
	}
	sort.Slice(points, func(i, j int) bool { return points[i].far < points[j].far })

	xs := make([]float64, 0, len(points))
	ys := make([]float64, 0, len(points))
	for _, p := range points {
		if len(xs) > 0 && p.far == xs[len(xs)-1] {
			if p.tpr > ys[len(ys)-1] {
				ys[len(ys)-1] = p.tpr
			}
			continue
		}
		xs = append(xs, p.far)
		ys = append(ys, p.tpr)
	}

	if len(xs) == 1 {
		y := ys[0]
		return func(float64) float64 { return y }, nil
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return nil, errors.Wrap(err, "reid: fitting ROC interpolant")
	}
	lo, hi := xs[0], xs[len(xs)-1]
	return func(far float64) float64 {
		if far < lo {
			far = lo
		}
		if far > hi {
			far = hi
		}
		return pl.Predict(far)
	}, nil
}

// normalize returns the L2-normalized copy of v. A zero vector is
// returned unchanged.
func normalize(v []float32) []float32 {
	var sumSquares float32
	for _, x := range v {
		sumSquares += x * x
	}
	if sumSquares == 0 {
		return v
	}

	norm := math32.Sqrt(sumSquares)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}
