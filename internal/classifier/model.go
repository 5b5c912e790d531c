// Package classifier loads and evaluates the serialized stage and
// posture models used by the classifier-backed analyzers. Artifacts are
// JSON renderings of the upstream scikit-learn models; the feature
// vector layout and scaling semantics are preserved exactly.
package classifier

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Predictor is the two-method contract every model satisfies. Tests
// substitute deterministic stubs behind the same interface.
type Predictor interface {
	// PredictClass returns the label with the highest probability.
	PredictClass(features []float64) (string, error)
	// PredictProba returns one probability per class, in class order.
	PredictProba(features []float64) ([]float64, error)
	// Classes returns the label set, in the order PredictProba uses.
	Classes() []string
}

// LogisticRegression is a multinomial (or binary one-vs-rest) logistic
// model with one coefficient row per class (a single row for a binary
// model), matching sklearn's layout.
type LogisticRegression struct {
	classes    []string
	coef       *mat.Dense
	intercepts []float64
	features   int
}

// NewLogisticRegression builds a model from raw coefficients. For a
// binary model coefficients holds a single row and the decision value is
// passed through the sigmoid; otherwise rows are softmaxed.
func NewLogisticRegression(classes []string, coefficients [][]float64, intercepts []float64) (*LogisticRegression, error) {
	if len(classes) < 2 {
		return nil, fmt.Errorf("logistic model needs at least 2 classes, got %d", len(classes))
	}
	if len(coefficients) == 0 || len(coefficients[0]) == 0 {
		return nil, fmt.Errorf("logistic model has no coefficients")
	}
	rows := len(coefficients)
	cols := len(coefficients[0])
	if len(classes) == 2 && rows != 1 || len(classes) > 2 && rows != len(classes) {
		return nil, fmt.Errorf("coefficient rows (%d) do not match classes (%d)", rows, len(classes))
	}
	if len(intercepts) != rows {
		return nil, fmt.Errorf("intercepts (%d) do not match coefficient rows (%d)", len(intercepts), rows)
	}
	flat := make([]float64, 0, rows*cols)
	for _, row := range coefficients {
		if len(row) != cols {
			return nil, fmt.Errorf("ragged coefficient matrix")
		}
		flat = append(flat, row...)
	}
	return &LogisticRegression{
		classes:    classes,
		coef:       mat.NewDense(rows, cols, flat),
		intercepts: intercepts,
		features:   cols,
	}, nil
}

// Classes returns the label set.
func (m *LogisticRegression) Classes() []string { return m.classes }

// PredictProba evaluates the model on one feature vector.
func (m *LogisticRegression) PredictProba(features []float64) ([]float64, error) {
	if len(features) != m.features {
		return nil, fmt.Errorf("expected %d features, got %d", m.features, len(features))
	}

	x := mat.NewVecDense(len(features), features)
	rows, _ := m.coef.Dims()
	scores := mat.NewVecDense(rows, nil)
	scores.MulVec(m.coef, x)

	if len(m.classes) == 2 {
		// Single decision value; sigmoid gives P(classes[1]).
		p := 1 / (1 + math.Exp(-(scores.AtVec(0) + m.intercepts[0])))
		return []float64{1 - p, p}, nil
	}

	logits := make([]float64, rows)
	for i := 0; i < rows; i++ {
		logits[i] = scores.AtVec(i) + m.intercepts[i]
	}
	return softmax(logits), nil
}

// PredictClass returns the most probable label.
func (m *LogisticRegression) PredictClass(features []float64) (string, error) {
	probs, err := m.PredictProba(features)
	if err != nil {
		return "", err
	}
	return m.classes[floats.MaxIdx(probs)], nil
}

func softmax(logits []float64) []float64 {
	max := floats.Max(logits)
	out := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		out[i] = math.Exp(v - max)
		sum += out[i]
	}
	floats.Scale(1/sum, out)
	return out
}

// KNN is a k-nearest-neighbours classifier over stored training points.
type KNN struct {
	classes   []string
	points    *mat.Dense
	labels    []int
	neighbors int
	features  int
}

// NewKNN builds a kNN model. labels index into classes, one per point.
func NewKNN(classes []string, points [][]float64, labels []int, neighbors int) (*KNN, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("knn model has no classes")
	}
	if len(points) == 0 || len(points[0]) == 0 {
		return nil, fmt.Errorf("knn model has no training points")
	}
	if len(labels) != len(points) {
		return nil, fmt.Errorf("labels (%d) do not match points (%d)", len(labels), len(points))
	}
	if neighbors <= 0 || neighbors > len(points) {
		return nil, fmt.Errorf("invalid neighbor count %d for %d points", neighbors, len(points))
	}
	cols := len(points[0])
	flat := make([]float64, 0, len(points)*cols)
	for i, row := range points {
		if len(row) != cols {
			return nil, fmt.Errorf("ragged point matrix")
		}
		if labels[i] < 0 || labels[i] >= len(classes) {
			return nil, fmt.Errorf("label %d out of range", labels[i])
		}
		flat = append(flat, row...)
	}
	return &KNN{
		classes:   classes,
		points:    mat.NewDense(len(points), cols, flat),
		labels:    labels,
		neighbors: neighbors,
		features:  cols,
	}, nil
}

// Classes returns the label set.
func (m *KNN) Classes() []string { return m.classes }

// PredictProba returns, per class, the vote fraction among the k nearest
// training points.
func (m *KNN) PredictProba(features []float64) ([]float64, error) {
	if len(features) != m.features {
		return nil, fmt.Errorf("expected %d features, got %d", m.features, len(features))
	}

	n, _ := m.points.Dims()
	type neighbor struct {
		dist  float64
		label int
	}
	neighbors := make([]neighbor, n)
	for i := 0; i < n; i++ {
		neighbors[i] = neighbor{
			dist:  floats.Distance(m.points.RawRowView(i), features, 2),
			label: m.labels[i],
		}
	}
	sort.Slice(neighbors, func(i, j int) bool { return neighbors[i].dist < neighbors[j].dist })

	probs := make([]float64, len(m.classes))
	for _, nb := range neighbors[:m.neighbors] {
		probs[nb.label]++
	}
	floats.Scale(1/float64(m.neighbors), probs)
	return probs, nil
}

// PredictClass returns the majority label among the k nearest points.
func (m *KNN) PredictClass(features []float64) (string, error) {
	probs, err := m.PredictProba(features)
	if err != nil {
		return "", err
	}
	return m.classes[floats.MaxIdx(probs)], nil
}

// StandardScaler reproduces sklearn's StandardScaler: (x - mean) / scale
// per feature.
type StandardScaler struct {
	Mean  []float64
	Scale []float64
}

// Transform scales one feature vector. The input is not modified.
func (s *StandardScaler) Transform(features []float64) ([]float64, error) {
	if len(features) != len(s.Mean) {
		return nil, fmt.Errorf("expected %d features, got %d", len(s.Mean), len(features))
	}
	out := make([]float64, len(features))
	for i, v := range features {
		div := s.Scale[i]
		if div == 0 {
			div = 1
		}
		out[i] = (v - s.Mean[i]) / div
	}
	return out, nil
}
