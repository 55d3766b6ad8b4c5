// Package classifier wraps an opaque forward-pass model and turns its raw scores into a ranked
// probability distribution over the model's label space.
package classifier

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/andresmejia3/faceguard/internal/preprocess"
	"github.com/andresmejia3/faceguard/internal/types"
	"gonum.org/v1/gonum/floats"
)

var (
	// ErrShapeMismatch means the caller fed a tensor the model was not built for. It is a contract
	// violation and callers must halt rather than carry on with a guess.
	ErrShapeMismatch = errors.New("input shape does not match model")
	// ErrNoScores means the model returned an empty score vector
	ErrNoScores = errors.New("model returned no scores")
)

// Model is a loaded network with a fixed input shape and label space
type Model interface {
	InputShape() preprocess.Shape
	Forward(input preprocess.Tensor) ([]float32, error)
	Close() error
}

// Classifier owns a Model from load to Close
type Classifier struct {
	model Model
}

// New takes ownership of m
func New(m Model) *Classifier {
	return &Classifier{model: m}
}

// InputShape is the tensor geometry the wrapped model accepts
func (c *Classifier) InputShape() preprocess.Shape {
	return c.model.InputShape()
}

// Classify runs one forward pass and applies softmax to the scores
func (c *Classifier) Classify(input preprocess.Tensor) (Ranking, error) {
	if want := c.model.InputShape(); input.Shape() != want {
		return Ranking{}, fmt.Errorf("%w: got %s, model expects %s", ErrShapeMismatch, input.Shape(), want)
	}
	scores, err := c.model.Forward(input)
	if err != nil {
		return Ranking{}, fmt.Errorf("forward pass failed: %w", err)
	}
	if len(scores) == 0 {
		return Ranking{}, ErrNoScores
	}
	return Ranking{dist: Softmax(scores)}, nil
}

// Close releases the model
func (c *Classifier) Close() error {
	return c.model.Close()
}

// Softmax converts raw scores into a distribution that sums to 1
func Softmax(scores []float32) []float64 {
	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = float64(s)
	}
	if len(out) == 0 {
		return out
	}
	// Subtracting the max keeps exp() from overflowing on large logits
	floats.AddConst(-floats.Max(out), out)
	for i, v := range out {
		out[i] = math.Exp(v)
	}
	floats.Scale(1/floats.Sum(out), out)
	return out
}

// Ranking is the softmax distribution for one face region
type Ranking struct {
	dist []float64
}

// Top returns the argmax label and its confidence
func (r Ranking) Top() types.Prediction {
	if len(r.dist) == 0 {
		return types.Prediction{Label: -1}
	}
	i := floats.MaxIdx(r.dist)
	return types.Prediction{Label: i, Confidence: r.dist[i]}
}

// Distribution returns a copy of the per-label probabilities
func (r Ranking) Distribution() []float64 {
	out := make([]float64, len(r.dist))
	copy(out, r.dist)
	return out
}

// Ranked lists every label by descending confidence, ties broken by label index
func (r Ranking) Ranked() []types.Prediction {
	out := make([]types.Prediction, len(r.dist))
	for i, p := range r.dist {
		out[i] = types.Prediction{Label: i, Confidence: p}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Confidence > out[b].Confidence
	})
	return out
}
