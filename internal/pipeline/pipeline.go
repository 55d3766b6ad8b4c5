// Package pipeline composes detection, preprocessing and classification into a single call per frame
package pipeline

import (
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/andresmejia3/faceguard/internal/classifier"
	"github.com/andresmejia3/faceguard/internal/detector"
	"github.com/andresmejia3/faceguard/internal/preprocess"
	"github.com/andresmejia3/faceguard/internal/types"
	"github.com/rs/zerolog"
)

// Pipeline owns its detector and classifier from construction until Close
type Pipeline struct {
	detector   detector.Detector
	pre        *preprocess.Preprocessor
	classifier *classifier.Classifier
	log        zerolog.Logger
}

// New wires the stages together. The preprocessor output shape must equal the model input shape;
// a mismatch is reported here so a misconfigured gate never starts.
func New(d detector.Detector, p *preprocess.Preprocessor, c *classifier.Classifier, log zerolog.Logger) (*Pipeline, error) {
	if got, want := p.Shape(), c.InputShape(); got != want {
		return nil, fmt.Errorf("%w: preprocessor produces %s, model expects %s", classifier.ErrShapeMismatch, got, want)
	}
	return &Pipeline{detector: d, pre: p, classifier: c, log: log}, nil
}

// Recognize returns one match per detected face, in detector order. A frame with no faces gives an
// empty slice. Regions the crop policy refuses are left out.
func (p *Pipeline) Recognize(frame image.Image) ([]types.Match, error) {
	boxes, err := p.detector.Detect(frame)
	if err != nil {
		return nil, fmt.Errorf("detection failed: %w", err)
	}

	matches := make([]types.Match, 0, len(boxes))
	for _, box := range boxes {
		tensor, err := p.pre.Preprocess(frame, box)
		if errors.Is(err, preprocess.ErrCropOutOfBounds) || errors.Is(err, preprocess.ErrEmptyRegion) {
			p.log.Debug().Err(err).Interface("box", box).Msg("skipping region")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("preprocess failed: %w", err)
		}

		ranking, err := p.classifier.Classify(tensor)
		if err != nil {
			return nil, err
		}
		matches = append(matches, types.Match{Box: box, Prediction: ranking.Top()})
	}
	return matches, nil
}

// Close releases the model and, if it holds native resources, the detector
func (p *Pipeline) Close() error {
	err := p.classifier.Close()
	if c, ok := p.detector.(io.Closer); ok {
		err = errors.Join(err, c.Close())
	}
	return err
}
