// Package preprocess turns a detected face region into the fixed-shape tensor the classifier expects.
//
// The region is squared around its centroid using its longer side before it is resized, so faces keep
// their proportions whatever the aspect ratio of the detection.
package preprocess

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/andresmejia3/faceguard/internal/types"
	"golang.org/x/image/draw"
)

var (
	// ErrCropOutOfBounds is returned under the reject policy when the square crop leaves the frame
	ErrCropOutOfBounds = errors.New("crop out of frame bounds")
	// ErrEmptyRegion is returned for boxes with no area or frames with no pixels
	ErrEmptyRegion = errors.New("empty region")
)

// ChannelOrder selects how colour channels are laid out in the tensor
type ChannelOrder string

const (
	OrderBGR ChannelOrder = "bgr"
	OrderRGB ChannelOrder = "rgb"
)

// CropPolicy decides what happens to a square crop that extends past the frame edge
type CropPolicy string

const (
	// PolicyClamp shifts the square back inside the frame, shrinking it to the frame if needed
	PolicyClamp CropPolicy = "clamp"
	// PolicyReject refuses the region with ErrCropOutOfBounds
	PolicyReject CropPolicy = "reject"
)

// Config holds the classifier input geometry and edge handling
type Config struct {
	Width    int
	Height   int
	Channels int // 3 for colour, 1 for luma
	Order    ChannelOrder
	Policy   CropPolicy
}

// Preprocessor is safe for concurrent use; it holds no mutable state
type Preprocessor struct {
	cfg Config
}

// New validates cfg and fills in defaults for order and policy
func New(cfg Config) (*Preprocessor, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("target size must be positive, got %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Channels == 0 {
		cfg.Channels = 3
	}
	if cfg.Channels != 1 && cfg.Channels != 3 {
		return nil, fmt.Errorf("channels must be 1 or 3, got %d", cfg.Channels)
	}
	switch cfg.Order {
	case "":
		cfg.Order = OrderBGR
	case OrderBGR, OrderRGB:
	default:
		return nil, fmt.Errorf("unknown channel order %q", cfg.Order)
	}
	switch cfg.Policy {
	case "":
		cfg.Policy = PolicyClamp
	case PolicyClamp, PolicyReject:
	default:
		return nil, fmt.Errorf("unknown crop policy %q", cfg.Policy)
	}
	return &Preprocessor{cfg: cfg}, nil
}

// Shape is the geometry of every tensor this preprocessor produces
func (p *Preprocessor) Shape() Shape {
	return Shape{Height: p.cfg.Height, Width: p.cfg.Width, Channels: p.cfg.Channels}
}

// SquareCrop returns the square of side max(w, h) centred on the box centroid, in frame coordinates
func SquareCrop(box types.BoundingBox) image.Rectangle {
	cx := float64(box.X) + float64(box.Width)*0.5
	cy := float64(box.Y) + float64(box.Height)*0.5
	side := max(box.Width, box.Height)
	return squareAt(cx, cy, side)
}

func squareAt(cx, cy float64, side int) image.Rectangle {
	x0 := int(math.Floor(cx - float64(side)*0.5))
	y0 := int(math.Floor(cy - float64(side)*0.5))
	return image.Rect(x0, y0, x0+side, y0+side)
}

// CropRect applies the crop policy to the box's square crop within bounds
func (p *Preprocessor) CropRect(bounds image.Rectangle, box types.BoundingBox) (image.Rectangle, error) {
	if box.Width <= 0 || box.Height <= 0 || bounds.Empty() {
		return image.Rectangle{}, ErrEmptyRegion
	}
	crop := SquareCrop(box)
	if crop.In(bounds) {
		return crop, nil
	}
	if p.cfg.Policy == PolicyReject {
		return image.Rectangle{}, fmt.Errorf("%w: crop %v, frame %v", ErrCropOutOfBounds, crop, bounds)
	}

	side := min(crop.Dx(), bounds.Dx(), bounds.Dy())
	cx := float64(box.X) + float64(box.Width)*0.5
	cy := float64(box.Y) + float64(box.Height)*0.5
	crop = squareAt(cx, cy, side)

	shift := image.Point{}
	if crop.Min.X < bounds.Min.X {
		shift.X = bounds.Min.X - crop.Min.X
	} else if crop.Max.X > bounds.Max.X {
		shift.X = bounds.Max.X - crop.Max.X
	}
	if crop.Min.Y < bounds.Min.Y {
		shift.Y = bounds.Min.Y - crop.Min.Y
	} else if crop.Max.Y > bounds.Max.Y {
		shift.Y = bounds.Max.Y - crop.Max.Y
	}
	return crop.Add(shift), nil
}

// Preprocess crops, resizes and normalizes one region of frame
func (p *Preprocessor) Preprocess(frame image.Image, box types.BoundingBox) (Tensor, error) {
	crop, err := p.CropRect(frame.Bounds(), box)
	if err != nil {
		return Tensor{}, err
	}

	dst := image.NewRGBA64(image.Rect(0, 0, p.cfg.Width, p.cfg.Height))
	draw.BiLinear.Scale(dst, dst.Bounds(), frame, crop, draw.Src, nil)

	shape := p.Shape()
	data := make([]float32, shape.Size())
	i := 0
	for y := 0; y < p.cfg.Height; y++ {
		for x := 0; x < p.cfg.Width; x++ {
			px := dst.RGBA64At(x, y)
			if p.cfg.Channels == 1 {
				g := color.Gray16Model.Convert(px).(color.Gray16)
				data[i] = scale16(g.Y)
				i++
				continue
			}
			r, g, b := scale16(px.R), scale16(px.G), scale16(px.B)
			if p.cfg.Order == OrderBGR {
				data[i], data[i+1], data[i+2] = b, g, r
			} else {
				data[i], data[i+1], data[i+2] = r, g, b
			}
			i += 3
		}
	}
	return Tensor{shape: shape, data: data}, nil
}

// scale16 maps the full 16-bit colour range onto [0,1]
func scale16(v uint16) float32 {
	return float32(v) / float32(math.MaxUint16)
}
