// Package screenshot reads chart attachments and scores them.
package screenshot

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"

	"trade-journal/internal/errors"
	"trade-journal/internal/models"
)

// MaxAttachmentBytes bounds the size of an attachment accepted for scoring.
const MaxAttachmentBytes = 10 << 20

// Classification thresholds on the 0-255 luma scale.
const (
	DarkBelow     = 85.0
	BrightAbove   = 170.0
	FlatContrast  = 20.0
	maxSampleSide = 512
)

// Scorer produces a score for an image. Implementations may be slow; the
// journal calls them through an async task.
type Scorer interface {
	Score(ctx context.Context, data []byte) (models.ScreenshotScore, error)
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(ctx context.Context, data []byte) (models.ScreenshotScore, error)

// Score calls f.
func (f ScorerFunc) Score(ctx context.Context, data []byte) (models.ScreenshotScore, error) {
	return f(ctx, data)
}

// LuminanceScorer scores an image by its mean Rec.601 luma and the standard
// deviation of luma.
type LuminanceScorer struct{}

// NewLuminanceScorer returns the default scorer.
func NewLuminanceScorer() *LuminanceScorer {
	return &LuminanceScorer{}
}

// Score decodes PNG, JPEG or GIF data and measures brightness and contrast.
// Large images are sampled on a grid of at most 512 points per side.
func (s *LuminanceScorer) Score(ctx context.Context, data []byte) (models.ScreenshotScore, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return models.ScreenshotScore{}, errors.NewScreenshotError("", "decode failed", err)
	}

	b := img.Bounds()
	if b.Empty() {
		return models.ScreenshotScore{}, errors.NewScreenshotError("", "empty image", nil)
	}
	stepX := max(1, b.Dx()/maxSampleSide)
	stepY := max(1, b.Dy()/maxSampleSide)

	var sum, sumSq float64
	var n int
	for y := b.Min.Y; y < b.Max.Y; y += stepY {
		if err := ctx.Err(); err != nil {
			return models.ScreenshotScore{}, err
		}
		for x := b.Min.X; x < b.Max.X; x += stepX {
			r, g, bl, _ := img.At(x, y).RGBA()
			l := luma(r, g, bl)
			sum += l
			sumSq += l * l
			n++
		}
	}

	mean := sum / float64(n)
	variance := math.Max(0, sumSq/float64(n)-mean*mean)
	contrast := math.Sqrt(variance)

	return models.ScreenshotScore{
		Brightness: round2(mean),
		Contrast:   round2(contrast),
		Tag:        Classify(mean, contrast),
	}, nil
}

// luma converts 16-bit RGBA channels to Rec.601 luma on a 0-255 scale.
func luma(r, g, b uint32) float64 {
	return (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 257
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Classify tags a brightness/contrast pair. Low contrast wins over brightness.
func Classify(brightness, contrast float64) models.ScreenshotTag {
	switch {
	case contrast < FlatContrast:
		return models.TagFlat
	case brightness < DarkBelow:
		return models.TagDark
	case brightness > BrightAbove:
		return models.TagBright
	default:
		return models.TagBalanced
	}
}

// Attachment is a screenshot file read from disk, not yet scored.
type Attachment struct {
	Name string
	Data []byte
}

// ReadAttachment reads an image file for attaching to a trade.
func ReadAttachment(path string) (*Attachment, error) {
	name := filepath.Base(path)

	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.NewScreenshotError(name, "stat failed", err)
	}
	if info.IsDir() {
		return nil, errors.NewScreenshotError(name, "is a directory", nil)
	}
	if info.Size() > MaxAttachmentBytes {
		return nil, errors.NewScreenshotError(name, "file too large", nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewScreenshotError(name, "read failed", err)
	}
	if len(data) == 0 {
		return nil, errors.NewScreenshotError(name, "empty file", nil)
	}
	return &Attachment{Name: name, Data: data}, nil
}
