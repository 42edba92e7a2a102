// Package quality scores composed frames for sharpness, layer seams and
// central occlusion before they are rendered.
package quality

import (
	"image"
	"image/draw"
	"math"

	"github.com/bobarin/ugcstudio/internal/models"
	xdraw "golang.org/x/image/draw"
)

const (
	sampleWidth     = 320
	minSampleHeight = 180
	warnBelow       = 0.55
	darkLuma        = 16
)

var thresholds = map[models.QualityLevel]float64{
	models.QualityFast:     0.50,
	models.QualityBalanced: 0.64,
	models.QualityHigh:     0.76,
}

// Threshold returns the overall score a frame needs at the given level.
// Unknown levels use the balanced threshold.
func Threshold(level models.QualityLevel) float64 {
	if t, ok := thresholds[level]; ok {
		return t
	}
	return thresholds[models.QualityBalanced]
}

// Measure scores img at the given level. attempts is recorded as-is.
func Measure(img image.Image, level models.QualityLevel, attempts int) models.QualityGateScores {
	px := sample(img)
	w, h := px.Rect.Dx(), px.Rect.Dy()
	lumaAt := func(x, y int) float64 {
		i := y*px.Stride + x*4
		return luma(px.Pix[i], px.Pix[i+1], px.Pix[i+2])
	}

	var edgeEnergy float64
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			l := lumaAt(x, y)
			edgeEnergy += math.Abs(l-lumaAt(x+1, y)) + math.Abs(l-lumaAt(x, y+1))
		}
	}
	blur := clamp(edgeEnergy / float64(w*h*24))
	boundary := clamp(0.4 + blur*0.5)

	var dark, total int
	for y := int(math.Floor(float64(h) * 0.3)); y < int(math.Floor(float64(h)*0.88)); y++ {
		for x := int(math.Floor(float64(w) * 0.2)); x < int(math.Floor(float64(w)*0.8)); x++ {
			total++
			if lumaAt(x, y) < darkLuma {
				dark++
			}
		}
	}
	darkRatio := float64(dark) / float64(max(1, total))
	occlusion := clamp(1 - math.Max(0, darkRatio-0.08)*2.8)

	overall := clamp(blur*0.45 + boundary*0.35 + occlusion*0.2)

	warnings := []string{}
	if blur < warnBelow {
		warnings = append(warnings, "blur risk")
	}
	if boundary < warnBelow {
		warnings = append(warnings, "boundary artifact risk")
	}
	if occlusion < warnBelow {
		warnings = append(warnings, "occlusion plausibility risk")
	}

	return models.QualityGateScores{
		Blur:      blur,
		Boundary:  boundary,
		Occlusion: occlusion,
		Overall:   overall,
		Warnings:  warnings,
		Attempts:  attempts,
		Passed:    overall >= Threshold(level),
	}
}

// sample resizes img to the fixed analysis width, keeping its aspect ratio
// but never going below the minimum height.
func sample(img image.Image) *image.RGBA {
	b := img.Bounds()
	h := minSampleHeight
	if b.Dx() > 0 {
		h = max(minSampleHeight, int(math.Round(float64(b.Dy())/float64(b.Dx())*sampleWidth)))
	}
	dst := image.NewRGBA(image.Rect(0, 0, sampleWidth, h))
	if b.Dx() == sampleWidth && b.Dy() == h {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst
	}
	xdraw.BiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

func luma(r, g, b uint8) float64 {
	return 0.2126*float64(r) + 0.7152*float64(g) + 0.0722*float64(b)
}

func clamp(v float64) float64 {
	v = math.Round(v*1000) / 1000
	return math.Min(1, math.Max(0, v))
}
