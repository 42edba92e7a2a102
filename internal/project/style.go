package project

import (
	"image"
	"math"

	"github.com/bobarin/ugcstudio/internal/models"
	xdraw "golang.org/x/image/draw"
)

const styleSampleMax = 96

// SuggestVoiceStyle picks a voice style from the brightness, saturation and
// warmth of an image. It returns nil when the image has no opaque pixels.
func SuggestVoiceStyle(img image.Image) *models.VoiceStyleSuggestion {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil
	}

	scale := math.Min(math.Min(styleSampleMax/float64(b.Dx()), styleSampleMax/float64(b.Dy())), 1)
	w := max(1, int(math.Floor(float64(b.Dx())*scale)))
	h := max(1, int(math.Floor(float64(b.Dy())*scale)))
	small := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(small, small.Bounds(), img, b, xdraw.Src, nil)

	var brightness, saturation float64
	var warm, total int
	pix := small.Pix
	// Every fourth pixel is enough for a palette estimate.
	for i := 0; i+3 < len(pix); i += 16 {
		r, g, bl, a := pix[i], pix[i+1], pix[i+2], pix[i+3]
		if a < 24 {
			continue
		}
		s, l := saturationLightness(r, g, bl)
		brightness += l
		saturation += s
		if float64(r) > float64(bl) && float64(r) > float64(g)*0.9 {
			warm++
		}
		total++
	}
	if total == 0 {
		return nil
	}

	m := models.VoiceStyleMetrics{
		Brightness: round3(brightness / float64(total)),
		Saturation: round3(saturation / float64(total)),
		WarmRatio:  round3(float64(warm) / float64(total)),
	}

	switch {
	case m.Saturation > 0.48 || m.Brightness > 0.72:
		return &models.VoiceStyleSuggestion{Style: models.VoiceEnergetic, Reason: "bright or saturated visual", Metrics: m}
	case m.WarmRatio > 0.52 && m.Saturation > 0.3:
		return &models.VoiceStyleSuggestion{Style: models.VoiceLuxury, Reason: "warm, dense tones", Metrics: m}
	case m.Brightness < 0.45 || m.Saturation < 0.23:
		return &models.VoiceStyleSuggestion{Style: models.VoiceCalm, Reason: "subdued brightness or saturation", Metrics: m}
	}
	return &models.VoiceStyleSuggestion{Style: models.VoiceNatural, Reason: "balanced palette", Metrics: m}
}

func saturationLightness(r, g, b uint8) (float64, float64) {
	rn, gn, bn := float64(r)/255, float64(g)/255, float64(b)/255
	hi := math.Max(rn, math.Max(gn, bn))
	lo := math.Min(rn, math.Min(gn, bn))
	l := (hi + lo) / 2
	d := hi - lo
	if d == 0 {
		return 0, l
	}
	return d / (1 - math.Abs(2*l-1)), l
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
