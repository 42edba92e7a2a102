package quality

import (
	"image"
	"image/color"
	"testing"

	"github.com/bobarin/ugcstudio/internal/models"
)

func uniform(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func TestUniformImageFailsEveryLevel(t *testing.T) {
	img := uniform(720, 1280, color.RGBA{R: 200, G: 200, B: 200, A: 255})

	for _, level := range []models.QualityLevel{models.QualityFast, models.QualityBalanced, models.QualityHigh} {
		got := Measure(img, level, 1)
		if got.Blur != 0 {
			t.Errorf("%s: blur = %v, want 0", level, got.Blur)
		}
		if got.Boundary != 0.4 {
			t.Errorf("%s: boundary = %v, want 0.4", level, got.Boundary)
		}
		if got.Occlusion != 1 {
			t.Errorf("%s: occlusion = %v, want 1", level, got.Occlusion)
		}
		if got.Overall != 0.34 {
			t.Errorf("%s: overall = %v, want 0.34", level, got.Overall)
		}
		if got.Passed {
			t.Errorf("%s: uniform image passed", level)
		}
		if len(got.Warnings) != 2 || got.Warnings[0] != "blur risk" || got.Warnings[1] != "boundary artifact risk" {
			t.Errorf("%s: warnings = %v", level, got.Warnings)
		}
	}
}

func TestCheckerboardPassesHigh(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 320, 320))
	for y := 0; y < 320; y++ {
		for x := 0; x < 320; x++ {
			v := uint8(20)
			if (x+y)%2 == 0 {
				v = 255
			}
			img.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}

	got := Measure(img, models.QualityHigh, 3)
	if got.Blur != 1 || got.Boundary != 0.9 || got.Occlusion != 1 {
		t.Errorf("scores = %+v", got)
	}
	if got.Overall != 0.965 {
		t.Errorf("overall = %v, want 0.965", got.Overall)
	}
	if !got.Passed {
		t.Error("checkerboard should pass high")
	}
	if got.Attempts != 3 {
		t.Errorf("attempts = %d", got.Attempts)
	}
	if len(got.Warnings) != 0 {
		t.Errorf("warnings = %v", got.Warnings)
	}
}

func TestDarkCentreLowersOcclusion(t *testing.T) {
	img := uniform(320, 320, color.RGBA{A: 255})
	got := Measure(img, models.QualityFast, 1)
	// Fully dark: 1 - (1-0.08)*2.8 < 0.
	if got.Occlusion != 0 {
		t.Errorf("occlusion = %v, want 0", got.Occlusion)
	}
	if len(got.Warnings) != 3 {
		t.Errorf("warnings = %v", got.Warnings)
	}
}

func TestSampleHeight(t *testing.T) {
	if got := sample(uniform(1280, 720, color.RGBA{A: 255})).Rect.Dy(); got != 180 {
		t.Errorf("landscape sample height = %d, want 180", got)
	}
	if got := sample(uniform(720, 1280, color.RGBA{A: 255})).Rect.Dy(); got != 569 {
		t.Errorf("portrait sample height = %d, want 569", got)
	}
}

func TestThreshold(t *testing.T) {
	if Threshold(models.QualityHigh) != 0.76 || Threshold("unknown") != 0.64 {
		t.Error("unexpected thresholds")
	}
}
