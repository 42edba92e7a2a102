package services

import (
	"bytes"
	"context"
	"image"
	"image/gif"
	"strings"
	"testing"
)

func TestEffectiveDuration(t *testing.T) {
	tests := []struct {
		in, want float64
		frames   int
	}{
		{0.5, 1.2, 14},
		{3, 3, 36},
		{20, 4, 48},
	}
	for _, tt := range tests {
		if got := EffectiveDuration(tt.in); got != tt.want {
			t.Errorf("EffectiveDuration(%v) = %v, want %v", tt.in, got, tt.want)
		}
		if got := FrameCount(tt.in); got != tt.frames {
			t.Errorf("FrameCount(%v) = %d, want %d", tt.in, got, tt.frames)
		}
	}
}

func TestPlaceholderArgs(t *testing.T) {
	args := strings.Join(PlaceholderArgs("libvpx-vp9", "/tmp/out.webm", 10), " ")
	for _, want := range []string{"-f rawvideo", "-pix_fmt rgba", "-s 720x1280", "-i pipe:", "-c:v libvpx-vp9", "-t 4.00", "/tmp/out.webm"} {
		if !strings.Contains(args, want) {
			t.Errorf("args %q missing %q", args, want)
		}
	}
	if strings.Contains(strings.Join(PlaceholderArgs("", "/tmp/out.webm", 2), " "), "-c:v") {
		t.Error("default encoder should not pin a codec")
	}
}

func TestPreviewCommand(t *testing.T) {
	cmd := PreviewCommand("Demo", 3, 75)
	for _, want := range []string{"ffmpeg ", "-loop 1", "-i avatar.png", "-t 60", "drawtext=text='Demo_3'", "-c:v libx264", "output_3.mp4"} {
		if !strings.Contains(cmd, want) {
			t.Errorf("command %q missing %q", cmd, want)
		}
	}
}

func TestEncodePlaceholderFallsBackToGIF(t *testing.T) {
	svc := NewFFmpegService(t.TempDir(), "ffmpeg-binary-that-does-not-exist")
	src := image.NewRGBA(image.Rect(0, 0, 90, 160))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i], src.Pix[i+3] = 200, 255
	}

	data, mimeType, err := svc.EncodePlaceholder(context.Background(), src, 0.5)
	if err != nil {
		t.Fatalf("EncodePlaceholder: %v", err)
	}
	if mimeType != "image/gif" {
		t.Fatalf("mimeType = %q", mimeType)
	}

	anim, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("gif.DecodeAll: %v", err)
	}
	if len(anim.Image) != 14 {
		t.Errorf("frames = %d, want 14", len(anim.Image))
	}
	b := anim.Image[0].Bounds()
	if b.Dx() != 360 || b.Dy() != 640 {
		t.Errorf("frame size = %v", b)
	}
	// Body pixels come from the source image.
	r, _, _, _ := anim.Image[0].At(180, 100).RGBA()
	if r>>8 < 150 {
		t.Errorf("body pixel %v does not come from the source", anim.Image[0].At(180, 100))
	}
	// Captions differ between frames.
	if bytes.Equal(anim.Image[0].Pix, anim.Image[9].Pix) {
		t.Error("frame captions should differ")
	}
}
