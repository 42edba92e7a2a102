package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"io"
	"log"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/bobarin/ugcstudio/internal/captionfont"
	"github.com/bobarin/ugcstudio/internal/models"
	ffmpeg "github.com/u2takey/ffmpeg-go"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Placeholder clip constants: 720x1280 portrait at 12fps
const (
	placeholderWidth  = 720
	placeholderHeight = 1280
	placeholderFPS    = 12
	placeholderBar    = 64

	minPlaceholderSec = 1.2
	maxPlaceholderSec = 4.0
)

type placeholderCodec struct {
	codec    string
	mimeType string
}

// Tried in order; the first encoder that works wins.
var placeholderCodecs = []placeholderCodec{
	{codec: "libvpx-vp9", mimeType: "video/webm;codecs=vp9"},
	{codec: "libvpx", mimeType: "video/webm;codecs=vp8"},
	{codec: "", mimeType: "video/webm"},
}

var (
	frameFill    = color.RGBA{R: 0x02, G: 0x06, B: 0x17, A: 0xff}
	frameBar     = color.NRGBA{R: 2, G: 6, B: 23, A: 140}
	frameCaption = color.RGBA{R: 0xe2, G: 0xe8, B: 0xf0, A: 0xff}
)

// ---------------------------------------------------------------------------
// FFmpegService
// ---------------------------------------------------------------------------

type FFmpegService struct {
	tempDir    string
	ffmpegPath string

	faceOnce sync.Once
	faceMu   sync.Mutex
	face     font.Face
	faceErr  error
}

func NewFFmpegService(tempDir, ffmpegPath string) *FFmpegService {
	// Create temp directory if it doesn't exist
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		panic(fmt.Sprintf("failed to create temp dir: %v", err))
	}
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}

	return &FFmpegService{
		tempDir:    tempDir,
		ffmpegPath: ffmpegPath,
	}
}

// Available reports whether the ffmpeg binary can be found.
func (s *FFmpegService) Available() bool {
	_, err := exec.LookPath(s.ffmpegPath)
	return err == nil
}

// EffectiveDuration bounds a placeholder clip to [1.2, 4] seconds.
func EffectiveDuration(lengthSec float64) float64 {
	return math.Max(minPlaceholderSec, math.Min(lengthSec, maxPlaceholderSec))
}

// FrameCount is the number of frames in a placeholder clip.
func FrameCount(lengthSec float64) int {
	return int(math.Round(EffectiveDuration(lengthSec) * placeholderFPS))
}

// EncodePlaceholder renders the composed frame into a short captioned clip.
// Frames are generated deterministically, not in real time. Without a usable
// ffmpeg the clip becomes an animated GIF.
func (s *FFmpegService) EncodePlaceholder(ctx context.Context, src image.Image, lengthSec float64) ([]byte, string, error) {
	base := image.NewRGBA(image.Rect(0, 0, placeholderWidth, placeholderHeight))
	draw.Draw(base, base.Bounds(), image.NewUniform(frameFill), image.Point{}, draw.Src)
	if src != nil {
		xdraw.BiLinear.Scale(base, base.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	}
	bar := image.Rect(0, placeholderHeight-placeholderBar, placeholderWidth, placeholderHeight)
	draw.Draw(base, bar, image.NewUniform(frameBar), image.Point{}, draw.Over)

	n := FrameCount(lengthSec)

	if s.Available() {
		for _, c := range placeholderCodecs {
			data, err := s.encodeWebM(ctx, base, n, lengthSec, c.codec)
			if err == nil {
				return data, c.mimeType, nil
			}
			if ctx.Err() != nil {
				return nil, "", ctx.Err()
			}
			log.Printf("[FFmpeg] Encoder %q unavailable: %v", c.codec, err)
		}
	} else {
		log.Printf("[FFmpeg] %s not found, falling back to GIF", s.ffmpegPath)
	}

	data, err := s.encodeGIF(ctx, base, n)
	if err != nil {
		return nil, "", fmt.Errorf("placeholder encode failed after every fallback: %w", err)
	}
	return data, "image/gif", nil
}

// PlaceholderArgs builds the ffmpeg arguments for piping raw RGBA frames into a WebM file.
func PlaceholderArgs(codec, outputPath string, lengthSec float64) []string {
	out := ffmpeg.KwArgs{
		"f":       "webm",
		"pix_fmt": "yuv420p",
		"t":       strconv.FormatFloat(EffectiveDuration(lengthSec), 'f', 2, 64),
	}
	if codec != "" {
		out["c:v"] = codec
		out["b:v"] = "1M"
	}
	return ffmpeg.Input("pipe:", ffmpeg.KwArgs{
		"f":       "rawvideo",
		"pix_fmt": "rgba",
		"s":       fmt.Sprintf("%dx%d", placeholderWidth, placeholderHeight),
		"r":       placeholderFPS,
	}).Output(outputPath, out).OverWriteOutput().GetArgs()
}

// PreviewCommand is the equivalent still-image render command shown next to a queue item.
func PreviewCommand(projectName string, index int, lengthSec float64) string {
	args := ffmpeg.Input("avatar.png", ffmpeg.KwArgs{"loop": 1}).
		Output(fmt.Sprintf("output_%d.mp4", index), ffmpeg.KwArgs{
			"t":   strconv.FormatFloat(math.Min(lengthSec, 60), 'f', -1, 64),
			"vf":  fmt.Sprintf("scale=1080:1920,drawtext=text='%s_%d'", projectName, index),
			"c:v": "libx264",
		}).GetArgs()
	return "ffmpeg " + strings.Join(args, " ")
}

func (s *FFmpegService) encodeWebM(ctx context.Context, base *image.RGBA, frames int, lengthSec float64, codec string) ([]byte, error) {
	out, err := os.CreateTemp(s.tempDir, "placeholder-*.webm")
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	outPath := out.Name()
	out.Close()
	defer os.Remove(outPath)

	cmd := exec.CommandContext(ctx, s.ffmpegPath, PlaceholderArgs(codec, outPath, lengthSec)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start error: %w", err)
	}

	writeErr := s.writeFrames(stdin, base, frames)
	stdin.Close()

	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("ffmpeg wait error: %w (%s)", err, truncateString(stderr.String(), 300))
	}
	if writeErr != nil {
		return nil, fmt.Errorf("write raw error: %w", writeErr)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read encoded clip: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("ffmpeg produced an empty clip")
	}
	return data, nil
}

func (s *FFmpegService) writeFrames(w io.Writer, base *image.RGBA, frames int) error {
	frame := image.NewRGBA(base.Bounds())
	for i := 1; i <= frames; i++ {
		copy(frame.Pix, base.Pix)
		s.drawFrameCaption(frame, i)
		if _, err := w.Write(frame.Pix); err != nil {
			return err
		}
	}
	return nil
}

// encodeGIF writes a half-resolution animated GIF. Only the caption bar changes
// between frames, so the body is quantized once and the bar per frame.
func (s *FFmpegService) encodeGIF(ctx context.Context, base *image.RGBA, frames int) ([]byte, error) {
	half := image.Rect(0, 0, placeholderWidth/2, placeholderHeight/2)
	halfBase := image.NewRGBA(half)
	xdraw.ApproxBiLinear.Scale(halfBase, half, base, base.Bounds(), xdraw.Src, nil)
	body := image.NewPaletted(half, palette.Plan9)
	draw.Draw(body, half, halfBase, image.Point{}, draw.Src)

	bar := image.Rect(0, placeholderHeight-placeholderBar, placeholderWidth, placeholderHeight)
	halfBar := image.Rect(0, half.Dy()-placeholderBar/2, half.Dx(), half.Dy())
	strip := image.NewRGBA(bar)
	halfStrip := image.NewRGBA(halfBar)
	delay := int(math.Round(100.0 / placeholderFPS))

	anim := &gif.GIF{}
	for i := 1; i <= frames; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		draw.Draw(strip, bar, base, bar.Min, draw.Src)
		s.drawFrameCaption(strip, i)
		xdraw.ApproxBiLinear.Scale(halfStrip, halfBar, strip, bar, xdraw.Src, nil)

		p := image.NewPaletted(half, palette.Plan9)
		copy(p.Pix, body.Pix)
		draw.Draw(p, halfBar, halfStrip, halfBar.Min, draw.Src)
		anim.Image = append(anim.Image, p)
		anim.Delay = append(anim.Delay, delay)
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		return nil, fmt.Errorf("gif encode failed: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *FFmpegService) drawFrameCaption(dst *image.RGBA, frame int) {
	s.faceOnce.Do(func() {
		s.face, s.faceErr = captionfont.New(18, models.LanguageEN)
	})
	if s.faceErr != nil {
		return
	}

	s.faceMu.Lock()
	defer s.faceMu.Unlock()
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(frameCaption),
		Face: s.face,
		Dot:  fixed.P(dst.Bounds().Min.X+20, dst.Bounds().Max.Y-24),
	}
	d.DrawString(fmt.Sprintf("Demo render frame %d", frame))
}

// ProbeDuration measures an audio payload with ffprobe and returns seconds.
func (s *FFmpegService) ProbeDuration(ctx context.Context, audio []byte, format string) (float64, error) {
	if format == "" {
		format = "mp3"
	}
	f, err := os.CreateTemp(s.tempDir, "probe-*."+format)
	if err != nil {
		return 0, fmt.Errorf("failed to create probe file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)
	if _, err := f.Write(audio); err != nil {
		f.Close()
		return 0, fmt.Errorf("failed to write probe file: %w", err)
	}
	f.Close()

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	out, err := ffmpeg.Probe(path)
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}
	return parseProbeDuration(out)
}

func parseProbeDuration(probeJSON string) (float64, error) {
	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal([]byte(probeJSON), &probe); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	sec, err := strconv.ParseFloat(strings.TrimSpace(probe.Format.Duration), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration %q: %w", probe.Format.Duration, err)
	}
	return sec, nil
}
