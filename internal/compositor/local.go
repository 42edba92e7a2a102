package compositor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log"
	"math"
	"sync"

	"github.com/bobarin/ugcstudio/internal/captionfont"
	"github.com/bobarin/ugcstudio/internal/models"
	"github.com/bobarin/ugcstudio/internal/project"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
	"golang.org/x/sync/errgroup"
)

const captionBarHeight = 92

var (
	canvasFill   = color.RGBA{R: 0x02, G: 0x06, B: 0x17, A: 0xff}
	captionBar   = color.NRGBA{R: 15, G: 23, B: 42, A: 107}
	captionColor = color.RGBA{R: 0xf8, G: 0xfa, B: 0xfc, A: 0xff}
)

// Local composes frames in process.
type Local struct{}

func NewLocal() *Local {
	return &Local{}
}

func (l *Local) Name() string {
	return ProviderLocal
}

type layer struct {
	asset   *models.UploadedAsset
	setting models.LayerSetting
	extra   float64
	img     image.Image
}

func (l *Local) Synthesize(ctx context.Context, in Input) (*Result, error) {
	if in.Width <= 0 || in.Height <= 0 {
		return nil, fmt.Errorf("invalid canvas size %dx%d", in.Width, in.Height)
	}
	s := in.State
	comp := s.Composition

	handheld := s.HandheldProductImage
	if handheld == nil {
		handheld = s.ProductImage
	}

	// Fixed draw order; background extra scale is resolved after decode.
	layers := []*layer{
		{asset: s.BackgroundImage, setting: comp.Background},
		{asset: s.Avatar, setting: comp.PersonCutout, extra: 0.95},
		{asset: s.OutfitRef, setting: comp.OutfitRef, extra: 0.65},
		{asset: handheld, setting: comp.HandheldProduct, extra: 0.45},
		{asset: s.SmartphoneScreenImage, setting: comp.SmartphoneScreen, extra: 0.42},
		{asset: s.HoldReferenceImage, setting: comp.PoseReferenceAssist, extra: 0.9},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, ly := range layers {
		if !ly.setting.Enabled || ly.asset == nil {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			img, err := project.DecodeImage(ly.asset)
			if err != nil {
				if !errors.Is(err, project.ErrNoAsset) {
					log.Printf("[Compositor] Skipping layer: %v", err)
				}
				return nil
			}
			ly.img = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	dst := image.NewRGBA(image.Rect(0, 0, in.Width, in.Height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(canvasFill), image.Point{}, draw.Src)

	W, H := float64(in.Width), float64(in.Height)
	rnd := newLCG(in.Seed)

	if bg := layers[0]; bg.img != nil {
		b := bg.img.Bounds()
		bg.extra = math.Max(W/float64(b.Dx()), H/float64(b.Dy()))
		bg.setting.X = rnd.jitter(bg.setting.X, s.Variation.BackgroundJitter*0.15)
		bg.setting.Y = rnd.jitter(bg.setting.Y, s.Variation.BackgroundJitter*0.1)
	}

	for _, ly := range layers {
		if ly.img == nil {
			continue
		}
		drawLayer(dst, ly.img, ly.setting, ly.extra)
	}

	drawCaption(dst, s.Language, s.ProjectName, fmt.Sprintf("seed=%d / %s", in.Seed, s.AspectRatio))

	return &Result{Image: dst, Provider: ProviderLocal}, nil
}

// drawLayer places img centred at (x·W, y·H), rotated by the layer's degrees
// and scaled by scale·extra, blended with the layer opacity.
func drawLayer(dst *image.RGBA, img image.Image, ls models.LayerSetting, extra float64) {
	s := ls.Scale * extra
	if s <= 0 || ls.Opacity <= 0 {
		return
	}
	b := img.Bounds()
	W, H := float64(dst.Bounds().Dx()), float64(dst.Bounds().Dy())
	cx, cy := W*ls.X, H*ls.Y
	theta := ls.Rotation * math.Pi / 180
	cos, sin := math.Cos(theta), math.Sin(theta)

	// Source centre in source coordinates.
	mx := float64(b.Min.X) + float64(b.Dx())/2
	my := float64(b.Min.Y) + float64(b.Dy())/2

	s2d := f64.Aff3{
		s * cos, -s * sin, cx - s*(cos*mx-sin*my),
		s * sin, s * cos, cy - s*(sin*mx+cos*my),
	}

	var opts *xdraw.Options
	if ls.Opacity < 1 {
		opts = &xdraw.Options{SrcMask: image.NewUniform(color.Alpha{A: uint8(math.Round(ls.Opacity * 255))})}
	}
	xdraw.BiLinear.Transform(dst, s2d, img, b, xdraw.Over, opts)
}

// Faces keep glyph buffers and cannot be shared between goroutines, so
// faceMu guards both the cache and every draw.
var (
	faceMu sync.Mutex
	faces  = map[models.Language]*captionFaces{}
)

type captionFaces struct {
	title font.Face
	meta  font.Face
}

// facesFor returns the caption faces for lang. Callers hold faceMu.
func facesFor(lang models.Language) (*captionFaces, error) {
	if cf, ok := faces[lang]; ok {
		return cf, nil
	}
	title, err := captionfont.New(22, lang)
	if err != nil {
		return nil, err
	}
	meta, err := captionfont.New(16, lang)
	if err != nil {
		title.Close()
		return nil, err
	}
	cf := &captionFaces{title: title, meta: meta}
	faces[lang] = cf
	return cf, nil
}

func drawCaption(dst *image.RGBA, lang models.Language, title, meta string) {
	b := dst.Bounds()
	bar := image.Rect(b.Min.X, b.Max.Y-captionBarHeight, b.Max.X, b.Max.Y)
	draw.Draw(dst, bar, image.NewUniform(captionBar), image.Point{}, draw.Over)

	faceMu.Lock()
	defer faceMu.Unlock()
	cf, err := facesFor(lang)
	if err != nil {
		log.Printf("[Compositor] %v", err)
		return
	}

	ink := image.NewUniform(captionColor)
	d := &font.Drawer{Dst: dst, Src: ink, Face: cf.title, Dot: fixed.P(22, b.Max.Y-54)}
	d.DrawString(title)
	d = &font.Drawer{Dst: dst, Src: ink, Face: cf.meta, Dot: fixed.P(22, b.Max.Y-24)}
	d.DrawString(meta)
}
