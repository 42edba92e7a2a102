// Package captionfont builds the font faces used to burn captions into
// rendered frames. Latin text is drawn with Go Regular. Runes Go Regular
// has no glyph for (kana, kanji, hanzi, Hangul) fall back to a 12px bitmap
// face scaled to roughly the requested size.
package captionfont

import (
	"fmt"
	"image"
	"math"
	"unicode/utf8"

	"github.com/bobarin/ugcstudio/internal/models"
	"github.com/hajimehoshi/bitmapfont/v4"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// bitmapSize is the em size of the bitmapfont faces in pixels.
const bitmapSize = 12

// New returns a face of the given pixel size. lang picks the CJK fallback:
// zh prefers simplified hanzi shapes, every other language uses the
// Japanese face, which also carries Hangul.
//
// The returned face is not safe for concurrent use.
func New(size float64, lang models.Language) (font.Face, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse caption font: %w", err)
	}
	primary, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("failed to create caption face: %w", err)
	}

	fallback := bitmapfont.Face
	if lang == models.LanguageZH {
		fallback = bitmapfont.FaceSC
	}
	scale := int(math.Round(size / bitmapSize))
	if scale < 1 {
		scale = 1
	}
	return &fallbackFace{primary: primary, fallback: &scaledFace{inner: fallback, scale: scale}}, nil
}

// fallbackFace routes each rune to primary when it has a glyph there and to
// fallback otherwise.
type fallbackFace struct {
	primary  font.Face
	fallback font.Face
}

func (f *fallbackFace) pick(r rune) font.Face {
	if r < utf8.RuneSelf {
		return f.primary
	}
	if _, ok := f.primary.GlyphAdvance(r); ok {
		return f.primary
	}
	if _, ok := f.fallback.GlyphAdvance(r); ok {
		return f.fallback
	}
	return f.primary
}

func (f *fallbackFace) Glyph(dot fixed.Point26_6, r rune) (image.Rectangle, image.Image, image.Point, fixed.Int26_6, bool) {
	return f.pick(r).Glyph(dot, r)
}

func (f *fallbackFace) GlyphBounds(r rune) (fixed.Rectangle26_6, fixed.Int26_6, bool) {
	return f.pick(r).GlyphBounds(r)
}

func (f *fallbackFace) GlyphAdvance(r rune) (fixed.Int26_6, bool) {
	return f.pick(r).GlyphAdvance(r)
}

func (f *fallbackFace) Kern(r0, r1 rune) fixed.Int26_6 {
	p := f.pick(r0)
	if p != f.pick(r1) {
		return 0
	}
	return p.Kern(r0, r1)
}

func (f *fallbackFace) Metrics() font.Metrics {
	return f.primary.Metrics()
}

// Close releases the primary face. The bitmap faces are package globals of
// bitmapfont and stay open.
func (f *fallbackFace) Close() error {
	return f.primary.Close()
}

// scaledFace enlarges a bitmap face by an integer factor with
// nearest-neighbour sampling so pixel glyphs stay crisp.
type scaledFace struct {
	inner font.Face
	scale int
}

func (s *scaledFace) Glyph(dot fixed.Point26_6, r rune) (image.Rectangle, image.Image, image.Point, fixed.Int26_6, bool) {
	dr, mask, maskp, advance, ok := s.inner.Glyph(fixed.Point26_6{}, r)
	if !ok {
		return image.Rectangle{}, nil, image.Point{}, 0, false
	}
	k := fixed.Int26_6(s.scale)
	if s.scale == 1 {
		return dr.Add(image.Pt(dot.X.Round(), dot.Y.Round())), mask, maskp, advance, true
	}

	out := image.NewAlpha(image.Rect(0, 0, dr.Dx()*s.scale, dr.Dy()*s.scale))
	src := image.Rectangle{Min: maskp, Max: maskp.Add(dr.Size())}
	xdraw.NearestNeighbor.Scale(out, out.Bounds(), mask, src, xdraw.Src, nil)

	scaled := image.Rectangle{Min: dr.Min.Mul(s.scale), Max: dr.Max.Mul(s.scale)}
	return scaled.Add(image.Pt(dot.X.Round(), dot.Y.Round())), out, image.Point{}, advance * k, true
}

func (s *scaledFace) GlyphBounds(r rune) (fixed.Rectangle26_6, fixed.Int26_6, bool) {
	b, advance, ok := s.inner.GlyphBounds(r)
	k := fixed.Int26_6(s.scale)
	return fixed.Rectangle26_6{
		Min: fixed.Point26_6{X: b.Min.X * k, Y: b.Min.Y * k},
		Max: fixed.Point26_6{X: b.Max.X * k, Y: b.Max.Y * k},
	}, advance * k, ok
}

func (s *scaledFace) GlyphAdvance(r rune) (fixed.Int26_6, bool) {
	advance, ok := s.inner.GlyphAdvance(r)
	return advance * fixed.Int26_6(s.scale), ok
}

func (s *scaledFace) Kern(r0, r1 rune) fixed.Int26_6 {
	return s.inner.Kern(r0, r1) * fixed.Int26_6(s.scale)
}

func (s *scaledFace) Metrics() font.Metrics {
	m := s.inner.Metrics()
	k := fixed.Int26_6(s.scale)
	m.Height *= k
	m.Ascent *= k
	m.Descent *= k
	m.XHeight *= k
	m.CapHeight *= k
	return m
}

func (s *scaledFace) Close() error { return nil }
