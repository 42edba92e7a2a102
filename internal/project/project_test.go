package project

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/bobarin/ugcstudio/internal/models"
)

func pngAsset(t *testing.T, name string, c color.Color, w, h int) *models.UploadedAsset {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return &models.UploadedAsset{
		Name:     name,
		DataURL:  EncodeDataURL(buf.Bytes(), "image/png"),
		MimeType: "image/png",
		Size:     int64(buf.Len()),
	}
}

func TestDecodeLegacyDocument(t *testing.T) {
	raw := []byte(`{
		"projectName": "legacy",
		"language": "en",
		"script": "hello",
		"productImage": {"name": "p.png", "dataUrl": "data:image/png;base64,AA==", "mimeType": "image/png", "size": 1},
		"cloud": {"mode": "cloud", "syncApiToken": "tok"},
		"composition": {"handheldProduct": {"enabled": false, "x": 0.1, "y": 0.2, "scale": 0.5, "rotation": 3, "opacity": 0.9}},
		"variation": {"seed": 7},
		"batchCount": 99
	}`)

	state, err := Decode(raw)
	if err != nil {
		t.Fatalf("failed to decode: %v", err)
	}

	if state.SchemaVersion != CurrentSchemaVersion {
		t.Errorf("expected schemaVersion=%d, got %d", CurrentSchemaVersion, state.SchemaVersion)
	}
	if state.Cloud.Mode != models.CloudModeCloud || state.Cloud.OverlayProvider != models.OverlayAuto {
		t.Errorf("unexpected cloud settings: %+v", state.Cloud)
	}
	if state.Composition.HandheldProduct.Enabled {
		t.Error("expected stored handheldProduct layer to win over default")
	}
	if state.Composition.PersonCutout != DefaultComposition().PersonCutout {
		t.Errorf("expected default personCutout layer, got %+v", state.Composition.PersonCutout)
	}
	if state.Variation.Seed != 7 || state.Variation.SceneJitter != 0.2 {
		t.Errorf("expected merged variation, got %+v", state.Variation)
	}
	if state.GenerationMode != models.ModeSamePersonSameProduct || !state.KeepIdentityLocked {
		t.Errorf("expected default generation settings, got %s %v", state.GenerationMode, state.KeepIdentityLocked)
	}
	if state.ScenarioCount != 3 {
		t.Errorf("expected scenarioCount=3, got %d", state.ScenarioCount)
	}
	if state.BatchCount != MaxBatchCount {
		t.Errorf("expected batchCount clamped to %d, got %d", MaxBatchCount, state.BatchCount)
	}
	if len(state.ProductImages) != 1 || state.ProductImages[0].Name != "p.png" {
		t.Errorf("expected productImages=[productImage], got %+v", state.ProductImages)
	}
	if state.HandheldProductImage == nil || state.HandheldProductImage.Name != "p.png" {
		t.Errorf("expected handheld image to default to product image")
	}
	if state.AvatarSwapImages == nil {
		t.Error("expected empty avatar swap pool, got nil")
	}
}

func TestDecodeMalformed(t *testing.T) {
	if _, err := Decode([]byte(`{"projectName": `)); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	state := Defaults()
	state.ProjectName = "round trip"
	state.Avatar = pngAsset(t, "avatar.png", color.RGBA{200, 120, 90, 255}, 4, 4)
	state.ProductImage = pngAsset(t, "product.png", color.RGBA{10, 200, 90, 255}, 4, 4)
	state.ProductImages = nil
	state.IdentityLock = &models.IdentityLock{PersonName: "Aoi", IdentityID: "abc", ConsentChecked: true, CreatedAt: "2026-02-11T00:00:00Z"}
	state.SelectedSceneID = "scene-004"
	state.ClipLengthSec = 75
	state.Voice.Breathiness = 42.5
	state.Cloud.Mode = models.CloudModeCloud
	state.Cloud.ElevenLabsAPIKey = "el-key"
	state.Composition.SmartphoneScreen.Rotation = -3.25
	state.Variation.Seed = 99

	data, err := Export(state)
	if err != nil {
		t.Fatalf("failed to export: %v", err)
	}
	imported, err := Import(data)
	if err != nil {
		t.Fatalf("failed to import: %v", err)
	}

	want := Normalize(state)
	if !reflect.DeepEqual(imported, want) {
		t.Errorf("round trip mismatch\n got: %+v\nwant: %+v", imported, want)
	}
	if imported.ClipLengthSec != MaxClipLengthSec {
		t.Errorf("expected clipLengthSec clamped to 60, got %v", imported.ClipLengthSec)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	state := Defaults()
	state.ProductImage = &models.UploadedAsset{Name: "p", DataURL: "data:image/png;base64,AA=="}
	state.ProductImages = nil
	state.ScenarioCount = 0
	state.Cloud.Mode = ""

	once := Normalize(state)
	twice := Normalize(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("normalize is not idempotent\n once: %+v\ntwice: %+v", once, twice)
	}
	if once.ScenarioCount != 1 {
		t.Errorf("expected scenarioCount clamped to 1, got %d", once.ScenarioCount)
	}
}

func TestValidate(t *testing.T) {
	state := Defaults()
	if err := Validate(state); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}

	state.Language = "de"
	state.Voice.Style = "shouty"
	err := Validate(state)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Fields["ProjectState.Language"] != "oneof" {
		t.Errorf("expected language oneof failure, got %v", verr.Fields)
	}
	if verr.Fields["ProjectState.Voice.Style"] != "oneof" {
		t.Errorf("expected voice style oneof failure, got %v", verr.Fields)
	}
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		script string
		want   models.Language
	}{
		{"", models.LanguageJA},
		{"この商品はとても使いやすいです", models.LanguageJA},
		{"이 제품은 정말 좋아요", models.LanguageKO},
		{"这个产品非常好用", models.LanguageZH},
		{"Bonjour, cette crème est très douce pour la peau", models.LanguageFR},
		{"Ciao, questo prodotto è molto buono per oggi", models.LanguageIT},
		{"This serum changed my morning routine", models.LanguageEN},
		{"12345 !!!", models.LanguageEN},
	}

	for _, tt := range tests {
		got := DetectLanguage(tt.script)
		if got.Language != tt.want {
			t.Errorf("DetectLanguage(%q) = %s (%s), want %s", tt.script, got.Language, got.Reason, tt.want)
		}
	}
}

func TestIdentityID(t *testing.T) {
	a := IdentityID("  Aoi Tanaka ", "data:image/png;base64,AAAA")
	b := IdentityID("aoi tanaka", "data:image/png;base64,AAAA")
	if a != b {
		t.Errorf("expected trimmed, lowercased names to match: %s vs %s", a, b)
	}
	if len(a) != 20 {
		t.Errorf("expected 20 hex chars, got %d", len(a))
	}
	if IdentityID("aoi tanaka", "data:image/png;base64,BBBB") == a {
		t.Error("expected different image to change the id")
	}

	long := "data:image/png;base64," + strings.Repeat("A", 4096)
	if IdentityID("x", long) != IdentityID("x", long+"different tail") {
		t.Error("expected only the first 2048 bytes of the data URL to count")
	}

	lock := NewIdentityLock("Aoi", models.UploadedAsset{DataURL: "data:,x"}, time.Date(2026, 2, 11, 0, 0, 0, 0, time.UTC))
	if !lock.ConsentChecked || lock.CreatedAt != "2026-02-11T00:00:00Z" {
		t.Errorf("unexpected lock: %+v", lock)
	}
}

func TestParaphraseSoftensAbsoluteClaims(t *testing.T) {
	script := "\n肌が変わる\nみんな100%満足\n絶対おすすめ"
	openers := make(map[string]bool)
	for index := 0; index < 12; index++ {
		got := Paraphrase(script, index, models.LanguageJA)
		if strings.Contains(got, "100%") {
			t.Errorf("index %d: paraphrase still contains 100%%: %q", index, got)
		}
		if strings.Contains(got, "絶対") {
			t.Errorf("index %d: paraphrase still contains 絶対: %q", index, got)
		}
		lines := strings.Split(got, "\n")
		if lines[0] != "" {
			t.Errorf("index %d: expected leading blank line to stay blank, got %q", index, lines[0])
		}
		openers[lines[1]] = true
		if got != Paraphrase(script, index, models.LanguageJA) {
			t.Errorf("index %d: paraphrase is not deterministic", index)
		}
	}
	if len(openers) != ParaphraseTemplateCount(models.LanguageJA) {
		t.Errorf("expected %d rotating openers, got %d", ParaphraseTemplateCount(models.LanguageJA), len(openers))
	}
}

func TestSoftenGuarantee(t *testing.T) {
	got := SoftenClaims("We GUARANTEE results, guaranteed glow and 100% coverage", models.LanguageEN)
	if strings.Contains(strings.ToLower(got), "guarantee") || strings.Contains(got, "100%") {
		t.Errorf("expected claims softened, got %q", got)
	}
	if got != "We expect results, expected glow and nearly coverage" {
		t.Errorf("unexpected softened text %q", got)
	}
}

func TestParaphraseUsesScriptLanguage(t *testing.T) {
	tests := []struct {
		lang   models.Language
		script string
		want   string
	}{
		{models.LanguageJA, "この美容液は100%効く", "正直に言うと、この美容液はほぼ効く"},
		{models.LanguageEN, "This cream is 100% guaranteed", "Honestly? This cream is nearly expected"},
		{models.LanguageKO, "이 크림은 100% 효과가 있어요", "솔직히 말하면, 이 크림은 거의 효과가 있어요"},
		{models.LanguageZH, "这款面霜100%有效", "说实话，这款面霜几乎有效"},
		{models.LanguageFR, "Résultat garanti, 100% efficace", "Franchement ? Résultat prévu, presque efficace"},
		{models.LanguageIT, "Risultato garantito, 100% efficace", "Sinceramente? Risultato previsto, quasi efficace"},
	}

	for _, tt := range tests {
		t.Run(string(tt.lang), func(t *testing.T) {
			got := Paraphrase(tt.script, 1, tt.lang)
			if got != tt.want {
				t.Errorf("Paraphrase(%q) = %q, want %q", tt.script, got, tt.want)
			}
			if tt.lang != models.LanguageEN && (strings.Contains(got, "nearly") || strings.Contains(got, "Honestly")) {
				t.Errorf("English wording leaked into %s script: %q", tt.lang, got)
			}
			if n := ParaphraseTemplateCount(tt.lang); n != 5 {
				t.Errorf("ParaphraseTemplateCount = %d, want 5", n)
			}
		})
	}
}

func TestSoftenClaimsFollowsLanguageNotScript(t *testing.T) {
	// A Korean script quoting a Japanese product name still hedges in Korean.
	if got := SoftenClaims("「ほぼ日」 100% 만족", models.LanguageKO); got != "「ほぼ日」 거의 만족" {
		t.Errorf("got %q", got)
	}
	if got := SoftenClaims("100% natural", ""); got != "nearly natural" {
		t.Errorf("unknown language should fall back to English, got %q", got)
	}
}

func TestEstimateDurationSec(t *testing.T) {
	if got := EstimateDurationSec("short", models.LanguageEN, 200); got != 5 {
		t.Errorf("expected minimum of 5s, got %v", got)
	}

	// 70 characters at 7 chars/s plus one 500ms pause.
	script := strings.Repeat("あ", 35) + "\n" + strings.Repeat("い", 35)
	if got := EstimateDurationSec(script, models.LanguageJA, 500); got != 10.5 {
		t.Errorf("expected 10.5s, got %v", got)
	}

	if got := EstimateDurationSec(strings.Repeat("word ", 400), models.LanguageEN, 0); got != 60 {
		t.Errorf("expected clamp to 60s, got %v", got)
	}
}

func TestLipSyncTimeline(t *testing.T) {
	cues := LipSyncTimeline(20)
	if len(cues) != 10 {
		t.Fatalf("expected 10 cues, got %d", len(cues))
	}
	if cues[0] != (models.LipSyncCue{T: 0, MouthOpen: 0.5, Phoneme: "a"}) {
		t.Errorf("unexpected first cue %+v", cues[0])
	}
	if cues[1] != (models.LipSyncCue{T: 2, MouthOpen: 0.84, Phoneme: "i"}) {
		t.Errorf("unexpected second cue %+v", cues[1])
	}
	if cues[5].Phoneme != "a" {
		t.Errorf("expected phonemes to cycle, got %s", cues[5].Phoneme)
	}
	if got := len(LipSyncTimeline(75)); got != 30 {
		t.Errorf("expected length capped at 60s (30 cues), got %d", got)
	}
}

func TestDecodeDataURL(t *testing.T) {
	data, mime, err := DecodeDataURL("data:text/plain;base64,aGVsbG8=")
	if err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if string(data) != "hello" || mime != "text/plain" {
		t.Errorf("unexpected decode %q %q", data, mime)
	}

	data, _, err = DecodeDataURL("data:,a%20b")
	if err != nil || string(data) != "a b" {
		t.Errorf("unexpected percent decode %q %v", data, err)
	}

	if _, _, err := DecodeDataURL("https://example.com/x.png"); err == nil {
		t.Error("expected error for non-data URL")
	}
}

func TestDecodeImage(t *testing.T) {
	asset := pngAsset(t, "a.png", color.RGBA{1, 2, 3, 255}, 3, 2)
	img, err := DecodeImage(asset)
	if err != nil {
		t.Fatalf("failed to decode image: %v", err)
	}
	if img.Bounds().Dx() != 3 || img.Bounds().Dy() != 2 {
		t.Errorf("unexpected bounds %v", img.Bounds())
	}

	if _, err := DecodeImage(nil); !errors.Is(err, ErrNoAsset) {
		t.Errorf("expected ErrNoAsset, got %v", err)
	}
	if _, err := DecodeImage(&models.UploadedAsset{Name: "bad", DataURL: "data:image/png;base64,AAAA"}); err == nil {
		t.Error("expected decode error for garbage payload")
	}
}

func TestSuggestVoiceStyle(t *testing.T) {
	bright := image.NewRGBA(image.Rect(0, 0, 50, 50))
	dark := image.NewRGBA(image.Rect(0, 0, 50, 50))
	for y := 0; y < 50; y++ {
		for x := 0; x < 50; x++ {
			bright.Set(x, y, color.RGBA{255, 255, 255, 255})
			dark.Set(x, y, color.RGBA{40, 40, 40, 255})
		}
	}

	if got := SuggestVoiceStyle(bright); got == nil || got.Style != models.VoiceEnergetic {
		t.Errorf("expected energetic for bright image, got %+v", got)
	}
	if got := SuggestVoiceStyle(dark); got == nil || got.Style != models.VoiceCalm {
		t.Errorf("expected calm for dark image, got %+v", got)
	}
	if got := SuggestVoiceStyle(image.NewRGBA(image.Rect(0, 0, 10, 10))); got != nil {
		t.Errorf("expected nil for fully transparent image, got %+v", got)
	}
}
