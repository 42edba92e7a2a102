package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/bobarin/ugcstudio/internal/models"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ErrInvalidDocument is returned for project JSON that does not parse.
var ErrInvalidDocument = errors.New("invalid project document")

// ValidationError lists the fields that failed validation and the rule each one broke.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, tag := range e.Fields {
		parts = append(parts, field+"="+tag)
	}
	return "invalid project: " + strings.Join(parts, ", ")
}

// Decode parses a stored or imported project document. Fields missing from the
// document take their default values, then the result is normalized.
// A malformed document returns an error and no partial state.
func Decode(raw []byte) (models.ProjectState, error) {
	state := Defaults()
	// A document without schemaVersion predates versioning.
	state.SchemaVersion = 1
	if err := json.Unmarshal(raw, &state); err != nil {
		return models.ProjectState{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return Normalize(state), nil
}

// Import is Decode under the name the export/import pair uses.
func Import(raw []byte) (models.ProjectState, error) {
	return Decode(raw)
}

// Export renders the project as pretty-printed JSON.
func Export(state models.ProjectState) ([]byte, error) {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal project: %w", err)
	}
	return data, nil
}

// Normalize fills fields introduced after a document was written and applies
// the range clamps. Normalize(Normalize(s)) == Normalize(s).
func Normalize(state models.ProjectState) models.ProjectState {
	s := state

	if s.SchemaVersion < CurrentSchemaVersion {
		s.SchemaVersion = CurrentSchemaVersion
	}
	if strings.TrimSpace(s.ProjectName) == "" {
		s.ProjectName = DefaultProjectName
	}
	if s.Language == "" {
		s.Language = models.LanguageJA
	}
	if s.AspectRatio == "" {
		s.AspectRatio = models.AspectPortrait
	}
	if s.Voice.Style == "" {
		s.Voice.Style = models.VoiceNatural
	}
	if s.GenerationMode == "" {
		s.GenerationMode = models.ModeSamePersonSameProduct
	}
	if s.ScriptVariationMode == "" {
		s.ScriptVariationMode = models.ScriptExact
	}
	if s.RenderQuality == "" {
		s.RenderQuality = models.QualityBalanced
	}
	if s.MaxQualityRetries < 0 {
		s.MaxQualityRetries = 0
	}

	if s.Cloud.Mode == "" {
		s.Cloud.Mode = models.CloudModeDemo
	}
	if s.Cloud.OverlayProvider == "" {
		s.Cloud.OverlayProvider = models.OverlayAuto
	}
	if s.Variation.Preset == "" {
		s.Variation.Preset = models.VariationBalanced
	}

	if len(s.ProductImages) == 0 {
		if s.ProductImage != nil {
			s.ProductImages = []models.UploadedAsset{*s.ProductImage}
		} else {
			s.ProductImages = []models.UploadedAsset{}
		}
	}
	if s.AvatarSwapImages == nil {
		s.AvatarSwapImages = []models.UploadedAsset{}
	}
	if s.HandheldProductImage == nil && s.ProductImage != nil {
		handheld := *s.ProductImage
		s.HandheldProductImage = &handheld
	}

	s.ScenarioCount = clampInt(s.ScenarioCount, 1, MaxBatchCount)
	s.BatchCount = clampInt(s.BatchCount, 1, MaxBatchCount)
	s.ClipLengthSec = ClampClipLength(s.ClipLengthSec)

	return s
}

// ClampClipLength bounds a clip length to [1, 60] seconds.
func ClampClipLength(sec float64) float64 {
	if math.IsNaN(sec) || sec < MinClipLengthSec {
		return MinClipLengthSec
	}
	if sec > MaxClipLengthSec {
		return MaxClipLengthSec
	}
	return sec
}

// Validate checks enums and ranges on a project that has already been normalized.
func Validate(state models.ProjectState) error {
	err := validate.Struct(state)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, e := range verrs {
			fields[e.Namespace()] = e.Tag()
		}
		return &ValidationError{Fields: fields}
	}
	return fmt.Errorf("failed to validate project: %w", err)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
