package project

import "github.com/bobarin/ugcstudio/internal/models"

const (
	CurrentSchemaVersion = 3

	DefaultProjectName = "新規UGC案件"
	DefaultScript      = "ここに台本を編集してください。"
	DefaultSeed        = 20260211

	MaxBatchCount     = 20
	MaxClipLengthSec  = 60.0
	MinClipLengthSec  = 1.0
	DefaultQualityTry = 2
)

// DefaultComposition returns the stock layer layout for a 9:16 frame.
func DefaultComposition() models.CompositionSettings {
	return models.CompositionSettings{
		PersonCutout:        models.LayerSetting{Enabled: true, X: 0.5, Y: 0.62, Scale: 1, Rotation: 0, Opacity: 1},
		Background:          models.LayerSetting{Enabled: true, X: 0.5, Y: 0.5, Scale: 1, Rotation: 0, Opacity: 1},
		OutfitRef:           models.LayerSetting{Enabled: true, X: 0.5, Y: 0.6, Scale: 1, Rotation: 0, Opacity: 0.7},
		HandheldProduct:     models.LayerSetting{Enabled: true, X: 0.72, Y: 0.72, Scale: 0.28, Rotation: -12, Opacity: 1},
		SmartphoneScreen:    models.LayerSetting{Enabled: true, X: 0.3, Y: 0.73, Scale: 0.24, Rotation: 8, Opacity: 1},
		PoseReferenceAssist: models.LayerSetting{Enabled: false, X: 0.5, Y: 0.5, Scale: 1, Rotation: 0, Opacity: 0.15},
		SceneBlendStrength:  0.65,
	}
}

func DefaultVariation() models.VariationSettings {
	return models.VariationSettings{
		Preset:           models.VariationBalanced,
		Seed:             DefaultSeed,
		SceneJitter:      0.2,
		OutfitJitter:     0.15,
		BackgroundJitter: 0.15,
	}
}

func DefaultCloud() models.CloudSettings {
	return models.CloudSettings{
		Mode:                       models.CloudModeDemo,
		OverlayProvider:            models.OverlayAuto,
		ProductReplacementProvider: "overlay",
	}
}

// Defaults returns the initial project of a fresh session.
// Asset pointers stay nil so an exported default project imports back unchanged.
func Defaults() models.ProjectState {
	return models.ProjectState{
		SchemaVersion: CurrentSchemaVersion,
		ProjectName:   DefaultProjectName,
		Language:      models.LanguageJA,
		Script:        DefaultScript,
		Voice: models.VoiceOptions{
			Style:       models.VoiceNatural,
			PauseMs:     220,
			Breathiness: 20,
			ProsodyRate: 1,
			Pitch:       1,
		},
		GenerationMode:      models.ModeSamePersonSameProduct,
		KeepIdentityLocked:  true,
		ScriptVariationMode: models.ScriptExact,
		ScenarioCount:       3,
		BatchCount:          5,
		ClipLengthSec:       20,
		AspectRatio:         models.AspectPortrait,
		RenderQuality:       models.QualityBalanced,
		AutoFixQuality:      true,
		MaxQualityRetries:   DefaultQualityTry,
		Cloud:               DefaultCloud(),
		Composition:         DefaultComposition(),
		Variation:           DefaultVariation(),
		AvatarSwapImages:    []models.UploadedAsset{},
		ProductImages:       []models.UploadedAsset{},
	}
}
