package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Enums
type Language string

const (
	LanguageJA Language = "ja"
	LanguageEN Language = "en"
	LanguageKO Language = "ko"
	LanguageZH Language = "zh"
	LanguageFR Language = "fr"
	LanguageIT Language = "it"
)

type AspectRatio string

const (
	AspectPortrait  AspectRatio = "9:16"
	AspectLandscape AspectRatio = "16:9"
)

type VoiceStyle string

const (
	VoiceNatural   VoiceStyle = "natural"
	VoiceEnergetic VoiceStyle = "energetic"
	VoiceCalm      VoiceStyle = "calm"
	VoiceLuxury    VoiceStyle = "luxury"
)

type GenerationMode string

const (
	ModeSamePersonSameProduct GenerationMode = "same_person_same_product"
	ModeSamePersonProductSwap GenerationMode = "same_person_product_swap"
	ModePersonSwapOptional    GenerationMode = "person_swap_optional"
)

type ScriptVariationMode string

const (
	ScriptExact      ScriptVariationMode = "exact"
	ScriptParaphrase ScriptVariationMode = "paraphrase"
)

type QualityLevel string

const (
	QualityFast     QualityLevel = "fast"
	QualityBalanced QualityLevel = "balanced"
	QualityHigh     QualityLevel = "high"
)

type VariationPreset string

const (
	VariationStable   VariationPreset = "stable"
	VariationBalanced VariationPreset = "balanced"
	VariationExplore  VariationPreset = "explore"
)

type CloudMode string

const (
	CloudModeDemo  CloudMode = "demo"
	CloudModeCloud CloudMode = "cloud"
)

type OverlayProviderSetting string

const (
	OverlayAuto    OverlayProviderSetting = "auto"
	OverlayCloud   OverlayProviderSetting = "cloud"
	OverlayBrowser OverlayProviderSetting = "browser"
)

// Models

// UploadedAsset is an image carried inline as a data URL.
type UploadedAsset struct {
	Name     string `json:"name"`
	DataURL  string `json:"dataUrl"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

type IdentityLock struct {
	PersonName     string `json:"personName"`
	IdentityID     string `json:"identityId"`
	ConsentChecked bool   `json:"consentChecked"`
	CreatedAt      string `json:"createdAt"`
}

type VoiceOptions struct {
	Style       VoiceStyle `json:"style" validate:"oneof=natural energetic calm luxury"`
	PauseMs     int        `json:"pauseMs" validate:"gte=0,lte=5000"`
	Breathiness float64    `json:"breathiness" validate:"gte=0,lte=100"`
	ProsodyRate float64    `json:"prosodyRate" validate:"gt=0,lte=4"`
	Pitch       float64    `json:"pitch" validate:"gt=0,lte=4"`
}

type LayerSetting struct {
	Enabled  bool    `json:"enabled"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Scale    float64 `json:"scale" validate:"gte=0"`
	Rotation float64 `json:"rotation"`
	Opacity  float64 `json:"opacity" validate:"gte=0,lte=1"`
}

type CompositionSettings struct {
	PersonCutout        LayerSetting `json:"personCutout"`
	Background          LayerSetting `json:"background"`
	OutfitRef           LayerSetting `json:"outfitRef"`
	HandheldProduct     LayerSetting `json:"handheldProduct"`
	SmartphoneScreen    LayerSetting `json:"smartphoneScreen"`
	PoseReferenceAssist LayerSetting `json:"poseReferenceAssist"`
	SceneBlendStrength  float64      `json:"sceneBlendStrength" validate:"gte=0,lte=1"`
}

type VariationSettings struct {
	Preset           VariationPreset `json:"preset" validate:"oneof=stable balanced explore"`
	Seed             int             `json:"seed"`
	SceneJitter      float64         `json:"sceneJitter" validate:"gte=0,lte=1"`
	OutfitJitter     float64         `json:"outfitJitter" validate:"gte=0,lte=1"`
	BackgroundJitter float64         `json:"backgroundJitter" validate:"gte=0,lte=1"`
}

type CloudSettings struct {
	Mode                       CloudMode              `json:"mode" validate:"oneof=demo cloud"`
	ElevenLabsAPIKey           string                 `json:"elevenLabsApiKey"`
	ElevenLabsVoiceID          string                 `json:"elevenLabsVoiceId"`
	SyncAPIToken               string                 `json:"syncApiToken"`
	SyncModelID                string                 `json:"syncModelId"`
	OverlayProvider            OverlayProviderSetting `json:"overlayProvider" validate:"oneof=auto cloud browser"`
	OverlayAPIKey              string                 `json:"overlayApiKey"`
	ProductReplacementProvider string                 `json:"productReplacementProvider"`
}

// ProjectState is the whole editable configuration of one session.
type ProjectState struct {
	SchemaVersion         int                 `json:"schemaVersion"`
	ProjectName           string              `json:"projectName" validate:"required,max=200"`
	Language              Language            `json:"language" validate:"oneof=ja en ko zh fr it"`
	Avatar                *UploadedAsset      `json:"avatar,omitempty"`
	ProductImage          *UploadedAsset      `json:"productImage,omitempty"`
	ProductImages         []UploadedAsset     `json:"productImages"`
	AvatarSwapImages      []UploadedAsset     `json:"avatarSwapImages"`
	OutfitRef             *UploadedAsset      `json:"outfitRef,omitempty"`
	BackgroundImage       *UploadedAsset      `json:"backgroundImage,omitempty"`
	HandheldProductImage  *UploadedAsset      `json:"handheldProductImage,omitempty"`
	SmartphoneScreenImage *UploadedAsset      `json:"smartphoneScreenImage,omitempty"`
	HoldReferenceImage    *UploadedAsset      `json:"holdReferenceImage,omitempty"`
	IdentityLock          *IdentityLock       `json:"identityLock,omitempty"`
	SelectedSceneID       string              `json:"selectedSceneId,omitempty"`
	SelectedTemplateID    string              `json:"selectedTemplateId,omitempty"`
	Script                string              `json:"script"`
	Voice                 VoiceOptions        `json:"voice"`
	GenerationMode        GenerationMode      `json:"generationMode" validate:"oneof=same_person_same_product same_person_product_swap person_swap_optional"`
	KeepIdentityLocked    bool                `json:"keepIdentityLocked"`
	ScriptVariationMode   ScriptVariationMode `json:"scriptVariationMode" validate:"oneof=exact paraphrase"`
	ScenarioCount         int                 `json:"scenarioCount" validate:"gte=1,lte=20"`
	BatchCount            int                 `json:"batchCount" validate:"gte=1,lte=20"`
	ClipLengthSec         float64             `json:"clipLengthSec" validate:"gte=1,lte=60"`
	AspectRatio           AspectRatio         `json:"aspectRatio" validate:"oneof=9:16 16:9"`
	RenderQuality         QualityLevel        `json:"renderQuality" validate:"oneof=fast balanced high"`
	AutoFixQuality        bool                `json:"autoFixQuality"`
	MaxQualityRetries     int                 `json:"maxQualityRetries" validate:"gte=0,lte=10"`
	AutoDurationFromAudio bool                `json:"autoDurationFromAudio"`
	Cloud                 CloudSettings       `json:"cloud"`
	Composition           CompositionSettings `json:"composition"`
	Variation             VariationSettings   `json:"variation"`
}

// QualityGateScores is the outcome of one quality measurement.
type QualityGateScores struct {
	Blur      float64  `json:"blur"`
	Boundary  float64  `json:"boundary"`
	Occlusion float64  `json:"occlusion"`
	Overall   float64  `json:"overall"`
	Warnings  []string `json:"warnings"`
	Attempts  int      `json:"attempts"`
	Passed    bool     `json:"passed"`
}

type LipSyncCue struct {
	T         float64 `json:"t"`
	MouthOpen float64 `json:"mouthOpen"`
	Phoneme   string  `json:"phoneme"`
}

type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// Recipe is the frozen set of parameters that reproduces one render job.
type Recipe struct {
	Index               int                 `json:"index"`
	Seed                int                 `json:"seed"`
	Language            Language            `json:"language"`
	AspectRatio         AspectRatio         `json:"aspectRatio"`
	SceneID             string              `json:"sceneId,omitempty"`
	TemplateID          string              `json:"templateId,omitempty"`
	GenerationMode      GenerationMode      `json:"generationMode"`
	ScriptVariationMode ScriptVariationMode `json:"scriptVariationMode"`
	Voice               VoiceOptions        `json:"voice"`
	Script              string              `json:"script"`
	ProductImageName    string              `json:"productImageName,omitempty"`
	AvatarName          string              `json:"avatarName,omitempty"`
	IdentityLockID      string              `json:"identityLockId,omitempty"`
	Composition         CompositionSettings `json:"composition"`
	Variation           VariationSettings   `json:"variation"`
	Resolution          Resolution          `json:"resolution"`
	RenderQuality       QualityLevel        `json:"renderQuality"`
	LipSyncTimeline     []LipSyncCue        `json:"lipSyncTimeline"`
	TargetDurationSec   float64             `json:"targetDurationSec"`
}

// Value stores a recipe in a JSONB column.
func (r Recipe) Value() (driver.Value, error) {
	return json.Marshal(r)
}

func (r *Recipe) Scan(value interface{}) error {
	if value == nil {
		*r = Recipe{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("unsupported recipe column type %T", value)
	}
	return json.Unmarshal(bytes, r)
}

// QueueItem is one render job and its produced artifacts.
type QueueItem struct {
	ID                string             `json:"id"`
	Index             int                `json:"index"`
	Status            QueueStatus        `json:"status"`
	Progress          float64            `json:"progress"`
	Seed              int                `json:"seed"`
	Recipe            Recipe             `json:"recipe"`
	DownloadName      string             `json:"downloadName"`
	FFmpegCommand     string             `json:"ffmpegCommand,omitempty"`
	ComposedImageURL  string             `json:"composedImageUrl,omitempty"`
	AudioURL          string             `json:"audioUrl,omitempty"`
	VideoURL          string             `json:"videoUrl,omitempty"`
	ArtifactURL       string             `json:"artifactUrl,omitempty"`
	ArtifactMime      string             `json:"artifactMime,omitempty"`
	QualityGate       *QualityGateScores `json:"qualityGate,omitempty"`
	TargetDurationSec float64            `json:"targetDurationSec"`
	OverlayProvider   string             `json:"overlayProvider,omitempty"`
	SpeechProvider    string             `json:"speechProvider,omitempty"`
	Error             string             `json:"error,omitempty"`
}

// DTOs for API responses

type ManifestItem struct {
	Index        int         `json:"index"`
	Status       QueueStatus `json:"status"`
	DownloadName string      `json:"downloadName"`
	Seed         int         `json:"seed"`
	Recipe       Recipe      `json:"recipe"`
}

type Manifest struct {
	ProjectName string         `json:"projectName"`
	GeneratedAt string         `json:"generatedAt"`
	Count       int            `json:"count"`
	Items       []ManifestItem `json:"items"`
}

type QueueResponse struct {
	Running bool        `json:"running"`
	Items   []QueueItem `json:"items"`
}

type BuildQueueRequest struct {
	Append bool `json:"append"`
}

type IdentityLockRequest struct {
	PersonName string `json:"personName" validate:"required,max=120"`
}

type SelectTemplateRequest struct {
	TemplateID string `json:"templateId" validate:"required"`
}

type LanguageSuggestion struct {
	Language   Language `json:"language"`
	Confidence float64  `json:"confidence"`
	Reason     string   `json:"reason"`
}

type VoiceStyleMetrics struct {
	Brightness float64 `json:"brightness"`
	Saturation float64 `json:"saturation"`
	WarmRatio  float64 `json:"warmRatio"`
}

type VoiceStyleSuggestion struct {
	Style   VoiceStyle        `json:"style"`
	Reason  string            `json:"reason"`
	Metrics VoiceStyleMetrics `json:"metrics"`
}

type HostStats struct {
	CPUs           int     `json:"cpus"`
	MemTotalBytes  uint64  `json:"memTotalBytes"`
	MemAvailBytes  uint64  `json:"memAvailableBytes"`
	MemUsedPercent float64 `json:"memUsedPercent"`
	HostUptimeSec  uint64  `json:"hostUptimeSec"`
}

type HealthResponse struct {
	Status       string     `json:"status"`
	UptimeSec    int64      `json:"uptimeSec"`
	Goroutines   int        `json:"goroutines"`
	QueueRunning bool       `json:"queueRunning"`
	QueueItems   int        `json:"queueItems"`
	Host         *HostStats `json:"host,omitempty"`
}
