package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/bobarin/ugcstudio/internal/models"
)

// ---------------------------------------------------------------------------
// sync.so lip-sync
// Creates a generation from a still frame plus speech, then polls until the
// job completes, fails or the attempt budget runs out.
// ---------------------------------------------------------------------------

const (
	syncBaseURL         = "https://api.sync.so"
	syncDefaultModel    = "lipsync-2"
	syncPollInterval    = 3 * time.Second
	syncMaxPollAttempts = 60
)

type LipSyncRequest struct {
	Image       []byte // PNG
	Audio       *TTSResponse
	Language    models.Language
	AspectRatio models.AspectRatio
	ModelID     string
}

type SyncService struct {
	apiToken     string
	baseURL      string
	pollInterval time.Duration
	maxAttempts  int
	client       *http.Client
}

func NewSyncService(apiToken string) *SyncService {
	return &SyncService{
		apiToken:     apiToken,
		baseURL:      syncBaseURL,
		pollInterval: syncPollInterval,
		maxAttempts:  syncMaxPollAttempts,
		client:       &http.Client{Timeout: 30 * time.Second},
	}
}

// NewSyncServiceWithOptions overrides the endpoint and polling budget.
func NewSyncServiceWithOptions(apiToken, baseURL string, pollInterval time.Duration, maxAttempts int) *SyncService {
	s := NewSyncService(apiToken)
	if baseURL != "" {
		s.baseURL = baseURL
	}
	if pollInterval > 0 {
		s.pollInterval = pollInterval
	}
	if maxAttempts > 0 {
		s.maxAttempts = maxAttempts
	}
	return s
}

type syncCreateResponse struct {
	ID string `json:"id"`
}

// GenerateLipSync returns the URL of the finished lip-synced video.
func (s *SyncService) GenerateLipSync(ctx context.Context, req LipSyncRequest) (string, error) {
	id, err := s.create(ctx, req)
	if err != nil {
		return "", err
	}
	log.Printf("[Sync] Generation %s created, polling every %v (max %d attempts)", id, s.pollInterval, s.maxAttempts)

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.pollInterval):
		}

		payload, raw, err := s.poll(ctx, id)
		if err != nil {
			return "", err
		}

		status, _ := payload["status"].(string)
		switch status {
		case "COMPLETED", "completed":
			url := stringField(payload, "outputUrl")
			if url == "" {
				url = stringField(payload, "output_url")
			}
			if url == "" {
				return "", ErrLipSyncMissingOutput
			}
			log.Printf("[Sync] Generation %s completed after %d polls", id, attempt)
			return url, nil
		case "FAILED", "failed":
			return "", &GenerationFailedError{Provider: "Sync", Payload: raw}
		}
	}

	return "", ErrLipSyncTimeout
}

func (s *SyncService) create(ctx context.Context, req LipSyncRequest) (string, error) {
	model := req.ModelID
	if model == "" {
		model = syncDefaultModel
	}

	audioName, audioType := "voice.mp3", "audio/mpeg"
	if req.Audio != nil && req.Audio.Format == "wav" {
		audioName, audioType = "voice.wav", "audio/wav"
	}
	var audio []byte
	if req.Audio != nil {
		audio = req.Audio.AudioData
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("model", model); err != nil {
		return "", fmt.Errorf("failed to write form field: %w", err)
	}
	if err := writeFormFile(w, "input_image", "avatar.png", "image/png", req.Image); err != nil {
		return "", err
	}
	if err := writeFormFile(w, "input_audio", audioName, audioType, audio); err != nil {
		return "", err
	}
	for _, f := range [][2]string{
		{"output_format", "mp4"},
		{"language", string(req.Language)},
		{"aspect_ratio", string(req.AspectRatio)},
	} {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return "", fmt.Errorf("failed to write form field: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/v2/generate", &body)
	if err != nil {
		return "", fmt.Errorf("failed to create sync request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.apiToken)
	httpReq.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("sync create request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &ProviderError{Provider: "Sync", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var created syncCreateResponse
	if err := json.Unmarshal(respBody, &created); err != nil {
		return "", fmt.Errorf("failed to decode sync create response: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("Sync create failed: missing id")
	}
	return created.ID, nil
}

func (s *SyncService) poll(ctx context.Context, id string) (map[string]interface{}, string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", s.baseURL+"/v2/generate/"+id, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create poll request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.apiToken)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("sync poll request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", &ProviderError{Provider: "Sync", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, "", fmt.Errorf("failed to decode sync poll response: %w", err)
	}
	return payload, string(body), nil
}

func writeFormFile(w *multipart.Writer, field, filename, contentType string, data []byte) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", field, err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("failed to write %s part: %w", field, err)
	}
	return nil
}

func stringField(m map[string]interface{}, key string) string {
	v, _ := m[key].(string)
	return v
}
