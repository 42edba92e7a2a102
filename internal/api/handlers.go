package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"mime"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/bobarin/ugcstudio/internal/db"
	"github.com/bobarin/ugcstudio/internal/models"
	"github.com/bobarin/ugcstudio/internal/orchestrator"
	"github.com/bobarin/ugcstudio/internal/project"
	"github.com/bobarin/ugcstudio/internal/session"
	"github.com/bobarin/ugcstudio/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/skip2/go-qrcode"
)

// Projects carry images and audio as data URLs.
const maxProjectBytes = 64 << 20

const (
	defaultQRSize = 256
	minQRSize     = 128
	maxQRSize     = 1024
)

var validate = validator.New()

// BlobSource serves artifacts kept in process memory.
type BlobSource interface {
	Get(id string) ([]byte, string, string, error)
}

// HistoryStore reads finished render jobs.
type HistoryStore interface {
	ListRenderJobs(ctx context.Context, limit, offset int) ([]db.RenderJob, error)
	GetRenderJob(ctx context.Context, id string) (*db.RenderJob, error)
}

type Handler struct {
	session   *session.Session
	blobs     BlobSource
	history   HistoryStore
	startedAt time.Time
}

// NewHandler wires the API to a session. blobs is nil when artifacts live in a
// remote bucket; history is nil when render history is not recorded.
func NewHandler(sess *session.Session, blobs BlobSource, history HistoryStore) *Handler {
	return &Handler{
		session:   sess,
		blobs:     blobs,
		history:   history,
		startedAt: time.Now(),
	}
}

// GetProject handles GET /v1/project
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.session.Get())
}

// PutProject handles PUT /v1/project
// Fields missing from the body take their default values.
func (h *Handler) PutProject(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxProjectBytes))
	if err != nil {
		respondError(w, http.StatusRequestEntityTooLarge, "Project body too large")
		return
	}

	state, err := project.Decode(raw)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	state, err = h.session.Replace(state)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

// SaveProject handles POST /v1/project/save
func (h *Handler) SaveProject(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Save(r.Context()); err != nil {
		log.Printf("[API] Failed to save project: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to save project")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"saved": true})
}

// LoadProject handles POST /v1/project/load
func (h *Handler) LoadProject(w http.ResponseWriter, r *http.Request) {
	state, found, err := h.session.Load(r.Context())
	if err != nil {
		log.Printf("[API] Failed to load project: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to load project")
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "No saved project")
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// ExportProject handles GET /v1/project/export
func (h *Handler) ExportProject(w http.ResponseWriter, r *http.Request) {
	data, name, err := h.session.Export()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondAttachment(w, "application/json", name, data)
}

// ImportProject handles POST /v1/project/import
func (h *Handler) ImportProject(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxProjectBytes))
	if err != nil {
		respondError(w, http.StatusRequestEntityTooLarge, "Project body too large")
		return
	}

	state, err := h.session.Import(raw)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// SelectTemplate handles POST /v1/project/template
func (h *Handler) SelectTemplate(w http.ResponseWriter, r *http.Request) {
	var req models.SelectTemplateRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	state, err := h.session.SelectTemplate(req.TemplateID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// CreateIdentityLock handles POST /v1/project/identity-lock
func (h *Handler) CreateIdentityLock(w http.ResponseWriter, r *http.Request) {
	var req models.IdentityLockRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	lock, err := h.session.CreateIdentityLock(req.PersonName)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, lock)
}

// SuggestLanguage handles GET /v1/project/language-suggestion
func (h *Handler) SuggestLanguage(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.session.SuggestLanguage())
}

// SuggestVoiceStyle handles GET /v1/project/voice-suggestion
// Query params:
//   - source: avatar (default) or product
func (h *Handler) SuggestVoiceStyle(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	switch source {
	case "", "avatar", "product":
	default:
		respondError(w, http.StatusBadRequest, "Invalid source. Allowed: avatar, product")
		return
	}

	suggestion, err := h.session.SuggestVoiceStyle(source)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, suggestion)
}

// ListScenes handles GET /v1/presets/scenes
func (h *Handler) ListScenes(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.session.Catalog().Scenes)
}

// ListTemplates handles GET /v1/presets/templates
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.session.Catalog().Templates)
}

// GetQueue handles GET /v1/queue
func (h *Handler) GetQueue(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.queueResponse())
}

// BuildQueue handles POST /v1/queue
// An empty body rebuilds the queue; {"append": true} adds a batch to it.
func (h *Handler) BuildQueue(w http.ResponseWriter, r *http.Request) {
	var req models.BuildQueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if _, err := h.session.BuildQueue(r.Context(), req.Append); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, h.queueResponse())
}

// StartQueue handles POST /v1/queue/start
func (h *Handler) StartQueue(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Start(); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, h.queueResponse())
}

// CancelQueue handles POST /v1/queue/cancel
func (h *Handler) CancelQueue(w http.ResponseWriter, r *http.Request) {
	h.session.Cancel()
	respondJSON(w, http.StatusAccepted, h.queueResponse())
}

// GetManifest handles GET /v1/queue/manifest
func (h *Handler) GetManifest(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.session.Manifest())
}

// GetQueueItem handles GET /v1/queue/{id}
func (h *Handler) GetQueueItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.session.Queue().Item(chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// GetRecipe handles GET /v1/queue/{id}/recipe
func (h *Handler) GetRecipe(w http.ResponseWriter, r *http.Request) {
	data, name, err := h.session.Queue().RecipeJSON(chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondAttachment(w, "application/json", name, data)
}

// GetShareQR handles GET /v1/queue/{id}/qr
// Renders a PNG QR code pointing at the item's artifact.
// Query params:
//   - size: edge length in pixels (default 256, 128 to 1024)
func (h *Handler) GetShareQR(w http.ResponseWriter, r *http.Request) {
	item, err := h.session.Queue().Item(chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if item.ArtifactURL == "" {
		respondError(w, http.StatusNotFound, "Item has no artifact yet")
		return
	}

	size := defaultQRSize
	if s := r.URL.Query().Get("size"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil {
			size = min(max(parsed, minQRSize), maxQRSize)
		}
	}

	png, err := qrcode.Encode(absoluteURL(r, item.ArtifactURL), qrcode.Medium, size)
	if err != nil {
		log.Printf("[API] Failed to encode QR for %s: %v", item.ID, err)
		respondError(w, http.StatusInternalServerError, "Failed to encode QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// GetBlob handles GET /v1/blobs/{id}
func (h *Handler) GetBlob(w http.ResponseWriter, r *http.Request) {
	if h.blobs == nil {
		respondError(w, http.StatusNotFound, "Artifacts are served from remote storage")
		return
	}

	data, contentType, name, err := h.blobs.Get(chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": name}))
	// ServeContent handles Range requests so video previews can seek.
	http.ServeContent(w, r, name, h.startedAt, bytes.NewReader(data))
}

// ListHistory handles GET /v1/history
// Query params:
//   - limit:  max results per page (default 20, max 100)
//   - offset: number of results to skip (default 0)
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, http.StatusNotFound, "Render history is disabled")
		return
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	jobs, err := h.history.ListRenderJobs(r.Context(), limit, offset)
	if err != nil {
		log.Printf("[API] Failed to list render history: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to list render history")
		return
	}

	respondJSON(w, http.StatusOK, historyResponse{
		Jobs:   jobs,
		Limit:  limit,
		Offset: offset,
	})
}

// GetHistoryJob handles GET /v1/history/{id}
func (h *Handler) GetHistoryJob(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, http.StatusNotFound, "Render history is disabled")
		return
	}

	job, err := h.history.GetRenderJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, job)
}

type historyResponse struct {
	Jobs   []db.RenderJob `json:"jobs"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

func (h *Handler) queueResponse() models.QueueResponse {
	q := h.session.Queue()
	return models.QueueResponse{
		Running: q.Running(),
		Items:   q.Items(),
	}
}

// Health check
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	q := h.session.Queue()
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	respondJSON(w, http.StatusOK, models.HealthResponse{
		Status:       "ok",
		UptimeSec:    int64(time.Since(h.startedAt).Seconds()),
		Goroutines:   runtime.NumGoroutine(),
		QueueRunning: q.Running(),
		QueueItems:   len(q.Items()),
		Host:         hostStats(ctx),
	})
}

// hostStats is best effort; fields the platform cannot report stay zero.
func hostStats(ctx context.Context) *models.HostStats {
	stats := &models.HostStats{}
	ok := false

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		stats.MemTotalBytes = vm.Total
		stats.MemAvailBytes = vm.Available
		stats.MemUsedPercent = vm.UsedPercent
		ok = true
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		stats.CPUs = n
		ok = true
	}
	if up, err := host.UptimeWithContext(ctx); err == nil {
		stats.HostUptimeSec = up
		ok = true
	}

	if !ok {
		return nil
	}
	return stats
}

func decodeRequest(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		respondServiceError(w, err)
		return false
	}
	return true
}

// respondServiceError maps domain errors onto HTTP status codes.
func respondServiceError(w http.ResponseWriter, err error) {
	var verr *project.ValidationError
	var cfgErr *orchestrator.ConfigError
	var fieldErrs validator.ValidationErrors

	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  err.Error(),
			"fields": verr.Fields,
		})
	case errors.As(err, &fieldErrs):
		fields := make(map[string]string, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields[fe.Field()] = fe.Tag()
		}
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  "Invalid request",
			"fields": fields,
		})
	case errors.As(err, &cfgErr):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, orchestrator.ErrRunning):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, orchestrator.ErrQueueFull),
		errors.Is(err, orchestrator.ErrEmptyQueue),
		errors.Is(err, session.ErrNoAvatar),
		errors.Is(err, session.ErrNoImage),
		errors.Is(err, project.ErrInvalidDocument):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, orchestrator.ErrItemNotFound),
		errors.Is(err, session.ErrTemplateNotFound),
		errors.Is(err, storage.ErrBlobNotFound),
		errors.Is(err, db.ErrRenderJobNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		log.Printf("[API] Request failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func respondAttachment(w http.ResponseWriter, contentType, name string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// absoluteURL resolves server-relative blob paths against the request host.
func absoluteURL(r *http.Request, u string) string {
	if !strings.HasPrefix(u, "/") {
		return u
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host + u
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
