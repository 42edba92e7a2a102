// Package session owns the single live project of the service together with
// its store and render queue.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/bobarin/ugcstudio/internal/models"
	"github.com/bobarin/ugcstudio/internal/orchestrator"
	"github.com/bobarin/ugcstudio/internal/presets"
	"github.com/bobarin/ugcstudio/internal/project"
	"github.com/bobarin/ugcstudio/internal/store"
)

var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrNoAvatar         = errors.New("no avatar uploaded")
	ErrNoImage          = errors.New("no image to analyse")
)

type Session struct {
	mu    sync.RWMutex
	state models.ProjectState

	kv      store.KV
	orch    *orchestrator.Orchestrator
	catalog *presets.Catalog
	now     func() time.Time
}

func New(kv store.KV, orch *orchestrator.Orchestrator, catalog *presets.Catalog) *Session {
	if catalog == nil {
		catalog = presets.Default()
	}
	return &Session{
		state:   project.Defaults(),
		kv:      kv,
		orch:    orch,
		catalog: catalog,
		now:     time.Now,
	}
}

func (s *Session) Get() models.ProjectState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) Catalog() *presets.Catalog {
	return s.catalog
}

func (s *Session) Queue() *orchestrator.Orchestrator {
	return s.orch
}

// Replace normalizes and validates state, then makes it the live project.
// An invalid state leaves the live project unchanged.
func (s *Session) Replace(state models.ProjectState) (models.ProjectState, error) {
	state = project.Normalize(state)
	if err := project.Validate(state); err != nil {
		return models.ProjectState{}, err
	}
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	return state, nil
}

// Save persists the live project.
func (s *Session) Save(ctx context.Context) error {
	return store.SaveProject(ctx, s.kv, s.Get())
}

// Load replaces the live project with the stored one. found is false when
// nothing has been saved yet.
func (s *Session) Load(ctx context.Context) (models.ProjectState, bool, error) {
	state, found, err := store.LoadProject(ctx, s.kv)
	if err != nil || !found {
		return models.ProjectState{}, found, err
	}
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	log.Printf("[Session] Loaded project %q", state.ProjectName)
	return state, true, nil
}

// Export returns the live project as JSON with a file name for download.
func (s *Session) Export() ([]byte, string, error) {
	state := s.Get()
	data, err := project.Export(state)
	if err != nil {
		return nil, "", err
	}
	return data, state.ProjectName + ".json", nil
}

// Import parses an exported project and makes it live. A document that does
// not parse or validate leaves the live project untouched.
func (s *Session) Import(raw []byte) (models.ProjectState, error) {
	state, err := project.Import(raw)
	if err != nil {
		return models.ProjectState{}, err
	}
	return s.Replace(state)
}

// SelectTemplate sets the script to the template body.
func (s *Session) SelectTemplate(id string) (models.ProjectState, error) {
	tpl, ok := s.catalog.Template(id)
	if !ok {
		return models.ProjectState{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SelectedTemplateID = tpl.ID
	s.state.Script = tpl.Body
	return s.state, nil
}

// CreateIdentityLock binds the current avatar to a consenting person's name.
func (s *Session) CreateIdentityLock(personName string) (models.IdentityLock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Avatar == nil || s.state.Avatar.DataURL == "" {
		return models.IdentityLock{}, ErrNoAvatar
	}
	lock := project.NewIdentityLock(personName, *s.state.Avatar, s.now())
	s.state.IdentityLock = &lock
	return lock, nil
}

func (s *Session) SuggestLanguage() models.LanguageSuggestion {
	return project.DetectLanguage(s.Get().Script)
}

// SuggestVoiceStyle analyses the avatar, or the product image when source is "product".
func (s *Session) SuggestVoiceStyle(source string) (*models.VoiceStyleSuggestion, error) {
	state := s.Get()
	asset := state.Avatar
	if source == "product" {
		asset = state.ProductImage
	}
	img, err := project.DecodeImage(asset)
	if err != nil {
		if errors.Is(err, project.ErrNoAsset) {
			return nil, ErrNoImage
		}
		return nil, err
	}
	suggestion := project.SuggestVoiceStyle(img)
	if suggestion == nil {
		return nil, ErrNoImage
	}
	return suggestion, nil
}

func (s *Session) BuildQueue(ctx context.Context, appendItems bool) ([]models.QueueItem, error) {
	return s.orch.BuildQueue(ctx, s.Get(), appendItems)
}

func (s *Session) Start() error {
	return s.orch.Start(s.Get())
}

func (s *Session) Cancel() {
	s.orch.Cancel()
}

func (s *Session) Manifest() models.Manifest {
	return s.orch.Manifest(s.Get().ProjectName, s.now())
}

// Close stops rendering and frees every artifact of the session.
func (s *Session) Close(ctx context.Context) error {
	return s.orch.Close(ctx)
}
