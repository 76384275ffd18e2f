package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"variant-compiler/internal/compiler/models"
	"variant-compiler/internal/compiler/parser"
	"variant-compiler/internal/compiler/repository"
	"variant-compiler/internal/compiler/wizard"
)

var ErrSessionNotFound = errors.New("session not found")

// Store persists drafts and exported variants. *repository.Repository
// implements it.
type Store interface {
	SaveDraft(ctx context.Context, d repository.Draft) error
	GetDraft(ctx context.Context, id string) (*repository.Draft, error)
	DeleteDraft(ctx context.Context, id string) error
	SaveVariant(ctx context.Context, v repository.StoredVariant) error
}

// ============================================================
// Session Manager
// ============================================================

type entry struct {
	mu      sync.Mutex
	svg     string
	session *wizard.Session
}

// SessionManager owns the live wizard sessions. Each session is used by one
// caller at a time; the manager serializes access per session.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*entry
	loads    singleflight.Group
	opts     wizard.Options
	store    Store
}

// NewSessionManager builds a manager. store may be nil, in which case
// sessions live only in memory.
func NewSessionManager(opts wizard.Options, store Store) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*entry),
		opts:     opts,
		store:    store,
	}
}

// Create validates and parses svgText and opens a session over it.
func (m *SessionManager) Create(ctx context.Context, svgText string) (string, wizard.View, error) {
	parsed, err := parser.ParseSVG(strings.NewReader(svgText))
	if err != nil {
		return "", wizard.View{}, err
	}

	id := uuid.NewString()
	e := &entry{svg: svgText, session: wizard.NewSession(parsed, m.opts)}

	m.mu.Lock()
	m.sessions[id] = e
	m.mu.Unlock()

	log.Printf("[SESSIONS] Created %s: %d provinces, %d coasts, %d texts",
		id, len(parsed.ProvincePaths), len(parsed.CoastPaths), len(parsed.TextElements))

	if err := m.persist(ctx, id, e); err != nil {
		return "", wizard.View{}, err
	}
	return id, e.session.View(), nil
}

// Do runs fn with exclusive access to the session. Whatever fn journaled is
// persisted, even when fn stops part way with an error.
func (m *SessionManager) Do(ctx context.Context, id string, fn func(*wizard.Session) error) error {
	e, err := m.resolve(ctx, id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	before := len(e.session.Journal())
	fnErr := fn(e.session)
	if len(e.session.Journal()) == before {
		return fnErr
	}
	if err := m.persist(ctx, id, e); err != nil {
		return errors.Join(fnErr, err)
	}
	return fnErr
}

// View snapshots a session.
func (m *SessionManager) View(ctx context.Context, id string) (wizard.View, error) {
	var v wizard.View
	err := m.Do(ctx, id, func(s *wizard.Session) error {
		v = s.View()
		return nil
	})
	return v, err
}

// Export runs the export gate and stores the definition under a new
// variant id.
func (m *SessionManager) Export(ctx context.Context, id string) (string, *models.VariantDefinition, error) {
	var def *models.VariantDefinition
	err := m.Do(ctx, id, func(s *wizard.Session) error {
		var err error
		def, err = s.Export()
		return err
	})
	if err != nil {
		return "", nil, err
	}

	variantID := uuid.NewString()
	if m.store != nil {
		v := repository.StoredVariant{ID: variantID, SessionID: id, Name: def.Name, Definition: def}
		if err := m.store.SaveVariant(ctx, v); err != nil {
			return "", nil, err
		}
	}
	log.Printf("[SESSIONS] Exported %s as variant %s (%d provinces, %d coasts)",
		id, variantID, len(def.Provinces), len(def.NamedCoasts))
	return variantID, def, nil
}

// evict drops a session from memory. Its draft stays in the store and the
// next access restores it.
func (m *SessionManager) evict(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Delete discards a session and its stored draft. Exported variants are
// kept.
func (m *SessionManager) Delete(ctx context.Context, id string) error {
	e, err := m.resolve(ctx, id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	m.evict(id)
	if m.store != nil {
		if err := m.store.DeleteDraft(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
	}
	log.Printf("[SESSIONS] Deleted %s", id)
	return nil
}

// resolve finds a live session or restores it from the store. Restores run
// outside the manager lock, one per id.
func (m *SessionManager) resolve(ctx context.Context, id string) (*entry, error) {
	if e, ok := m.live(id); ok {
		return e, nil
	}
	if m.store == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	v, err, _ := m.loads.Do(id, func() (any, error) {
		if e, ok := m.live(id); ok {
			return e, nil
		}
		e, err := m.restore(ctx, id)
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		if cur, ok := m.sessions[id]; ok {
			return cur, nil
		}
		m.sessions[id] = e
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*entry), nil
}

func (m *SessionManager) live(id string) (*entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	return e, ok
}

func (m *SessionManager) restore(ctx context.Context, id string) (*entry, error) {
	d, err := m.store.GetDraft(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return nil, err
	}
	parsed, err := parser.ParseSVG(strings.NewReader(d.SVG))
	if err != nil {
		return nil, fmt.Errorf("reparse draft %s: %w", id, err)
	}
	s, err := wizard.Replay(parsed, m.opts, d.Journal)
	if err != nil {
		return nil, fmt.Errorf("restore draft %s: %w", id, err)
	}

	log.Printf("[SESSIONS] Restored %s from %d journaled steps", id, len(d.Journal))
	return &entry{svg: d.SVG, session: s}, nil
}

func (m *SessionManager) persist(ctx context.Context, id string, e *entry) error {
	if m.store == nil {
		return nil
	}
	d := repository.Draft{ID: id, SVG: e.svg, Journal: e.session.Journal(), Stage: e.session.Stage()}
	if err := m.store.SaveDraft(ctx, d); err != nil {
		log.Printf("[SESSIONS] Persist %s failed: %v", id, err)
		return err
	}
	return nil
}
