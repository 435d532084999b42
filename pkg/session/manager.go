package session

import (
	"sync"
	"time"

	"intake-script-engine/internal/models"
	"intake-script-engine/internal/script"
	"intake-script-engine/pkg/fault"

	"github.com/google/uuid"
)

// Manager owns the script-editing sessions. Mutations run under the write
// lock and every read hands out a deep copy, so the live script maps never
// leave the manager and a reader can never race an edit.
type Manager struct {
	sessions map[string]*models.Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*models.Session),
	}
}

func (m *Manager) CreateSession(name string, scr models.Script) *models.Session {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if scr == nil {
		scr = make(models.Script)
	}

	sessionID := uuid.New().String()
	session := &models.Session{
		ID:        sessionID,
		Name:      name,
		Script:    scr.Clone(),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	m.sessions[sessionID] = session
	return snapshotSession(session)
}

// GetSession returns a point-in-time copy of the session.
func (m *Manager) GetSession(sessionID string) (*models.Session, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return nil, fault.ErrNotFound
	}

	return snapshotSession(session), nil
}

func snapshotSession(session *models.Session) *models.Session {
	cp := *session
	cp.Script = session.Script.Clone()
	return &cp
}

func (m *Manager) DeleteSession(sessionID string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.sessions[sessionID]; !exists {
		return fault.ErrNotFound
	}

	delete(m.sessions, sessionID)
	return nil
}

// CreateQuestion inserts a fresh question stub into the session's script.
func (m *Manager) CreateQuestion(sessionID string) (models.Question, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return models.Question{}, fault.ErrNotFound
	}

	question := script.CreateQuestion(session.Script)
	session.UpdatedAt = time.Now()
	return question, nil
}

// UpdateQuestion validates and commits a candidate question. A non-empty
// error list means the script was not modified.
func (m *Manager) UpdateQuestion(sessionID, prevName string, candidate map[string]any) (models.Question, []string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return models.Question{}, nil, fault.ErrNotFound
	}

	question, errs, err := script.UpdateQuestion(session.Script, prevName, candidate)
	if err != nil {
		return models.Question{}, nil, err
	}
	if len(errs) > 0 {
		return models.Question{}, errs, nil
	}

	session.UpdatedAt = time.Now()
	return question.Clone(), nil, nil
}

func (m *Manager) RemoveQuestion(sessionID, name string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return fault.ErrNotFound
	}
	if !script.RemoveQuestion(session.Script, name) {
		return fault.ErrNotFound
	}

	session.UpdatedAt = time.Now()
	return nil
}

func (m *Manager) SetFirstQuestion(sessionID, name string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return fault.ErrNotFound
	}
	if err := script.SetFirstQuestion(session.Script, name); err != nil {
		return err
	}

	session.UpdatedAt = time.Now()
	return nil
}

func (m *Manager) AddTransition(sessionID string, t models.Transition) (models.Transition, []string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return models.Transition{}, nil, fault.ErrNotFound
	}

	added, errs := script.AddTransition(session.Script, t)
	if len(errs) > 0 {
		return models.Transition{}, errs, nil
	}

	session.UpdatedAt = time.Now()
	return added, nil, nil
}
