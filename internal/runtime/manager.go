package runtime

import (
	"sync"

	"intake-script-engine/internal/models"
	"intake-script-engine/pkg/fault"
)

// Manager is the uuid-keyed registry of runs in progress. The live runs stay
// inside the manager; every method hands out a detached copy so a reader can
// never race a concurrent answer.
type Manager struct {
	runs  map[string]*Run
	mutex sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		runs: make(map[string]*Run),
	}
}

func (m *Manager) StartRun(scr models.Script) (*Run, error) {
	run, err := Start(scr)
	if err != nil {
		return nil, err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.runs[run.ID] = run
	return run.snapshot(), nil
}

func (m *Manager) GetRun(runID string) (*Run, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	run, exists := m.runs[runID]
	if !exists {
		return nil, fault.ErrNotFound
	}
	return run.snapshot(), nil
}

func (m *Manager) Answer(runID string, value string) (*Run, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	run, exists := m.runs[runID]
	if !exists {
		return nil, fault.ErrNotFound
	}
	if err := run.Answer(value); err != nil {
		return nil, err
	}
	return run.snapshot(), nil
}

func (m *Manager) Back(runID string) (*Run, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	run, exists := m.runs[runID]
	if !exists {
		return nil, fault.ErrNotFound
	}
	if err := run.Back(); err != nil {
		return nil, err
	}
	return run.snapshot(), nil
}

func (m *Manager) DeleteRun(runID string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.runs[runID]; !exists {
		return fault.ErrNotFound
	}
	delete(m.runs, runID)
	return nil
}
