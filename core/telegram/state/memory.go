package state

import (
	"log/slog"
	"maps"
	"sync"

	"github.com/m3rciful/formbot/core/logger"
	tghelpers "github.com/m3rciful/formbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

type memoryManager struct {
	mu       sync.RWMutex
	sessions map[int64]*Session

	handlersMu sync.RWMutex
	handlers   map[State]tele.HandlerFunc
}

// NewMemoryManager constructs an in-memory Manager.
func NewMemoryManager() Manager {
	return &memoryManager{
		sessions: make(map[int64]*Session),
		handlers: make(map[State]tele.HandlerFunc),
	}
}

// session returns the session for key, creating it. Callers hold mu.
func (m *memoryManager) session(key int64) *Session {
	s, ok := m.sessions[key]
	if !ok {
		s = &Session{State: StateIdle, TempData: make(map[string]any)}
		m.sessions[key] = s
	}
	return s
}

func (m *memoryManager) SetState(key int64, st State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session(key).State = st
}

func (m *memoryManager) GetState(key int64) State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[key]; ok {
		return s.State
	}
	return StateIdle
}

func (m *memoryManager) HasState(key int64) bool {
	return m.GetState(key) != StateIdle
}

// ClearState resets the step to idle without dropping temporary data.
func (m *memoryManager) ClearState(key int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[key]; ok {
		s.State = StateIdle
	}
}

func (m *memoryManager) SetTemp(key int64, name string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session(key).TempData[name] = value
}

func (m *memoryManager) GetTemp(key int64, name string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[key]
	if !ok {
		return nil, false
	}
	v, ok := s.TempData[name]
	return v, ok
}

func (m *memoryManager) GetTempInt(key int64, name string) (int, bool) {
	v, ok := m.GetTemp(key, name)
	if !ok {
		return 0, false
	}
	n, ok := v.(int)
	return n, ok
}

func (m *memoryManager) GetTempString(key int64, name string) (string, bool) {
	v, ok := m.GetTemp(key, name)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (m *memoryManager) ClearTemp(key int64, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[key]; ok {
		delete(s.TempData, name)
	}
}

func (m *memoryManager) Snapshot(key int64) Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[key]
	if !ok {
		return Session{State: StateIdle, TempData: map[string]any{}}
	}
	return Session{State: s.State, TempData: maps.Clone(s.TempData)}
}

func (m *memoryManager) Clear(key int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, key)
}

func (m *memoryManager) Handle(st State, h tele.HandlerFunc) {
	m.handlersMu.Lock()
	defer m.handlersMu.Unlock()
	if h == nil {
		delete(m.handlers, st)
		return
	}
	m.handlers[st] = h
}

func (m *memoryManager) InProgress(key int64) bool {
	return m.HasState(key)
}

// ManagerHandler executes the handler registered for the chat's current state, if any.
func (m *memoryManager) ManagerHandler(c tele.Context) error {
	key := tghelpers.ChatID(c)
	current := m.GetState(key)
	ctx := tghelpers.BuildContext(c)
	logger.Debug(ctx, logger.CompTG, "fsm.dispatch",
		slog.String("status", "ok"),
		slog.String("state", string(current)),
	)

	m.handlersMu.RLock()
	h, ok := m.handlers[current]
	m.handlersMu.RUnlock()
	if ok {
		return h(c)
	}
	return nil
}
