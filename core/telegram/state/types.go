package state

import tele "gopkg.in/telebot.v4"

// State identifies a finite-state-machine step used in conversations.
type State string

const (
	// StateIdle indicates there is no active conversation in the chat.
	StateIdle State = "idle"
)

// Session stores conversation state and temporary data for a chat.
type Session struct {
	State    State
	TempData map[string]any
}

// Manager orchestrates chat sessions and FSM state transitions.
// Keys are chat ids.
type Manager interface {
	SetState(key int64, st State)
	GetState(key int64) State
	HasState(key int64) bool
	ClearState(key int64)

	SetTemp(key int64, name string, value any)
	GetTemp(key int64, name string) (any, bool)
	GetTempInt(key int64, name string) (int, bool)
	GetTempString(key int64, name string) (string, bool)
	ClearTemp(key int64, name string)
	// Snapshot returns a copy of the chat session.
	Snapshot(key int64) Session
	Clear(key int64)

	// Handle binds a handler to a state; ManagerHandler dispatches to it.
	Handle(st State, h tele.HandlerFunc)
	InProgress(key int64) bool
	ManagerHandler(c tele.Context) error
}
