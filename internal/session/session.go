// Package session stores the per-chat form state: field values and the
// bookkeeping needed to edit the menu message and clean up sent documents.
package session

import (
	"context"
	"errors"
	"slices"

	"github.com/m3rciful/formbot/internal/form"
)

// ErrUnsupportedDriver is returned by Open for unknown storage drivers.
var ErrUnsupportedDriver = errors.New("session: unsupported storage driver")

// Session is the state of one chat. Fields only ever hold trimmed user
// input; renderer defaults are applied at render time.
type Session struct {
	Fields        form.Values `json:"fields"`
	MainMessageID int         `json:"main_message_id"`
	OutputPath    string      `json:"output_path"`
	SentDocMsgIDs []int       `json:"sent_doc_msg_ids"`
	// Variant is the last edited field that carries its own renderer script.
	Variant string `json:"variant,omitempty"`
}

// Clone returns a deep copy.
func (s Session) Clone() Session {
	s.Fields = s.Fields.Clone()
	s.SentDocMsgIDs = slices.Clone(s.SentDocMsgIDs)
	return s
}

// ClearForm empties the fields, the sent document list and the variant.
// OutputPath and MainMessageID are kept.
func (s *Session) ClearForm() {
	s.Fields = form.Values{}
	s.SentDocMsgIDs = nil
	s.Variant = ""
}

// Store persists sessions by chat id.
type Store interface {
	// Get returns the stored session or a zero one when none exists.
	Get(ctx context.Context, chatID int64) (Session, error)
	Set(ctx context.Context, chatID int64, s Session) error
	// Reset applies ClearForm to the stored session and persists it.
	Reset(ctx context.Context, chatID int64) error
}

func normalize(s Session) Session {
	if s.Fields == nil {
		s.Fields = form.Values{}
	}
	return s
}

func resetVia(ctx context.Context, st Store, chatID int64) error {
	s, err := st.Get(ctx, chatID)
	if err != nil {
		return err
	}
	s.ClearForm()
	return st.Set(ctx, chatID, s)
}
