package conversation

import (
	"context"
	"errors"
	"strings"

	"github.com/m3rciful/formbot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

// Transport is what the engine needs from the chat platform.
// Message ids are the platform's; menu is nil for messages without buttons.
type Transport interface {
	SendPhoto(ctx context.Context, chatID int64, path, caption string, menu [][]keyboard.InlineBtn) (int, error)
	SendText(ctx context.Context, chatID int64, text string, menu [][]keyboard.InlineBtn) (int, error)
	SendDocument(ctx context.Context, chatID int64, path, caption string) (int, error)
	// EditPhoto replaces the photo and buttons of msgID.
	EditPhoto(ctx context.Context, chatID int64, msgID int, path string, menu [][]keyboard.InlineBtn) error
	EditMenu(ctx context.Context, chatID int64, msgID int, menu [][]keyboard.InlineBtn) error
	Delete(ctx context.Context, chatID int64, msgID int) error
	// Download stores the file behind fileID at dst.
	Download(ctx context.Context, fileID, dst string) error
}

// ErrNotAttached is returned by a transport used before its bot exists.
var ErrNotAttached = errors.New("conversation: transport has no bot attached")

// IsNotModified reports whether err is Telegram refusing an edit that would
// not change the message.
func IsNotModified(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, tele.ErrSameMessageContent) || errors.Is(err, tele.ErrMessageNotModified) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "message is not modified")
}
