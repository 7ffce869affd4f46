package conversation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/m3rciful/formbot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

// BotAPI is the subset of *tele.Bot the telebot transport uses.
type BotAPI interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
	EditReplyMarkup(msg tele.Editable, markup *tele.ReplyMarkup) (*tele.Message, error)
	Delete(msg tele.Editable) error
	Download(file *tele.File, localFilename string) error
}

// TelebotTransport implements Transport over telebot. The bot is attached
// once it exists, before updates are processed.
type TelebotTransport struct {
	mu  sync.RWMutex
	bot BotAPI
}

// NewTelebotTransport returns a transport with no bot attached.
func NewTelebotTransport() *TelebotTransport {
	return &TelebotTransport{}
}

// Attach sets the bot used for every call.
func (t *TelebotTransport) Attach(b BotAPI) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bot = b
}

func (t *TelebotTransport) api() (BotAPI, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.bot == nil {
		return nil, ErrNotAttached
	}
	return t.bot, nil
}

func stored(chatID int64, msgID int) tele.StoredMessage {
	return tele.StoredMessage{MessageID: strconv.Itoa(msgID), ChatID: chatID}
}

func markup(menu [][]keyboard.InlineBtn) *tele.ReplyMarkup {
	if menu == nil {
		return nil
	}
	return keyboard.InlineButtonsRows(menu...)
}

func (t *TelebotTransport) send(chatID int64, what any, menu [][]keyboard.InlineBtn) (int, error) {
	b, err := t.api()
	if err != nil {
		return 0, err
	}
	var opts []any
	if rm := markup(menu); rm != nil {
		opts = append(opts, rm)
	}
	msg, err := b.Send(tele.ChatID(chatID), what, opts...)
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

// SendPhoto implements Transport.
func (t *TelebotTransport) SendPhoto(_ context.Context, chatID int64, path, caption string, menu [][]keyboard.InlineBtn) (int, error) {
	return t.send(chatID, &tele.Photo{File: tele.FromDisk(path), Caption: caption}, menu)
}

// SendText implements Transport.
func (t *TelebotTransport) SendText(_ context.Context, chatID int64, text string, menu [][]keyboard.InlineBtn) (int, error) {
	return t.send(chatID, text, menu)
}

// SendDocument implements Transport.
func (t *TelebotTransport) SendDocument(_ context.Context, chatID int64, path, caption string) (int, error) {
	doc := &tele.Document{File: tele.FromDisk(path), FileName: filepath.Base(path), Caption: caption}
	return t.send(chatID, doc, nil)
}

// EditPhoto implements Transport.
func (t *TelebotTransport) EditPhoto(_ context.Context, chatID int64, msgID int, path string, menu [][]keyboard.InlineBtn) error {
	b, err := t.api()
	if err != nil {
		return err
	}
	var opts []any
	if rm := markup(menu); rm != nil {
		opts = append(opts, rm)
	}
	_, err = b.Edit(stored(chatID, msgID), &tele.Photo{File: tele.FromDisk(path)}, opts...)
	return err
}

// EditMenu implements Transport.
func (t *TelebotTransport) EditMenu(_ context.Context, chatID int64, msgID int, menu [][]keyboard.InlineBtn) error {
	b, err := t.api()
	if err != nil {
		return err
	}
	_, err = b.EditReplyMarkup(stored(chatID, msgID), markup(menu))
	return err
}

// Delete implements Transport.
func (t *TelebotTransport) Delete(_ context.Context, chatID int64, msgID int) error {
	b, err := t.api()
	if err != nil {
		return err
	}
	return b.Delete(stored(chatID, msgID))
}

// Download implements Transport. The file is written next to dst and
// renamed into place.
func (t *TelebotTransport) Download(_ context.Context, fileID, dst string) error {
	b, err := t.api()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(dst); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("conversation: create images dir: %w", err)
		}
	}
	tmp := dst + "." + uuid.NewString() + ".part"
	if err := b.Download(&tele.File{FileID: fileID}, tmp); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("conversation: store photo: %w", err)
	}
	return nil
}
