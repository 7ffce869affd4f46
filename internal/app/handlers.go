package app

import (
	"errors"

	"github.com/m3rciful/formbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/formbot/core/telegram/helpers"
	"github.com/m3rciful/formbot/internal/conversation"
	"github.com/m3rciful/formbot/internal/locale"

	tele "gopkg.in/telebot.v4"
)

func (a *App) handleStart(c tele.Context) error {
	return a.engine.Start(tghelpers.BuildContext(c), tghelpers.ChatID(c), tghelpers.SenderID(c))
}

// menuMessageID is the message carrying the tapped button.
func menuMessageID(c tele.Context) int {
	if cb := c.Callback(); cb != nil && cb.Message != nil {
		return cb.Message.ID
	}
	return 0
}

func (a *App) handleField(c tele.Context) error {
	_ = c.Respond()
	return a.engine.BeginField(tghelpers.BuildContext(c), tghelpers.ChatID(c), menuMessageID(c), callbacks.CallbackPayload(c))
}

func (a *App) handleCancel(c tele.Context) error {
	_ = c.Respond()
	return a.engine.Cancel(tghelpers.BuildContext(c), tghelpers.ChatID(c), menuMessageID(c))
}

func (a *App) handleFinish(c tele.Context) error {
	_ = c.Respond()
	user := conversation.User{ID: tghelpers.SenderID(c)}
	if s := c.Sender(); s != nil {
		user.Username = s.Username
	}
	return a.engine.Finish(tghelpers.BuildContext(c), tghelpers.ChatID(c), user)
}

func (a *App) handleClear(c tele.Context) error {
	_ = c.Respond()
	return a.engine.Clear(tghelpers.BuildContext(c), tghelpers.ChatID(c), menuMessageID(c))
}

// inputFrom extracts a prompt answer from a text or photo message.
func inputFrom(c tele.Context) conversation.Input {
	msg := c.Message()
	if msg == nil {
		return conversation.Input{}
	}
	in := conversation.Input{MessageID: msg.ID, Text: msg.Text}
	// telebot keeps the largest size of a photo
	if msg.Photo != nil {
		in.PhotoFileID = msg.Photo.FileID
	}
	return in
}

func (a *App) handleInput(c tele.Context) error {
	err := a.engine.Capture(tghelpers.BuildContext(c), tghelpers.ChatID(c), inputFrom(c))
	if errors.Is(err, conversation.ErrNotAwaiting) {
		return nil
	}
	return err
}

// handleStrayInput answers text, photos and documents that no prompt waits for.
func (a *App) handleStrayInput(c tele.Context) error {
	if !tghelpers.IsPrivate(c) {
		return nil
	}
	return tghelpers.SendText(c, a.loc.MustLocalize(locale.UseMenu))
}

func (a *App) handleUnsupportedCallback(c tele.Context) error {
	return tghelpers.Notify(c, a.loc.MustLocalize(locale.UnsupportedAction))
}

func (a *App) handleRejected(c tele.Context) error {
	return tghelpers.SendText(c, a.loc.MustLocalize(locale.AccessDenied))
}

func (a *App) handleLimited(c tele.Context) error {
	return tghelpers.Notify(c, a.loc.MustLocalize(locale.RateLimited))
}
