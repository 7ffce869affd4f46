// Package conversation drives the form: the menu message, the per-field
// prompt and capture steps, and the finish and clear actions.
//
// A field edit moves a chat through
//
//	idle -> awaiting input -> stored -> re-rendered -> idle
//
// with cancel possible while awaiting. The awaiting step lives in a
// state.Manager, so a restart drops open prompts while the persisted menu
// stays usable.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/m3rciful/formbot/core/logger"
	"github.com/m3rciful/formbot/core/telegram/keyboard"
	"github.com/m3rciful/formbot/core/telegram/state"
	"github.com/m3rciful/formbot/internal/form"
	"github.com/m3rciful/formbot/internal/locale"
	"github.com/m3rciful/formbot/internal/render"
	"github.com/m3rciful/formbot/internal/session"
)

// StateAwaiting marks a chat whose field prompt is open.
const StateAwaiting state.State = "form.awaiting"

const (
	tempField  = "field"
	tempPrompt = "prompt_id"
	tempMenu   = "menu_id"
)

// ErrNotAwaiting is returned by Capture when no prompt is open in the chat.
var ErrNotAwaiting = errors.New("conversation: no field is awaiting input")

// Input is a user message answering a prompt.
type Input struct {
	MessageID int
	Text      string
	// PhotoFileID is the largest size of an attached photo.
	PhotoFileID string
}

// User identifies who finished a form.
type User struct {
	ID       int64
	Username string
}

// Options configures an Engine.
type Options struct {
	Definition form.Definition
	Store      session.Store
	Renderer   render.Renderer
	FSM        state.Manager
	Transport  Transport
	Localizer  locale.Localizer

	// OutputDir holds rendered artifacts; ImagesDir holds downloaded photos.
	OutputDir string
	ImagesDir string
	// WorkDir is the renderer's working directory. When set, the template,
	// OutputDir and ImagesDir resolve against it.
	WorkDir string
	// BroadcastChatID receives a copy of every finished document; 0 disables it.
	BroadcastChatID int64
}

// Engine runs form conversations for one product.
type Engine struct {
	def       form.Definition
	store     session.Store
	renderer  render.Renderer
	fsm       state.Manager
	tr        Transport
	loc       locale.Localizer
	labels    form.MenuLabels
	outputDir string
	imagesDir string
	broadcast int64
}

// New validates opts and builds an Engine.
func New(opts Options) (*Engine, error) {
	if err := opts.Definition.Validate(); err != nil {
		return nil, err
	}
	switch {
	case opts.Store == nil:
		return nil, errors.New("conversation: nil session store")
	case opts.Renderer == nil:
		return nil, errors.New("conversation: nil renderer")
	case opts.FSM == nil:
		return nil, errors.New("conversation: nil state manager")
	case opts.Transport == nil:
		return nil, errors.New("conversation: nil transport")
	case opts.Localizer == nil:
		return nil, errors.New("conversation: nil localizer")
	}
	def := opts.Definition
	def.Template = render.ResolvePath(opts.WorkDir, def.Template)
	return &Engine{
		def:      def,
		store:    opts.Store,
		renderer: opts.Renderer,
		fsm:      opts.FSM,
		tr:       opts.Transport,
		loc:      opts.Localizer,
		labels: form.MenuLabels{
			Finish: opts.Localizer.MustLocalize(locale.ButtonFinish),
			Clear:  opts.Localizer.MustLocalize(locale.ButtonClear),
			Cancel: opts.Localizer.MustLocalize(locale.ButtonCancel),
		},
		outputDir: render.ResolvePath(opts.WorkDir, opts.OutputDir),
		imagesDir: render.ResolvePath(opts.WorkDir, opts.ImagesDir),
		broadcast: opts.BroadcastChatID,
	}, nil
}

// Definition returns the form the engine drives.
func (e *Engine) Definition() form.Definition { return e.def }

// Menu builds the menu for values with the engine's labels.
func (e *Engine) Menu(values form.Values) [][]keyboard.InlineBtn {
	return form.BuildMenu(e.def, values, e.labels)
}

// Awaiting reports whether chatID has an open prompt.
func (e *Engine) Awaiting(chatID int64) bool {
	return e.fsm.GetState(chatID) == StateAwaiting
}

// Start sends the template photo with the menu for the stored values and
// makes it the chat's main message.
func (e *Engine) Start(ctx context.Context, chatID, userID int64) error {
	e.halt(ctx, chatID, 0)

	s, err := e.store.Get(ctx, chatID)
	if err != nil {
		return err
	}
	s.OutputPath = e.def.OutputPath(e.outputDir, userID)

	msgID, err := e.tr.SendPhoto(ctx, chatID, e.def.Template, "", e.Menu(s.Fields))
	if err != nil {
		return fmt.Errorf("conversation: send menu: %w", err)
	}
	s.MainMessageID = msgID
	if err := e.store.Set(ctx, chatID, s); err != nil {
		return err
	}
	logger.Info(ctx, logger.CompForm, "form.start",
		slog.String("product", e.def.Product),
		slog.Int("menu_id", msgID),
		slog.Int("filled", len(s.Fields)),
	)
	return nil
}

// BeginField opens the prompt for field and swaps the menu on menuMsgID for
// a single cancel button. An open prompt in the chat is closed first.
func (e *Engine) BeginField(ctx context.Context, chatID int64, menuMsgID int, field string) error {
	f, err := e.def.Field(field)
	if err != nil {
		return err
	}
	e.halt(ctx, chatID, menuMsgID)

	promptID, err := e.tr.SendText(ctx, chatID, f.Prompt, nil)
	if err != nil {
		return fmt.Errorf("conversation: send prompt: %w", err)
	}
	if err := e.tr.EditMenu(ctx, chatID, menuMsgID, form.CancelMenu(f.Name, e.labels)); err != nil && !IsNotModified(err) {
		logger.Warn(ctx, logger.CompForm, "form.menu.edit_failed", slog.Int("menu_id", menuMsgID), logger.Err(err))
	}

	e.fsm.SetState(chatID, StateAwaiting)
	e.fsm.SetTemp(chatID, tempField, f.Name)
	e.fsm.SetTemp(chatID, tempPrompt, promptID)
	e.fsm.SetTemp(chatID, tempMenu, menuMsgID)
	logger.Debug(ctx, logger.CompForm, "form.field.prompt",
		slog.String("field", f.Name),
		slog.String("kind", string(f.Kind)),
	)
	return nil
}

// Capture stores in as the value of the open field, re-renders the
// artifact and restores the menu. Inputs of the wrong kind are ignored and
// the prompt stays open.
func (e *Engine) Capture(ctx context.Context, chatID int64, in Input) error {
	if !e.Awaiting(chatID) {
		return ErrNotAwaiting
	}
	name, _ := e.fsm.GetTempString(chatID, tempField)
	f, err := e.def.Field(name)
	if err != nil {
		e.fsm.Clear(chatID)
		return err
	}

	var value string
	switch {
	case f.Kind == form.KindPhoto && in.PhotoFileID != "":
		value, err = e.download(ctx, chatID, in.PhotoFileID)
		if err != nil {
			logger.Warn(ctx, logger.CompForm, "form.photo.download_failed", slog.String("field", f.Name), logger.Err(err))
			e.notice(ctx, chatID, locale.DownloadFailed)
			e.abort(ctx, chatID)
			return nil
		}
	case f.Kind == form.KindText && in.PhotoFileID == "":
		value = strings.TrimSpace(in.Text)
		if value == "" {
			e.notice(ctx, chatID, locale.EmptyValue)
			return nil
		}
	default:
		logger.Debug(ctx, logger.CompForm, "form.input.ignored",
			slog.String("field", f.Name),
			slog.String("kind", string(f.Kind)),
			slog.Bool("photo", in.PhotoFileID != ""),
		)
		if f.Kind == form.KindPhoto {
			e.notice(ctx, chatID, locale.NoPhoto)
		}
		return nil
	}

	if in.MessageID != 0 {
		e.deleteQuietly(ctx, chatID, in.MessageID)
	}

	s, err := e.store.Get(ctx, chatID)
	if err != nil {
		return err
	}
	if s.Fields == nil {
		s.Fields = form.Values{}
	}
	if err := s.Fields.Set(f.Name, value); err != nil {
		return err
	}
	if f.Script != "" {
		s.Variant = f.Name
	}
	if err := e.store.Set(ctx, chatID, s); err != nil {
		return err
	}

	menuID := e.closePrompt(ctx, chatID)
	if menuID == 0 {
		menuID = s.MainMessageID
	}
	logger.Info(ctx, logger.CompForm, "form.field.captured",
		slog.String("field", f.Name),
		slog.Int("len", len(value)),
	)
	return e.refresh(ctx, chatID, menuID, s)
}

// Cancel closes the open prompt without storing anything and restores the
// menu on menuMsgID from the unchanged session. A cancel button whose prompt
// is gone, e.g. after a restart, gets an expiry notice.
func (e *Engine) Cancel(ctx context.Context, chatID int64, menuMsgID int) error {
	field, _ := e.fsm.GetTempString(chatID, tempField)
	if e.Awaiting(chatID) {
		if id := e.closePrompt(ctx, chatID); menuMsgID == 0 {
			menuMsgID = id
		}
	} else {
		e.notice(ctx, chatID, locale.PromptExpired)
	}
	s, err := e.store.Get(ctx, chatID)
	if err != nil {
		return err
	}
	if err := e.editMenu(ctx, chatID, menuMsgID, s.Fields); err != nil {
		return err
	}
	logger.Debug(ctx, logger.CompForm, "form.field.cancel", slog.String("field", field))
	return nil
}

// Finish renders the latest values and sends the artifact to the user and,
// when configured, to the broadcast chat. The two sends do not depend on
// each other; failures are logged.
func (e *Engine) Finish(ctx context.Context, chatID int64, user User) error {
	e.halt(ctx, chatID, 0)

	s, err := e.store.Get(ctx, chatID)
	if err != nil {
		return err
	}
	if s.OutputPath == "" {
		s.OutputPath = e.def.OutputPath(e.outputDir, user.ID)
	}
	path := s.OutputPath
	if out, err := e.render(ctx, chatID, s); err == nil {
		path = out
	}

	var (
		g     errgroup.Group
		docID int
	)
	g.Go(func() error {
		id, err := e.tr.SendDocument(ctx, chatID, path, e.loc.MustLocalize(locale.DocumentCaption))
		if err != nil {
			logger.Error(ctx, logger.CompForm, "form.finish.send_failed", slog.String("to", "user"), logger.Err(err))
			return nil
		}
		docID = id
		return nil
	})
	if e.broadcast != 0 {
		caption := e.loc.MustLocalizeWithTemplate(locale.BroadcastCaption, user.Username, strconv.FormatInt(user.ID, 10))
		g.Go(func() error {
			if _, err := e.tr.SendDocument(ctx, e.broadcast, path, caption); err != nil {
				logger.Error(ctx, logger.CompForm, "form.finish.send_failed", slog.String("to", "broadcast"), logger.Err(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	if docID != 0 {
		s.SentDocMsgIDs = append(s.SentDocMsgIDs, docID)
	}
	if err := e.store.Set(ctx, chatID, s); err != nil {
		return err
	}
	logger.Info(ctx, logger.CompForm, "form.finish",
		slog.String("product", e.def.Product),
		slog.Bool("delivered", docID != 0),
		slog.Bool("broadcast", e.broadcast != 0),
	)
	return nil
}

// Clear deletes the sent documents, empties the form and puts the template
// photo and the empty menu back on menuMsgID.
func (e *Engine) Clear(ctx context.Context, chatID int64, menuMsgID int) error {
	e.halt(ctx, chatID, 0)

	s, err := e.store.Get(ctx, chatID)
	if err != nil {
		return err
	}
	for _, id := range s.SentDocMsgIDs {
		e.deleteQuietly(ctx, chatID, id)
	}
	if err := e.store.Reset(ctx, chatID); err != nil {
		return err
	}
	if menuMsgID == 0 {
		menuMsgID = s.MainMessageID
	}
	if menuMsgID != 0 {
		if err := e.tr.EditPhoto(ctx, chatID, menuMsgID, e.def.Template, e.Menu(nil)); err != nil && !IsNotModified(err) {
			return fmt.Errorf("conversation: restore template: %w", err)
		}
	}
	logger.Info(ctx, logger.CompForm, "form.clear",
		slog.String("product", e.def.Product),
		slog.Int("deleted_docs", len(s.SentDocMsgIDs)),
	)
	return nil
}

// refresh renders s and shows the result with the rebuilt menu. A failed
// render keeps the previous photo.
func (e *Engine) refresh(ctx context.Context, chatID int64, menuID int, s session.Session) error {
	path, err := e.render(ctx, chatID, s)
	if err != nil {
		return e.editMenu(ctx, chatID, menuID, s.Fields)
	}
	if err := e.tr.EditPhoto(ctx, chatID, menuID, path, e.Menu(s.Fields)); err != nil && !IsNotModified(err) {
		return fmt.Errorf("conversation: update photo: %w", err)
	}
	return nil
}

func (e *Engine) render(ctx context.Context, chatID int64, s session.Session) (string, error) {
	out := s.OutputPath
	if out == "" {
		// private chats share their id with the user
		out = e.def.OutputPath(e.outputDir, chatID)
	}
	req, err := render.BuildRequest(e.def, s.Fields, s.Variant, out)
	if err == nil {
		var path string
		if path, err = e.renderer.Render(ctx, req); err == nil {
			return path, nil
		}
	}
	attrs := []slog.Attr{slog.String("product", e.def.Product), logger.Err(err)}
	var rerr *render.Error
	if errors.As(err, &rerr) {
		attrs = append(attrs,
			slog.Int("exit_code", rerr.ExitCode),
			slog.String("stderr", logger.SanitizeLimit(rerr.Stderr, 1024)),
		)
	}
	logger.Error(ctx, logger.CompRender, "render.failed", attrs...)
	return "", err
}

func (e *Engine) editMenu(ctx context.Context, chatID int64, msgID int, values form.Values) error {
	if msgID == 0 {
		return nil
	}
	if err := e.tr.EditMenu(ctx, chatID, msgID, e.Menu(values)); err != nil && !IsNotModified(err) {
		return fmt.Errorf("conversation: restore menu: %w", err)
	}
	return nil
}

// closePrompt deletes the open prompt, drops the pending state and returns
// the menu message it belonged to.
func (e *Engine) closePrompt(ctx context.Context, chatID int64) int {
	if id, ok := e.fsm.GetTempInt(chatID, tempPrompt); ok {
		e.deleteQuietly(ctx, chatID, id)
	}
	menuID, _ := e.fsm.GetTempInt(chatID, tempMenu)
	e.fsm.Clear(chatID)
	return menuID
}

// halt closes an open prompt. When it belonged to a different menu message
// than next, that message gets its menu back.
func (e *Engine) halt(ctx context.Context, chatID int64, next int) {
	if !e.Awaiting(chatID) {
		return
	}
	field, _ := e.fsm.GetTempString(chatID, tempField)
	menuID := e.closePrompt(ctx, chatID)
	logger.Debug(ctx, logger.CompForm, "form.field.halted", slog.String("field", field))
	if menuID == 0 || menuID == next {
		return
	}
	s, err := e.store.Get(ctx, chatID)
	if err != nil {
		return
	}
	if err := e.editMenu(ctx, chatID, menuID, s.Fields); err != nil {
		logger.Debug(ctx, logger.CompForm, "form.menu.restore_failed", logger.Err(err))
	}
}

// abort closes the prompt after a failed input and restores the menu.
func (e *Engine) abort(ctx context.Context, chatID int64) {
	menuID := e.closePrompt(ctx, chatID)
	s, err := e.store.Get(ctx, chatID)
	if err != nil {
		return
	}
	if menuID == 0 {
		menuID = s.MainMessageID
	}
	if err := e.editMenu(ctx, chatID, menuID, s.Fields); err != nil {
		logger.Debug(ctx, logger.CompForm, "form.menu.restore_failed", logger.Err(err))
	}
}

func (e *Engine) download(ctx context.Context, chatID int64, fileID string) (string, error) {
	dst := filepath.Join(e.imagesDir, "image_"+strconv.FormatInt(chatID, 10)+".jpg")
	if err := e.tr.Download(ctx, fileID, dst); err != nil {
		return "", err
	}
	return dst, nil
}

func (e *Engine) notice(ctx context.Context, chatID int64, key string) {
	if _, err := e.tr.SendText(ctx, chatID, e.loc.MustLocalize(key), nil); err != nil {
		logger.Debug(ctx, logger.CompForm, "form.notice.failed", slog.String("key", key), logger.Err(err))
	}
}

func (e *Engine) deleteQuietly(ctx context.Context, chatID int64, msgID int) {
	if err := e.tr.Delete(ctx, chatID, msgID); err != nil {
		logger.Debug(ctx, logger.CompForm, "form.delete.ignored", slog.Int("msg_id", msgID), logger.Err(err))
	}
}
