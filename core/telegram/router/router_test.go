package router

import (
	"errors"
	"testing"

	tg "github.com/m3rciful/formbot/core/telegram"
	"github.com/m3rciful/formbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

func newTestBot(t *testing.T) *tele.Bot {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Offline: true})
	if err != nil {
		t.Fatalf("offline bot: %v", err)
	}
	return b
}

type fakeFSM struct {
	pending map[int64]bool
	handled int
}

func (f *fakeFSM) InProgress(key int64) bool { return f.pending[key] }
func (f *fakeFSM) ManagerHandler(tele.Context) error {
	f.handled++
	return nil
}

func message(chatID int64, text string) tele.Update {
	return tele.Update{Message: &tele.Message{
		Text:   text,
		Sender: &tele.User{ID: chatID},
		Chat:   &tele.Chat{ID: chatID, Type: tele.ChatPrivate},
	}}
}

func TestTextRoutesPrefersPendingConversation(t *testing.T) {
	b := newTestBot(t)
	fsm := &fakeFSM{pending: map[int64]bool{1: true}}
	var unknown int
	routes := TextRoutes(fsm, TextOptions{UnknownText: func(tele.Context) error { unknown++; return nil }})
	if len(routes) != 3 || routes[0].Endpoint != tele.OnText || routes[1].Endpoint != tele.OnPhoto {
		t.Fatalf("routes = %+v", routes)
	}
	text := routes[0].Handler

	_ = text(b.NewContext(message(1, "42000")))
	_ = text(b.NewContext(message(2, "hello")))
	if fsm.handled != 1 || unknown != 1 {
		t.Fatalf("fsm=%d unknown=%d", fsm.handled, unknown)
	}
}

func TestTextRoutesPhotoWithoutConversation(t *testing.T) {
	b := newTestBot(t)
	var unknown int
	routes := TextRoutes(&fakeFSM{}, TextOptions{UnknownPhoto: func(tele.Context) error { unknown++; return nil }})
	upd := message(3, "")
	upd.Message.Photo = &tele.Photo{}
	_ = routes[1].Handler(b.NewContext(upd))
	if unknown != 1 {
		t.Fatalf("unknown photo handler ran %d times", unknown)
	}
}

func TestCallbackRouteDispatchesByUnique(t *testing.T) {
	b := newTestBot(t)
	reg := tg.NewRegistry()
	var got string
	_ = reg.RegisterCallback("form_field", func(c tele.Context) error {
		got = c.Callback().Data
		return nil
	})
	var missing int
	reg.SetCallbackNotFound(func(tele.Context) error { missing++; return nil })

	h := CallbackRoute(reg).Handler
	cb := func(data string) tele.Update {
		return tele.Update{Callback: &tele.Callback{
			Sender:  &tele.User{ID: 1},
			Data:    data,
			Message: &tele.Message{ID: 10, Chat: &tele.Chat{ID: 1, Type: tele.ChatPrivate}},
		}}
	}
	_ = h(b.NewContext(cb("\fform_field|Dollar")))
	if got != "\fform_field|Dollar" {
		t.Fatalf("handler saw %q", got)
	}
	_ = h(b.NewContext(cb("\fother|x")))
	if missing != 1 {
		t.Fatalf("not-found handler ran %d times", missing)
	}
}

func TestCommandRoutesGuardAdminCommands(t *testing.T) {
	b := newTestBot(t)
	reg := tg.NewRegistry()
	var ran int
	_ = reg.RegisterCommand("/add", commands.Command{Handler: func(tele.Context) error { ran++; return nil }, AdminOnly: true})
	routes := CommandRoutes(reg, CommandRouteOptions{IsAdmin: func(id int64) bool { return id == 1 }})
	if len(routes) != 1 || routes[0].Endpoint != "/add" {
		t.Fatalf("routes = %+v", routes)
	}
	_ = routes[0].Handler(b.NewContext(message(2, "/add 5")))
	_ = routes[0].Handler(b.NewContext(message(1, "/add 5")))
	if ran != 1 {
		t.Fatalf("ran = %d", ran)
	}
}

func TestErrorCode(t *testing.T) {
	if got := errorCode(errors.New("boom")); got != "INTERNAL" {
		t.Fatalf("plain = %q", got)
	}
	apiErr := &tele.Error{Code: 400, Description: "message not found"}
	if got := errorCode(apiErr); got != "TG_MESSAGE_NOT_FOUND" {
		t.Fatalf("api error = %q", got)
	}
}
