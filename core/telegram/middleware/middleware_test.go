package middleware

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

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

func textUpdate(id int, userID, chatID int64, chatType tele.ChatType) tele.Update {
	return tele.Update{
		ID: id,
		Message: &tele.Message{
			ID:     id,
			Text:   "hello",
			Sender: &tele.User{ID: userID},
			Chat:   &tele.Chat{ID: chatID, Type: chatType},
		},
	}
}

func TestAccessMiddleware(t *testing.T) {
	b := newTestBot(t)
	allowed := map[int64]bool{1: true}

	var passed, rejected int
	mw := AccessMiddleware(AccessOptions{
		Allow:    func(id int64) bool { return allowed[id] },
		OnReject: func(tele.Context) error { rejected++; return nil },
	})
	h := mw(func(tele.Context) error { passed++; return nil })

	_ = h(b.NewContext(textUpdate(1, 1, 1, tele.ChatPrivate)))
	if passed != 1 || rejected != 0 {
		t.Fatalf("allowed user: passed=%d rejected=%d", passed, rejected)
	}

	_ = h(b.NewContext(textUpdate(2, 2, 2, tele.ChatPrivate)))
	if passed != 1 || rejected != 1 {
		t.Fatalf("private reject: passed=%d rejected=%d", passed, rejected)
	}

	_ = h(b.NewContext(textUpdate(3, 2, -100, tele.ChatSuperGroup)))
	if passed != 1 || rejected != 1 {
		t.Fatalf("group reject must stay silent: passed=%d rejected=%d", passed, rejected)
	}

	noSender := tele.Update{ID: 4, Message: &tele.Message{Chat: &tele.Chat{ID: -100, Type: tele.ChatChannel}}}
	_ = h(b.NewContext(noSender))
	if passed != 1 || rejected != 1 {
		t.Fatalf("no sender: passed=%d rejected=%d", passed, rejected)
	}
}

func TestAccessMiddlewareReplyInGroups(t *testing.T) {
	b := newTestBot(t)
	var rejected int
	mw := AccessMiddleware(AccessOptions{
		Allow:         func(int64) bool { return false },
		OnReject:      func(tele.Context) error { rejected++; return nil },
		ReplyInGroups: true,
	})
	_ = mw(func(tele.Context) error { return nil })(b.NewContext(textUpdate(1, 2, -100, tele.ChatGroup)))
	if rejected != 1 {
		t.Fatalf("rejected = %d", rejected)
	}
}

func TestAdminOnlyMiddleware(t *testing.T) {
	b := newTestBot(t)
	var ran int
	h := AdminOnlyMiddleware(AdminOptions{IsAdmin: func(id int64) bool { return id == 7 }})(
		func(tele.Context) error { ran++; return nil })

	_ = h(b.NewContext(textUpdate(1, 8, 8, tele.ChatPrivate)))
	_ = h(b.NewContext(textUpdate(2, 7, 7, tele.ChatPrivate)))
	if ran != 1 {
		t.Fatalf("ran = %d, want 1", ran)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	b := newTestBot(t)
	var ran, limited int
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Hour,
		Burst:     1,
		Exclude:   map[string]struct{}{"callback": {}},
		OnLimited: func(tele.Context) error { limited++; return nil },
	})
	h := mw(func(tele.Context) error { ran++; return nil })

	_ = h(b.NewContext(textUpdate(1, 5, 5, tele.ChatPrivate)))
	_ = h(b.NewContext(textUpdate(2, 5, 5, tele.ChatPrivate)))
	_ = h(b.NewContext(textUpdate(3, 6, 6, tele.ChatPrivate)))
	if ran != 2 || limited != 1 {
		t.Fatalf("ran=%d limited=%d", ran, limited)
	}

	cb := tele.Update{ID: 4, Callback: &tele.Callback{Sender: &tele.User{ID: 5}, Data: "\fform_finish|"}}
	_ = h(b.NewContext(cb))
	if ran != 3 {
		t.Fatalf("excluded callback was limited: ran=%d", ran)
	}
}

func TestUpdateKind(t *testing.T) {
	b := newTestBot(t)
	photo := textUpdate(1, 1, 1, tele.ChatPrivate)
	photo.Message.Photo = &tele.Photo{}
	cases := map[string]tele.Update{
		"message":  textUpdate(2, 1, 1, tele.ChatPrivate),
		"photo":    photo,
		"callback": {Callback: &tele.Callback{}},
		"other":    {},
	}
	for want, upd := range cases {
		if got := UpdateKind(b.NewContext(upd)); got != want {
			t.Errorf("UpdateKind = %q, want %q", got, want)
		}
	}
}

func TestChatLockSerializesPerChat(t *testing.T) {
	b := newTestBot(t)
	var inFlight, maxInFlight atomic.Int32
	h := ChatLock()(func(tele.Context) error {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = h(b.NewContext(textUpdate(i, 1, 42, tele.ChatPrivate)))
		}(i)
	}
	wg.Wait()
	if maxInFlight.Load() != 1 {
		t.Fatalf("max in flight = %d, want 1", maxInFlight.Load())
	}
}
