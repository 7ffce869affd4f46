package middleware

import (
	"sync"

	tghelpers "github.com/m3rciful/formbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

type chatLock struct {
	mu   sync.Mutex
	refs int
}

// ChatLock runs at most one handler per chat at a time. Telebot dispatches
// updates concurrently; conversations rely on seeing them in order.
// Different chats never wait on each other.
func ChatLock() tele.MiddlewareFunc {
	var (
		mu    sync.Mutex
		locks = make(map[int64]*chatLock)
	)
	acquire := func(id int64) *chatLock {
		mu.Lock()
		l, ok := locks[id]
		if !ok {
			l = &chatLock{}
			locks[id] = l
		}
		l.refs++
		mu.Unlock()
		l.mu.Lock()
		return l
	}
	release := func(id int64, l *chatLock) {
		l.mu.Unlock()
		mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(locks, id)
		}
		mu.Unlock()
	}

	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			id := tghelpers.ChatID(c)
			if id == 0 {
				return next(c)
			}
			l := acquire(id)
			defer release(id, l)
			return next(c)
		}
	}
}
