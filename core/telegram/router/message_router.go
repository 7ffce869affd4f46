package router

import (
	"time"

	tg "github.com/m3rciful/formbot/core/telegram"
	tghelpers "github.com/m3rciful/formbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// FSM is the part of the conversation state manager the router needs.
// Keys are chat ids.
type FSM interface {
	InProgress(key int64) bool
	ManagerHandler(c tele.Context) error
}

// TextOptions controls fallback behaviour for messages no conversation waits for.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownPhoto    tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// TextRoutes builds handlers for text, photo and document messages.
// A chat with a pending conversation gets its input routed to the FSM;
// otherwise the matching Unknown handler runs.
func TextRoutes(fsm FSM, opts TextOptions) []tg.Route {
	route := func(kind string, unknown tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if fsm != nil && fsm.InProgress(tghelpers.ChatID(c)) {
				return handleWithSummary(c, "fsm_"+kind, func() error {
					return fsm.ManagerHandler(c)
				})
			}
			if unknown != nil {
				return handleWithSummary(c, "unknown_"+kind, func() error { return unknown(c) })
			}
			logHandlerSummary(c, "unknown_"+kind, time.Now(), outcomeSkip, nil)
			return nil
		}
	}

	return []tg.Route{
		{Endpoint: tele.OnText, Handler: route("text", opts.UnknownText)},
		{Endpoint: tele.OnPhoto, Handler: route("photo", opts.UnknownPhoto)},
		{Endpoint: tele.OnDocument, Handler: route("document", opts.UnknownDocument)},
	}
}
