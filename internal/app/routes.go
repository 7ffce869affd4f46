package app

import (
	tg "github.com/m3rciful/formbot/core/telegram"
	"github.com/m3rciful/formbot/core/telegram/commands"
	"github.com/m3rciful/formbot/core/telegram/middleware"
	"github.com/m3rciful/formbot/core/telegram/router"
	"github.com/m3rciful/formbot/internal/conversation"
	"github.com/m3rciful/formbot/internal/form"
	"github.com/m3rciful/formbot/internal/locale"

	tele "gopkg.in/telebot.v4"
)

func (a *App) registry() (*tg.Registry, error) {
	reg := tg.NewRegistry()
	cmds := map[string]commands.Command{
		"/start":  {Handler: a.handleStart, Description: a.loc.MustLocalize(locale.CommandStart)},
		"/add":    {Handler: a.handleAdd, Description: a.loc.MustLocalize(locale.CommandAdd), AdminOnly: true},
		"/remove": {Handler: a.handleRemove, Description: a.loc.MustLocalize(locale.CommandRemove), AdminOnly: true},
		"/list":   {Handler: a.handleList, Description: a.loc.MustLocalize(locale.CommandList), AdminOnly: true},
	}
	for name, cmd := range cmds {
		if err := reg.RegisterCommand(name, cmd); err != nil {
			return nil, err
		}
	}

	cbs := map[string]tele.HandlerFunc{
		form.CallbackField:  a.handleField,
		form.CallbackCancel: a.handleCancel,
		form.CallbackFinish: a.handleFinish,
		form.CallbackClear:  a.handleClear,
	}
	for key, h := range cbs {
		if err := reg.RegisterCallback(key, h); err != nil {
			return nil, err
		}
	}
	reg.SetCallbackNotFound(a.handleUnsupportedCallback)

	a.fsm.Handle(conversation.StateAwaiting, a.handleInput)
	return reg, nil
}

func (a *App) middlewares() []tg.Middleware {
	return tg.DefaultMiddlewares(&a.cfg.Config, tg.MiddlewareOptions{
		Access: &middleware.AccessOptions{
			Allow:         a.acl.IsAllowedUser,
			OnReject:      a.handleRejected,
			ReplyInGroups: a.cfg.ACL.ReplyInGroups,
		},
		OnLimited: a.handleLimited,
	})
}

func (a *App) routes(reg *tg.Registry) []tg.Route {
	routes := router.CommandRoutes(reg, router.CommandRouteOptions{IsAdmin: a.acl.IsAdminUser})
	routes = append(routes, router.CallbackRoute(reg))
	return append(routes, router.TextRoutes(a.fsm, router.TextOptions{
		UnknownText:     a.handleStrayInput,
		UnknownPhoto:    a.handleStrayInput,
		UnknownDocument: a.handleStrayInput,
	})...)
}
