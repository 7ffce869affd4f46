package middleware

import (
	"log/slog"

	"github.com/m3rciful/formbot/core/logger"
	tghelpers "github.com/m3rciful/formbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// AccessOptions configures the access gate.
type AccessOptions struct {
	// Allow reports whether the user may use the bot at all.
	Allow func(userID int64) bool
	// OnReject runs for rejected users; its error is logged, never returned.
	OnReject tele.HandlerFunc
	// ReplyInGroups also runs OnReject outside private chats.
	ReplyInGroups bool
}

// AccessMiddleware stops updates from users that Allow rejects.
// Updates without a sender are dropped.
func AccessMiddleware(opts AccessOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil {
				logger.Debug(tghelpers.BuildContext(c), logger.CompTG, "access.denied",
					slog.String("status", "skip"),
					slog.String("reason", "no_sender"),
				)
				return nil
			}
			if opts.Allow == nil || opts.Allow(user.ID) {
				return next(c)
			}

			ctx := tghelpers.BuildContext(c)
			reply := opts.OnReject != nil && (opts.ReplyInGroups || tghelpers.IsPrivate(c))
			logger.Info(ctx, logger.CompTG, "access.denied",
				slog.String("status", "skip"),
				slog.String("reason", "not_allowed"),
				slog.Bool("notified", reply),
			)
			if reply {
				if err := opts.OnReject(c); err != nil {
					logger.Warn(ctx, logger.CompTG, "access.notify", slog.String("status", "fail"), logger.Err(err))
				}
			}
			return nil
		}
	}
}

// AdminOptions defines how admin-only checks should behave.
type AdminOptions struct {
	IsAdmin  func(userID int64) bool
	OnReject tele.HandlerFunc
}

// AdminOnlyMiddleware ensures that only admins can invoke downstream handlers.
// Without OnReject other users are ignored silently.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user != nil && opts.IsAdmin != nil && opts.IsAdmin(user.ID) {
				return next(c)
			}
			logger.Info(tghelpers.BuildContext(c), logger.CompTG, "admin.denied", slog.String("status", "skip"))
			if opts.OnReject != nil {
				return opts.OnReject(c)
			}
			return nil
		}
	}
}
