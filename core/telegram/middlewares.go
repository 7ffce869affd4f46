package telegram

import (
	"time"

	coreconfig "github.com/m3rciful/formbot/core/config"
	"github.com/m3rciful/formbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// MiddlewareOptions carries the bot-specific hooks of the shared chain.
type MiddlewareOptions struct {
	// Access enables the access gate when non-nil.
	Access    *middleware.AccessOptions
	OnLimited tele.HandlerFunc
}

// DefaultMiddlewares builds the shared middleware chain for bots.
// Order: recover, logger, access gate, rate limit, per-chat lock, metrics.
func DefaultMiddlewares(cfg *coreconfig.Config, opts MiddlewareOptions) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
		{Name: "logger", Use: middleware.LoggerMiddleware},
	}

	if opts.Access != nil {
		mws = append(mws, Middleware{Name: "access", Use: middleware.AccessMiddleware(*opts.Access)})
	}

	if cfg != nil && cfg.RateLimit.IntervalMS > 0 {
		ex := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
		for _, t := range cfg.RateLimit.ExcludeUpdates {
			ex[t] = struct{}{}
		}
		mws = append(mws, Middleware{
			Name: "rate_limit",
			Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
				Interval:  time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond,
				Burst:     cfg.RateLimit.Burst,
				Exclude:   ex,
				OnLimited: opts.OnLimited,
			}),
		})
	}

	return append(mws,
		Middleware{Name: "chat_lock", Use: middleware.ChatLock()},
		Middleware{Name: "metrics", Use: middleware.MessageMetricsMiddleware},
	)
}
