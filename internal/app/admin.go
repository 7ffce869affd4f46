package app

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	tghelpers "github.com/m3rciful/formbot/core/telegram/helpers"
	"github.com/m3rciful/formbot/internal/acl"
	"github.com/m3rciful/formbot/internal/locale"

	tele "gopkg.in/telebot.v4"
)

var (
	// ErrNoTarget means neither a reply nor an argument named a user.
	ErrNoTarget = errors.New("admin: no target user")
	// ErrBadTarget means the argument is not a numeric user id.
	ErrBadTarget = errors.New("admin: target is not a numeric user id")
)

var (
	commandPrefix = regexp.MustCompile(`^/[A-Za-z0-9_]+(@[A-Za-z0-9_]+)?`)
	numericID     = regexp.MustCompile(`^\d+$`)
)

// ParseTarget resolves the user an admin command acts on. A reply wins over
// the argument; text is the whole message including the command.
func ParseTarget(text string, replyUserID int64) (string, error) {
	if replyUserID != 0 {
		return strconv.FormatInt(replyUserID, 10), nil
	}
	arg := strings.TrimSpace(commandPrefix.ReplaceAllString(strings.TrimSpace(text), ""))
	if arg == "" {
		return "", ErrNoTarget
	}
	if !numericID.MatchString(arg) {
		return "", ErrBadTarget
	}
	return arg, nil
}

func replyUserID(c tele.Context) int64 {
	if msg := c.Message(); msg != nil && msg.ReplyTo != nil && msg.ReplyTo.Sender != nil {
		return msg.ReplyTo.Sender.ID
	}
	return 0
}

type aclChange func(id string) (acl.Result, error)

func (a *App) changeACL(c tele.Context, usageKey, doneKey string, change aclChange) error {
	target, err := ParseTarget(c.Text(), replyUserID(c))
	switch {
	case errors.Is(err, ErrNoTarget):
		return tghelpers.SendText(c, a.loc.MustLocalize(usageKey))
	case errors.Is(err, ErrBadTarget):
		return tghelpers.SendText(c, a.loc.MustLocalize(locale.BadUserID))
	}

	res, err := change(target)
	switch {
	case errors.Is(err, acl.ErrInvalidID):
		return tghelpers.SendText(c, a.loc.MustLocalize(locale.BadUserID))
	case err != nil:
		_ = tghelpers.SendText(c, a.loc.MustLocalize(locale.ACLFailed))
		return err
	case !res.OK:
		return tghelpers.SendText(c, a.loc.MustLocalizeWithTemplate(locale.ChangeInfo, res.Reason))
	}
	return tghelpers.SendText(c, a.loc.MustLocalizeWithTemplate(doneKey, target))
}

func (a *App) handleAdd(c tele.Context) error {
	return a.changeACL(c, locale.UsageAdd, locale.UserAdded, a.acl.AddAllowed)
}

func (a *App) handleRemove(c tele.Context) error {
	return a.changeACL(c, locale.UsageRemove, locale.UserRemoved, a.acl.RemoveAllowed)
}

func (a *App) handleList(c tele.Context) error {
	text, err := a.listText()
	if err != nil {
		_ = tghelpers.SendText(c, a.loc.MustLocalize(locale.ACLFailed))
		return err
	}
	return tghelpers.SendText(c, text)
}

// listText renders both id blocks.
func (a *App) listText() (string, error) {
	admins, err := a.acl.ListAdmins()
	if err != nil {
		return "", err
	}
	allowed, err := a.acl.ListAllowed()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	block := func(title string, ids []string) {
		b.WriteString(title)
		b.WriteByte('\n')
		if len(ids) == 0 {
			b.WriteString(a.loc.MustLocalize(locale.ListNone))
			b.WriteByte('\n')
			return
		}
		for _, id := range ids {
			b.WriteString("• " + id + "\n")
		}
	}
	block(a.loc.MustLocalize(locale.ListAdmins), admins)
	b.WriteByte('\n')
	block(a.loc.MustLocalize(locale.ListAllowed), allowed)
	return strings.TrimRight(b.String(), "\n"), nil
}
