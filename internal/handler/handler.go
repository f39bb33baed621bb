// Package handler provides Telegram bot command handlers. Handlers parse
// arguments, call one service operation and render its Result; they hold no
// game rules.
package handler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-economy-bot/internal/service"
)

const commandTimeout = 10 * time.Second

// errUsage marks malformed command arguments.
var errUsage = errors.New("usage")

// commandContext bounds one command's storage work.
func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), commandTimeout)
}

// accountID maps a Telegram user to its account id.
func accountID(u *tele.User) string {
	return strconv.FormatInt(u.ID, 10)
}

// senderName is the display name stored on the account.
func senderName(u *tele.User) string {
	if u.Username != "" {
		return "@" + u.Username
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return accountID(u)
	}
	return name
}

// respond converts a service return into a reply. Domain rejections are
// shown to the user; storage failures are logged and replaced by a generic
// message.
func respond(c tele.Context, op string, out *service.Outcome, err error) error {
	res, err := service.ToResult(out, err)
	if err != nil {
		logFailure(c, op, err)
		return c.Reply(internalErrorText)
	}
	text, opts := formatResult(res)
	return c.Reply(text, opts...)
}

const internalErrorText = "❌ Erro interno, tente novamente mais tarde."

func logFailure(c tele.Context, op string, err error) {
	ev := log.Error().Err(err).Str("op", op)
	if s := c.Sender(); s != nil {
		ev = ev.Int64("user_id", s.ID)
	}
	ev.Msg("Command failed")
}

// formatResult renders a result as HTML. Mentioned accounts are notified
// through invisible user links appended to the message.
func formatResult(res service.Result) (string, []interface{}) {
	var b strings.Builder
	b.WriteString(html.EscapeString(res.Message))
	for _, id := range res.Mentions {
		if !isUserID(id) {
			continue
		}
		fmt.Fprintf(&b, `<a href="tg://user?id=%s">&#8203;</a>`, id)
	}
	return b.String(), []interface{}{tele.ModeHTML}
}

// parseAmount parses a positive currency amount. "tudo" and "all" resolve
// to all, the caller's available balance.
func parseAmount(arg string, all int64) (int64, error) {
	switch strings.ToLower(arg) {
	case "tudo", "all":
		if all <= 0 {
			return 0, fmt.Errorf("%w: nothing available", errUsage)
		}
		return all, nil
	}
	clean := strings.NewReplacer(".", "", ",", "", "_", "").Replace(arg)
	n, err := strconv.ParseInt(clean, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: invalid amount %q", errUsage, arg)
	}
	return n, nil
}

// parseQuantity parses an optional quantity argument, defaulting to 1.
func parseQuantity(args []string, i int) (int64, error) {
	if len(args) <= i {
		return 1, nil
	}
	return parseAmount(args[i], 0)
}

// parseIndex converts a 1-based position typed by a user into a slice index.
func parseIndex(args []string, i int) (int, error) {
	if len(args) <= i {
		return 0, nil
	}
	n, err := strconv.Atoi(args[i])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: invalid position %q", errUsage, args[i])
	}
	return n - 1, nil
}

// targetUser resolves the other party of a command: the author of the
// replied-to message, a text mention, or a numeric id as the first of at
// least two arguments.
func targetUser(c tele.Context, args []string) (string, bool) {
	if msg := c.Message(); msg != nil {
		if msg.ReplyTo != nil && msg.ReplyTo.Sender != nil && !msg.ReplyTo.Sender.IsBot {
			return accountID(msg.ReplyTo.Sender), true
		}
		for _, e := range msg.Entities {
			if e.Type == tele.EntityTMention && e.User != nil {
				return accountID(e.User), true
			}
		}
	}
	if len(args) >= 2 && isUserID(args[0]) {
		return args[0], true
	}
	return "", false
}

func isUserID(s string) bool {
	n, err := strconv.ParseInt(s, 10, 64)
	return err == nil && n > 0
}

// lastArg returns the final argument, or "" when there are none.
func lastArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[len(args)-1]
}

func coins(n int64) string {
	return humanize.Comma(n) + " moedas"
}

func remaining(d time.Duration) string {
	if d <= 0 {
		return "pronto"
	}
	d = d.Round(time.Minute)
	if d < time.Minute {
		return "<1m"
	}
	h, m := int(d.Hours()), int(d.Minutes())%60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
