package handler

import (
	"strings"

	tele "gopkg.in/telebot.v3"

	"telegram-economy-bot/internal/model"
	"telegram-economy-bot/internal/service"
)

// ChallengeHandler handles periodic challenges.
type ChallengeHandler struct {
	challengeService *service.ChallengeService
	engine           *service.Engine
}

// NewChallengeHandler creates a new ChallengeHandler.
func NewChallengeHandler(engine *service.Engine, challengeService *service.ChallengeService) *ChallengeHandler {
	return &ChallengeHandler{challengeService: challengeService, engine: engine}
}

// HandleChallenges handles /desafios.
func (h *ChallengeHandler) HandleChallenges(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	ctx, cancel := commandContext()
	defer cancel()

	list, err := h.challengeService.Challenges(ctx, accountID(sender))
	if err != nil {
		logFailure(c, "challenges", err)
		return c.Reply(internalErrorText)
	}
	return c.Reply(renderChallenges(list, h.engine.Now()))
}

// HandleClaim handles /resgatar <daily|weekly|monthly>.
func (h *ChallengeHandler) HandleClaim(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	period, ok := parsePeriod(c.Args())
	if !ok {
		return c.Reply("❌ Uso: /resgatar <diario|semanal|mensal>")
	}
	ctx, cancel := commandContext()
	defer cancel()

	out, err := h.challengeService.Claim(ctx, accountID(sender), period)
	return respond(c, "claim_challenge", out, err)
}

var periodAliases = map[string]string{
	"daily":   model.PeriodDaily,
	"diario":  model.PeriodDaily,
	"diário":  model.PeriodDaily,
	"weekly":  model.PeriodWeekly,
	"semanal": model.PeriodWeekly,
	"monthly": model.PeriodMonthly,
	"mensal":  model.PeriodMonthly,
}

func parsePeriod(args []string) (string, bool) {
	if len(args) == 0 {
		return "", false
	}
	p, ok := periodAliases[strings.ToLower(args[0])]
	return p, ok
}
