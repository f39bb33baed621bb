package handler

import (
	"fmt"

	tele "gopkg.in/telebot.v3"

	"telegram-economy-bot/internal/service"
)

const leaderboardSize = 10

// RankingHandler handles the net worth leaderboard.
type RankingHandler struct {
	rankingService *service.RankingService
}

// NewRankingHandler creates a new RankingHandler.
func NewRankingHandler(rankingService *service.RankingService) *RankingHandler {
	return &RankingHandler{rankingService: rankingService}
}

// HandleTop handles /top. The caller's own position is appended when it is
// outside the list.
func (h *RankingHandler) HandleTop(c tele.Context) error {
	ctx, cancel := commandContext()
	defer cancel()

	entries, err := h.rankingService.Leaderboard(ctx, leaderboardSize)
	if err != nil {
		logFailure(c, "top", err)
		return c.Reply("❌ Não foi possível carregar o ranking, tente novamente.")
	}
	msg := renderLeaderboard(entries)

	if sender := c.Sender(); sender != nil {
		me, ok, err := h.rankingService.RankOf(ctx, accountID(sender))
		if err == nil && ok && me.Rank > leaderboardSize {
			msg += fmt.Sprintf("\n📍 Você: #%d com %s", me.Rank, coins(me.NetWorth))
		}
	}
	return c.Reply(msg)
}
