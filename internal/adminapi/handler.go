// Package adminapi exposes a small operator HTTP API over the economy.
package adminapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/rs/zerolog/log"

	"telegram-economy-bot/internal/pkg/snapshot"
	"telegram-economy-bot/internal/repository"
	"telegram-economy-bot/internal/service"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

// Handler serves the admin routes. Backups may be nil.
type Handler struct {
	Store    repository.Store
	Accounts *service.AccountService
	Market   *service.MarketService
	Ranking  *service.RankingService
	Backups  *snapshot.Manager
	Token    string
}

// RegisterRoutes mounts every route on s. Everything except /healthz
// requires the bearer token when one is configured.
func (h Handler) RegisterRoutes(s *server.Hertz) {
	s.GET("/healthz", h.healthz)

	api := s.Group("/", h.auth())
	api.GET("/accounts/:id", h.account)
	api.POST("/accounts/:id/reset", h.reset)
	api.GET("/leaderboard", h.leaderboard)
	api.GET("/market", h.market)
	api.POST("/backups", h.backup)
}

func (h Handler) auth() app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		if h.Token == "" {
			ctx.Next(c)
			return
		}
		got := strings.TrimPrefix(string(ctx.GetHeader("Authorization")), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.Token)) != 1 {
			writeErrorBody(ctx, consts.StatusUnauthorized, "unauthorized", "missing or invalid token")
			ctx.Abort()
			return
		}
		ctx.Next(c)
	}
}

func (h Handler) healthz(c context.Context, ctx *app.RequestContext) {
	if _, err := h.Store.MarketCounter(c); err != nil {
		writeErrorBody(ctx, consts.StatusServiceUnavailable, "store_unavailable", err.Error())
		return
	}
	ctx.JSON(consts.StatusOK, map[string]string{"status": "ok"})
}

func (h Handler) account(c context.Context, ctx *app.RequestContext) {
	id := ctx.Param("id")
	acct, err := h.Store.GetAccount(c, id)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, acct)
}

func (h Handler) reset(c context.Context, ctx *app.RequestContext) {
	id := ctx.Param("id")
	res, err := service.ToResult(h.Accounts.ResetAccount(c, id))
	if err != nil {
		writeError(ctx, err)
		return
	}
	if !res.OK {
		writeErrorBody(ctx, consts.StatusNotFound, "account_not_found", res.Message)
		return
	}
	log.Info().Str("target_id", id).Str("operation", "admin_reset").Msg("Admin operation executed via API")
	ctx.JSON(consts.StatusOK, res)
}

func (h Handler) leaderboard(c context.Context, ctx *app.RequestContext) {
	limit := defaultLeaderboardLimit
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeErrorBody(ctx, consts.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = min(n, maxLeaderboardLimit)
	}
	entries, err := h.Ranking.Leaderboard(c, limit)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{"entries": entries})
}

func (h Handler) market(c context.Context, ctx *app.RequestContext) {
	listings, err := h.Market.Listings(c)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{"listings": listings})
}

func (h Handler) backup(c context.Context, ctx *app.RequestContext) {
	if h.Backups == nil {
		writeErrorBody(ctx, consts.StatusNotFound, "not_configured", "backups are disabled")
		return
	}
	path, err := h.Backups.Backup(c)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusCreated, map[string]string{"file": filepath.Base(path)})
}

func writeError(ctx *app.RequestContext, err error) {
	switch {
	case errors.Is(err, repository.ErrAccountNotFound):
		writeErrorBody(ctx, consts.StatusNotFound, "account_not_found", err.Error())
	default:
		log.Error().Err(err).Str("path", string(ctx.Path())).Msg("Admin API request failed")
		writeErrorBody(ctx, consts.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeErrorBody(ctx *app.RequestContext, status int, code, message string) {
	ctx.JSON(status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
