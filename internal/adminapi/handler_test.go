package adminapi

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/cloudwego/hertz/pkg/route/param"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-economy-bot/internal/catalog"
	"telegram-economy-bot/internal/model"
	"telegram-economy-bot/internal/pkg/lock"
	"telegram-economy-bot/internal/pkg/snapshot"
	"telegram-economy-bot/internal/repository"
	"telegram-economy-bot/internal/service"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newHandler(t *testing.T) Handler {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)

	ana := model.NewAccount("1", now)
	ana.Name = "Ana"
	ana.Wallet = 900
	ana.Materials["ferro"] = 2
	bia := model.NewAccount("2", now)
	bia.Bank = 5000

	store := repository.NewMemoryStore()
	listings := []model.Listing{{ID: 1, Seller: "1", Kind: model.KindMaterial, Key: "ferro", Quantity: 3, Price: 120, CreatedAt: now.UnixMilli()}}
	require.NoError(t, store.Restore(context.Background(), []*model.Account{ana, bia}, listings, 1))

	engine := service.NewEngine(store, cat, lock.NewAccountLock(), service.WithClock(func() time.Time { return now }))
	return Handler{
		Store:    store,
		Accounts: service.NewAccountService(engine, service.DailyConfig{Reward: 500, Cooldown: 24 * time.Hour}),
		Market:   service.NewMarketService(engine),
		Ranking:  service.NewRankingService(engine),
	}
}

func decode(t *testing.T, ctx *app.RequestContext) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &body))
	return body
}

func errorCode(t *testing.T, ctx *app.RequestContext) string {
	t.Helper()
	e, ok := decode(t, ctx)["error"].(map[string]any)
	require.True(t, ok, "error body expected")
	return e["code"].(string)
}

func TestHealthz(t *testing.T) {
	h := newHandler(t)
	ctx := &app.RequestContext{}
	h.healthz(context.Background(), ctx)

	assert.Equal(t, consts.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, "ok", decode(t, ctx)["status"])
}

func TestAccount(t *testing.T) {
	h := newHandler(t)

	ctx := &app.RequestContext{}
	ctx.Params = param.Params{{Key: "id", Value: "1"}}
	h.account(context.Background(), ctx)
	require.Equal(t, consts.StatusOK, ctx.Response.StatusCode())

	var acct model.Account
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &acct))
	assert.Equal(t, "Ana", acct.Name)
	assert.Equal(t, int64(900), acct.Wallet)

	ctx = &app.RequestContext{}
	ctx.Params = param.Params{{Key: "id", Value: "404"}}
	h.account(context.Background(), ctx)
	assert.Equal(t, consts.StatusNotFound, ctx.Response.StatusCode())
	assert.Equal(t, "account_not_found", errorCode(t, ctx))
}

func TestReset(t *testing.T) {
	h := newHandler(t)
	bg := context.Background()

	ctx := &app.RequestContext{}
	ctx.Params = param.Params{{Key: "id", Value: "1"}}
	h.reset(bg, ctx)
	require.Equal(t, consts.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, true, decode(t, ctx)["ok"])

	_, err := h.Store.GetAccount(bg, "1")
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)
	listings, err := h.Store.ListListings(bg)
	require.NoError(t, err)
	assert.Empty(t, listings)

	ctx = &app.RequestContext{}
	ctx.Params = param.Params{{Key: "id", Value: "1"}}
	h.reset(bg, ctx)
	assert.Equal(t, consts.StatusNotFound, ctx.Response.StatusCode())
}

func TestLeaderboard(t *testing.T) {
	h := newHandler(t)

	ctx := &app.RequestContext{}
	ctx.Request.SetRequestURI("/leaderboard?limit=1")
	h.leaderboard(context.Background(), ctx)
	require.Equal(t, consts.StatusOK, ctx.Response.StatusCode())

	var body struct {
		Entries []service.LeaderboardEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &body))
	require.Len(t, body.Entries, 1)
	assert.Equal(t, "2", body.Entries[0].ID)
	assert.Equal(t, int64(5000), body.Entries[0].NetWorth)

	ctx = &app.RequestContext{}
	ctx.Request.SetRequestURI("/leaderboard?limit=zero")
	h.leaderboard(context.Background(), ctx)
	assert.Equal(t, consts.StatusBadRequest, ctx.Response.StatusCode())
	assert.Equal(t, "invalid_limit", errorCode(t, ctx))
}

func TestMarket(t *testing.T) {
	h := newHandler(t)
	ctx := &app.RequestContext{}
	h.market(context.Background(), ctx)
	require.Equal(t, consts.StatusOK, ctx.Response.StatusCode())

	var body struct {
		Listings []model.Listing `json:"listings"`
	}
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &body))
	require.Len(t, body.Listings, 1)
	assert.Equal(t, "ferro", body.Listings[0].Key)
}

func TestBackup(t *testing.T) {
	h := newHandler(t)

	ctx := &app.RequestContext{}
	h.backup(context.Background(), ctx)
	assert.Equal(t, consts.StatusNotFound, ctx.Response.StatusCode())

	cat, err := catalog.Default()
	require.NoError(t, err)
	h.Backups = snapshot.NewManager(h.Store, cat, t.TempDir(), 3)

	ctx = &app.RequestContext{}
	h.backup(context.Background(), ctx)
	require.Equal(t, consts.StatusCreated, ctx.Response.StatusCode())
	assert.Contains(t, decode(t, ctx)["file"], "economy-")
}

func TestAuth(t *testing.T) {
	h := Handler{Token: "s3cret"}

	ctx := &app.RequestContext{}
	h.auth()(context.Background(), ctx)
	assert.True(t, ctx.IsAborted())
	assert.Equal(t, consts.StatusUnauthorized, ctx.Response.StatusCode())

	ctx = &app.RequestContext{}
	ctx.Request.Header.Set("Authorization", "Bearer wrong")
	h.auth()(context.Background(), ctx)
	assert.True(t, ctx.IsAborted())

	ctx = &app.RequestContext{}
	ctx.Request.Header.Set("Authorization", "Bearer s3cret")
	h.auth()(context.Background(), ctx)
	assert.False(t, ctx.IsAborted())

	open := Handler{}
	ctx = &app.RequestContext{}
	open.auth()(context.Background(), ctx)
	assert.False(t, ctx.IsAborted())
}
