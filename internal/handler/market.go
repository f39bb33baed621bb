package handler

import (
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"telegram-economy-bot/internal/model"
	"telegram-economy-bot/internal/service"
)

// MarketHandler handles the player market.
type MarketHandler struct {
	marketService *service.MarketService
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(marketService *service.MarketService) *MarketHandler {
	return &MarketHandler{marketService: marketService}
}

// HandleListings handles /mercado.
func (h *MarketHandler) HandleListings(c tele.Context) error {
	ctx, cancel := commandContext()
	defer cancel()

	listings, err := h.marketService.Listings(ctx)
	if err != nil {
		logFailure(c, "listings", err)
		return c.Reply(internalErrorText)
	}
	return c.Reply(renderListings(listings))
}

// HandleList handles /anunciar <item|material> <chave> <qtd> <preço>.
func (h *MarketHandler) HandleList(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	kind, key, qty, price, err := parseListing(c.Args())
	if err != nil {
		return c.Reply("❌ Uso: /anunciar <item|material> <chave> <qtd> <preço>")
	}
	ctx, cancel := commandContext()
	defer cancel()

	out, err := h.marketService.List(ctx, accountID(sender), kind, key, qty, price)
	return respond(c, "list", out, err)
}

// HandleBuy handles /arrematar <id>.
func (h *MarketHandler) HandleBuy(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	id, err := parseListingID(c.Args())
	if err != nil {
		return c.Reply("❌ Uso: /arrematar <id>")
	}
	ctx, cancel := commandContext()
	defer cancel()

	out, err := h.marketService.Buy(ctx, accountID(sender), id)
	return respond(c, "market_buy", out, err)
}

// HandleCancel handles /cancelar <id>.
func (h *MarketHandler) HandleCancel(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	id, err := parseListingID(c.Args())
	if err != nil {
		return c.Reply("❌ Uso: /cancelar <id>")
	}
	ctx, cancel := commandContext()
	defer cancel()

	out, err := h.marketService.Cancel(ctx, accountID(sender), id)
	return respond(c, "market_cancel", out, err)
}

func parseListing(args []string) (model.ListingKind, string, int64, int64, error) {
	if len(args) != 4 {
		return "", "", 0, 0, errUsage
	}
	kind := model.ListingKind(strings.ToLower(args[0]))
	if !kind.Valid() {
		return "", "", 0, 0, errUsage
	}
	qty, err := parseAmount(args[2], 0)
	if err != nil {
		return "", "", 0, 0, err
	}
	price, err := parseAmount(args[3], 0)
	if err != nil {
		return "", "", 0, 0, err
	}
	return kind, args[1], qty, price, nil
}

// parseListingID accepts "12" and "#12".
func parseListingID(args []string) (int64, error) {
	if len(args) == 0 {
		return 0, errUsage
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errUsage
	}
	return id, nil
}
