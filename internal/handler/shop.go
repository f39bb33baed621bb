package handler

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"telegram-economy-bot/internal/service"
)

// Callback data prefixes of the shop panel.
const (
	CallbackShopItem    = "shop_item:" // shop_item:picareta_bronze
	CallbackShopBuy     = "shop_buy:"  // shop_buy:picareta_bronze
	CallbackShopRefresh = "shop_refresh"
)

// ShopHandler handles the catalog shop and material sales.
type ShopHandler struct {
	shopService    *service.ShopService
	accountService *service.AccountService
}

// NewShopHandler creates a new ShopHandler.
func NewShopHandler(shopService *service.ShopService, accountService *service.AccountService) *ShopHandler {
	return &ShopHandler{
		shopService:    shopService,
		accountService: accountService,
	}
}

// HandleShop handles /loja. In private chats the shop is shown as a button
// panel.
func (h *ShopHandler) HandleShop(c tele.Context) error {
	entries := h.shopService.Catalog()
	if chat := c.Chat(); chat != nil && chat.Type == tele.ChatPrivate {
		return c.Send(renderShop(entries), buildShopPanel(entries))
	}
	return c.Reply(renderShop(entries))
}

// HandleBuy handles /comprar <item> [qtd].
func (h *ShopHandler) HandleBuy(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	args := c.Args()
	if len(args) == 0 {
		return c.Reply("❌ Uso: /comprar <item> [qtd]. Veja /loja.")
	}
	qty, err := parseQuantity(args, 1)
	if err != nil {
		return c.Reply("❌ Quantidade inválida.")
	}
	ctx, cancel := commandContext()
	defer cancel()

	out, err := h.shopService.Buy(ctx, accountID(sender), args[0], qty)
	return respond(c, "shop_buy", out, err)
}

// HandleSell handles /vender <material> [qtd|tudo].
func (h *ShopHandler) HandleSell(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	args := c.Args()
	if len(args) == 0 {
		return c.Reply("❌ Uso: /vender <material> [qtd|tudo]")
	}
	ctx, cancel := commandContext()
	defer cancel()

	id := accountID(sender)
	qty := int64(1)
	if len(args) > 1 {
		acct, err := h.accountService.GetAccount(ctx, id)
		if err != nil {
			logFailure(c, "sell", err)
			return c.Reply(internalErrorText)
		}
		if qty, err = parseAmount(args[1], acct.Materials[args[0]]); err != nil {
			return c.Reply("❌ Quantidade inválida.")
		}
	}
	out, err := h.shopService.SellMaterial(ctx, id, args[0], qty)
	return respond(c, "sell_material", out, err)
}

// HandleCallback handles shop panel buttons.
func (h *ShopHandler) HandleCallback(c tele.Context) error {
	cb := c.Callback()
	sender := c.Sender()
	if cb == nil || sender == nil {
		return nil
	}
	data := strings.TrimPrefix(cb.Data, "\f")
	entries := h.shopService.Catalog()

	switch {
	case data == CallbackShopRefresh:
		_ = c.Respond()
		return c.Edit(renderShop(entries), buildShopPanel(entries))

	case strings.HasPrefix(data, CallbackShopItem):
		key := strings.TrimPrefix(data, CallbackShopItem)
		entry, ok := findEntry(entries, key)
		if !ok {
			return c.Respond(&tele.CallbackResponse{Text: "❌ Item não encontrado"})
		}
		_ = c.Respond()
		return c.Edit(fmt.Sprintf("🛒 %s\n💰 Preço: %s\n\nConfirmar compra?", entry.Name, coins(entry.Price)), buildConfirmPanel(key))

	case strings.HasPrefix(data, CallbackShopBuy):
		key := strings.TrimPrefix(data, CallbackShopBuy)
		ctx, cancel := commandContext()
		defer cancel()

		res, err := service.ToResult(h.shopService.Buy(ctx, accountID(sender), key, 1))
		if err != nil {
			logFailure(c, "shop_buy", err)
			return c.Respond(&tele.CallbackResponse{Text: internalErrorText, ShowAlert: true})
		}
		_ = c.Respond(&tele.CallbackResponse{Text: res.Message, ShowAlert: !res.OK})
		return c.Edit(renderShop(entries), buildShopPanel(entries))
	}
	return nil
}

func findEntry(entries []service.ShopEntry, key string) (service.ShopEntry, bool) {
	for _, e := range entries {
		if e.Key == key {
			return e, true
		}
	}
	return service.ShopEntry{}, false
}

// buildShopPanel lays out one button per item, two per row.
func buildShopPanel(entries []service.ShopEntry) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	var rows []tele.Row
	var current []tele.Btn
	for i, e := range entries {
		current = append(current, markup.Data(fmt.Sprintf("%s (%d💰)", e.Name, e.Price), CallbackShopItem+e.Key))
		if len(current) == 2 || i == len(entries)-1 {
			rows = append(rows, markup.Row(current...))
			current = nil
		}
	}
	rows = append(rows, markup.Row(markup.Data("🔄 Atualizar", CallbackShopRefresh)))

	markup.Inline(rows...)
	return markup
}

func buildConfirmPanel(key string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(
		markup.Data("✅ Comprar", CallbackShopBuy+key),
		markup.Data("❌ Voltar", CallbackShopRefresh),
	))
	return markup
}
