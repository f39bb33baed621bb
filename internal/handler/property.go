package handler

import (
	tele "gopkg.in/telebot.v3"

	"telegram-economy-bot/internal/service"
)

// PropertyHandler handles income properties.
type PropertyHandler struct {
	propertyService *service.PropertyService
}

// NewPropertyHandler creates a new PropertyHandler.
func NewPropertyHandler(propertyService *service.PropertyService) *PropertyHandler {
	return &PropertyHandler{propertyService: propertyService}
}

// HandleProperties handles /imoveis.
func (h *PropertyHandler) HandleProperties(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	ctx, cancel := commandContext()
	defer cancel()

	views, err := h.propertyService.Properties(ctx, accountID(sender))
	if err != nil {
		logFailure(c, "properties", err)
		return c.Reply(internalErrorText)
	}
	return c.Reply(renderProperties(views))
}

// HandleBuy handles /comprar_imovel <chave>.
func (h *PropertyHandler) HandleBuy(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	args := c.Args()
	if len(args) == 0 {
		return c.Reply("❌ Uso: /comprar_imovel <chave>. Veja /imoveis.")
	}
	ctx, cancel := commandContext()
	defer cancel()

	out, err := h.propertyService.Buy(ctx, accountID(sender), args[0])
	return respond(c, "buy_property", out, err)
}

// HandleCollect handles /coletar.
func (h *PropertyHandler) HandleCollect(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	ctx, cancel := commandContext()
	defer cancel()

	out, err := h.propertyService.Collect(ctx, accountID(sender))
	return respond(c, "collect", out, err)
}
