package handler

import (
	tele "gopkg.in/telebot.v3"

	"telegram-economy-bot/internal/service"
)

// FarmHandler handles farming and cooking commands.
type FarmHandler struct {
	farmService    *service.FarmService
	kitchenService *service.KitchenService
	accountService *service.AccountService
}

// NewFarmHandler creates a new FarmHandler.
func NewFarmHandler(farmService *service.FarmService, kitchenService *service.KitchenService, accountService *service.AccountService) *FarmHandler {
	return &FarmHandler{
		farmService:    farmService,
		kitchenService: kitchenService,
		accountService: accountService,
	}
}

// HandlePlant handles /plantar <semente>.
func (h *FarmHandler) HandlePlant(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	args := c.Args()
	if len(args) == 0 {
		return c.Reply("❌ Uso: /plantar <semente>")
	}
	ctx, cancel := commandContext()
	defer cancel()

	out, err := h.farmService.Plant(ctx, accountID(sender), args[0])
	return respond(c, "plant", out, err)
}

// HandleHarvest handles /colher.
func (h *FarmHandler) HandleHarvest(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	ctx, cancel := commandContext()
	defer cancel()

	out, err := h.farmService.Harvest(ctx, accountID(sender))
	return respond(c, "harvest", out, err)
}

// HandleFarm handles /fazenda.
func (h *FarmHandler) HandleFarm(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	ctx, cancel := commandContext()
	defer cancel()

	id := accountID(sender)
	acct, err := h.accountService.GetAccount(ctx, id)
	if err != nil {
		logFailure(c, "farm", err)
		return c.Reply(internalErrorText)
	}
	plots, err := h.farmService.Plots(ctx, id)
	if err != nil {
		logFailure(c, "farm", err)
		return c.Reply(internalErrorText)
	}
	return c.Reply(renderPlots(plots, acct.Farm.MaxPlots))
}

// HandleCook handles /cozinhar <receita>.
func (h *FarmHandler) HandleCook(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	args := c.Args()
	if len(args) == 0 {
		return c.Reply("❌ Uso: /cozinhar <receita>")
	}
	ctx, cancel := commandContext()
	defer cancel()

	out, err := h.kitchenService.Cook(ctx, accountID(sender), args[0])
	return respond(c, "cook", out, err)
}

// HandleEat handles /comer <comida>.
func (h *FarmHandler) HandleEat(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	args := c.Args()
	if len(args) == 0 {
		return c.Reply("❌ Uso: /comer <comida>")
	}
	ctx, cancel := commandContext()
	defer cancel()

	out, err := h.kitchenService.Eat(ctx, accountID(sender), args[0])
	return respond(c, "eat", out, err)
}

// HandleSellFood handles /vender_comida <comida> [qtd].
func (h *FarmHandler) HandleSellFood(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	args := c.Args()
	if len(args) == 0 {
		return c.Reply("❌ Uso: /vender_comida <comida> [qtd]")
	}
	qty, err := parseQuantity(args, 1)
	if err != nil {
		return c.Reply("❌ Quantidade inválida.")
	}
	ctx, cancel := commandContext()
	defer cancel()

	out, err := h.kitchenService.SellFood(ctx, accountID(sender), args[0], qty)
	return respond(c, "sell_food", out, err)
}
