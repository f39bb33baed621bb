package handler

import (
	"context"
	"strings"

	tele "gopkg.in/telebot.v3"

	"telegram-economy-bot/internal/service"
)

// ActionHandler handles the earning actions and tool maintenance.
type ActionHandler struct {
	actionService *service.ActionService
}

// NewActionHandler creates a new ActionHandler.
func NewActionHandler(actionService *service.ActionService) *ActionHandler {
	return &ActionHandler{actionService: actionService}
}

type actionFunc func(ctx context.Context, id string) (*service.Outcome, error)

func (h *ActionHandler) run(op string, fn actionFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		sender := c.Sender()
		if sender == nil {
			return nil
		}
		ctx, cancel := commandContext()
		defer cancel()

		out, err := fn(ctx, accountID(sender))
		return respond(c, op, out, err)
	}
}

// HandleWork handles /trabalhar.
func (h *ActionHandler) HandleWork(c tele.Context) error {
	return h.run("work", h.actionService.Work)(c)
}

// HandleMine handles /minerar.
func (h *ActionHandler) HandleMine(c tele.Context) error {
	return h.run("mine", h.actionService.Mine)(c)
}

// HandleFish handles /pescar.
func (h *ActionHandler) HandleFish(c tele.Context) error {
	return h.run("fish", h.actionService.Fish)(c)
}

// HandleHunt handles /cacar.
func (h *ActionHandler) HandleHunt(c tele.Context) error {
	return h.run("hunt", h.actionService.Hunt)(c)
}

// HandleExplore handles /explorar.
func (h *ActionHandler) HandleExplore(c tele.Context) error {
	return h.run("explore", h.actionService.Explore)(c)
}

// HandleCrime handles /crime.
func (h *ActionHandler) HandleCrime(c tele.Context) error {
	return h.run("crime", h.actionService.Crime)(c)
}

// HandleForge handles /forjar <receita>.
func (h *ActionHandler) HandleForge(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	args := c.Args()
	if len(args) == 0 {
		return c.Reply("❌ Uso: /forjar <receita>")
	}
	ctx, cancel := commandContext()
	defer cancel()

	out, err := h.actionService.Forge(ctx, accountID(sender), args[0])
	return respond(c, "forge", out, err)
}

// HandleRepair handles /reparar <picareta|vara>.
func (h *ActionHandler) HandleRepair(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	slot, ok := repairSlot(c.Args())
	if !ok {
		return c.Reply("❌ Uso: /reparar <picareta|vara>")
	}
	ctx, cancel := commandContext()
	defer cancel()

	out, err := h.actionService.Repair(ctx, accountID(sender), slot)
	return respond(c, "repair", out, err)
}

// repairSlot maps the typed tool name to its equipment slot.
func repairSlot(args []string) (string, bool) {
	if len(args) == 0 {
		return "", false
	}
	switch strings.ToLower(args[0]) {
	case "picareta", "pickaxe":
		return "pickaxe", true
	case "vara", "rod":
		return "rod", true
	}
	return "", false
}
