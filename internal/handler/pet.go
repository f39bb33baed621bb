package handler

import (
	"strings"

	tele "gopkg.in/telebot.v3"

	"telegram-economy-bot/internal/service"
)

// PetHandler handles pet commands. Pet positions are typed 1-based.
type PetHandler struct {
	petService *service.PetService
}

// NewPetHandler creates a new PetHandler.
func NewPetHandler(petService *service.PetService) *PetHandler {
	return &PetHandler{petService: petService}
}

// HandleAdopt handles /adotar <espécie> [nome].
func (h *PetHandler) HandleAdopt(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	args := c.Args()
	if len(args) == 0 {
		return c.Reply("❌ Uso: /adotar <espécie> [nome]")
	}
	ctx, cancel := commandContext()
	defer cancel()

	name := strings.Join(args[1:], " ")
	out, err := h.petService.Adopt(ctx, accountID(sender), args[0], name)
	return respond(c, "adopt", out, err)
}

// HandlePets handles /pets.
func (h *PetHandler) HandlePets(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	ctx, cancel := commandContext()
	defer cancel()

	pets, err := h.petService.Pets(ctx, accountID(sender))
	if err != nil {
		logFailure(c, "pets", err)
		return c.Reply(internalErrorText)
	}
	return c.Reply(renderPets(pets))
}

// HandleFeed handles /alimentar [n] [comida]. Without a food key the first
// pet food in the inventory is used.
func (h *PetHandler) HandleFeed(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	index, food, err := parseFeed(c.Args())
	if err != nil {
		return c.Reply("❌ Uso: /alimentar [n] [comida]")
	}
	ctx, cancel := commandContext()
	defer cancel()

	out, err := h.petService.Feed(ctx, accountID(sender), index, food)
	return respond(c, "feed", out, err)
}

// HandlePlay handles /brincar [n].
func (h *PetHandler) HandlePlay(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	index, err := parseIndex(c.Args(), 0)
	if err != nil {
		return c.Reply("❌ Uso: /brincar [n]")
	}
	ctx, cancel := commandContext()
	defer cancel()

	out, err := h.petService.Play(ctx, accountID(sender), index)
	return respond(c, "play", out, err)
}

// HandleBattle handles /batalha [n], replying to the opponent's message or
// mentioning them.
func (h *PetHandler) HandleBattle(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	args := c.Args()
	target, ok := targetUser(c, args)
	if !ok {
		return c.Reply("❌ Responda a mensagem do oponente com /batalha [n]")
	}
	index, err := battleIndex(args, target)
	if err != nil {
		return c.Reply("❌ Uso: /batalha [n]")
	}
	ctx, cancel := commandContext()
	defer cancel()

	out, err := h.petService.Battle(ctx, accountID(sender), target, index)
	return respond(c, "battle", out, err)
}

// battleIndex reads the optional pet position that follows the opponent.
func battleIndex(args []string, target string) (int, error) {
	if len(args) >= 2 && args[0] == target {
		return parseIndex(args, 1)
	}
	return parseIndex(args, 0)
}

// parseFeed reads "[n] [comida]" in either order of presence.
func parseFeed(args []string) (int, string, error) {
	switch len(args) {
	case 0:
		return 0, "", nil
	case 1:
		if index, err := parseIndex(args, 0); err == nil {
			return index, "", nil
		}
		return 0, args[0], nil
	default:
		index, err := parseIndex(args, 0)
		if err != nil {
			return 0, "", err
		}
		return index, args[1], nil
	}
}
