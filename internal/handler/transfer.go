package handler

import (
	tele "gopkg.in/telebot.v3"

	"telegram-economy-bot/internal/service"
)

// TransferHandler handles wallet-to-wallet payments.
type TransferHandler struct {
	transferService *service.TransferService
	accountService  *service.AccountService
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(transferService *service.TransferService, accountService *service.AccountService) *TransferHandler {
	return &TransferHandler{
		transferService: transferService,
		accountService:  accountService,
	}
}

// HandlePay handles /pagar <valor|tudo> as a reply, or /pagar <id> <valor>.
func (h *TransferHandler) HandlePay(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	args := c.Args()
	target, ok := targetUser(c, args)
	if !ok || len(args) == 0 {
		return c.Reply("❌ Uso: responda a mensagem de alguém com /pagar <valor>, ou /pagar <id> <valor>")
	}
	ctx, cancel := commandContext()
	defer cancel()

	from := accountID(sender)
	acct, err := h.accountService.GetAccount(ctx, from)
	if err != nil {
		logFailure(c, "pay", err)
		return c.Reply(internalErrorText)
	}
	amount, err := parseAmount(lastArg(args), acct.Wallet)
	if err != nil {
		return c.Reply("❌ Valor inválido.")
	}

	out, err := h.transferService.Transfer(ctx, from, target, amount)
	return respond(c, "transfer", out, err)
}
