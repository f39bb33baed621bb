package handler

import (
	"fmt"

	tele "gopkg.in/telebot.v3"

	"telegram-economy-bot/internal/service"
)

// AccountHandler handles profile, banking and job commands.
type AccountHandler struct {
	accountService *service.AccountService
	rankingService *service.RankingService
	engine         *service.Engine
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(engine *service.Engine, accountService *service.AccountService, rankingService *service.RankingService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		rankingService: rankingService,
		engine:         engine,
	}
}

// HandleStart handles /start. It creates the account on first contact.
func (h *AccountHandler) HandleStart(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	ctx, cancel := commandContext()
	defer cancel()

	acct, err := h.accountService.EnsureAccount(ctx, accountID(sender), senderName(sender))
	if err != nil {
		logFailure(c, "start", err)
		return c.Reply(internalErrorText)
	}
	return c.Reply(fmt.Sprintf("👋 Bem-vindo, %s!\n💰 Carteira: %s\n\n%s", acct.Name, coins(acct.Wallet), helpText))
}

// HandleHelp handles /ajuda.
func (h *AccountHandler) HandleHelp(c tele.Context) error {
	return c.Reply(helpText)
}

// HandleProfile handles /perfil.
func (h *AccountHandler) HandleProfile(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	ctx, cancel := commandContext()
	defer cancel()

	acct, err := h.accountService.EnsureAccount(ctx, accountID(sender), senderName(sender))
	if err != nil {
		logFailure(c, "profile", err)
		return c.Reply(internalErrorText)
	}
	msg := renderProfile(acct, h.engine.Catalog())
	if entry, ok, err := h.rankingService.RankOf(ctx, acct.ID); err == nil && ok {
		msg += fmt.Sprintf("\n🏆 Posição no ranking: #%d", entry.Rank)
	}
	return c.Reply(msg)
}

// HandleBalance handles /saldo.
func (h *AccountHandler) HandleBalance(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	ctx, cancel := commandContext()
	defer cancel()

	acct, err := h.accountService.EnsureAccount(ctx, accountID(sender), senderName(sender))
	if err != nil {
		logFailure(c, "balance", err)
		return c.Reply(internalErrorText)
	}
	return c.Reply(fmt.Sprintf("💰 Carteira: %s\n🏦 Banco: %s", coins(acct.Wallet), coins(acct.Bank)))
}

// HandleDaily handles /daily.
func (h *AccountHandler) HandleDaily(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	ctx, cancel := commandContext()
	defer cancel()

	out, err := h.accountService.ClaimDaily(ctx, accountID(sender))
	return respond(c, "daily", out, err)
}

// HandleDeposit handles /depositar <valor|tudo>.
func (h *AccountHandler) HandleDeposit(c tele.Context) error {
	return h.moveFunds(c, "deposit")
}

// HandleWithdraw handles /sacar <valor|tudo>.
func (h *AccountHandler) HandleWithdraw(c tele.Context) error {
	return h.moveFunds(c, "withdraw")
}

func (h *AccountHandler) moveFunds(c tele.Context, op string) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	args := c.Args()
	if len(args) == 0 {
		if op == "deposit" {
			return c.Reply("❌ Uso: /depositar <valor|tudo>")
		}
		return c.Reply("❌ Uso: /sacar <valor|tudo>")
	}
	ctx, cancel := commandContext()
	defer cancel()

	acct, err := h.accountService.EnsureAccount(ctx, accountID(sender), senderName(sender))
	if err != nil {
		logFailure(c, op, err)
		return c.Reply(internalErrorText)
	}

	var out *service.Outcome
	switch op {
	case "deposit":
		free := h.engine.Catalog().BankCapacity(acct.BankLevel) - acct.Bank
		amount, perr := parseAmount(args[0], min(acct.Wallet, free))
		if perr != nil {
			return c.Reply("❌ Valor inválido.")
		}
		out, err = h.accountService.Deposit(ctx, acct.ID, amount)
	default:
		amount, perr := parseAmount(args[0], acct.Bank)
		if perr != nil {
			return c.Reply("❌ Valor inválido.")
		}
		out, err = h.accountService.Withdraw(ctx, acct.ID, amount)
	}
	return respond(c, op, out, err)
}

// HandleUpgradeBank handles /banco_upgrade.
func (h *AccountHandler) HandleUpgradeBank(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	ctx, cancel := commandContext()
	defer cancel()

	out, err := h.accountService.UpgradeBank(ctx, accountID(sender))
	return respond(c, "upgrade_bank", out, err)
}

// HandleJobs handles /empregos.
func (h *AccountHandler) HandleJobs(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	ctx, cancel := commandContext()
	defer cancel()

	acct, err := h.accountService.GetAccount(ctx, accountID(sender))
	if err != nil {
		logFailure(c, "jobs", err)
		return c.Reply(internalErrorText)
	}
	return c.Reply(renderJobs(h.engine.Catalog(), acct.Job) + "\n\nUse /emprego <chave> para se candidatar.")
}

// HandleApplyJob handles /emprego <chave>.
func (h *AccountHandler) HandleApplyJob(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	args := c.Args()
	if len(args) == 0 {
		return c.Reply("❌ Uso: /emprego <chave>. Veja /empregos.")
	}
	ctx, cancel := commandContext()
	defer cancel()

	out, err := h.accountService.ApplyJob(ctx, accountID(sender), args[0])
	return respond(c, "apply_job", out, err)
}

// HandleQuitJob handles /demitir.
func (h *AccountHandler) HandleQuitJob(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	ctx, cancel := commandContext()
	defer cancel()

	out, err := h.accountService.QuitJob(ctx, accountID(sender))
	return respond(c, "quit_job", out, err)
}
