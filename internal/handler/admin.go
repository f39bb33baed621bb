package handler

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-economy-bot/internal/pkg/snapshot"
	"telegram-economy-bot/internal/service"
)

// AdminHandler handles admin-only commands. Access is checked by the admin
// middleware.
type AdminHandler struct {
	accountService *service.AccountService
	marketService  *service.MarketService
	backups        *snapshot.Manager
}

// NewAdminHandler creates a new AdminHandler. backups may be nil when
// snapshots are disabled.
func NewAdminHandler(accountService *service.AccountService, marketService *service.MarketService, backups *snapshot.Manager) *AdminHandler {
	return &AdminHandler{
		accountService: accountService,
		marketService:  marketService,
		backups:        backups,
	}
}

// HandleReset handles /admin_reset <user_id>, or as a reply.
func (h *AdminHandler) HandleReset(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	target, ok := targetUser(c, nil)
	if args := c.Args(); !ok && len(args) == 1 && isUserID(args[0]) {
		target, ok = args[0], true
	}
	if !ok {
		return c.Reply("❌ Uso: /admin_reset <user_id> ou responda a mensagem do jogador")
	}
	ctx, cancel := commandContext()
	defer cancel()

	out, err := h.accountService.ResetAccount(ctx, target)
	if err == nil {
		log.Info().
			Int64("admin_id", sender.ID).
			Str("target_id", target).
			Str("operation", "admin_reset").
			Msg("Admin operation executed")
	}
	return respond(c, "admin_reset", out, err)
}

// HandleStats handles /admin_stats.
func (h *AdminHandler) HandleStats(c tele.Context) error {
	ctx, cancel := commandContext()
	defer cancel()

	accounts, err := h.accountService.ListAccounts(ctx)
	if err != nil {
		logFailure(c, "admin_stats", err)
		return c.Reply(internalErrorText)
	}
	listings, err := h.marketService.Listings(ctx)
	if err != nil {
		logFailure(c, "admin_stats", err)
		return c.Reply(internalErrorText)
	}

	var wallets, banks int64
	for _, a := range accounts {
		wallets += a.Wallet
		banks += a.Bank
	}
	return c.Reply(fmt.Sprintf(
		"📈 Estatísticas\n%s\n👥 Contas: %d\n💰 Em carteiras: %s\n🏦 Em bancos: %s\n🏪 Anúncios: %d",
		separator, len(accounts), coins(wallets), coins(banks), len(listings),
	))
}

// HandleBackup handles /admin_backup.
func (h *AdminHandler) HandleBackup(c tele.Context) error {
	if h.backups == nil {
		return c.Reply("❌ Backups estão desativados.")
	}
	ctx, cancel := commandContext()
	defer cancel()

	path, err := h.backups.Backup(ctx)
	if err != nil {
		logFailure(c, "admin_backup", err)
		return c.Reply("❌ Falha ao gerar backup.")
	}
	return c.Reply("💾 Backup salvo: " + filepath.Base(path))
}
