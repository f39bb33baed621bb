// Package bot wires the Telegram transport: middleware and command routes.
package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-economy-bot/internal/config"
	"telegram-economy-bot/internal/handler"
	"telegram-economy-bot/internal/pkg/snapshot"
	"telegram-economy-bot/internal/service"
)

const defaultPollTimeout = 10 * time.Second

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot     *tele.Bot
	cfg     *config.Config
	private *PrivateUsers

	accountHandler   *handler.AccountHandler
	actionHandler    *handler.ActionHandler
	farmHandler      *handler.FarmHandler
	marketHandler    *handler.MarketHandler
	challengeHandler *handler.ChallengeHandler
	petHandler       *handler.PetHandler
	propertyHandler  *handler.PropertyHandler
	shopHandler      *handler.ShopHandler
	transferHandler  *handler.TransferHandler
	rankingHandler   *handler.RankingHandler
	adminHandler     *handler.AdminHandler
}

// Dependencies holds everything the handlers need.
type Dependencies struct {
	Config           *config.Config
	Engine           *service.Engine
	AccountService   *service.AccountService
	ActionService    *service.ActionService
	FarmService      *service.FarmService
	KitchenService   *service.KitchenService
	MarketService    *service.MarketService
	ChallengeService *service.ChallengeService
	PetService       *service.PetService
	PropertyService  *service.PropertyService
	ShopService      *service.ShopService
	TransferService  *service.TransferService
	RankingService   *service.RankingService
	Backups          *snapshot.Manager
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	timeout := deps.Config.Bot.PollTimeout
	if timeout <= 0 {
		timeout = defaultPollTimeout
	}
	teleBot, err := tele.NewBot(tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
		OnError: func(err error, c tele.Context) {
			log.Error().Err(err).Msg("Telegram handler error")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot:     teleBot,
		cfg:     deps.Config,
		private: NewPrivateUsers(),

		accountHandler:   handler.NewAccountHandler(deps.Engine, deps.AccountService, deps.RankingService),
		actionHandler:    handler.NewActionHandler(deps.ActionService),
		farmHandler:      handler.NewFarmHandler(deps.FarmService, deps.KitchenService, deps.AccountService),
		marketHandler:    handler.NewMarketHandler(deps.MarketService),
		challengeHandler: handler.NewChallengeHandler(deps.Engine, deps.ChallengeService),
		petHandler:       handler.NewPetHandler(deps.PetService),
		propertyHandler:  handler.NewPropertyHandler(deps.PropertyService),
		shopHandler:      handler.NewShopHandler(deps.ShopService, deps.AccountService),
		transferHandler:  handler.NewTransferHandler(deps.TransferService, deps.AccountService),
		rankingHandler:   handler.NewRankingHandler(deps.RankingService),
		adminHandler:     handler.NewAdminHandler(deps.AccountService, deps.MarketService, deps.Backups),
	}

	b.registerMiddleware()
	b.registerHandlers()
	return b, nil
}

func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg, b.private))
	b.bot.Use(LoggingMiddleware())
}

func (b *Bot) registerHandlers() {
	// account
	b.bot.Handle("/start", b.accountHandler.HandleStart)
	b.bot.Handle("/ajuda", b.accountHandler.HandleHelp)
	b.bot.Handle("/perfil", b.accountHandler.HandleProfile)
	b.bot.Handle("/saldo", b.accountHandler.HandleBalance)
	b.bot.Handle("/daily", b.accountHandler.HandleDaily)
	b.bot.Handle("/depositar", b.accountHandler.HandleDeposit)
	b.bot.Handle("/sacar", b.accountHandler.HandleWithdraw)
	b.bot.Handle("/banco_upgrade", b.accountHandler.HandleUpgradeBank)
	b.bot.Handle("/empregos", b.accountHandler.HandleJobs)
	b.bot.Handle("/emprego", b.accountHandler.HandleApplyJob)
	b.bot.Handle("/demitir", b.accountHandler.HandleQuitJob)

	// actions
	b.bot.Handle("/trabalhar", b.actionHandler.HandleWork)
	b.bot.Handle("/minerar", b.actionHandler.HandleMine)
	b.bot.Handle("/pescar", b.actionHandler.HandleFish)
	b.bot.Handle("/cacar", b.actionHandler.HandleHunt)
	b.bot.Handle("/explorar", b.actionHandler.HandleExplore)
	b.bot.Handle("/crime", b.actionHandler.HandleCrime)
	b.bot.Handle("/forjar", b.actionHandler.HandleForge)
	b.bot.Handle("/reparar", b.actionHandler.HandleRepair)

	// farm and kitchen
	b.bot.Handle("/plantar", b.farmHandler.HandlePlant)
	b.bot.Handle("/colher", b.farmHandler.HandleHarvest)
	b.bot.Handle("/fazenda", b.farmHandler.HandleFarm)
	b.bot.Handle("/cozinhar", b.farmHandler.HandleCook)
	b.bot.Handle("/comer", b.farmHandler.HandleEat)
	b.bot.Handle("/vender_comida", b.farmHandler.HandleSellFood)

	// market
	b.bot.Handle("/mercado", b.marketHandler.HandleListings)
	b.bot.Handle("/anunciar", b.marketHandler.HandleList)
	b.bot.Handle("/arrematar", b.marketHandler.HandleBuy)
	b.bot.Handle("/cancelar", b.marketHandler.HandleCancel)

	b.bot.Handle("/desafios", b.challengeHandler.HandleChallenges)
	b.bot.Handle("/resgatar", b.challengeHandler.HandleClaim)

	// pets
	b.bot.Handle("/adotar", b.petHandler.HandleAdopt)
	b.bot.Handle("/pets", b.petHandler.HandlePets)
	b.bot.Handle("/alimentar", b.petHandler.HandleFeed)
	b.bot.Handle("/brincar", b.petHandler.HandlePlay)
	b.bot.Handle("/batalha", b.petHandler.HandleBattle)

	b.bot.Handle("/imoveis", b.propertyHandler.HandleProperties)
	b.bot.Handle("/comprar_imovel", b.propertyHandler.HandleBuy)
	b.bot.Handle("/coletar", b.propertyHandler.HandleCollect)

	b.bot.Handle("/loja", b.shopHandler.HandleShop)
	b.bot.Handle("/comprar", b.shopHandler.HandleBuy)
	b.bot.Handle("/vender", b.shopHandler.HandleSell)

	b.bot.Handle("/pagar", b.transferHandler.HandlePay)
	b.bot.Handle("/top", b.rankingHandler.HandleTop)

	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/admin_reset", b.adminHandler.HandleReset)
	adminGroup.Handle("/admin_stats", b.adminHandler.HandleStats)
	adminGroup.Handle("/admin_backup", b.adminHandler.HandleBackup)

	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

// handleCallback routes inline button presses.
func (b *Bot) handleCallback(c tele.Context) error {
	cb := c.Callback()
	if cb == nil {
		return nil
	}
	data := strings.TrimPrefix(cb.Data, "\f")
	log.Debug().Str("data", data).Msg("Callback received")

	if strings.HasPrefix(data, "shop_") {
		return b.shopHandler.HandleCallback(c)
	}
	return c.Respond()
}

// Start starts polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Str("username", b.bot.Me.Username).Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops polling.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
