package boot

import (
	"context"
	"time"

	"guilance/src/common"
	"guilance/src/config"
	"guilance/src/db"
	"guilance/src/lib"
	awslib "guilance/src/lib/aws"
	"guilance/src/lib/mailer"
	"guilance/src/lib/zarinpal"
	"guilance/src/models"
	"guilance/src/repositories"
	"guilance/src/services"
	"guilance/src/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const callbackLockTTL = 30 * time.Second

func InitDb() *gorm.DB {
	db := db.GetDb()
	if err := models.AutoMigrate(db); err != nil {
		zap.L().Fatal("error migration", zap.Error(err))
	}
	return db
}

// App holds the wired domain services handed to the HTTP handlers.
type App struct {
	Store         *repositories.GormStore
	Discounts     *services.DiscountEngine
	Ledger        *services.Ledger
	Registrations *services.RegistrationCoordinator
	Checkout      *services.Checkout
	Tickets       *services.TicketIssuer
	Events        *services.EventCatalog
	Notifier      services.Notifier
}

// Deps are the outside-world collaborators of App. Nil values fall back to no-ops.
type Deps struct {
	Gateway   services.Gateway
	Locker    services.Locker
	Notifier  services.Notifier
	Alerts    services.Publisher
	Upload    services.Uploader
	Cache     *redis.Client
	TicketKey []byte
}

func NewApp(gormDB *gorm.DB, cfg *config.Config, deps Deps) *App {
	store := repositories.NewGormStore(gormDB)
	if deps.Locker == nil {
		deps.Locker = lib.NewRedisLocker(nil, callbackLockTTL)
	}
	if deps.Notifier == nil {
		deps.Notifier = services.NoopNotifier{}
	}
	discounts := services.NewDiscountEngine(store, cfg.Payments.MinPayableAmount)
	ledger := services.NewLedger(store.Payments())
	registrations := services.NewRegistrationCoordinator(store, deps.Notifier)
	checkout := services.NewCheckout(services.CheckoutDeps{
		Store:         store,
		Discounts:     discounts,
		Ledger:        ledger,
		Registrations: registrations,
		Gateway:       deps.Gateway,
		Locker:        deps.Locker,
		Notifier:      deps.Notifier,
		Alerts:        deps.Alerts,
	}, services.CheckoutConfig{
		CallbackURL:  cfg.Zarinpal.CallbackURL,
		FrontendRoot: cfg.FrontendRoot,
	})
	return &App{
		Store:         store,
		Discounts:     discounts,
		Ledger:        ledger,
		Registrations: registrations,
		Checkout:      checkout,
		Tickets:       services.NewTicketIssuer(store, deps.TicketKey, cfg.TempDir, deps.Upload, deps.Cache),
		Events:        services.NewEventCatalog(store),
		Notifier:      deps.Notifier,
	}
}

// InitServices wires App against the production infrastructure named in cfg.
func InitServices(ctx context.Context, gormDB *gorm.DB, cfg *config.Config) *App {
	ticketKey, err := utils.ParseKey(cfg.QRCSecret)
	if err != nil {
		zap.L().Fatal("invalid API_QRC_SECRET", zap.Error(err))
	}
	rd := lib.GetRedisClient()
	if rd == nil {
		zap.L().Warn("redis not configured, callback locks and ticket cache disabled")
	}
	publisher := awslib.NewSNSPublisher(cfg.AWS.PaymentsTopicArn)
	notifier := common.NewQueueNotifier(mailer.NewDefault(), lib.SendPush, publisher, cfg.Email.From, cfg.Email.FromName)

	var upload services.Uploader
	if cfg.AWS.AssetsBucket != "" {
		upload = awslib.S3UploadAsset
	}
	gateway := zarinpal.NewClient(zarinpal.Config{
		MerchantID: merchantID(ctx, cfg),
		Sandbox:    cfg.Zarinpal.Sandbox,
		Timeout:    cfg.Zarinpal.Timeout,
	})
	return NewApp(gormDB, cfg, Deps{
		Gateway:   gateway,
		Locker:    lib.NewRedisLocker(rd, callbackLockTTL),
		Notifier:  notifier,
		Alerts:    publisher,
		Upload:    upload,
		Cache:     rd,
		TicketKey: ticketKey,
	})
}

// merchantID prefers Secrets Manager when a secret id is configured.
func merchantID(ctx context.Context, cfg *config.Config) string {
	secretID := cfg.Zarinpal.MerchantSecretID
	if secretID == "" {
		return cfg.Zarinpal.MerchantID
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	id, err := lib.GetSecretString(ctx, secretID, "merchant_id")
	if err != nil {
		zap.L().Error("could not read merchant id secret, using ZARINPAL_MERCHANT_ID", zap.String("secret_id", secretID), zap.Error(err))
		return cfg.Zarinpal.MerchantID
	}
	return id
}

func InitScheduler(app *App, cfg *config.Config) {
	sched, err := lib.GetScheduler()
	if err != nil {
		zap.L().Error("scheduler unavailable, stale payments will not be swept", zap.Error(err))
		return
	}
	if _, err := common.ScheduleStalePaymentSweep(app.Ledger, cfg.Payments.SweepInterval, cfg.Payments.PendingTTL); err != nil {
		zap.L().Error("error scheduling payment sweep", zap.Error(err))
		return
	}
	zap.L().Info("jobs in queue", zap.Int("count", len(sched.Jobs())))
	sched.Start()
}

func StopScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		zap.L().Error("error retrieving scheduler", zap.Error(err))
		return
	}
	if err := sched.Shutdown(); err != nil {
		zap.L().Error("error stopping scheduler", zap.Error(err))
	}
}

func InitBroker(ctx context.Context, cfg *config.Config) {
	if cfg.IsLocal() {
		topic := utils.WithSuffix(cfg.Email.Queue)
		if _, err := lib.KafkaCreateTopics(ctx, topic); err != nil {
			zap.L().Warn("error creating kafka topics", zap.String("topic", topic), zap.Error(err))
		}
	}
	common.Consumers(ctx)
}
