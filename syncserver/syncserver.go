package syncserver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/shopspring/decimal"

	"github.com/bartossh/Pecunia/logger"
	"github.com/bartossh/Pecunia/reconciliation"
	"github.com/bartossh/Pecunia/telemetry"
	"github.com/bartossh/Pecunia/transfer"
)

const (
	ApiVersion = "1.0.0"
	Header     = "Pecunia-Central"
)

const (
	accountGroupURL = "/account"
	syncGroupURL    = "/sync"
	tokenGroupURL   = "/token"
	createURL       = "/create"
	balanceURL      = "/balance"
	fundURL         = "/fund"
	historyURL      = "/history"
	offlineURL      = "/offline"
	generateURL     = "/generate"
)

const (
	AliveURL         = "/alive"                     // URL to check if server is alive and version.
	CreateAccountURL = accountGroupURL + createURL  // URL to register a new account.
	ReadBalanceURL   = accountGroupURL + balanceURL // URL to read the settled account balance.
	FundAccountURL   = accountGroupURL + fundURL    // URL to top up the account within its holding cap.
	ReadHistoryURL   = accountGroupURL + historyURL // URL to read the account's audit records.
	SyncOfflineURL   = syncGroupURL + offlineURL    // URL to reconcile a batch of offline transfers.
	GenerateTokenURL = tokenGroupURL + generateURL  // URL to generate new access token.
	WsURL            = "/ws"                        // URL to connect to websocket.
)

const historyQueryLimit = 100

var (
	ErrWrongPortSpecified = errors.New("port must be between 1 and 65535")
)

// AccountManager abstracts account operations of the repository.
type AccountManager interface {
	CreateAccount(ctx context.Context, accountID string, balance, maxBalance decimal.Decimal) error
	FundAccount(ctx context.Context, accountID string, amount decimal.Decimal) (decimal.Decimal, error)
	ReadBalance(ctx context.Context, accountID string) (decimal.Decimal, error)
}

// TransferReader abstracts audit record lookups.
type TransferReader interface {
	ReadTransfersByAccount(ctx context.Context, accountID string, limit int) ([]transfer.Record, error)
}

// TokenWriteInvalidateChecker abstracts token operations.
type TokenWriteInvalidateChecker interface {
	WriteToken(ctx context.Context, tkn string, expirationDate int64) error
	CheckToken(ctx context.Context, token string) (bool, error)
	InvalidateToken(ctx context.Context, token string) error
}

// Repository is the storage the server runs against.
type Repository interface {
	AccountManager
	TransferReader
	TokenWriteInvalidateChecker
}

// Reconciler applies offline transfer batches to the authoritative ledger.
type Reconciler interface {
	Reconcile(ctx context.Context, accountID string, batch []transfer.Record) (reconciliation.Result, error)
}

// Publisher pushes settled batch outcomes to the pub/sub queue.
type Publisher interface {
	PublishReconciledTransfers(accountID string, res reconciliation.Result) error
}

// Config contains configuration of the server.
type Config struct {
	Port           int             `yaml:"port"`             // Port to listen on.
	HoldingCap     decimal.Decimal `yaml:"holding_cap"`      // Max balance an account holds offline.
	TokenExpireSec int64           `yaml:"token_expire_sec"` // Access token validity in seconds.
}

type server struct {
	repo      Repository
	reconcile Reconciler
	pub       Publisher
	mes       *telemetry.Measurements
	hub       *hub
	log       logger.Logger
	cap       decimal.Decimal
	tokenTTL  time.Duration
}

// Run initializes routing and runs the server. To stop the server cancel the context.
// It blocks until the context is canceled.
func Run(
	ctx context.Context, c Config, repo Repository, reconcile Reconciler,
	pub Publisher, mes *telemetry.Measurements, log logger.Logger,
) error {
	var err error
	ctxx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := validateConfig(&c); err != nil {
		return err
	}

	s := &server{
		repo:      repo,
		reconcile: reconcile,
		pub:       pub,
		mes:       mes,
		hub:       newHub(log),
		log:       log,
		cap:       c.HoldingCap,
		tokenTTL:  time.Duration(c.TokenExpireSec) * time.Second,
	}

	router := fiber.New(fiber.Config{
		Prefork:       false,
		CaseSensitive: true,
		StrictRouting: true,
		ReadTimeout:   time.Second * 5,
		WriteTimeout:  time.Second * 5,
		ServerHeader:  Header,
		AppName:       ApiVersion,
		Concurrency:   4096,
	})
	router.Use(recover.New())

	router.Get(AliveURL, s.alive)

	account := router.Group(accountGroupURL)
	account.Post(createURL, s.accountCreate)
	account.Post(balanceURL, s.authorized, s.balance)
	account.Post(fundURL, s.authorized, s.fund)
	account.Post(historyURL, s.authorized, s.history)

	sync := router.Group(syncGroupURL)
	sync.Post(offlineURL, s.authorized, s.syncOffline)

	token := router.Group(tokenGroupURL)
	token.Post(generateURL, s.authorized, s.tokenGenerate)

	router.Group(WsURL, func(c *fiber.Ctx) error { return s.wsWrapper(ctxx, c) })

	go func() {
		err := router.Listen(fmt.Sprintf("0.0.0.0:%v", c.Port))
		if err != nil {
			cancel()
		}
	}()
	go s.hub.run(ctxx)

	<-ctxx.Done()

	if errx := router.Shutdown(); errx != nil {
		err = errors.Join(err, errx)
	}

	return err
}

func validateConfig(c *Config) error {
	if c.Port == 0 || c.Port > 65535 {
		return ErrWrongPortSpecified
	}
	if !c.HoldingCap.IsPositive() {
		c.HoldingCap = decimal.NewFromInt(1000)
	}
	if c.TokenExpireSec == 0 {
		c.TokenExpireSec = 3600
	}
	return nil
}

// authorized guards the endpoint behind a bearer access token.
func (s *server) authorized(c *fiber.Ctx) error {
	raw := c.Get("Authorization")
	tkn, found := strings.CutPrefix(raw, "Bearer ")
	if !found || tkn == "" {
		s.log.Warn(fmt.Sprintf("request without bearer token from address: %s", c.IP()))
		return fiber.ErrForbidden
	}
	ok, err := s.repo.CheckToken(c.Context(), tkn)
	if err != nil {
		s.log.Error(fmt.Sprintf("failed to check token: %s", err.Error()))
		return fiber.ErrForbidden
	}
	if !ok {
		s.log.Warn(fmt.Sprintf("invalid token provided from address: %s", c.IP()))
		return fiber.ErrForbidden
	}
	return c.Next()
}
