package syncserver

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bartossh/Pecunia/transfer"
)

// AliveResponse is a response for alive and version check.
type AliveResponse struct {
	Alive      bool   `json:"alive"`
	APIVersion string `json:"api_version"`
	APIHeader  string `json:"api_header"`
}

func (s *server) alive(c *fiber.Ctx) error {
	return c.JSON(
		AliveResponse{
			Alive:      true,
			APIVersion: ApiVersion,
			APIHeader:  Header,
		})
}

// CreateAccountRequest is a request to register a new account.
type CreateAccountRequest struct {
	AccountID string `json:"account_id"`
}

// CreateAccountResponse is a response for account registration.
type CreateAccountResponse struct {
	Success bool `json:"success"`
}

func (s *server) accountCreate(c *fiber.Ctx) error {
	var req CreateAccountRequest
	if err := c.BodyParser(&req); err != nil {
		s.log.Warn(fmt.Sprintf("account create, malformed request from %s: %s", c.IP(), err.Error()))
		return fiber.ErrBadRequest
	}
	if req.AccountID == "" {
		return fiber.ErrBadRequest
	}
	if err := s.repo.CreateAccount(c.Context(), req.AccountID, decimal.Zero, s.cap); err != nil {
		s.log.Error(fmt.Sprintf("account create failed for [ %s ]: %s", req.AccountID, err.Error()))
		return c.JSON(CreateAccountResponse{Success: false})
	}
	return c.JSON(CreateAccountResponse{Success: true})
}

// BalanceRequest is a request to read the settled account balance.
type BalanceRequest struct {
	AccountID string `json:"account_id"`
}

// BalanceResponse carries the settled account balance.
type BalanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}

func (s *server) balance(c *fiber.Ctx) error {
	var req BalanceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.ErrBadRequest
	}
	balance, err := s.repo.ReadBalance(c.Context(), req.AccountID)
	if err != nil {
		s.log.Warn(fmt.Sprintf("balance read failed for [ %s ]: %s", req.AccountID, err.Error()))
		return fiber.ErrNotFound
	}
	return c.JSON(BalanceResponse{Balance: balance})
}

// FundAccountRequest is a request to top up the account.
type FundAccountRequest struct {
	AccountID string          `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
}

func (s *server) fund(c *fiber.Ctx) error {
	var req FundAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.ErrBadRequest
	}
	if !req.Amount.IsPositive() {
		return fiber.ErrBadRequest
	}
	balance, err := s.repo.FundAccount(c.Context(), req.AccountID, req.Amount)
	if err != nil {
		s.log.Warn(fmt.Sprintf("funding failed for [ %s ]: %s", req.AccountID, err.Error()))
		return fiber.ErrUnprocessableEntity
	}
	return c.JSON(BalanceResponse{Balance: balance})
}

// HistoryRequest is a request to read the account's audit records.
type HistoryRequest struct {
	AccountID string `json:"account_id"`
	Limit     int    `json:"limit"`
}

// HistoryResponse carries audit records, most recent first.
type HistoryResponse struct {
	Transfers []transfer.Record `json:"transfers"`
}

func (s *server) history(c *fiber.Ctx) error {
	var req HistoryRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.ErrBadRequest
	}
	if req.Limit <= 0 || req.Limit > historyQueryLimit {
		req.Limit = historyQueryLimit
	}
	recs, err := s.repo.ReadTransfersByAccount(c.Context(), req.AccountID, req.Limit)
	if err != nil {
		s.log.Error(fmt.Sprintf("history read failed for [ %s ]: %s", req.AccountID, err.Error()))
		return fiber.ErrNotFound
	}
	return c.JSON(HistoryResponse{Transfers: recs})
}

// SyncRequest is a batch of offline transfers queued on one device.
type SyncRequest struct {
	AccountID string            `json:"account_id"`
	Transfers []transfer.Record `json:"transfers"`
}

func (s *server) syncOffline(c *fiber.Ctx) error {
	var req SyncRequest
	if err := c.BodyParser(&req); err != nil {
		s.log.Warn(fmt.Sprintf("sync, malformed request from %s: %s", c.IP(), err.Error()))
		return fiber.ErrBadRequest
	}

	start := time.Now()
	result, err := s.reconcile.Reconcile(c.Context(), req.AccountID, req.Transfers)
	if err != nil {
		s.log.Error(fmt.Sprintf("sync batch of [ %s ] aborted: %s", req.AccountID, err.Error()))
		return fiber.ErrUnprocessableEntity
	}
	s.mes.MeasureSyncDuration(start)
	s.mes.AddConfirmed(len(result.Confirmed))
	s.mes.AddFailed(len(result.Failed))

	if s.pub != nil {
		if err := s.pub.PublishReconciledTransfers(req.AccountID, result); err != nil {
			s.log.Error(fmt.Sprintf("publishing settled batch of [ %s ]: %s", req.AccountID, err.Error()))
		}
	}
	s.hub.broadcast <- &Message{Command: CommandReconciled, AccountID: req.AccountID, Result: result}

	return c.JSON(result)
}

// GenerateTokenResponse carries a fresh access token.
type GenerateTokenResponse struct {
	Token          string `json:"token"`
	ExpirationDate int64  `json:"expiration_date"`
}

func (s *server) tokenGenerate(c *fiber.Ctx) error {
	tkn := uuid.NewString()
	expire := time.Now().Add(s.tokenTTL).UnixNano()
	if err := s.repo.WriteToken(c.Context(), tkn, expire); err != nil {
		s.log.Error(fmt.Sprintf("token generation failed: %s", err.Error()))
		return fiber.ErrInternalServerError
	}
	return c.JSON(GenerateTokenResponse{Token: tkn, ExpirationDate: expire})
}
