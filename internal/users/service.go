package users

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"shibau-trading/internal/model"
	"shibau-trading/internal/store"
)

var ErrInvalidAddress = errors.New("address is required")

// referralReward is credited once per referred signup.
var referralReward = decimal.RequireFromString("50")

// Service manages user identity. A user is just a wallet address with
// seeded balances; creating an existing address returns the existing
// user instead of failing.
type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// Create registers a wallet address, grants the default starting
// balances and credits the referrer when a valid referral code is
// presented. Create is idempotent per address.
func (s *Service) Create(ctx context.Context, address, referralCode string) (*model.User, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, ErrInvalidAddress
	}

	if existing, err := s.store.GetUserByAddress(ctx, address); err == nil {
		return existing, nil
	}

	u := model.User{
		ID:           uuid.NewString(),
		Address:      address,
		Balances:     store.DefaultBalances(),
		ReferralCode: referralCodeFor(address),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateUser(ctx, &u); err != nil {
		// Lost the race to a concurrent create for the same address.
		if errors.Is(err, store.ErrAlreadyExists) {
			return s.store.GetUserByAddress(ctx, address)
		}
		return nil, err
	}

	if referralCode != "" {
		s.recordReferral(ctx, &u, referralCode)
	}

	slog.Info("user created", "user_id", u.ID, "address", address)
	return &u, nil
}

func (s *Service) GetByAddress(ctx context.Context, address string) (*model.User, error) {
	return s.store.GetUserByAddress(ctx, address)
}

func (s *Service) Referrals(ctx context.Context, referrerID string) ([]model.Referral, error) {
	return s.store.ListReferrals(ctx, referrerID)
}

// recordReferral is best effort: a bad code never blocks signup.
func (s *Service) recordReferral(ctx context.Context, referred *model.User, code string) {
	referrer, ok := s.findByReferralCode(ctx, code)
	if !ok || referrer.ID == referred.ID {
		return
	}
	r := model.Referral{
		ID:         uuid.NewString(),
		ReferrerID: referrer.ID,
		ReferredID: referred.ID,
		Reward:     referralReward,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.CreateReferral(ctx, &r); err != nil {
		slog.Warn("referral not recorded", "code", code, "error", err)
		return
	}
	if _, err := s.store.ApplyBalanceDeltas(ctx, referrer.ID, map[string]decimal.Decimal{
		"USDC": referralReward,
	}); err != nil {
		slog.Warn("referral reward not credited", "referrer_id", referrer.ID, "error", err)
	}
}

func (s *Service) findByReferralCode(ctx context.Context, code string) (*model.User, bool) {
	u, err := s.store.GetUserByReferralCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, false
	}
	return u, true
}

// referralCodeFor derives a short stable code from the address.
func referralCodeFor(address string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(address)))
	return "SHIBA-" + strings.ToUpper(hex.EncodeToString(sum[:4]))
}
