package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is identified by wallet address. There is no credential, the
// address is the whole identity.
type User struct {
	ID           string                     `json:"id"`
	Address      string                     `json:"address"`
	Balances     map[string]decimal.Decimal `json:"balances"`
	ReferralCode string                     `json:"referralCode"`
	CreatedAt    time.Time                  `json:"createdAt"`
}

type Referral struct {
	ID         string          `json:"id"`
	ReferrerID string          `json:"referrerId"`
	ReferredID string          `json:"referredId"`
	Reward     decimal.Decimal `json:"reward"`
	CreatedAt  time.Time       `json:"createdAt"`
}
