package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/valeclub/valeclub-backend/pkg/enums"
)

// BillingPlan captures local metadata for a membership plan. Provider price
// IDs map payment events back to plans; price and name may be incomplete
// locally, in which case the pricing chain falls back to the provider catalog.
type BillingPlan struct {
	ID              string                    `gorm:"column:id;primaryKey"`
	Name            string                    `gorm:"column:name;not null"`
	Provider        enums.PaymentProvider     `gorm:"column:provider;type:payment_provider;not null"`
	ProviderPriceID string                    `gorm:"column:provider_price_id;not null;uniqueIndex"`
	IntervalUnit    enums.BillingIntervalUnit `gorm:"column:interval_unit;type:billing_interval_unit;not null"`
	IntervalCount   int                       `gorm:"column:interval_count;not null;default:1"`
	PriceAmount     decimal.Decimal           `gorm:"column:price_amount;type:numeric(12,2)"`
	CurrencyCode    string                    `gorm:"column:currency_code;not null;default:'BRL'"`
	IsDefault       bool                      `gorm:"column:is_default;not null;default:false"`
	CreatedAt       time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}
