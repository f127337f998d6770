package adapter

import (
	"time"

	"github.com/shopspring/decimal"

	"portwatch/internal/adapter/enum"
)

// Order is an open order of the account.
type Order struct {
	ID       int64           `json:"id"`
	Symbol   string          `json:"symbol"`
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
	Type     enum.OrderType  `json:"-"`
	Side     enum.OrderSide  `json:"-"`
	Label    string          `json:"type"`
	PlacedAt time.Time       `json:"time"`
}

// NewOrderLabel joins the venue's type and side the way the order list shows them, e.g. "LIMIT BUY".
func NewOrderLabel(orderType, side string) string {
	return orderType + " " + side
}
