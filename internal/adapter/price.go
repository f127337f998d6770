package adapter

import "github.com/shopspring/decimal"

// Price is the price of one unit of Symbol expressed in the base currency.
type Price struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}
