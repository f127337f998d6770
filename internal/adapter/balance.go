package adapter

import "github.com/shopspring/decimal"

// Balance is one account balance line as reported by the venue.
type Balance struct {
	Symbol string          `json:"symbol"`
	Free   decimal.Decimal `json:"free"`
	Locked decimal.Decimal `json:"locked"`
	Total  decimal.Decimal `json:"total"`
}

func NewBalance(symbol string, free, locked decimal.Decimal) Balance {
	return Balance{
		Symbol: symbol,
		Free:   free,
		Locked: locked,
		Total:  free.Add(locked),
	}
}

// Held reports whether the balance takes part in the valuation.
func (b Balance) Held() bool {
	return b.Total.IsPositive()
}

// Asset is a held balance with its valuation in the base currency.
type Asset struct {
	Balance
	Value *decimal.Decimal `json:"value,omitempty"`
}
