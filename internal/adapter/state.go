package adapter

import (
	"time"

	"github.com/shopspring/decimal"
)

// State is everything the display layer renders.
type State struct {
	Configured  bool             `json:"configured"`
	SymbolCount int              `json:"symbolCount"`
	Assets      []Asset          `json:"assets"`
	OpenOrders  []Order          `json:"openOrders"`
	Total       *decimal.Decimal `json:"total,omitempty"`
	Halted      bool             `json:"halted"`
	HaltReason  string           `json:"haltReason,omitempty"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}
