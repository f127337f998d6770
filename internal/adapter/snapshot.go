package adapter

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is a committed portfolio valuation. It is only ever replaced as a whole.
type Snapshot struct {
	Assets      []Asset          `json:"assets"`
	Total       *decimal.Decimal `json:"total,omitempty"`
	CommittedAt time.Time        `json:"committedAt"`
}

// Clone returns a copy that shares no slices or pointers with s.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{CommittedAt: s.CommittedAt}
	if s.Assets != nil {
		out.Assets = make([]Asset, len(s.Assets))
		for i, a := range s.Assets {
			out.Assets[i] = a
			if a.Value != nil {
				v := *a.Value
				out.Assets[i].Value = &v
			}
		}
	}
	if s.Total != nil {
		t := *s.Total
		out.Total = &t
	}
	return out
}
