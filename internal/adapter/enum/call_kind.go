package enum

// CallKind names one recurring remote operation.
type CallKind uint8

const (
	_call_kind_beg CallKind = iota
	CallBalances
	CallOpenOrders
	CallPriceTable
	CallSymbols
	_call_kind_end
)

func (k CallKind) IsAvailable() bool {
	return k > _call_kind_beg && k < _call_kind_end
}

func (k CallKind) String() string {
	switch k {
	case CallBalances:
		return "balances"
	case CallOpenOrders:
		return "open_orders"
	case CallPriceTable:
		return "price_table"
	case CallSymbols:
		return "symbols"
	default:
		return "unknown"
	}
}

// CallKinds returns every available kind in declaration order.
func CallKinds() []CallKind {
	kinds := make([]CallKind, 0, int(_call_kind_end)-1)
	for k := _call_kind_beg + 1; k < _call_kind_end; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}
