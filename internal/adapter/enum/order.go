package enum

// OrderSide buy, sell
type OrderSide uint8

const (
	_order_side_beg OrderSide = iota
	OrderSideBuy
	OrderSideSell
	_order_side_end
)

func (s OrderSide) IsAvailable() bool {
	return s > _order_side_beg && s < _order_side_end
}

// ParseOrderSide maps the venue's side field.
func ParseOrderSide(s string) OrderSide {
	switch s {
	case "BUY":
		return OrderSideBuy
	case "SELL":
		return OrderSideSell
	default:
		return _order_side_beg
	}
}

// OrderType limit, market and the stop/take-profit variants of the spot venue.
type OrderType uint8

const (
	_order_type_beg OrderType = iota
	OrderTypeLimit
	OrderTypeMarket
	OrderTypeStopLoss
	OrderTypeStopLossLimit
	OrderTypeTakeProfit
	OrderTypeTakeProfitLimit
	OrderTypeLimitMaker
	_order_type_end
)

func (t OrderType) IsAvailable() bool {
	return t > _order_type_beg && t < _order_type_end
}

// ParseOrderType maps the venue's type field.
func ParseOrderType(s string) OrderType {
	switch s {
	case "LIMIT":
		return OrderTypeLimit
	case "MARKET":
		return OrderTypeMarket
	case "STOP_LOSS":
		return OrderTypeStopLoss
	case "STOP_LOSS_LIMIT":
		return OrderTypeStopLossLimit
	case "TAKE_PROFIT":
		return OrderTypeTakeProfit
	case "TAKE_PROFIT_LIMIT":
		return OrderTypeTakeProfitLimit
	case "LIMIT_MAKER":
		return OrderTypeLimitMaker
	default:
		return _order_type_beg
	}
}
