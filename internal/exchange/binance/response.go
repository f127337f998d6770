package binance

type accountResponse struct {
	Balances []balanceResponse `json:"balances"`
}

type balanceResponse struct {
	Asset  string `json:"asset"`
	Free   string `json:"free"`
	Locked string `json:"locked"`
}

type openOrderResponse struct {
	Symbol  string `json:"symbol"`
	OrderID int64  `json:"orderId"`
	Price   string `json:"price"`
	OrigQty string `json:"origQty"`
	Type    string `json:"type"`
	Side    string `json:"side"`
	Time    int64  `json:"time"`
}

type exchangeInfoResponse struct {
	Symbols []struct {
		Symbol string `json:"symbol"`
	} `json:"symbols"`
}

type tickerPriceResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

type miniTickerEvent struct {
	EventType string `json:"e"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	Close     string `json:"c"`
}
