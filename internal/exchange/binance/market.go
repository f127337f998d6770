package binance

import (
	"context"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"

	"portwatch/internal/adapter"
	"portwatch/pkg/exception"
)

const (
	OpSymbols    = "symbols"
	OpPriceTable = "price_table"
)

// Symbols returns the number of symbols listed on the venue.
func (c *Client) Symbols(ctx context.Context) (int, error) {
	var resp exchangeInfoResponse
	if err := c.get(ctx, OpSymbols, "/api/v3/exchangeInfo", url.Values{}, false, &resp); err != nil {
		return 0, err
	}

	return len(resp.Symbols), nil
}

// PriceTable returns the base-currency price of every asset quoted against
// the base, plus the stable proxy and the base itself.
func (c *Client) PriceTable(ctx context.Context) ([]adapter.Price, error) {
	var resp []tickerPriceResponse
	if err := c.get(ctx, OpPriceTable, "/api/v3/ticker/price", url.Values{}, false, &resp); err != nil {
		return nil, err
	}

	result := make([]adapter.Price, 0, len(resp)/4+1)
	result = append(result, adapter.Price{Symbol: c.base, Price: decimal.NewFromInt(1)})
	for _, t := range resp {
		asset, invert, ok := c.pairAsset(t.Symbol)
		if !ok {
			continue
		}

		p, err := decimal.NewFromString(t.Price)
		if err != nil {
			return nil, exception.Parse(OpPriceTable, errors.Wrap(err, "parse price").With("symbol", t.Symbol))
		}

		if invert {
			if p.IsZero() {
				continue
			}
			p = decimal.NewFromInt(1).Div(p)
		}

		result = append(result, adapter.Price{Symbol: asset, Price: p})
	}

	return result, nil
}

// pairAsset maps a venue pair to the asset it prices in the base currency.
// ETHBTC prices ETH; BTCUSDT prices USDT through its inverse.
func (c *Client) pairAsset(pair string) (asset string, invert bool, ok bool) {
	if c.proxy != "" && pair == c.base+c.proxy {
		return c.proxy, true, true
	}

	if len(pair) > len(c.base) && strings.HasSuffix(pair, c.base) {
		return strings.TrimSuffix(pair, c.base), false, true
	}

	return "", false, false
}

// streamPair is the inverse of pairAsset for the price feed.
func streamPair(base, proxy, asset string) (pair string, invert bool) {
	if proxy != "" && asset == proxy {
		return base + proxy, true
	}
	return asset + base, false
}
