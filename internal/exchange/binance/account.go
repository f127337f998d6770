package binance

import (
	"context"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"

	"portwatch/internal/adapter"
	"portwatch/internal/adapter/enum"
	"portwatch/pkg/exception"
)

const (
	OpBalances   = "balances"
	OpOpenOrders = "open_orders"
)

// Balances returns every balance line of the account, held or not.
func (c *Client) Balances(ctx context.Context) ([]adapter.Balance, error) {
	var resp accountResponse
	if err := c.get(ctx, OpBalances, "/api/v3/account", url.Values{}, true, &resp); err != nil {
		return nil, err
	}

	result := make([]adapter.Balance, 0, len(resp.Balances))
	for _, b := range resp.Balances {
		free, err := decimal.NewFromString(b.Free)
		if err != nil {
			return nil, exception.Parse(OpBalances, errors.Wrap(err, "parse free").With("asset", b.Asset))
		}

		locked, err := decimal.NewFromString(b.Locked)
		if err != nil {
			return nil, exception.Parse(OpBalances, errors.Wrap(err, "parse locked").With("asset", b.Asset))
		}

		result = append(result, adapter.NewBalance(b.Asset, free, locked))
	}

	return result, nil
}

// OpenOrders returns the open orders of every symbol.
func (c *Client) OpenOrders(ctx context.Context) ([]adapter.Order, error) {
	var resp []openOrderResponse
	if err := c.get(ctx, OpOpenOrders, "/api/v3/openOrders", url.Values{}, true, &resp); err != nil {
		return nil, err
	}

	result := make([]adapter.Order, 0, len(resp))
	for _, o := range resp {
		price, err := decimal.NewFromString(o.Price)
		if err != nil {
			return nil, exception.Parse(OpOpenOrders, errors.Wrap(err, "parse price").With("orderId", o.OrderID))
		}

		qty, err := decimal.NewFromString(o.OrigQty)
		if err != nil {
			return nil, exception.Parse(OpOpenOrders, errors.Wrap(err, "parse quantity").With("orderId", o.OrderID))
		}

		result = append(result, adapter.Order{
			ID:       o.OrderID,
			Symbol:   o.Symbol,
			Price:    price,
			Quantity: qty,
			Type:     enum.ParseOrderType(o.Type),
			Side:     enum.ParseOrderSide(o.Side),
			Label:    adapter.NewOrderLabel(o.Type, o.Side),
			PlacedAt: time.UnixMilli(o.Time).UTC(),
		})
	}

	return result, nil
}
