package binance

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
	"github.com/yanun0323/pkg/ws"

	"portwatch/internal/adapter"
	"portwatch/pkg/exception"
)

const _eventMiniTicker = "24hrMiniTicker"

// FeedDialer opens one multiplexed mini ticker stream per call to Dial.
type FeedDialer struct {
	url   string
	base  string
	proxy string
	reqID atomic.Int64
}

func NewFeedDialer(wsUrl, base, proxy string) *FeedDialer {
	if wsUrl == "" {
		wsUrl = _binanceBaseWsUrl
	}

	return &FeedDialer{url: wsUrl, base: base, proxy: proxy}
}

type subscribeRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int64    `json:"id"`
}

type subscribeResponse struct {
	ID     int64 `json:"id"`
	Result any   `json:"result"`
}

// Dial subscribes the close price of every asset against the base currency
// and calls onTick with each update. The stream is never reconnected: once
// it drops it stays silent until closed.
func (d *FeedDialer) Dial(ctx context.Context, assets []string, onTick func(adapter.Price)) (closeFeed func(), err error) {
	if len(assets) == 0 {
		return nil, exception.ErrInvalidArgument
	}

	params := make([]string, 0, len(assets))
	inverted := make(map[string]string, len(assets))
	for _, asset := range assets {
		pair, invert := streamPair(d.base, d.proxy, asset)
		params = append(params, strings.ToLower(pair)+"@miniTicker")
		if invert {
			inverted[pair] = asset
		}
	}

	wss := ws.New(ctx, d.url)
	if err := wss.Start(ctx); err != nil {
		return nil, errors.Wrap(err, "start wss").With("url", d.url)
	}

	id := d.reqID.Add(1)
	appendIntoRegister := true
	if err := wss.SendAndWait(ctx, ws.Sidecar{
		Sender: func(ctx context.Context, ws *ws.WebSocket) error {
			payload := subscribeRequest{Method: "SUBSCRIBE", Params: params, ID: id}
			if err := ws.WriteJSON(payload); err != nil {
				return errors.Wrap(err, "write subscribe payload").With("payload", payload)
			}

			return nil
		},
		Waiter: func(ctx context.Context, m ws.Message) (bool, error) {
			var resp subscribeResponse
			if err := m.Unmarshal(&resp); err != nil || resp.ID != id {
				return false, nil
			}

			if resp.Result != nil {
				return false, errors.Errorf("subscribe and wait, err: %+v", resp.Result)
			}
			return true, nil
		},
	}, appendIntoRegister); err != nil {
		wss.Close()
		return nil, errors.Wrap(err, "send and wait").With("streams", params)
	}

	ch, cancel := wss.Subscribe()
	observeCtx, stop := context.WithCancel(ctx)

	go func() {
		defer cancel()
		for {
			select {
			case <-sys.Shutdown():
				return
			case <-observeCtx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}

				event, ok := ws.ReadMessage[miniTickerEvent](m)
				if !ok {
					logs.Errorf("read mini ticker, err: %+v", exception.ErrStreamPayload)
					continue
				}

				if event.EventType != _eventMiniTicker {
					continue
				}

				price, ok := d.tick(event, inverted)
				if !ok {
					continue
				}

				onTick(price)
			}
		}
	}()

	return func() {
		stop()
		wss.Close()
	}, nil
}

func (d *FeedDialer) tick(event miniTickerEvent, inverted map[string]string) (adapter.Price, bool) {
	p, err := decimal.NewFromString(event.Close)
	if err != nil {
		logs.Errorf("parse close of %s, err: %+v", event.Symbol, err)
		return adapter.Price{}, false
	}

	if asset, ok := inverted[event.Symbol]; ok {
		if p.IsZero() {
			return adapter.Price{}, false
		}
		return adapter.Price{Symbol: asset, Price: decimal.NewFromInt(1).Div(p)}, true
	}

	if !strings.HasSuffix(event.Symbol, d.base) {
		return adapter.Price{}, false
	}

	return adapter.Price{Symbol: strings.TrimSuffix(event.Symbol, d.base), Price: p}, true
}
