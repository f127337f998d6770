package binance

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"

	"portwatch/internal/adapter"
	"portwatch/pkg/exception"
)

const (
	_binanceBaseUrl   = "https://api.binance.com"
	_binanceBaseWsUrl = "wss://stream.binance.com:9443/ws"

	_requestTimeout = 15 * time.Second
	_headerApiKey   = "X-MBX-APIKEY"
)

// RequestObserver receives the outcome of every REST request.
type RequestObserver interface {
	ObserveRequest(op string, elapsed time.Duration, err error)
}

type Config struct {
	BaseUrl string
	Token   adapter.Token
	// Base is the valuation currency, e.g. BTC.
	Base string
	// Proxy is the stable quote whose base price is the inverse of the BASE/PROXY pair.
	Proxy      string
	RecvWindow time.Duration
	HttpClient *http.Client
	Clock      func() time.Time
	Observer   RequestObserver
}

// Client executes the signed and public REST operations of the spot venue.
type Client struct {
	client     *http.Client
	baseUrl    string
	token      adapter.Token
	base       string
	proxy      string
	recvWindow time.Duration
	now        func() time.Time
	observer   RequestObserver

	tsMu   sync.Mutex
	lastTs int64
}

func NewClient(cfg Config) *Client {
	c := &Client{
		client:     cfg.HttpClient,
		baseUrl:    cfg.BaseUrl,
		token:      cfg.Token,
		base:       cfg.Base,
		proxy:      cfg.Proxy,
		recvWindow: cfg.RecvWindow,
		now:        cfg.Clock,
		observer:   cfg.Observer,
	}

	if c.client == nil {
		c.client = http.DefaultClient
	}

	if c.baseUrl == "" {
		c.baseUrl = _binanceBaseUrl
	}

	if c.base == "" {
		c.base = "BTC"
	}

	if c.now == nil {
		c.now = time.Now
	}

	return c
}

func (c *Client) Base() string {
	return c.base
}

func (c *Client) Proxy() string {
	return c.proxy
}

// timestamp returns a strictly increasing millisecond timestamp.
func (c *Client) timestamp() int64 {
	c.tsMu.Lock()
	defer c.tsMu.Unlock()

	ts := c.now().UnixMilli()
	if ts <= c.lastTs {
		ts = c.lastTs + 1
	}
	c.lastTs = ts
	return ts
}

type responseError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// get executes one request and decodes a successful body into dst.
func (c *Client) get(ctx context.Context, op, path string, query url.Values, signed bool, dst any) (err error) {
	started := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer.ObserveRequest(op, time.Since(started), err)
		}
	}()

	if signed && c.token.IsZero() {
		return exception.Transport(op, exception.ErrNotConfigured)
	}

	raw := query.Encode()
	if signed {
		if c.recvWindow > 0 {
			raw = appendParam(raw, "recvWindow", strconv.FormatInt(c.recvWindow.Milliseconds(), 10))
		}
		raw = appendParam(raw, "timestamp", strconv.FormatInt(c.timestamp(), 10))
		raw = appendParam(raw, "signature", sign(c.token.Secret, raw))
	}

	target := c.baseUrl + path
	if raw != "" {
		target += "?" + raw
	}

	ctx, cancel := context.WithTimeout(ctx, _requestTimeout)
	defer cancel()

	r, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return exception.Transport(op, errors.Wrap(err, "new request"))
	}

	if signed {
		r.Header.Set(_headerApiKey, c.token.Key.String())
	}

	resp, err := c.client.Do(r)
	if err != nil {
		return exception.Transport(op, errors.Wrap(err, "do request"))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return exception.Transport(op, errors.Wrap(err, "read body"))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e responseError
		_ = sonic.ConfigFastest.Unmarshal(body, &e)
		return exception.Transport(op, &StatusError{Status: resp.StatusCode, Code: e.Code, Msg: e.Msg})
	}

	if err := sonic.ConfigFastest.Unmarshal(body, dst); err != nil {
		return exception.Parse(op, errors.Wrap(err, "unmarshal body").With("path", path))
	}

	return nil
}

func appendParam(raw, key, value string) string {
	if raw != "" {
		raw += "&"
	}
	return raw + key + "=" + value
}

// StatusError is a non-success response of the venue.
type StatusError struct {
	Status int
	Code   int
	Msg    string
}

func (e *StatusError) Error() string {
	return "status " + strconv.Itoa(e.Status) + ", code " + strconv.Itoa(e.Code) + ", msg: " + e.Msg
}

func (e *StatusError) Unwrap() error {
	return exception.ErrResponseStatus
}
