// Package kite is the Zerodha Kite Connect boundary adapter: REST order
// transport, LTP quotes, portfolio positions and the websocket
// order-update feed. Kite speaks symbolic string statuses; they are
// normalized before anything reaches the engine.
package kite

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"

	"main/internal/model"
	"main/internal/schema"
	"main/internal/venue"
	"main/pkg/exception"
)

const (
	_kiteBaseUrl    = "https://api.kite.trade"
	_kiteAPIVersion = "3"

	_exchangeNFO = "NFO"
)

// Config carries credentials and scales for the adapter.
type Config struct {
	APIKey      string
	AccessToken string
	BaseURL     string // optional override for tests
	PriceScale  int
	QtyScale    int
}

// InstrumentMeta is the slice of the instrument master the adapter
// needs to classify portfolio positions.
type InstrumentMeta struct {
	Underlying string
	Class      schema.InstrumentClass
	Strike     model.Price
	Expiry     time.Time
}

// Client implements venue.OrderTransport, venue.Quoter and
// venue.PositionSource against Kite Connect.
type Client struct {
	cfg         Config
	client      *http.Client
	instruments map[string]InstrumentMeta
}

var (
	_ venue.OrderTransport = (*Client)(nil)
	_ venue.Quoter         = (*Client)(nil)
	_ venue.PositionSource = (*Client)(nil)
)

// NewClient creates a Kite adapter using the provided HTTP client.
func NewClient(cfg Config, client *http.Client) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = _kiteBaseUrl
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		cfg:         cfg,
		client:      client,
		instruments: make(map[string]InstrumentMeta),
	}
}

// RegisterInstrument records instrument metadata from the instrument
// master so positions can be classified with strike and expiry.
func (c *Client) RegisterInstrument(symbol string, meta InstrumentMeta) {
	c.instruments[symbol] = meta
}

type kiteEnvelope[T any] struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	ErrorType string `json:"error_type"`
	Data      T      `json:"data"`
}

// Place submits a limit order and returns the venue order id.
func (c *Client) Place(ctx context.Context, req venue.PlaceRequest) (string, error) {
	form := url.Values{}
	form.Set("exchange", _exchangeNFO)
	form.Set("tradingsymbol", req.Symbol)
	form.Set("transaction_type", req.Side.String())
	form.Set("order_type", "LIMIT")
	form.Set("product", "NRML")
	form.Set("validity", "DAY")
	form.Set("quantity", req.Qty.Text(c.cfg.QtyScale))
	form.Set("price", req.Price.Text(c.cfg.PriceScale))

	body, err := c.do(ctx, http.MethodPost, "/orders/regular", form)
	if err != nil {
		return "", err
	}

	var resp kiteEnvelope[struct {
		OrderID string `json:"order_id"`
	}]
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return "", errors.Wrap(exception.ErrOrderDecodeResponseBody, err.Error())
	}
	if resp.Status != "success" {
		return "", errors.Wrapf(exception.ErrOrderRejected, "%s: %s", resp.ErrorType, resp.Message)
	}
	if resp.Data.OrderID == "" {
		return "", exception.ErrOrderEmptyResponseID
	}
	return resp.Data.OrderID, nil
}

// Cancel withdraws a resting order. The effect is observed through the
// order-update feed, not through this call.
func (c *Client) Cancel(ctx context.Context, orderID string) error {
	body, err := c.do(ctx, http.MethodDelete, "/orders/regular/"+orderID, nil)
	if err != nil {
		return err
	}

	var resp kiteEnvelope[struct {
		OrderID string `json:"order_id"`
	}]
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return errors.Wrap(exception.ErrOrderDecodeResponseBody, err.Error())
	}
	if resp.Status != "success" {
		return errors.Wrapf(exception.ErrOrderRejected, "cancel %s: %s", orderID, resp.Message)
	}
	return nil
}

// Quote returns the last traded price for a symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (model.Price, error) {
	key := _exchangeNFO + ":" + symbol
	q := url.Values{}
	q.Set("i", key)

	body, err := c.do(ctx, http.MethodGet, "/quote/ltp?"+q.Encode(), nil)
	if err != nil {
		return 0, errors.Wrap(exception.ErrMarketDataUnavailable, err.Error())
	}

	var resp kiteEnvelope[map[string]struct {
		LastPrice float64 `json:"last_price"`
	}]
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return 0, errors.Wrap(exception.ErrMarketDataUnavailable, err.Error())
	}
	entry, ok := resp.Data[key]
	if resp.Status != "success" || !ok || entry.LastPrice <= 0 {
		return 0, errors.Wrapf(exception.ErrMarketDataUnavailable, "no ltp for %s", symbol)
	}
	return model.PriceFromFloat(entry.LastPrice, c.cfg.PriceScale), nil
}

// Positions returns the net portfolio entries for one underlying.
func (c *Client) Positions(ctx context.Context, underlying string) ([]schema.Position, error) {
	body, err := c.do(ctx, http.MethodGet, "/portfolio/positions", nil)
	if err != nil {
		return nil, err
	}

	var resp kiteEnvelope[struct {
		Net []struct {
			TradingSymbol string `json:"tradingsymbol"`
			Exchange      string `json:"exchange"`
			Quantity      int64  `json:"quantity"`
		} `json:"net"`
	}]
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "decode positions")
	}
	if resp.Status != "success" {
		return nil, errors.Errorf("positions: %s", resp.Message)
	}

	out := make([]schema.Position, 0, len(resp.Data.Net))
	for _, p := range resp.Data.Net {
		if p.Exchange != _exchangeNFO || p.Quantity == 0 {
			continue
		}
		pos := c.classify(p.TradingSymbol)
		if pos.Underlying != underlying {
			continue
		}
		pos.Qty = model.Quantity(p.Quantity)
		out = append(out, pos)
	}
	return out, nil
}

// classify resolves symbol metadata from the registered instrument
// master, falling back to suffix parsing for unknown symbols.
func (c *Client) classify(symbol string) schema.Position {
	pos := schema.Position{Symbol: symbol}
	if meta, ok := c.instruments[symbol]; ok {
		pos.Underlying = meta.Underlying
		pos.Class = meta.Class
		pos.Strike = meta.Strike
		pos.Expiry = meta.Expiry
		return pos
	}

	switch {
	case strings.HasSuffix(symbol, "FUT"):
		pos.Class = schema.InstrumentFuture
	case strings.HasSuffix(symbol, "CE"):
		pos.Class = schema.InstrumentCall
		pos.Strike = trailingStrike(symbol[:len(symbol)-2], c.cfg.PriceScale)
	case strings.HasSuffix(symbol, "PE"):
		pos.Class = schema.InstrumentPut
		pos.Strike = trailingStrike(symbol[:len(symbol)-2], c.cfg.PriceScale)
	}
	pos.Underlying = leadingAlpha(symbol)
	return pos
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values) ([]byte, error) {
	var reqBody io.Reader
	if form != nil {
		reqBody = strings.NewReader(form.Encode())
	}
	r, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	r.Header.Set("X-Kite-Version", _kiteAPIVersion)
	r.Header.Set("Authorization", fmt.Sprintf("token %s:%s", c.cfg.APIKey, c.cfg.AccessToken))
	if form != nil {
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	res, err := c.client.Do(r)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	return io.ReadAll(res.Body)
}

func trailingStrike(s string, priceScale int) model.Price {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	if i == len(s) {
		return 0
	}
	v, err := strconv.ParseInt(s[i:], 10, 64)
	if err != nil {
		return 0
	}
	return model.PriceFromFloat(float64(v), priceScale)
}

func leadingAlpha(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			return s[:i]
		}
	}
	return s
}
