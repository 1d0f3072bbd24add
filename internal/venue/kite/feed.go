package kite

import (
	"context"
	"fmt"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
	"github.com/yanun0323/pkg/ws"

	"main/internal/model"
	"main/internal/schema"
	"main/internal/venue"
)

const _kiteBaseWsUrl = "wss://ws.kite.trade"

// Feed consumes the Kite websocket stream and pushes normalized order
// events into the engine.
type Feed struct {
	wss        *ws.WebSocket
	priceScale int
	qtyScale   int
}

// NewFeed creates a feed authenticated through the connection URL.
func NewFeed(ctx context.Context, cfg Config) *Feed {
	endpoint := fmt.Sprintf("%s?api_key=%s&access_token=%s", _kiteBaseWsUrl, cfg.APIKey, cfg.AccessToken)
	return &Feed{
		wss:        ws.New(ctx, endpoint),
		priceScale: cfg.PriceScale,
		qtyScale:   cfg.QtyScale,
	}
}

func (f *Feed) StartWebsocket(ctx context.Context) error {
	if err := f.wss.Start(ctx); err != nil {
		return errors.Wrap(err, "start wss")
	}
	return nil
}

func (f *Feed) Close() {
	f.wss.Close()
}

type kitePostback struct {
	Type string `json:"type"`
	Data struct {
		OrderID        string        `json:"order_id"`
		Status         string        `json:"status"`
		Price          venue.Decimal `json:"price"`
		AveragePrice   venue.Decimal `json:"average_price"`
		Quantity       int64         `json:"quantity"`
		FilledQuantity int64         `json:"filled_quantity"`
	} `json:"data"`
}

// eventFromPostback normalizes one postback. Prices travel as decimals
// from the wire to the scaled integer without a float round-trip; an
// unparseable price falls back to zero, which the book resolves to the
// order's cached price.
func (f *Feed) eventFromPostback(p kitePostback) (schema.OrderEvent, bool) {
	if p.Type != "order" || p.Data.OrderID == "" {
		return schema.OrderEvent{}, false
	}

	price := p.Data.Price
	qty := p.Data.Quantity
	status := normalizeStatus(p.Data.Status)
	if status == schema.StatusFilled {
		if !p.Data.AveragePrice.IsZero() {
			price = p.Data.AveragePrice
		}
		if p.Data.FilledQuantity > 0 {
			qty = p.Data.FilledQuantity
		}
	}

	var scaled model.Price
	if !price.IsZero() {
		var err error
		scaled, err = model.PriceFromDecimal(price.Value(), f.priceScale)
		if err != nil {
			logs.Errorf("order %s: parse price %s: %+v", p.Data.OrderID, price.Value(), err)
			scaled = 0
		}
	}

	return schema.OrderEvent{
		OrderID: p.Data.OrderID,
		Status:  status,
		Price:   scaled,
		Qty:     model.Quantity(qty),
		At:      time.Now(),
	}, true
}

// ObserveOrders forwards normalized order updates to the sink until the
// context ends. Raw Kite statuses never leave this feed.
func (f *Feed) ObserveOrders(ctx context.Context, sink venue.EventSink) (unsubscribe func()) {
	ch, cancel := f.wss.Subscribe()

	go func() {
		defer cancel()
		for {
			select {
			case <-sys.Shutdown():
				return
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}

				resp, ok := ws.ReadMessage[kitePostback](m)
				if !ok {
					continue
				}
				ev, ok := f.eventFromPostback(resp)
				if !ok {
					continue
				}
				sink(ev)
			}
		}
	}()

	return cancel
}
