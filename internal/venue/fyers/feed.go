// Package fyers is the Fyers boundary adapter. Unlike Kite it encodes
// order statuses as small integers; the translation into the normalized
// classification happens here and nowhere else.
package fyers

import (
	"context"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
	"github.com/yanun0323/pkg/ws"

	"main/internal/model"
	"main/internal/schema"
	"main/internal/venue"
)

const (
	_fyersBaseWsUrl = "wss://api-t1.fyers.in/socket/v2"

	fyersWsSubOrdersID = 1
)

// Config carries the feed credentials and scales.
type Config struct {
	AccessToken string
	PriceScale  int
}

// Feed consumes the Fyers order socket.
type Feed struct {
	cfg Config
	wss *ws.WebSocket
}

func NewFeed(ctx context.Context, cfg Config) *Feed {
	return &Feed{
		cfg: cfg,
		wss: ws.New(ctx, _fyersBaseWsUrl+"?access_token="+cfg.AccessToken),
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

type fyersSubscribeResponse struct {
	ID      int    `json:"id"`
	Status  string `json:"s"`
	Message string `json:"msg"`
}

// SubscribeOrders asks for order updates and waits for the handshake.
func (f *Feed) SubscribeOrders(ctx context.Context) error {
	if err := f.wss.SendAndWait(ctx, ws.Sidecar{
		Sender: func(ctx context.Context, client *ws.WebSocket) error {
			if err := client.WriteJSON(map[string]any{
				"id":    fyersWsSubOrdersID,
				"T":     "SUB_ORD",
				"SLIST": []string{"orderUpdate"},
				"SUB_T": 1,
			}); err != nil {
				return errors.Wrap(err, "write subscribe orders payload")
			}
			return nil
		},
		Waiter: func(ctx context.Context, m ws.Message) (bool, error) {
			resp, ok := ws.ReadMessage[fyersSubscribeResponse](m)
			if !ok || resp.ID != fyersWsSubOrdersID {
				return false, nil
			}
			if resp.Status != "ok" {
				return false, errors.Errorf("subscribe orders, err: %s", resp.Message)
			}
			return true, nil
		},
	}); err != nil {
		return errors.Wrap(err, "send and wait")
	}
	return nil
}

type fyersOrderUpdate struct {
	Status string `json:"s"`
	Orders struct {
		ID          string        `json:"id"`
		OrdStatus   int           `json:"status"`
		LimitPrice  venue.Decimal `json:"limitPrice"`
		TradedPrice venue.Decimal `json:"tradedPrice"`
		Qty         int64         `json:"qty"`
		FilledQty   int64         `json:"filledQty"`
	} `json:"orders"`
}

// eventFromUpdate normalizes one socket update. Prices stay decimal
// from the wire to the scaled integer; an unparseable price falls back
// to zero, which the book resolves to the order's cached price.
func (f *Feed) eventFromUpdate(u fyersOrderUpdate) (schema.OrderEvent, bool) {
	if u.Orders.ID == "" {
		return schema.OrderEvent{}, false
	}

	status := normalizeStatus(u.Orders.OrdStatus)
	price := u.Orders.LimitPrice
	qty := u.Orders.Qty
	if status == schema.StatusFilled {
		if !u.Orders.TradedPrice.IsZero() {
			price = u.Orders.TradedPrice
		}
		if u.Orders.FilledQty > 0 {
			qty = u.Orders.FilledQty
		}
	}

	var scaled model.Price
	if !price.IsZero() {
		var err error
		scaled, err = model.PriceFromDecimal(price.Value(), f.cfg.PriceScale)
		if err != nil {
			logs.Errorf("order %s: parse price %s: %+v", u.Orders.ID, price.Value(), err)
			scaled = 0
		}
	}

	return schema.OrderEvent{
		OrderID: u.Orders.ID,
		Status:  status,
		Price:   scaled,
		Qty:     model.Quantity(qty),
		At:      time.Now(),
	}, true
}

// ObserveOrders forwards normalized order updates to the sink.
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

				resp, ok := ws.ReadMessage[fyersOrderUpdate](m)
				if !ok {
					continue
				}
				ev, ok := f.eventFromUpdate(resp)
				if !ok {
					continue
				}
				sink(ev)
			}
		}
	}()

	return cancel
}
