// Package journal persists order placements and fills to PostgreSQL.
// Writes are queued and flushed by a background worker so the trading
// path never blocks on the database.
package journal

import (
	"context"
	"time"

	"github.com/yanun0323/logs"
	"gorm.io/gorm"

	"main/internal/book"
	"main/internal/bus"
	"main/internal/model"
	"main/internal/schema"
	"main/pkg/conn"
)

const queueSize = 256

// OrderRecord is one acknowledged placement.
type OrderRecord struct {
	ID        uint      `gorm:"primaryKey"`
	OrderID   string    `gorm:"index;size:64"`
	Symbol    string    `gorm:"index;size:64"`
	Class     string    `gorm:"size:8"`
	Side      string    `gorm:"size:8"`
	Price     string    `gorm:"size:32"`
	Qty       string    `gorm:"size:32"`
	Note      string    `gorm:"size:64"`
	CreatedAt time.Time `gorm:"index"`
}

func (OrderRecord) TableName() string { return "orders" }

// FillRecord is one execution.
type FillRecord struct {
	ID        uint      `gorm:"primaryKey"`
	Symbol    string    `gorm:"index;size:64"`
	Side      string    `gorm:"size:8"`
	Price     string    `gorm:"size:32"`
	Qty       string    `gorm:"size:32"`
	FilledAt  time.Time `gorm:"index"`
	CreatedAt time.Time
}

func (FillRecord) TableName() string { return "fills" }

type entry struct {
	order *OrderRecord
	fill  *FillRecord
}

// Journal is the asynchronous trade-history writer. It satisfies the
// engine's Recorder interface.
type Journal struct {
	db         *gorm.DB
	priceScale int
	queue      *bus.Queue[entry]
}

// Open migrates the journal tables and returns a writer bound to the
// given connection. Run must be started for records to land.
func Open(client *conn.Client, priceScale int) (*Journal, error) {
	db := client.DB()
	if err := db.AutoMigrate(&OrderRecord{}, &FillRecord{}); err != nil {
		return nil, err
	}
	return &Journal{
		db:         db,
		priceScale: priceScale,
		queue:      bus.NewQueue[entry](queueSize),
	}, nil
}

// Run drains the write queue until the context ends.
func (j *Journal) Run(ctx context.Context) {
	j.queue.Run(ctx, j.write)
}

// Close stops accepting records. Queued entries still flush.
func (j *Journal) Close() {
	j.queue.Close()
}

// RecordOrder enqueues a placement record. Never blocks; a full queue
// drops the record.
func (j *Journal) RecordOrder(o book.Order, note string) {
	rec := &OrderRecord{
		OrderID:   o.ID,
		Symbol:    o.Symbol,
		Class:     o.Class.String(),
		Side:      o.Side.String(),
		Price:     o.Price.Text(j.priceScale),
		Qty:       o.Qty.Text(0),
		Note:      note,
		CreatedAt: o.CreatedAt,
	}
	if err := j.queue.TryPublish(entry{order: rec}); err != nil {
		logs.Errorf("journal: drop order record %s: %+v", o.ID, err)
	}
}

// RecordFill enqueues an execution record. Never blocks.
func (j *Journal) RecordFill(symbol string, side schema.OrderSide, price model.Price, qty model.Quantity, at time.Time) {
	rec := &FillRecord{
		Symbol:   symbol,
		Side:     side.String(),
		Price:    price.Text(j.priceScale),
		Qty:      qty.Text(0),
		FilledAt: at,
	}
	if err := j.queue.TryPublish(entry{fill: rec}); err != nil {
		logs.Errorf("journal: drop fill record %s: %+v", symbol, err)
	}
}

func (j *Journal) write(e entry) {
	switch {
	case e.order != nil:
		if err := j.db.Create(e.order).Error; err != nil {
			logs.Errorf("journal: insert order %s: %+v", e.order.OrderID, err)
		}
	case e.fill != nil:
		if err := j.db.Create(e.fill).Error; err != nil {
			logs.Errorf("journal: insert fill %s: %+v", e.fill.Symbol, err)
		}
	}
}
