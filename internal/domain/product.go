package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Order quantities and totals are bounded by their storage columns
// (INTEGER and NUMERIC(12,2)).
const MaxQuantity = math.MaxInt32

var MaxOrderTotal = decimal.RequireFromString("9999999999.99")

type StockStatus string

const (
	StockStatusInStock    StockStatus = "in_stock"
	StockStatusOutOfStock StockStatus = "out_of_stock"
)

type Product struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	TrackStock bool            `json:"track_stock"`
	Stock      int             `json:"stock_quantity"`
	Variants   []string        `json:"variants"`
	SellerID   string          `json:"seller_id"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// StockStatus is derived: products that do not track stock are always in stock.
func (p Product) StockStatus() StockStatus {
	if !p.TrackStock || p.Stock > 0 {
		return StockStatusInStock
	}
	return StockStatusOutOfStock
}

func (p Product) HasVariants() bool {
	return len(p.Variants) > 0
}

func (p Product) Total(quantity int) decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(int64(quantity)))
}

// MaxOrderQuantity is the largest cumulative quantity whose total still fits
// in an order.
func (p Product) MaxOrderQuantity() int {
	if !p.Price.IsPositive() {
		return MaxQuantity
	}
	byTotal := MaxOrderTotal.Div(p.Price).Floor().IntPart()
	if byTotal < MaxQuantity {
		return int(byTotal)
	}
	return MaxQuantity
}

type FeedPost struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (f FeedPost) HasProduct() bool {
	return f.ProductID != ""
}
