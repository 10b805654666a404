// Package reports computes dashboard figures and sales breakdowns. Every call
// works on one domain.Snapshot so a report never mixes the before and after of
// a single write.
package reports

import (
	"context"
	"sort"
	"time"

	"github.com/ariefcatur/go-retail-ledger/internal/apperr"
	"github.com/ariefcatur/go-retail-ledger/internal/authz"
	"github.com/ariefcatur/go-retail-ledger/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const MaxTrailingDays = 366

type Source interface {
	Snapshot(ctx context.Context) (domain.Snapshot, error)
}

type Aggregator struct {
	src Source
	loc *time.Location
	now func() time.Time
	log *zap.Logger
}

func New(src Source, loc *time.Location, log *zap.Logger) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{src: src, loc: loc, now: time.Now, log: log}
}

func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

type DashboardStats struct {
	TotalProducts int             `json:"total_products"`
	TotalSales    int             `json:"total_sales"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	LowStockCount int             `json:"low_stock_count"`
	TodayRevenue  decimal.Decimal `json:"today_revenue"`
}

type DailySales struct {
	Date    string          `json:"date"` // YYYY-MM-DD in the report zone
	Revenue decimal.Decimal `json:"revenue"`
	Count   int             `json:"count"`
}

type CategorySales struct {
	CategoryID   string          `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Revenue      decimal.Decimal `json:"revenue"`
}

type ProductSales struct {
	ProductID    string          `json:"product_id"`
	ProductName  string          `json:"product_name"`
	QuantitySold int             `json:"quantity_sold"`
	Revenue      decimal.Decimal `json:"revenue"`
}

func (a *Aggregator) snapshot(ctx context.Context, actor authz.Actor) (domain.Snapshot, error) {
	if err := authz.Require(actor, authz.CapReportRead); err != nil {
		return domain.Snapshot{}, err
	}
	return a.src.Snapshot(ctx)
}

func (a *Aggregator) day(t time.Time) string {
	return t.In(a.loc).Format(time.DateOnly)
}

func (a *Aggregator) DashboardStats(ctx context.Context, actor authz.Actor) (DashboardStats, error) {
	snap, err := a.snapshot(ctx, actor)
	if err != nil {
		return DashboardStats{}, err
	}
	today := a.day(a.now())
	st := DashboardStats{
		TotalProducts: len(snap.Products),
		TotalSales:    len(snap.Sales),
		TotalRevenue:  decimal.Zero,
		TodayRevenue:  decimal.Zero,
	}
	for _, p := range snap.Products {
		if p.LowStock() {
			st.LowStockCount++
		}
	}
	for _, s := range snap.Sales {
		total := s.Total()
		st.TotalRevenue = st.TotalRevenue.Add(total)
		if a.day(s.SoldAt) == today {
			st.TodayRevenue = st.TodayRevenue.Add(total)
		}
	}
	return st, nil
}

// SalesByDate buckets the trailing days (today included) oldest first.
func (a *Aggregator) SalesByDate(ctx context.Context, actor authz.Actor, days int) ([]DailySales, error) {
	if days < 1 || days > MaxTrailingDays {
		return nil, apperr.Validation("days must be between 1 and %d", MaxTrailingDays)
	}
	snap, err := a.snapshot(ctx, actor)
	if err != nil {
		return nil, err
	}
	now := a.now().In(a.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, a.loc)

	out := make([]DailySales, days)
	idx := make(map[string]int, days)
	for i := 0; i < days; i++ {
		d := today.AddDate(0, 0, i-days+1).Format(time.DateOnly)
		out[i] = DailySales{Date: d, Revenue: decimal.Zero}
		idx[d] = i
	}
	for _, s := range snap.Sales {
		i, ok := idx[a.day(s.SoldAt)]
		if !ok {
			continue
		}
		out[i].Revenue = out[i].Revenue.Add(s.Total())
		out[i].Count++
	}
	return out, nil
}

func (a *Aggregator) CategorySales(ctx context.Context, actor authz.Actor) ([]CategorySales, error) {
	snap, err := a.snapshot(ctx, actor)
	if err != nil {
		return nil, err
	}
	productCat := make(map[string]string, len(snap.Products))
	for _, p := range snap.Products {
		productCat[p.ID] = p.CategoryID
	}
	revenue := map[string]decimal.Decimal{}
	for _, s := range snap.Sales {
		for _, l := range s.Lines {
			cat, ok := productCat[l.ProductID]
			if !ok {
				continue
			}
			revenue[cat] = revenue[cat].Add(l.Subtotal())
		}
	}

	out := make([]CategorySales, 0, len(revenue))
	for _, c := range snap.Categories {
		r, ok := revenue[c.ID]
		if !ok || !r.IsPositive() {
			continue
		}
		out = append(out, CategorySales{CategoryID: c.ID, CategoryName: c.Name, Revenue: r})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Revenue.Cmp(out[j].Revenue); c != 0 {
			return c > 0
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out, nil
}

// TopProducts ranks sold products by revenue, ties by ascending product id.
func (a *Aggregator) TopProducts(ctx context.Context, actor authz.Actor, limit int) ([]ProductSales, error) {
	if limit < 1 {
		return nil, apperr.Validation("limit must be >= 1")
	}
	snap, err := a.snapshot(ctx, actor)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(snap.Products))
	for _, p := range snap.Products {
		names[p.ID] = p.Name
	}
	agg := map[string]*ProductSales{}
	for _, s := range snap.Sales {
		for _, l := range s.Lines {
			ps, ok := agg[l.ProductID]
			if !ok {
				ps = &ProductSales{ProductID: l.ProductID, ProductName: names[l.ProductID], Revenue: decimal.Zero}
				agg[l.ProductID] = ps
			}
			ps.QuantitySold += l.Quantity
			ps.Revenue = ps.Revenue.Add(l.Subtotal())
		}
	}

	out := make([]ProductSales, 0, len(agg))
	for _, ps := range agg {
		out = append(out, *ps)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Revenue.Cmp(out[j].Revenue); c != 0 {
			return c > 0
		}
		return out[i].ProductID < out[j].ProductID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
