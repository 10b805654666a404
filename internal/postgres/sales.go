package postgres

import (
	"context"

	"github.com/ariefcatur/go-retail-ledger/internal/apperr"
	"github.com/ariefcatur/go-retail-ledger/internal/domain"
	"github.com/ariefcatur/go-retail-ledger/internal/ledger"
	"github.com/jackc/pgx/v5"
)

// RecordSale deducts stock and inserts the sale in one transaction. Line
// prices are read from the locked product rows.
func (s *Store) RecordSale(ctx context.Context, sale domain.Sale) (domain.Sale, []domain.StockMovement, error) {
	deltas := make([]domain.StockDelta, 0, len(sale.Lines))
	for _, l := range sale.Lines {
		deltas = append(deltas, domain.StockDelta{ProductID: l.ProductID, Delta: -l.Quantity})
	}
	deltas, err := ledger.Normalize(deltas)
	if err != nil {
		return domain.Sale{}, nil, err
	}

	var ms []domain.StockMovement
	out := domain.Sale{
		ID:            newID(),
		SoldAt:        sale.SoldAt,
		PaymentMethod: sale.PaymentMethod,
		CashierID:     sale.CashierID,
	}
	err = s.withTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var (
			products map[string]domain.Product
			err      error
		)
		ms, products, err = applyDeltas(ctx, tx, deltas, domain.ReasonSale, sale.SoldAt)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO sales(id, sold_at, payment_method, cashier_id)
			VALUES ($1, $2, $3, $4)`,
			out.ID, out.SoldAt, string(out.PaymentMethod), out.CashierID,
		)
		if err != nil {
			return err
		}
		out.Lines = make([]domain.SaleLine, 0, len(sale.Lines))
		for i, l := range sale.Lines {
			l.UnitPrice = products[l.ProductID].UnitPrice
			_, err = tx.Exec(ctx, `
				INSERT INTO sale_lines(sale_id, line_no, product_id, quantity, unit_price)
				VALUES ($1, $2, $3, $4, $5::numeric)`,
				out.ID, i, l.ProductID, l.Quantity, l.UnitPrice.String(),
			)
			if err != nil {
				return err
			}
			out.Lines = append(out.Lines, l)
		}
		return nil
	})
	if err != nil {
		return domain.Sale{}, nil, err
	}
	return out, ms, nil
}

// loadLines fills the lines of the given sales, keyed by sale id.
func loadLines(ctx context.Context, q querier, sales []domain.Sale) error {
	if len(sales) == 0 {
		return nil
	}
	ids := make([]string, 0, len(sales))
	idx := make(map[string]int, len(sales))
	for i, s := range sales {
		ids = append(ids, s.ID)
		idx[s.ID] = i
	}
	rows, err := q.Query(ctx, `
		SELECT sale_id, product_id, quantity, unit_price::text
		FROM sale_lines
		WHERE sale_id = ANY($1)
		ORDER BY sale_id, line_no`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			saleID, price string
			l             domain.SaleLine
		)
		if err := rows.Scan(&saleID, &l.ProductID, &l.Quantity, &price); err != nil {
			return err
		}
		if l.UnitPrice, err = parseDecimal(price); err != nil {
			return err
		}
		i := idx[saleID]
		sales[i].Lines = append(sales[i].Lines, l)
	}
	return rows.Err()
}

func querySales(ctx context.Context, q querier, sql string, args ...any) ([]domain.Sale, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Sale, 0)
	for rows.Next() {
		var (
			sale   domain.Sale
			method string
		)
		if err := rows.Scan(&sale.ID, &sale.SoldAt, &method, &sale.CashierID); err != nil {
			rows.Close()
			return nil, err
		}
		sale.PaymentMethod = domain.PaymentMethod(method)
		out = append(out, sale)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := loadLines(ctx, q, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListSales returns up to limit sales, newest first.
func (s *Store) ListSales(ctx context.Context, limit int) ([]domain.Sale, error) {
	var out []domain.Sale
	err := s.withTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		var err error
		out, err = querySales(ctx, tx, `
			SELECT id, sold_at, payment_method, cashier_id
			FROM sales
			ORDER BY sold_at DESC, id
			LIMIT $1`, limit)
		return err
	})
	return out, err
}

func (s *Store) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	var out []domain.Sale
	err := s.withTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		var err error
		out, err = querySales(ctx, tx, `SELECT id, sold_at, payment_method, cashier_id FROM sales WHERE id=$1`, id)
		return err
	})
	if err != nil {
		return domain.Sale{}, err
	}
	if len(out) == 0 {
		return domain.Sale{}, apperr.NotFound("sale %s not found", id)
	}
	return out[0], nil
}
