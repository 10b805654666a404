package postgres

import (
	"context"
	"time"

	"github.com/ariefcatur/go-retail-ledger/internal/apperr"
	"github.com/ariefcatur/go-retail-ledger/internal/domain"
	"github.com/ariefcatur/go-retail-ledger/internal/ledger"
	"github.com/jackc/pgx/v5"
)

// lockProducts takes FOR UPDATE locks on the given rows in ascending id
// order. Byte ordering (COLLATE "C") matches the order keylock uses.
func lockProducts(ctx context.Context, tx pgx.Tx, deltas []domain.StockDelta) (map[string]domain.Product, error) {
	ids := make([]string, 0, len(deltas))
	for _, d := range deltas {
		ids = append(ids, d.ProductID)
	}
	ps, err := queryProducts(ctx, tx, `
		SELECT `+productColumns+` FROM products
		WHERE id = ANY($1)
		ORDER BY id COLLATE "C"
		FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.Product, len(ps))
	for _, p := range ps {
		out[p.ID] = p
	}
	return out, nil
}

// applyDeltas locks, checks and writes deltas (normalized) inside tx.
func applyDeltas(ctx context.Context, tx pgx.Tx, deltas []domain.StockDelta, reason domain.Reason, at time.Time) ([]domain.StockMovement, map[string]domain.Product, error) {
	products, err := lockProducts(ctx, tx, deltas)
	if err != nil {
		return nil, nil, err
	}
	ms := make([]domain.StockMovement, 0, len(deltas))
	for _, d := range deltas {
		p, ok := products[d.ProductID]
		if !ok {
			return nil, nil, apperr.NotFound("product %s not found", d.ProductID)
		}
		after, err := ledger.Next(p, d.Delta)
		if err != nil {
			return nil, nil, err
		}
		ms = append(ms, domain.StockMovement{
			ProductID:  p.ID,
			Delta:      d.Delta,
			Before:     p.Quantity,
			After:      after,
			Threshold:  p.ReorderThreshold,
			Reason:     reason,
			OccurredAt: at,
		})
	}

	for _, m := range ms {
		if _, err := tx.Exec(ctx, `UPDATE products SET quantity=$2, updated_at=$3 WHERE id=$1`, m.ProductID, m.After, m.OccurredAt); err != nil {
			return nil, nil, err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO stock_movements(product_id, delta, quantity_before, quantity_after, threshold, reason, occurred_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			m.ProductID, m.Delta, m.Before, m.After, m.Threshold, string(m.Reason), m.OccurredAt,
		)
		if err != nil {
			return nil, nil, err
		}
	}
	return ms, products, nil
}

// ApplyStockDeltas expects deltas already normalized by ledger.Normalize.
func (s *Store) ApplyStockDeltas(ctx context.Context, deltas []domain.StockDelta, reason domain.Reason) ([]domain.StockMovement, error) {
	var ms []domain.StockMovement
	err := s.withTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var err error
		ms, _, err = applyDeltas(ctx, tx, deltas, reason, s.now().UTC())
		return err
	})
	if err != nil {
		return nil, err
	}
	return ms, nil
}

func (s *Store) ListMovements(ctx context.Context, productID string, limit int) ([]domain.StockMovement, error) {
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT product_id, delta, quantity_before, quantity_after, threshold, reason, occurred_at
		FROM stock_movements
		WHERE product_id=$1
		ORDER BY id DESC
		LIMIT $2`, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.StockMovement, 0)
	for rows.Next() {
		var (
			m      domain.StockMovement
			reason string
		)
		if err := rows.Scan(&m.ProductID, &m.Delta, &m.Before, &m.After, &m.Threshold, &reason, &m.OccurredAt); err != nil {
			return nil, err
		}
		m.Reason = domain.Reason(reason)
		out = append(out, m)
	}
	return out, rows.Err()
}
