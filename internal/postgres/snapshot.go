package postgres

import (
	"context"

	"github.com/ariefcatur/go-retail-ledger/internal/domain"
	"github.com/jackc/pgx/v5"
)

// Snapshot loads products, categories and sales from one REPEATABLE READ
// transaction, so the result never contains half of a sale or receipt.
func (s *Store) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	var snap domain.Snapshot
	err := s.withTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		snap = domain.Snapshot{TakenAt: s.now().UTC()}
		var err error
		if snap.Products, err = queryProducts(ctx, tx, `SELECT `+productColumns+` FROM products ORDER BY id`); err != nil {
			return err
		}

		rows, err := tx.Query(ctx, `SELECT id, name, description FROM categories ORDER BY id`)
		if err != nil {
			return err
		}
		snap.Categories = make([]domain.Category, 0)
		for rows.Next() {
			var c domain.Category
			if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
				rows.Close()
				return err
			}
			snap.Categories = append(snap.Categories, c)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		snap.Sales, err = querySales(ctx, tx, `SELECT id, sold_at, payment_method, cashier_id FROM sales ORDER BY sold_at, id`)
		return err
	})
	return snap, err
}
