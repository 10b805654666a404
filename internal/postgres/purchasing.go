package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/ariefcatur/go-retail-ledger/internal/apperr"
	"github.com/ariefcatur/go-retail-ledger/internal/domain"
	"github.com/ariefcatur/go-retail-ledger/internal/ledger"
	"github.com/jackc/pgx/v5"
)

func (s *Store) CreatePurchaseOrder(ctx context.Context, o domain.PurchaseOrder) (domain.PurchaseOrder, error) {
	o.ID = newID()
	o.Status = domain.POStatusPending
	o.ReceivedAt = nil
	err := s.withTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var ok bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM suppliers WHERE id=$1)`, o.SupplierID).Scan(&ok); err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound("supplier %s not found", o.SupplierID)
		}
		for _, it := range o.Items {
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id=$1)`, it.ProductID).Scan(&ok); err != nil {
				return err
			}
			if !ok {
				return apperr.NotFound("product %s not found", it.ProductID)
			}
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO purchase_orders(id, supplier_id, status, ordered_at)
			VALUES ($1, $2, $3, $4)`,
			o.ID, o.SupplierID, string(o.Status), o.OrderedAt,
		)
		if err != nil {
			return constraintErr(err, "create purchase order")
		}
		for i, it := range o.Items {
			_, err = tx.Exec(ctx, `
				INSERT INTO purchase_order_items(order_id, line_no, product_id, quantity, unit_price)
				VALUES ($1, $2, $3, $4, $5::numeric)`,
				o.ID, i, it.ProductID, it.Quantity, it.UnitPrice.String(),
			)
			if err != nil {
				return constraintErr(err, "create purchase order item")
			}
		}
		return nil
	})
	if err != nil {
		return domain.PurchaseOrder{}, err
	}
	return o, nil
}

func loadOrder(ctx context.Context, q querier, id, suffix string) (domain.PurchaseOrder, error) {
	var (
		o      domain.PurchaseOrder
		status string
	)
	err := q.QueryRow(ctx, `SELECT id, supplier_id, status, ordered_at, received_at FROM purchase_orders WHERE id=$1`+suffix, id).
		Scan(&o.ID, &o.SupplierID, &status, &o.OrderedAt, &o.ReceivedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PurchaseOrder{}, apperr.NotFound("purchase order %s not found", id)
	}
	if err != nil {
		return domain.PurchaseOrder{}, err
	}
	o.Status = domain.POStatus(status)
	items, err := loadItems(ctx, q, id)
	if err != nil {
		return domain.PurchaseOrder{}, err
	}
	o.Items = items
	return o, nil
}

func loadItems(ctx context.Context, q querier, orderID string) ([]domain.PurchaseOrderItem, error) {
	rows, err := q.Query(ctx, `
		SELECT product_id, quantity, unit_price::text
		FROM purchase_order_items
		WHERE order_id=$1
		ORDER BY line_no`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.PurchaseOrderItem, 0)
	for rows.Next() {
		var (
			it    domain.PurchaseOrderItem
			price string
		)
		if err := rows.Scan(&it.ProductID, &it.Quantity, &price); err != nil {
			return nil, err
		}
		if it.UnitPrice, err = parseDecimal(price); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *Store) GetPurchaseOrder(ctx context.Context, id string) (domain.PurchaseOrder, error) {
	return loadOrder(ctx, s.pool, id, "")
}

// ListPurchaseOrders returns orders newest first.
func (s *Store) ListPurchaseOrders(ctx context.Context) ([]domain.PurchaseOrder, error) {
	var out []domain.PurchaseOrder
	err := s.withTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id, supplier_id, status, ordered_at, received_at
			FROM purchase_orders
			ORDER BY ordered_at DESC, id`)
		if err != nil {
			return err
		}
		orders := make([]domain.PurchaseOrder, 0)
		for rows.Next() {
			var (
				o      domain.PurchaseOrder
				status string
			)
			if err := rows.Scan(&o.ID, &o.SupplierID, &status, &o.OrderedAt, &o.ReceivedAt); err != nil {
				rows.Close()
				return err
			}
			o.Status = domain.POStatus(status)
			orders = append(orders, o)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		for i := range orders {
			if orders[i].Items, err = loadItems(ctx, tx, orders[i].ID); err != nil {
				return err
			}
		}
		out = orders
		return nil
	})
	return out, err
}

func (s *Store) PurchaseOrderDetails(ctx context.Context, id string) (domain.PurchaseOrderDetails, error) {
	var d domain.PurchaseOrderDetails
	err := s.withTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		o, err := loadOrder(ctx, tx, id, "")
		if err != nil {
			return err
		}
		d = domain.PurchaseOrderDetails{PurchaseOrder: o, TotalAmount: o.Total()}
		if err := tx.QueryRow(ctx, `SELECT name FROM suppliers WHERE id=$1`, o.SupplierID).Scan(&d.SupplierName); err != nil {
			return err
		}
		rows, err := tx.Query(ctx, `
			SELECT i.product_id, p.name
			FROM purchase_order_items i JOIN products p ON p.id = i.product_id
			WHERE i.order_id=$1`, id)
		if err != nil {
			return err
		}
		names := map[string]string{}
		for rows.Next() {
			var pid, name string
			if err := rows.Scan(&pid, &name); err != nil {
				rows.Close()
				return err
			}
			names[pid] = name
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		d.Lines = make([]domain.PurchaseOrderLine, 0, len(o.Items))
		for _, it := range o.Items {
			d.Lines = append(d.Lines, domain.PurchaseOrderLine{
				ProductID:   it.ProductID,
				ProductName: names[it.ProductID],
				Quantity:    it.Quantity,
				UnitPrice:   it.UnitPrice,
				Subtotal:    it.Subtotal(),
			})
		}
		return nil
	})
	return d, err
}

// ReceivePurchaseOrder moves a PENDING order to RECEIVED together with its
// stock increments and the supplier score in one transaction.
func (s *Store) ReceivePurchaseOrder(ctx context.Context, id string, receivedAt time.Time,
	score func(current float64, o domain.PurchaseOrder) float64) (domain.PurchaseOrder, []domain.StockMovement, error) {
	var (
		out domain.PurchaseOrder
		ms  []domain.StockMovement
	)
	err := s.withTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		o, err := loadOrder(ctx, tx, id, " FOR UPDATE")
		if err != nil {
			return err
		}
		if !domain.CanTransition(o.Status, domain.POStatusReceived) {
			return apperr.InvalidState("purchase order %s is %s, expected %s", id, o.Status, domain.POStatusPending)
		}
		deltas, err := ledger.Normalize(o.Deltas())
		if err != nil {
			return err
		}
		if ms, _, err = applyDeltas(ctx, tx, deltas, domain.ReasonPurchaseReceipt, receivedAt); err != nil {
			return err
		}

		var current float64
		err = tx.QueryRow(ctx, `SELECT reliability_score FROM suppliers WHERE id=$1 FOR UPDATE`, o.SupplierID).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("supplier %s not found", o.SupplierID)
		}
		if err != nil {
			return err
		}

		at := receivedAt
		o.Status = domain.POStatusReceived
		o.ReceivedAt = &at
		if _, err := tx.Exec(ctx, `UPDATE purchase_orders SET status=$2, received_at=$3 WHERE id=$1`, id, string(o.Status), at); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE suppliers SET reliability_score=$2 WHERE id=$1`, o.SupplierID, score(current, o)); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return domain.PurchaseOrder{}, nil, err
	}
	return out, ms, nil
}
