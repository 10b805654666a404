package postgres

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-retail-ledger/internal/apperr"
	"github.com/ariefcatur/go-retail-ledger/internal/domain"
	"github.com/jackc/pgx/v5"
)

const productColumns = `id, name, barcode, category_id, unit_price::text, quantity, reorder_threshold, created_at, updated_at`

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var (
		p       domain.Product
		barcode *string
		price   string
	)
	if err := row.Scan(&p.ID, &p.Name, &barcode, &p.CategoryID, &price, &p.Quantity, &p.ReorderThreshold, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return domain.Product{}, err
	}
	p.Barcode = deref(barcode)
	d, err := parseDecimal(price)
	if err != nil {
		return domain.Product{}, err
	}
	p.UnitPrice = d
	return p, nil
}

func queryProducts(ctx context.Context, q querier, sql string, args ...any) ([]domain.Product, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, description FROM categories ORDER BY lower(name), id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Category, 0)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetCategory(ctx context.Context, id string) (domain.Category, error) {
	var c domain.Category
	err := s.pool.QueryRow(ctx, `SELECT id, name, description FROM categories WHERE id=$1`, id).
		Scan(&c.ID, &c.Name, &c.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Category{}, apperr.NotFound("category %s not found", id)
	}
	return c, err
}

func (s *Store) CreateCategory(ctx context.Context, c domain.Category) (domain.Category, error) {
	c.ID = newID()
	_, err := s.pool.Exec(ctx, `INSERT INTO categories(id, name, description) VALUES ($1, $2, $3)`, c.ID, c.Name, c.Description)
	if err != nil {
		return domain.Category{}, constraintErr(err, "create category")
	}
	return c, nil
}

func (s *Store) UpdateCategory(ctx context.Context, c domain.Category) (domain.Category, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE categories SET name=$2, description=$3 WHERE id=$1`, c.ID, c.Name, c.Description)
	if err != nil {
		return domain.Category{}, constraintErr(err, "update category")
	}
	if tag.RowsAffected() == 0 {
		return domain.Category{}, apperr.NotFound("category %s not found", c.ID)
	}
	return c, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM categories WHERE id=$1`, id)
	if err != nil {
		if isForeignKey(err) {
			return apperr.Validation("category %s still has products", id)
		}
		return constraintErr(err, "delete category")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("category %s not found", id)
	}
	return nil
}

func scanSupplier(row pgx.Row) (domain.Supplier, error) {
	var sp domain.Supplier
	err := row.Scan(&sp.ID, &sp.Name, &sp.Phone, &sp.Email, &sp.Address, &sp.ReliabilityScore, &sp.CreatedAt)
	return sp, err
}

const supplierColumns = `id, name, phone, email, address, reliability_score, created_at`

func (s *Store) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+supplierColumns+` FROM suppliers ORDER BY lower(name), id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Supplier, 0)
	for rows.Next() {
		sp, err := scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

func (s *Store) GetSupplier(ctx context.Context, id string) (domain.Supplier, error) {
	sp, err := scanSupplier(s.pool.QueryRow(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Supplier{}, apperr.NotFound("supplier %s not found", id)
	}
	return sp, err
}

func (s *Store) CreateSupplier(ctx context.Context, sp domain.Supplier) (domain.Supplier, error) {
	sp.ID = newID()
	sp.ReliabilityScore = s.initialReliability
	sp.CreatedAt = s.now().UTC()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO suppliers(id, name, phone, email, address, reliability_score, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sp.ID, sp.Name, sp.Phone, sp.Email, sp.Address, sp.ReliabilityScore, sp.CreatedAt,
	)
	if err != nil {
		return domain.Supplier{}, constraintErr(err, "create supplier")
	}
	return sp, nil
}

// UpdateSupplier replaces contact fields; the reliability score is kept.
func (s *Store) UpdateSupplier(ctx context.Context, sp domain.Supplier) (domain.Supplier, error) {
	out, err := scanSupplier(s.pool.QueryRow(ctx, `
		UPDATE suppliers SET name=$2, phone=$3, email=$4, address=$5
		WHERE id=$1
		RETURNING `+supplierColumns,
		sp.ID, sp.Name, sp.Phone, sp.Email, sp.Address,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Supplier{}, apperr.NotFound("supplier %s not found", sp.ID)
	}
	if err != nil {
		return domain.Supplier{}, constraintErr(err, "update supplier")
	}
	return out, nil
}

func (s *Store) DeleteSupplier(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM suppliers WHERE id=$1`, id)
	if err != nil {
		if isForeignKey(err) {
			return apperr.Validation("supplier %s is referenced by purchase orders", id)
		}
		return constraintErr(err, "delete supplier")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("supplier %s not found", id)
	}
	return nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return queryProducts(ctx, s.pool, `SELECT `+productColumns+` FROM products ORDER BY lower(name), id`)
}

func (s *Store) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	return getProduct(ctx, s.pool, id, "")
}

func getProduct(ctx context.Context, q querier, id, suffix string) (domain.Product, error) {
	p, err := scanProduct(q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`+suffix, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, apperr.NotFound("product %s not found", id)
	}
	return p, err
}

func categoryExists(ctx context.Context, q querier, id string) error {
	var ok bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM categories WHERE id=$1)`, id).Scan(&ok); err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("category %s not found", id)
	}
	return nil
}

func (s *Store) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	p.ID = newID()
	p.CreatedAt = s.now().UTC()
	p.UpdatedAt = p.CreatedAt
	err := s.withTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if err := categoryExists(ctx, tx, p.CategoryID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO products(id, name, barcode, category_id, unit_price, quantity, reorder_threshold, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9)`,
			p.ID, p.Name, nullable(p.Barcode), p.CategoryID, p.UnitPrice.String(), p.Quantity, p.ReorderThreshold, p.CreatedAt, p.UpdatedAt,
		)
		if err != nil {
			return constraintErr(err, "create product")
		}
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

// UpdateProduct changes the non-stock fields under the product row lock.
func (s *Store) UpdateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	var out domain.Product
	err := s.withTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := getProduct(ctx, tx, p.ID, " FOR UPDATE"); err != nil {
			return err
		}
		if err := categoryExists(ctx, tx, p.CategoryID); err != nil {
			return err
		}
		row := tx.QueryRow(ctx, `
			UPDATE products
			SET name=$2, barcode=$3, category_id=$4, unit_price=$5::numeric, reorder_threshold=$6, updated_at=$7
			WHERE id=$1
			RETURNING `+productColumns,
			p.ID, p.Name, nullable(p.Barcode), p.CategoryID, p.UnitPrice.String(), p.ReorderThreshold, s.now().UTC(),
		)
		var err error
		out, err = scanProduct(row)
		if err != nil {
			return constraintErr(err, "update product")
		}
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}
	return out, nil
}
