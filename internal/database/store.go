package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/edgard/longopass/internal/catalog"
)

// SupplementProduct is a catalog row: a product and the supplement it is
// offered for.
type SupplementProduct struct {
	Supplement string `db:"supplement"`
	catalog.Product
}

// Store defines the database operations used by the application.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// FindProductsByKey returns the products of the first supplement, in
	// catalog order, whose key or alias contains key or is contained in it.
	FindProductsByKey(ctx context.Context, key string) ([]catalog.Product, error)

	// ListProducts returns every catalog row ordered by supplement position.
	ListProducts(ctx context.Context) ([]SupplementProduct, error)

	// AddProduct inserts a product for supplement, registering the
	// supplement and its aliases when they are new. p.ID is set on success.
	AddProduct(ctx context.Context, supplement string, aliases []string, p *catalog.Product) error

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const productColumns = `p.id, p.name, p.price, p.currency, p.image, p.description, p.category, p.stock, p.url`

func (s *sqlxStore) FindProductsByKey(ctx context.Context, key string) ([]catalog.Product, error) {
	if key == "" {
		return nil, nil
	}

	query := `SELECT ` + productColumns + `
	          FROM products p
	          JOIN supplement_products sp ON sp.product_id = p.id
	          WHERE sp.supplement = (
	              SELECT k.supplement FROM supplement_keys k
	              WHERE instr(?, k.key) > 0 OR instr(k.key, ?) > 0
	              ORDER BY k.position ASC, k.key ASC
	              LIMIT 1
	          )
	          ORDER BY p.id ASC`

	products := []catalog.Product{}
	if err := s.db.SelectContext(ctx, &products, query, key, key); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			s.logger.WarnContext(ctx, "Product lookup cancelled or timed out", "key", key, "error", err)
		} else {
			s.logger.ErrorContext(ctx, "Failed to find products", "key", key, "error", err)
		}
		return nil, fmt.Errorf("failed to query products: %w", err)
	}

	s.logger.DebugContext(ctx, "Found products", "key", key, "count", len(products))
	return products, nil
}

func (s *sqlxStore) ListProducts(ctx context.Context) ([]SupplementProduct, error) {
	query := `SELECT sp.supplement, ` + productColumns + `
	          FROM products p
	          JOIN supplement_products sp ON sp.product_id = p.id
	          JOIN (SELECT supplement, MIN(position) AS position FROM supplement_keys GROUP BY supplement) k
	            ON k.supplement = sp.supplement
	          ORDER BY k.position ASC, p.id ASC`

	rows := []SupplementProduct{}
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		s.logger.ErrorContext(ctx, "Failed to list products", "error", err)
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return rows, nil
}

func (s *sqlxStore) AddProduct(ctx context.Context, supplement string, aliases []string, p *catalog.Product) error {
	if p == nil {
		return fmt.Errorf("cannot save nil product")
	}
	supplement = catalog.Normalize(supplement)
	if supplement == "" {
		return fmt.Errorf("product must have a non-empty supplement")
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("product must have a non-empty name")
	}
	if p.Currency == "" {
		p.Currency = "TRY"
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for adding product", "supplement", supplement, "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.ErrorContext(ctx, "Failed to rollback transaction", "error", rollbackErr)
			}
		}
	}()

	var position int
	err = tx.GetContext(ctx, &position, `SELECT position FROM supplement_keys WHERE supplement = ? LIMIT 1`, supplement)
	if errors.Is(err, sql.ErrNoRows) {
		err = tx.GetContext(ctx, &position, `SELECT COALESCE(MAX(position), 0) + 1 FROM supplement_keys`)
	}
	if err != nil {
		return fmt.Errorf("failed to resolve supplement position: %w", err)
	}

	keys := append([]string{supplement}, aliases...)
	for _, k := range keys {
		k = catalog.Normalize(k)
		if k == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO supplement_keys (key, supplement, position) VALUES (?, ?, ?)`,
			k, supplement, position); err != nil {
			return fmt.Errorf("failed to insert supplement key %q: %w", k, err)
		}
	}

	res, err := tx.NamedExecContext(ctx,
		`INSERT INTO products (name, price, currency, image, description, category, stock, url)
		 VALUES (:name, :price, :currency, :image, :description, :category, :stock, :url)`, p)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to insert product", "name", p.Name, "error", err)
		return fmt.Errorf("failed to insert product: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get product id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO supplement_products (supplement, product_id) VALUES (?, ?)`, supplement, id); err != nil {
		return fmt.Errorf("failed to link product to supplement: %w", err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction for adding product", "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	p.ID = id
	s.logger.InfoContext(ctx, "Product added", "product_id", id, "supplement", supplement)
	return nil
}

// RunSQLMaintenance executes VACUUM. It must run outside a transaction.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		s.logger.WarnContext(ctx, "Failed to set busy timeout", "error", err)
	}

	_, err := s.db.ExecContext(ctx, "VACUUM;")

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)

	default:
		s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	}

	return nil
}
