package orderdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

const defaultListLimit = 20

type Config struct {
	DSN          string        `split_words:"true" required:"true"`
	DialTimeout  time.Duration `split_words:"true" default:"5s"`
	ReadTimeout  time.Duration `split_words:"true" default:"10s"`
	WriteTimeout time.Duration `split_words:"true" default:"10s"`
	MaxOpenConns int           `split_words:"true" default:"10"`
	AutoMigrate  bool          `split_words:"true" default:"true"`
}

// Open returns a bun DB over pgdriver. No connection is made until first use.
func Open(cfg Config) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(cfg.DSN),
		pgdriver.WithDialTimeout(cfg.DialTimeout),
		pgdriver.WithReadTimeout(cfg.ReadTimeout),
		pgdriver.WithWriteTimeout(cfg.WriteTimeout),
	))
	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	return bun.NewDB(sqldb, pgdialect.New())
}

// Repository persists confirmed orders.
type Repository struct {
	db  bun.IDB
	now func() time.Time
}

func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db, now: time.Now}
}

func (r *Repository) CreateSchema(ctx context.Context) error {
	for _, model := range []any{(*Order)(nil), (*OrderItem)(nil)} {
		if _, err := r.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}
	if _, err := r.db.NewCreateIndex().
		Model((*Order)(nil)).
		Index("orders_user_id_idx").
		Column("user_id", "confirmed_at").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create orders user index: %w", err)
	}
	if _, err := r.db.NewCreateIndex().
		Model((*OrderItem)(nil)).
		Index("order_items_order_id_idx").
		Column("order_id").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create order_items index: %w", err)
	}
	return nil
}

// Create inserts the order and its items in one transaction. Re-inserting an
// existing order id is a no-op.
func (r *Repository) Create(ctx context.Context, o *Order) error {
	if o == nil || o.ID == "" || len(o.Items) == 0 {
		return ErrInvalidOrder
	}
	if !o.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, o.Status)
	}

	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewInsert().Model(o).On("CONFLICT (id) DO NOTHING").Exec(ctx)
		if err != nil {
			return fmt.Errorf("insert order %s: %w", o.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return nil
		}

		for _, it := range o.Items {
			it.OrderID = o.ID
		}
		if _, err := tx.NewInsert().Model(&o.Items).Exec(ctx); err != nil {
			return fmt.Errorf("insert items for order %s: %w", o.ID, err)
		}
		return nil
	})
}

func (r *Repository) Get(ctx context.Context, id string) (*Order, error) {
	o := new(Order)
	err := r.db.NewSelect().
		Model(o).
		Relation("Items", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("oi.position ASC")
		}).
		Where("o.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select order %s: %w", id, err)
	}
	return o, nil
}

// ListByUser returns the user's newest orders first.
func (r *Repository) ListByUser(ctx context.Context, userID string, limit int) ([]*Order, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	var orders []*Order
	err := r.listByUserQuery(&orders, userID, limit).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders for user %s: %w", userID, err)
	}
	if orders == nil {
		orders = []*Order{}
	}
	return orders, nil
}

func (r *Repository) listByUserQuery(dst *[]*Order, userID string, limit int) *bun.SelectQuery {
	return r.db.NewSelect().
		Model(dst).
		Relation("Items", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("oi.position ASC")
		}).
		Where("o.user_id = ?", userID).
		Order("o.confirmed_at DESC").
		Limit(limit)
}

func (r *Repository) UpdateStatus(ctx context.Context, id string, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	res, err := r.db.NewUpdate().
		Model((*Order)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", r.now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update order %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrOrderNotFound
	}
	return nil
}
