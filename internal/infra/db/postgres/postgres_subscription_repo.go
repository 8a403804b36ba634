package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"subscription-engine/internal/domain"
	"subscription-engine/internal/domain/model"
	"subscription-engine/internal/domain/ports/repository"
	"subscription-engine/internal/infra/metrics"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

// Ensure interface compliance
var _ repository.SubscriptionRepository = (*PostgresSubscriptionRepo)(nil)

type PostgresSubscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresSubscriptionRepo(pool *pgxpool.Pool) *PostgresSubscriptionRepo {
	return &PostgresSubscriptionRepo{pool: pool}
}

const subscriptionColumns = `
id, product_id, user_id, status, frequency,
custom_interval_value, custom_interval_unit,
quantity, unit_price::text, amount::text,
start_date, anchor_date, next_delivery_date,
version, created_at, updated_at`

func (r *PostgresSubscriptionRepo) Create(ctx context.Context, sub *model.Subscription) error {
	const sql = `
INSERT INTO subscriptions (
  id, product_id, user_id, status, frequency,
  custom_interval_value, custom_interval_unit,
  quantity, unit_price, amount,
  start_date, anchor_date, next_delivery_date,
  version, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16);
`
	var (
		civ *int
		ciu *string
	)
	if sub.CustomInterval != nil {
		v := sub.CustomInterval.Value
		u := string(sub.CustomInterval.Unit)
		civ, ciu = &v, &u
	}
	_, err := r.pool.Exec(ctx, sql,
		sub.ID, sub.ProductID, sub.UserID, string(sub.Status), string(sub.Frequency),
		civ, ciu,
		sub.Quantity, sub.UnitPrice.String(), sub.Amount.String(),
		sub.StartDate, sub.AnchorDate, sub.NextDeliveryDate,
		sub.Version, sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: subscription %s already exists", domain.ErrConflict, sub.ID)
		}
		return fmt.Errorf("Create subscription: %w", err)
	}
	return nil
}

// Update writes sub back with a compare-and-set on the version column.
// The row is updated only when its stored version still equals
// expectedVersion; otherwise domain.ErrConflict is returned and the
// caller is expected to re-read and retry.
func (r *PostgresSubscriptionRepo) Update(ctx context.Context, sub *model.Subscription, expectedVersion int64) error {
	const sql = `
UPDATE subscriptions
   SET status = $3,
       frequency = $4,
       custom_interval_value = $5,
       custom_interval_unit = $6,
       quantity = $7,
       unit_price = $8,
       amount = $9,
       anchor_date = $10,
       next_delivery_date = $11,
       version = version + 1,
       updated_at = $12
 WHERE id = $1 AND version = $2;
`
	var (
		civ *int
		ciu *string
	)
	if sub.CustomInterval != nil {
		v := sub.CustomInterval.Value
		u := string(sub.CustomInterval.Unit)
		civ, ciu = &v, &u
	}
	ct, err := r.pool.Exec(ctx, sql,
		sub.ID, expectedVersion,
		string(sub.Status), string(sub.Frequency),
		civ, ciu,
		sub.Quantity, sub.UnitPrice.String(), sub.Amount.String(),
		sub.AnchorDate, sub.NextDeliveryDate,
		sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Update subscription: %w", err)
	}
	if ct.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM subscriptions WHERE id = $1);`, sub.ID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("Update subscription existence check: %w", err)
		}
		if !exists {
			return domain.ErrNotFound
		}
		metrics.IncWriteConflict()
		return domain.ErrConflict
	}
	sub.Version = expectedVersion + 1
	return nil
}

func (r *PostgresSubscriptionRepo) FindByID(ctx context.Context, id string) (*model.Subscription, error) {
	sql := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1;`
	row := r.pool.QueryRow(ctx, sql, id)
	sub, err := scanSubscription(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("FindByID subscription: %w", err)
	}
	return sub, nil
}

func (r *PostgresSubscriptionRepo) List(ctx context.Context, filter repository.ListFilter) ([]*model.Subscription, error) {
	sql := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE 1=1`
	args := []interface{}{}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		sql += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		sql += fmt.Sprintf(" AND status = $%d", len(args))
	}
	sql += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		sql += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("List subscriptions: %w", err)
	}
	defer rows.Close()

	var out []*model.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (r *PostgresSubscriptionRepo) CountByStatus(ctx context.Context) (map[model.SubscriptionStatus]int, error) {
	const sql = `SELECT status, COUNT(1) FROM subscriptions GROUP BY status;`
	rows, err := r.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("CountByStatus: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.SubscriptionStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
		}
		counts[model.SubscriptionStatus(status)] = n
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSubscription(row rowScanner) (*model.Subscription, error) {
	var (
		sub       model.Subscription
		status    string
		frequency string
		civ       *int
		ciu       *string
		unitPrice string
		amount    string
		next      *time.Time
	)
	if err := row.Scan(
		&sub.ID, &sub.ProductID, &sub.UserID, &status, &frequency,
		&civ, &ciu,
		&sub.Quantity, &unitPrice, &amount,
		&sub.StartDate, &sub.AnchorDate, &next,
		&sub.Version, &sub.CreatedAt, &sub.UpdatedAt,
	); err != nil {
		return nil, err
	}
	sub.Status = model.SubscriptionStatus(status)
	sub.Frequency = model.Frequency(frequency)
	if civ != nil && ciu != nil {
		sub.CustomInterval = &model.CustomInterval{Value: *civ, Unit: model.IntervalUnit(*ciu)}
	}
	var err error
	if sub.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
		return nil, fmt.Errorf("parse unit_price: %w", err)
	}
	if sub.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	if next != nil {
		d := model.DateOnly(*next)
		sub.NextDeliveryDate = &d
	}
	sub.StartDate = model.DateOnly(sub.StartDate)
	sub.AnchorDate = model.DateOnly(sub.AnchorDate)
	return &sub, nil
}
