package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/felruizrojas/pasteleriaapp-sub000/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// Repository is the sqlite-backed store for cart lines, orders, accounts and
// the event outbox. Keeping them in one database lets CreateOrder run the
// order insert, line snapshots and cart clear in a single transaction.
type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// An in-memory sqlite database exists per connection; a second pooled
	// connection would see an empty schema.
	if strings.Contains(dbPath, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

const cartLineColumns = `id, user_id, product_id, product_name, product_price, image_name, quantity, message, created_at`

func (r *Repository) GetLine(ctx context.Context, id int64) (*domain.CartLine, error) {
	query := fmt.Sprintf(`SELECT %s FROM cart_lines WHERE id = $1`, cartLineColumns)

	line, err := scanCartLine(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCartLineNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query cart line: %w", err)
	}

	return line, nil
}

func (r *Repository) FindLine(ctx context.Context, userID, productID int64, message string) (*domain.CartLine, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM cart_lines WHERE user_id = $1 AND product_id = $2 AND message = $3`,
		cartLineColumns)

	line, err := scanCartLine(r.db.QueryRowContext(ctx, query, userID, productID, message))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCartLineNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query cart line: %w", err)
	}

	return line, nil
}

func (r *Repository) ListLines(ctx context.Context, userID int64) ([]domain.CartLine, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM cart_lines WHERE user_id = $1 ORDER BY id`,
		cartLineColumns)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.CartLine
	for rows.Next() {
		line, err := scanCartLine(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		lines = append(lines, *line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return lines, nil
}

func (r *Repository) InsertLine(ctx context.Context, line *domain.CartLine) error {
	query := `INSERT INTO cart_lines (user_id, product_id, product_name, product_price, image_name, quantity, message, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	if line.CreatedAt.IsZero() {
		line.CreatedAt = time.Now()
	}

	res, err := r.db.ExecContext(ctx, query,
		line.UserID,
		line.ProductID,
		line.ProductName,
		line.ProductPrice.String(),
		line.ImageName,
		line.Quantity,
		line.Message,
		line.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert cart line: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read inserted cart line id: %w", err)
	}
	line.ID = id

	return nil
}

func (r *Repository) UpdateLine(ctx context.Context, line *domain.CartLine) error {
	query := `UPDATE cart_lines SET quantity = $1, message = $2 WHERE id = $3`

	res, err := r.db.ExecContext(ctx, query, line.Quantity, line.Message, line.ID)
	if err != nil {
		return fmt.Errorf("failed to update cart line: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrCartLineNotFound
	}

	return nil
}

func (r *Repository) DeleteLine(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_lines WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete cart line: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrCartLineNotFound
	}

	return nil
}

func (r *Repository) ClearCart(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_lines WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// CreateOrder inserts the order header, its line snapshots, the outbox event
// and clears the owner's cart. All of it commits or none of it does.
func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order, lines []domain.OrderLine) (txErr error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if txErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				txErr = errors.Join(txErr, fmt.Errorf("tx.Rollback: %w", rbErr))
			}
		}
	}()

	orderQuery := `INSERT INTO orders (id, user_id, created_at, delivery_date, status, total)
	               VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := tx.ExecContext(ctx, orderQuery,
		order.ID.String(),
		order.UserID,
		order.CreatedAt,
		order.DeliveryDate,
		order.Status.String(),
		order.Total.String(),
	); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	lineQuery := `INSERT INTO order_lines (order_id, product_id, product_name, product_price, image_name, quantity, message)
	              VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, line := range lines {
		if _, err := tx.ExecContext(ctx, lineQuery,
			order.ID.String(),
			line.ProductID,
			line.ProductName,
			line.ProductPrice.String(),
			line.ImageName,
			line.Quantity,
			line.Message,
		); err != nil {
			return fmt.Errorf("failed to insert order line: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_lines WHERE user_id = $1`, order.UserID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	if err := insertOutboxEvent(ctx, tx, order.ID.String(), EventOrderCreated, orderEventPayload(order)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order transaction: %w", err)
	}

	return nil
}

func (r *Repository) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT id, user_id, created_at, delivery_date, status, total
	          FROM orders WHERE id = $1`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	return order, nil
}

func (r *Repository) ListOrderLines(ctx context.Context, orderID uuid.UUID) ([]domain.OrderLine, error) {
	query := `SELECT id, order_id, product_id, product_name, product_price, image_name, quantity, message
	          FROM order_lines WHERE order_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, orderID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query order lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var (
			line     domain.OrderLine
			rawID    string
			rawPrice string
		)
		if err := rows.Scan(
			&line.ID,
			&rawID,
			&line.ProductID,
			&line.ProductName,
			&rawPrice,
			&line.ImageName,
			&line.Quantity,
			&line.Message,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}

		line.OrderID, err = uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("order id[%s] is not valid: %w", rawID, err)
		}
		line.ProductPrice, err = decimal.NewFromString(rawPrice)
		if err != nil {
			return nil, fmt.Errorf("price[%s] is not valid: %w", rawPrice, err)
		}

		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return lines, nil
}

func (r *Repository) ListOrdersByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	query := `SELECT id, user_id, created_at, delivery_date, status, total
	          FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	return collectOrders(rows)
}

func (r *Repository) ListAllOrders(ctx context.Context) ([]domain.Order, error) {
	query := `SELECT id, user_id, created_at, delivery_date, status, total
	          FROM orders ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	return collectOrders(rows)
}

// UpdateOrderStatus overwrites the status unconditionally; transition
// legality is not checked here (see the order service).
func (r *Repository) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (txErr error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if txErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				txErr = errors.Join(txErr, fmt.Errorf("tx.Rollback: %w", rbErr))
			}
		}
	}()

	res, err := tx.ExecContext(ctx, `UPDATE orders SET status = $1 WHERE id = $2`, status.String(), id.String())
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrOrderNotFound
	}

	payload := map[string]interface{}{
		"order_id":   id.String(),
		"status":     status.String(),
		"changed_at": time.Now(),
	}
	if err := insertOutboxEvent(ctx, tx, id.String(), EventOrderStatusChanged, payload); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit status update: %w", err)
	}

	return nil
}

func (r *Repository) InsertUser(ctx context.Context, user *domain.UserProfile, credential string) error {
	query := `INSERT INTO users (name, run, email, birthdate, credential, has_age_discount, has_promo_discount, is_student, is_blocked)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	res, err := r.db.ExecContext(ctx, query,
		user.Name,
		user.RUN,
		user.Email,
		user.Birthdate,
		credential,
		user.HasAgeDiscount,
		user.HasPromoCodeDiscount,
		user.IsEligibleStudent,
		user.IsBlocked,
	)
	if err != nil {
		// modernc/sqlite reports unique violations as
		// "UNIQUE constraint failed: users.<column>".
		msg := err.Error()
		switch {
		case strings.Contains(msg, "users.run"):
			return ErrRUNTaken
		case strings.Contains(msg, "users.email"):
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read inserted user id: %w", err)
	}
	user.ID = id

	return nil
}

const userColumns = `id, name, run, email, birthdate, credential, has_age_discount, has_promo_discount, is_student, is_blocked`

func (r *Repository) GetUser(ctx context.Context, id int64) (*domain.UserProfile, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)

	user, _, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return user, nil
}

func (r *Repository) GetUserByLogin(ctx context.Context, login string) (*domain.UserProfile, string, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE run = $1 OR email = $1`, userColumns)

	user, credential, err := scanUser(r.db.QueryRowContext(ctx, query, login))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrUserNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to query user: %w", err)
	}

	return user, credential, nil
}

func (r *Repository) GetUnpublishedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	query := `SELECT id, aggregate_id, event_type, payload, created_at
	          FROM outbox_events WHERE published = 0 ORDER BY id LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		event := &OutboxEvent{}
		if err := rows.Scan(&event.ID, &event.AggregateID, &event.EventType, &event.Payload, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return events, nil
}

func (r *Repository) MarkEventPublished(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE outbox_events SET published = 1 WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to mark event as published: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCartLine(row rowScanner) (*domain.CartLine, error) {
	var (
		line     domain.CartLine
		rawPrice string
	)
	if err := row.Scan(
		&line.ID,
		&line.UserID,
		&line.ProductID,
		&line.ProductName,
		&rawPrice,
		&line.ImageName,
		&line.Quantity,
		&line.Message,
		&line.CreatedAt,
	); err != nil {
		return nil, err
	}

	price, err := decimal.NewFromString(rawPrice)
	if err != nil {
		return nil, fmt.Errorf("price[%s] is not valid: %w", rawPrice, err)
	}
	line.ProductPrice = price

	return &line, nil
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		order     domain.Order
		rawID     string
		rawStatus string
		rawTotal  string
	)
	if err := row.Scan(
		&rawID,
		&order.UserID,
		&order.CreatedAt,
		&order.DeliveryDate,
		&rawStatus,
		&rawTotal,
	); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("order id[%s] is not valid: %w", rawID, err)
	}
	order.ID = id
	order.Status = domain.OrderStatus(rawStatus)

	total, err := decimal.NewFromString(rawTotal)
	if err != nil {
		return nil, fmt.Errorf("total[%s] is not valid: %w", rawTotal, err)
	}
	order.Total = total

	return &order, nil
}

func collectOrders(rows *sql.Rows) ([]domain.Order, error) {
	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return orders, nil
}

func scanUser(row rowScanner) (*domain.UserProfile, string, error) {
	var (
		user       domain.UserProfile
		credential string
	)
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.RUN,
		&user.Email,
		&user.Birthdate,
		&credential,
		&user.HasAgeDiscount,
		&user.HasPromoCodeDiscount,
		&user.IsEligibleStudent,
		&user.IsBlocked,
	); err != nil {
		return nil, "", err
	}

	return &user, credential, nil
}

func orderEventPayload(order *domain.Order) map[string]interface{} {
	return map[string]interface{}{
		"order_id":      order.ID.String(),
		"user_id":       order.UserID,
		"status":        order.Status.String(),
		"total":         order.Total.String(),
		"delivery_date": order.DeliveryDate,
		"created_at":    order.CreatedAt,
	}
}

func insertOutboxEvent(ctx context.Context, tx *sql.Tx, aggregateID, eventType string, payload map[string]interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	query := `INSERT INTO outbox_events (aggregate_id, event_type, payload, published, created_at)
	          VALUES ($1, $2, $3, 0, $4)`
	if _, err := tx.ExecContext(ctx, query, aggregateID, eventType, payloadJSON, time.Now()); err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}

	return nil
}
