// Package storage is the SQL ExpenseStore. One Repository type serves both
// the embedded SQLite database and a hosted PostgreSQL database; the only
// differences are the driver, placeholder syntax and column types.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"spendwise/internal/core"
	"spendwise/internal/recurring"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func (d Dialect) driverName() string {
	return string(d)
}

type Repository struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(DialectSQLite, dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, dialect: DialectSQLite, now: time.Now}, nil
}

func NewPostgresRepository(dsn string) (*Repository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(DialectPostgres, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, dialect: DialectPostgres, now: time.Now}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Dialect() Dialect { return r.dialect }

// Ping checks connectivity for /readyz.
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return transport("ping", err)
	}
	return nil
}

// rebind rewrites ? placeholders into $n for PostgreSQL.
func (r *Repository) rebind(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func transport(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", core.ErrTransport, op, err)
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return core.ErrUnauthenticated
	}
	return nil
}

const recurringColumns = `id, user_id, description, amount, category, frequency, next_payment, active, created_at`

// FetchRecurring returns the caller's recurring expenses in their stored
// shape, earliest next payment first.
func (r *Repository) FetchRecurring(ctx context.Context, userID string) ([]recurring.RemoteRecord, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, r.rebind(
		`SELECT `+recurringColumns+` FROM recurring_expenses WHERE user_id = ? ORDER BY next_payment ASC, created_at ASC`),
		userID)
	if err != nil {
		return nil, transport("fetch recurring", err)
	}
	defer rows.Close()
	return scanRecurring(rows)
}

// ListActiveRecurring returns active recurring expenses of every user.
func (r *Repository) ListActiveRecurring(ctx context.Context) ([]recurring.RemoteRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recurringColumns+` FROM recurring_expenses WHERE active IS NULL OR active = `+r.trueLiteral()+` ORDER BY next_payment ASC`)
	if err != nil {
		return nil, transport("list active recurring", err)
	}
	defer rows.Close()
	return scanRecurring(rows)
}

func (r *Repository) trueLiteral() string {
	if r.dialect == DialectPostgres {
		return "TRUE"
	}
	return "1"
}

func scanRecurring(rows *sql.Rows) ([]recurring.RemoteRecord, error) {
	var out []recurring.RemoteRecord
	for rows.Next() {
		var (
			rec                 recurring.RemoteRecord
			userID, amount      string
			category, createdAt sql.NullString
			nextPayment         string
			active              sql.NullBool
		)
		if err := rows.Scan(&rec.ID, &userID, &rec.Description, &amount, &category,
			&rec.Frequency, &nextPayment, &active, &createdAt); err != nil {
			return nil, transport("scan recurring", err)
		}
		rec.UserID = &userID
		rec.Amount = recurring.RawAmount(amount)
		rec.NextPayment = dateText(nextPayment)
		if category.Valid {
			rec.Category = &category.String
		}
		if active.Valid {
			rec.Active = &active.Bool
		}
		if createdAt.Valid {
			if ts, err := time.Parse(time.RFC3339Nano, createdAt.String); err == nil {
				rec.CreatedAt = &ts
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, transport("iterate recurring", err)
	}
	return out, nil
}

// dateText trims a driver-rendered timestamp down to its calendar date.
func dateText(s string) string {
	if len(s) >= len(core.DateLayout) {
		return s[:len(core.DateLayout)]
	}
	return s
}

// InsertRecurring persists rec under a new server-assigned id.
func (r *Repository) InsertRecurring(ctx context.Context, userID string, rec core.RecurringExpense) (recurring.RemoteRecord, error) {
	if err := requireUser(userID); err != nil {
		return recurring.RemoteRecord{}, err
	}
	id := uuid.New().String()
	createdAt := r.now().UTC().Truncate(time.Second)
	category := string(rec.Category)
	active := rec.Active

	_, err := r.db.ExecContext(ctx, r.rebind(
		`INSERT INTO recurring_expenses (`+recurringColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		id, userID, rec.Description, rec.Amount.String(), category, string(rec.Frequency),
		rec.NextPayment.String(), active, createdAt.Format(time.RFC3339))
	if err != nil {
		return recurring.RemoteRecord{}, transport("insert recurring", err)
	}

	slog.InfoContext(ctx, "Recurring expense saved",
		"id", id,
		"description", rec.Description,
		"amount", rec.Amount.StringFixed(2),
		"frequency", rec.Frequency,
		"backend", r.dialect)

	return recurring.RemoteRecord{
		ID:          id,
		UserID:      &userID,
		Description: rec.Description,
		Amount:      recurring.RawAmount(rec.Amount.String()),
		Category:    &category,
		Frequency:   string(rec.Frequency),
		NextPayment: rec.NextPayment.String(),
		Active:      &active,
		CreatedAt:   &createdAt,
	}, nil
}

// ListExpenses returns the caller's expenses dated in [from, to), newest
// first. A zero bound is open.
func (r *Repository) ListExpenses(ctx context.Context, userID string, from, to core.Date) ([]core.Expense, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	query := `SELECT id, date, description, amount, category, added_by FROM expenses WHERE user_id = ?`
	args := []any{userID}
	if !from.IsZero() {
		query += ` AND date >= ?`
		args = append(args, from.String())
	}
	if !to.IsZero() {
		query += ` AND date < ?`
		args = append(args, to.String())
	}
	query += ` ORDER BY date DESC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, transport("list expenses", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var (
			e                 core.Expense
			date, amount      string
			category, addedBy sql.NullString
		)
		if err := rows.Scan(&e.ID, &date, &e.Description, &amount, &category, &addedBy); err != nil {
			return nil, transport("scan expense", err)
		}
		if e.Date, err = core.ParseDate(dateText(date)); err != nil {
			return nil, fmt.Errorf("expense %s: %w", e.ID, err)
		}
		if e.Amount, err = core.ParseAmount(amount); err != nil {
			return nil, fmt.Errorf("expense %s: %w", e.ID, err)
		}
		e.Category = core.CategoryOrOther(category.String)
		e.AddedBy = addedBy.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, transport("iterate expenses", err)
	}
	return out, nil
}

func (r *Repository) InsertExpense(ctx context.Context, userID string, e core.Expense) (core.Expense, error) {
	if err := requireUser(userID); err != nil {
		return core.Expense{}, err
	}
	e.ID = uuid.New().String()
	_, err := r.db.ExecContext(ctx, r.rebind(
		`INSERT INTO expenses (id, user_id, date, description, amount, category, added_by, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		e.ID, userID, e.Date.String(), e.Description, e.Amount.String(), string(e.Category),
		nullIfEmpty(e.AddedBy), r.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return core.Expense{}, transport("insert expense", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID,
		"description", e.Description,
		"amount", e.Amount.StringFixed(2),
		"date", e.Date.String(),
		"backend", r.dialect)

	return e, nil
}

func (r *Repository) CountTeamMembers(ctx context.Context, userID string) (int, error) {
	if err := requireUser(userID); err != nil {
		return 0, err
	}
	var n int
	if err := r.db.QueryRowContext(ctx, r.rebind(
		`SELECT COUNT(*) FROM team_members WHERE user_id = ?`), userID).Scan(&n); err != nil {
		return 0, transport("count team members", err)
	}
	return n, nil
}

// ListTeamMembers returns the caller's team, longest-standing member first.
func (r *Repository) ListTeamMembers(ctx context.Context, userID string) ([]core.TeamMember, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, r.rebind(
		`SELECT id, name, email, role, joined_at FROM team_members WHERE user_id = ? ORDER BY joined_at, created_at`), userID)
	if err != nil {
		return nil, transport("list team members", err)
	}
	defer rows.Close()

	var out []core.TeamMember
	for rows.Next() {
		var (
			m           core.TeamMember
			email, role sql.NullString
			joined      string
		)
		if err := rows.Scan(&m.ID, &m.Name, &email, &role, &joined); err != nil {
			return nil, transport("scan team member", err)
		}
		if m.JoinedAt, err = core.ParseDate(dateText(joined)); err != nil {
			return nil, fmt.Errorf("team member %s: %w", m.ID, err)
		}
		m.Email = email.String
		m.Role = role.String
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, transport("iterate team members", err)
	}
	return out, nil
}

func (r *Repository) AddTeamMember(ctx context.Context, userID string, m core.TeamMember) (core.TeamMember, error) {
	if err := requireUser(userID); err != nil {
		return core.TeamMember{}, err
	}
	if strings.TrimSpace(m.Name) == "" {
		return core.TeamMember{}, fmt.Errorf("%w: name", core.ErrMissingField)
	}
	m.ID = uuid.New().String()
	if m.JoinedAt.IsZero() {
		m.JoinedAt = core.DateOf(r.now())
	}
	_, err := r.db.ExecContext(ctx, r.rebind(
		`INSERT INTO team_members (id, user_id, name, email, role, joined_at, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		m.ID, userID, m.Name, nullIfEmpty(m.Email), nullIfEmpty(m.Role), m.JoinedAt.String(),
		r.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return core.TeamMember{}, transport("insert team member", err)
	}
	return m, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
