package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"kycdesk.org/internal/auth"
	"kycdesk.org/internal/kyc"
	"kycdesk.org/internal/reports"
	"kycdesk.org/internal/store"
)

type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Dashboard traffic is light; the pool mostly serves attempt-log inserts.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// New wraps an existing handle.
func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Credentials returns the provider credentials from the first settings row.
func (s *Store) Credentials(ctx context.Context) (kyc.Credentials, error) {
	var c kyc.Credentials
	err := s.db.QueryRowContext(ctx, `
		select client_id, client_secret from settings order by id limit 1
	`).Scan(&c.ClientID, &c.ClientSecret)
	if errors.Is(err, sql.ErrNoRows) {
		return kyc.Credentials{}, kyc.ErrCredentialsNotConfigured
	}
	if err != nil {
		return kyc.Credentials{}, fmt.Errorf("load credentials: %w", err)
	}
	return c, nil
}

// SaveCredentials overwrites the first settings row, creating it if needed.
func (s *Store) SaveCredentials(ctx context.Context, c kyc.Credentials) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	err = tx.QueryRowContext(ctx, `select id from settings order by id limit 1 for update`).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx, `
			insert into settings(client_id, client_secret, updated_at) values ($1, $2, now())
		`, c.ClientID, c.ClientSecret); err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		if _, err := tx.ExecContext(ctx, `
			update settings set client_id = $1, client_secret = $2, updated_at = now() where id = $3
		`, c.ClientID, c.ClientSecret, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) InsertAttempt(ctx context.Context, a kyc.Attempt) error {
	uid, err := auth.ParseUserID(a.UserID)
	if err != nil {
		return fmt.Errorf("attempt user id %q: %w", a.UserID, err)
	}
	ts := a.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx, `
		insert into kyc_logs(user_id, kyc_type, status, timestamp) values ($1, $2, $3, $4)
	`, uid, a.KycType, a.Status, ts)
	return err
}

func (s *Store) ListAttempts(ctx context.Context) ([]reports.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		select l.id, u.id, u.name, u.email, l.kyc_type, l.status, l.timestamp
		from kyc_logs l
		join users u on u.id = l.user_id
		order by l.timestamp desc, l.id desc
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []reports.LogEntry
	for rows.Next() {
		var e reports.LogEntry
		var uid int64
		var status sql.NullString
		if err := rows.Scan(&e.LogID, &uid, &e.UserName, &e.UserEmail, &e.KycType, &status, &e.Timestamp); err != nil {
			return nil, err
		}
		e.UserID = strconv.FormatInt(uid, 10)
		e.Status = status.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) CountAttemptsBetween(ctx context.Context, userID string, from, to time.Time) (int64, error) {
	var n int64
	if userID == "" {
		err := s.db.QueryRowContext(ctx, `
			select count(*) from kyc_logs where timestamp >= $1 and timestamp <= $2
		`, from, to).Scan(&n)
		return n, err
	}
	uid, err := auth.ParseUserID(userID)
	if err != nil {
		return 0, err
	}
	err = s.db.QueryRowContext(ctx, `
		select count(*) from kyc_logs where timestamp >= $1 and timestamp <= $2 and user_id = $3
	`, from, to, uid).Scan(&n)
	return n, err
}

func (s *Store) TopTypes(ctx context.Context, userID string, limit int) ([]reports.TypeCount, error) {
	uid, err := auth.ParseUserID(userID)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		select kyc_type, count(*) as n
		from kyc_logs
		where user_id = $1
		group by kyc_type
		order by n desc, kyc_type
		limit $2
	`, uid, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []reports.TypeCount
	for rows.Next() {
		var tc reports.TypeCount
		if err := rows.Scan(&tc.KycType, &tc.Count); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

func (s *Store) Overview(ctx context.Context) (reports.Overview, error) {
	var o reports.Overview
	err := s.db.QueryRowContext(ctx, `
		select
			(select count(*) from users where role = 'user'),
			(select count(*) from branches),
			(select count(*) from kyc_logs)
	`).Scan(&o.Users, &o.Branches, &o.Kyc)
	return o, err
}

const userColumns = `id, name, email, coalesce(role::text, 'user'), branch_id, password_hash`

func (s *Store) FindUser(ctx context.Context, id string) (auth.User, error) {
	uid, err := auth.ParseUserID(id)
	if err != nil {
		return auth.User{}, auth.ErrNotFound
	}
	return s.scanUser(s.db.QueryRowContext(ctx, `select `+userColumns+` from users where id = $1`, uid))
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (auth.User, error) {
	email = strings.TrimSpace(email)
	return s.scanUser(s.db.QueryRowContext(ctx, `select `+userColumns+` from users where lower(email) = lower($1)`, email))
}

// CreateUser inserts a dashboard account. u.PasswordHash must already be hashed.
func (s *Store) CreateUser(ctx context.Context, u auth.User) (auth.User, error) {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Email == "" || strings.TrimSpace(u.Name) == "" || u.PasswordHash == "" {
		return auth.User{}, fmt.Errorf("%w: name, email and password are required", auth.ErrInvalidInput)
	}
	if u.Role == "" {
		u.Role = auth.RoleUser
	}
	var branch sql.NullInt64
	if u.BranchID != nil {
		branch = sql.NullInt64{Int64: *u.BranchID, Valid: true}
	}
	var id int64
	err := s.db.QueryRowContext(ctx, `
		insert into users(name, email, password_hash, role, branch_id)
		values ($1, $2, $3, $4::user_role, $5)
		returning id
	`, u.Name, u.Email, u.PasswordHash, u.Role, branch).Scan(&id)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return auth.User{}, fmt.Errorf("%w: email %s already registered", auth.ErrInvalidInput, u.Email)
	}
	if err != nil {
		return auth.User{}, fmt.Errorf("insert user: %w", err)
	}
	u.ID = strconv.FormatInt(id, 10)
	return u, nil
}

const uniqueViolation = "23505"

func (s *Store) scanUser(row *sql.Row) (auth.User, error) {
	var u auth.User
	var id int64
	var branch sql.NullInt64
	err := row.Scan(&id, &u.Name, &u.Email, &u.Role, &branch, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.User{}, err
	}
	u.ID = strconv.FormatInt(id, 10)
	if branch.Valid {
		b := branch.Int64
		u.BranchID = &b
	}
	return u, nil
}

// APIText returns the integration blurb, or store.DefaultAPIText when unset.
func (s *Store) APIText(ctx context.Context) (string, error) {
	var text sql.NullString
	err := s.db.QueryRowContext(ctx, `
		select setting_value from system_settings where setting_key = $1
	`, store.APITextKey).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && strings.TrimSpace(text.String) == "") {
		return store.DefaultAPIText, nil
	}
	if err != nil {
		return "", err
	}
	return text.String, nil
}

func (s *Store) SaveAPIText(ctx context.Context, text string) error {
	_, err := s.db.ExecContext(ctx, `
		insert into system_settings(setting_key, setting_value, updated_at) values ($1, $2, now())
		on conflict (setting_key) do update set setting_value = excluded.setting_value, updated_at = now()
	`, store.APITextKey, text)
	return err
}
