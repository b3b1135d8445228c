package auth

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/qvdang/stockledger/internal/model"
	_ "modernc.org/sqlite"
)

const loginLogSchema = `
CREATE TABLE IF NOT EXISTS login_logs (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	username   TEXT NOT NULL,
	event      TEXT NOT NULL,
	ip         TEXT NOT NULL DEFAULT '',
	user_agent TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_login_logs_username ON login_logs (username);
CREATE INDEX IF NOT EXISTS idx_login_logs_created_at ON login_logs (created_at);
`

const (
	EventLoginSuccess = "login_success"
	EventLoginFailure = "login_failure"
)

// LoginLogEntry is one authentication event.
type LoginLogEntry struct {
	ID        int64     `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	Event     string    `db:"event" json:"event"`
	IP        string    `db:"ip" json:"ip"`
	UserAgent string    `db:"user_agent" json:"user_agent"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// LoginLog records authentication events in a local SQLite database.
type LoginLog struct {
	db *sqlx.DB
}

func NewLoginLog(path string) (*LoginLog, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, model.NewStorage("open login log database", err)
	}
	if _, err := db.Exec(loginLogSchema); err != nil {
		_ = db.Close()
		return nil, model.NewStorage("initialize login log schema", err)
	}
	return &LoginLog{db: db}, nil
}

func (l *LoginLog) Close() error {
	return l.db.Close()
}

// Record stores one authentication event.
func (l *LoginLog) Record(ctx context.Context, entry LoginLogEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := l.db.NamedExecContext(ctx,
		`INSERT INTO login_logs (username, event, ip, user_agent, created_at)
		 VALUES (:username, :event, :ip, :user_agent, :created_at)`, entry)
	if err != nil {
		return model.NewStorage("record login event", err)
	}
	return nil
}

// Recent returns the most recent events, newest first. Ordered by row id,
// which follows insert order exactly.
func (l *LoginLog) Recent(ctx context.Context, limit int) ([]LoginLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	entries := []LoginLogEntry{}
	err := l.db.SelectContext(ctx, &entries,
		`SELECT id, username, event, ip, user_agent, created_at
		 FROM login_logs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, model.NewStorage("list login events", err)
	}
	return entries, nil
}

// FailureCount returns recent failed attempts for a username within the window.
func (l *LoginLog) FailureCount(ctx context.Context, username string, window time.Duration) (int, error) {
	since := time.Now().UTC().Add(-window)
	var count int
	err := l.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM login_logs
		 WHERE username = ? AND event = ? AND created_at >= ?`,
		username, EventLoginFailure, since)
	if err != nil {
		return 0, model.NewStorage("count login failures", err)
	}
	return count, nil
}
