package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/betbot/copybot/internal/domain"
)

// 定长时间格式，保证按文本排序即按时间排序
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Journal 只追加的 sqlite 交易结果日志
type Journal struct {
	db *sql.DB
}

// Entry 已存储的 TradeResult
type Entry struct {
	ID string `json:"id"`
	domain.TradeResult
}

func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir journal dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite：单连接更稳定
	db.SetMaxIdleConns(1)

	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

func (j *Journal) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`
CREATE TABLE IF NOT EXISTS trade_results (
  id TEXT PRIMARY KEY,
  at TEXT NOT NULL,
  market TEXT NOT NULL,
  outcome TEXT NOT NULL,
  side TEXT NOT NULL,
  size REAL NOT NULL,
  price REAL NOT NULL,
  success INTEGER NOT NULL,
  order_id TEXT,
  error TEXT,
  signature TEXT
);`,
		`CREATE INDEX IF NOT EXISTS idx_trade_results_at ON trade_results(at);`,
	}
	for _, stmt := range stmts {
		if _, err := j.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Record 追加一条结果
func (j *Journal) Record(ctx context.Context, r domain.TradeResult) error {
	at := r.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := j.db.ExecContext(ctx, `
INSERT INTO trade_results (id, at, market, outcome, side, size, price, success, order_id, error, signature)
VALUES (?,?,?,?,?,?,?,?,?,?,?)
`, uuid.NewString(), at.UTC().Format(tsLayout), r.Market, r.Outcome, string(r.Side), r.Size, r.Price,
		boolToInt(r.Success), nullString(r.OrderID), nullString(r.Error), nullString(r.Signature))
	return err
}

// Recent 按时间倒序返回最近的结果
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx, `
SELECT id, at, market, outcome, side, size, price, success, order_id, error, signature
FROM trade_results
ORDER BY at DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e         Entry
			at, side  string
			success   int64
			orderID   sql.NullString
			errStr    sql.NullString
			signature sql.NullString
		)
		if err := rows.Scan(&e.ID, &at, &e.Market, &e.Outcome, &side, &e.Size, &e.Price, &success, &orderID, &errStr, &signature); err != nil {
			return nil, err
		}
		if t, err := time.Parse(tsLayout, at); err == nil {
			e.At = t
		}
		e.Side = domain.Action(side)
		e.Success = success != 0
		e.OrderID = orderID.String
		e.Error = errStr.String
		e.Signature = signature.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
