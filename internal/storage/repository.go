package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"myfinances/internal/core"
	"myfinances/internal/log"

	_ "modernc.org/sqlite"
)

// ErrNoImports is returned when the store holds no snapshot yet.
var ErrNoImports = errors.New("no imports stored")

// timeLayout is fixed width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Import describes one stored snapshot of labeled transactions.
type Import struct {
	ID        string
	CreatedAt time.Time
	Source    string
	RowCount  int
}

// SQLiteRepository stores labeled transaction snapshots.
type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
	now    func() time.Time
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if logger == nil {
		logger = log.Default(log.ComponentStorage)
	} else {
		logger = logger.WithComponent(log.ComponentStorage)
	}
	return &SQLiteRepository{db: db, logger: logger, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveImport stores txs as a new snapshot in one transaction.
func (r *SQLiteRepository) SaveImport(ctx context.Context, source string, txs []core.LabeledTransaction) (Import, error) {
	imp := Import{
		ID:        uuid.NewString(),
		CreatedAt: r.now().UTC(),
		Source:    source,
		RowCount:  len(txs),
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Import{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO imports (id, created_at, source, row_count) VALUES (?, ?, ?, ?)`,
		imp.ID, imp.CreatedAt.Format(timeLayout), imp.Source, imp.RowCount,
	); err != nil {
		return Import{}, fmt.Errorf("insert import: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO transactions (import_id, seq, date, text, amount, account, label, sublabel)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return Import{}, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range txs {
		if _, err := stmt.ExecContext(ctx,
			imp.ID, i, t.Date.String(), t.Text, decimal.NewFromFloat(t.Amount).String(),
			t.Account, t.Label, t.Sublabel,
		); err != nil {
			return Import{}, fmt.Errorf("insert transaction %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Import{}, fmt.Errorf("commit import: %w", err)
	}

	r.logger.InfoContext(ctx, "Import saved to SQLite",
		log.FieldImportID, imp.ID,
		log.FieldRows, imp.RowCount,
		"source", imp.Source)
	return imp, nil
}

// LatestImport returns the most recent snapshot or ErrNoImports.
func (r *SQLiteRepository) LatestImport(ctx context.Context) (Import, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, created_at, source, row_count FROM imports ORDER BY created_at DESC, rowid DESC LIMIT 1`)
	return scanImport(row)
}

// GetImport returns one snapshot by id or ErrNoImports.
func (r *SQLiteRepository) GetImport(ctx context.Context, id string) (Import, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, created_at, source, row_count FROM imports WHERE id = ?`, id)
	return scanImport(row)
}

func scanImport(row *sql.Row) (Import, error) {
	var (
		imp     Import
		created string
	)
	if err := row.Scan(&imp.ID, &created, &imp.Source, &imp.RowCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Import{}, ErrNoImports
		}
		return Import{}, fmt.Errorf("scan import: %w", err)
	}
	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return Import{}, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	imp.CreatedAt = t
	return imp, nil
}

// LoadTransactions returns the rows of one snapshot in stored order.
func (r *SQLiteRepository) LoadTransactions(ctx context.Context, importID string) ([]core.LabeledTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT date, text, amount, account, label, sublabel
		 FROM transactions WHERE import_id = ? ORDER BY seq`, importID)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.LabeledTransaction
	for rows.Next() {
		var (
			t            core.LabeledTransaction
			date, amount string
		)
		if err := rows.Scan(&date, &t.Text, &amount, &t.Account, &t.Label, &t.Sublabel); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if t.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("parse date %q: %w", date, err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amount, err)
		}
		t.Amount = d.InexactFloat64()
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// LoadLatest returns the newest snapshot and its rows.
func (r *SQLiteRepository) LoadLatest(ctx context.Context) (Import, []core.LabeledTransaction, error) {
	imp, err := r.LatestImport(ctx)
	if err != nil {
		return Import{}, nil, err
	}
	txs, err := r.LoadTransactions(ctx, imp.ID)
	if err != nil {
		return Import{}, nil, err
	}
	return imp, txs, nil
}

// PruneImports deletes every snapshot except the newest keep.
func (r *SQLiteRepository) PruneImports(ctx context.Context, keep int) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	const stale = `SELECT id FROM imports ORDER BY created_at DESC, rowid DESC LIMIT -1 OFFSET ?`
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM transactions WHERE import_id IN (`+stale+`)`, keep); err != nil {
		return 0, fmt.Errorf("delete stale transactions: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM imports WHERE id IN (`+stale+`)`, keep)
	if err != nil {
		return 0, fmt.Errorf("delete stale imports: %w", err)
	}
	n, _ := res.RowsAffected()
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit prune: %w", err)
	}
	if n > 0 {
		r.logger.InfoContext(ctx, "Pruned old imports", "deleted", n, "kept", keep)
	}
	return int(n), nil
}
