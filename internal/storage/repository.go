package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"expenses/internal/core"
	applog "expenses/internal/log"
	"expenses/internal/ports"

	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// expenseRow is the persisted shape of an expense record.
type expenseRow struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Description string `gorm:"not null"`
	AmountCents int64  `gorm:"column:amount_cents;not null"`
	Category    string `gorm:"not null"`
	CreatedAt   time.Time
}

func (expenseRow) TableName() string { return "expenses" }

func (r expenseRow) record() core.ExpenseRecord {
	return core.ExpenseRecord{
		ID:          r.ID,
		Description: r.Description,
		Amount:      core.AmountFromCents(r.AmountCents),
		Category:    core.Category(r.Category),
	}
}

// SQLiteRepository is the authoritative record store backed by a SQLite
// file.
type SQLiteRepository struct {
	sqlDB  *sql.DB
	db     *gorm.DB
	logger *applog.Logger
}

var _ ports.RecordStore = (*SQLiteRepository)(nil)

// NewSQLiteRepository migrates and opens the database at dbPath. A nil
// logger discards repository logs.
func NewSQLiteRepository(dbPath string, logger *applog.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = applog.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	sqlDB, err := sql.Open(driverName, dbPath+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db, err := gorm.Open(&gormsqlite.Dialector{DriverName: driverName, Conn: sqlDB}, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("open gorm: %w", err)
	}

	return &SQLiteRepository{
		sqlDB:  sqlDB,
		db:     db,
		logger: logger.WithComponent(applog.ComponentStorage),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.sqlDB != nil {
		return r.sqlDB.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.sqlDB.PingContext(ctx)
}

func (r *SQLiteRepository) List(ctx context.Context) ([]core.ExpenseRecord, error) {
	var rows []expenseRow
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	out := make([]core.ExpenseRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.record())
	}
	return out, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, e core.NewExpense) (core.ExpenseRecord, error) {
	if err := e.Validate(); err != nil {
		return core.ExpenseRecord{}, err
	}
	e = e.Normalize()

	row := expenseRow{
		Description: e.Description,
		AmountCents: e.Amount.Cents(),
		Category:    string(e.Category),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("create expense: %w", err)
	}

	rec := row.record()
	r.logger.InfoContext(ctx, "Expense saved to SQLite",
		applog.NewFields().WithOperation(applog.OpCreate).WithRecord(rec).ToSlice()...)
	return rec, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) (core.ExpenseRecord, error) {
	var row expenseRow
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&row, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ports.ErrNotFound
			}
			return fmt.Errorf("find expense %d: %w", id, err)
		}
		if err := tx.Delete(&expenseRow{}, id).Error; err != nil {
			return fmt.Errorf("delete expense %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return core.ExpenseRecord{}, err
	}

	rec := row.record()
	r.logger.InfoContext(ctx, "Expense deleted from SQLite",
		applog.NewFields().WithOperation(applog.OpDelete).WithRecord(rec).ToSlice()...)
	return rec, nil
}
