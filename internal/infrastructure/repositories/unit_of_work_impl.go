package repositories

import (
	"context"
	"fmt"

	domainRepos "giveora.backend/internal/domain/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type contextKey string

const (
	txKey          contextKey = "tx_db"
	lockKey        contextKey = "tx_lock"
	afterCommitKey contextKey = "tx_after_commit"
)

var commitTx = func(tx *gorm.DB) error {
	return tx.Commit().Error
}

type afterCommitQueue struct {
	fns []func(context.Context)
}

// UnitOfWorkImpl implements UnitOfWork using GORM
type UnitOfWorkImpl struct {
	db *gorm.DB
}

// NewUnitOfWork creates a new UnitOfWork
func NewUnitOfWork(db *gorm.DB) domainRepos.UnitOfWork {
	return &UnitOfWorkImpl{db: db}
}

// Do executes fn inside one transaction. A nested Do joins the outer transaction.
// Callbacks registered with AfterCommit run only once the outermost commit succeeds.
func (u *UnitOfWorkImpl) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return fn(ctx)
	}

	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	queue := &afterCommitQueue{}
	txCtx := context.WithValue(ctx, txKey, tx)
	txCtx = context.WithValue(txCtx, afterCommitKey, queue)

	if err := fn(txCtx); err != nil {
		tx.Rollback()
		return err
	}

	if err := commitTx(tx); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	for _, cb := range queue.fns {
		cb(ctx)
	}
	return nil
}

// WithLock makes reads through GetDB take row locks (SELECT ... FOR UPDATE)
func (u *UnitOfWorkImpl) WithLock(ctx context.Context) context.Context {
	return context.WithValue(ctx, lockKey, true)
}

// GetDB returns the transaction bound to ctx, or the base handle
func (u *UnitOfWorkImpl) GetDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return tx
	}
	return u.db
}

// GetDB is the package-level helper repositories use to join the ambient
// transaction. Reads on a WithLock context get a FOR UPDATE clause.
func GetDB(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	db := fallback
	if tx, ok := ctx.Value(txKey).(*gorm.DB); ok {
		db = tx
	}
	if locked, _ := ctx.Value(lockKey).(bool); locked {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

// AfterCommit defers fn until the transaction bound to ctx commits.
// Outside a transaction fn runs immediately.
func AfterCommit(ctx context.Context, fn func(context.Context)) {
	if queue, ok := ctx.Value(afterCommitKey).(*afterCommitQueue); ok {
		queue.fns = append(queue.fns, fn)
		return
	}
	fn(ctx)
}
