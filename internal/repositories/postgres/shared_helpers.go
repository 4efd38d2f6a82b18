package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Advisory lock keys, one per prerequisite graph, plus the per-user namespace
const (
	skillGraphLockKey  int64 = 0x736b696c6c   /* "skill" */
	courseGraphLockKey int64 = 0x636f75727365 /* "course" */

	// First half of the two-key lock space; the second half is hashtext(user_id)
	achievementLockNamespace int32 = 0x61636876 /* "achv" */
)

func isPostgres(db *gorm.DB) bool {
	return db.Dialector != nil && db.Dialector.Name() == "postgres"
}

// forUpdate adds a row lock on dialects that support SELECT ... FOR UPDATE
func forUpdate(db *gorm.DB) *gorm.DB {
	if isPostgres(db) {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

// acquireXactLock takes a transaction-scoped advisory lock. Other dialects
// rely on the transaction itself.
func acquireXactLock(ctx context.Context, db *gorm.DB, key int64) error {
	if !isPostgres(db) {
		return nil
	}
	if err := db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(?)", key).Error; err != nil {
		return fmt.Errorf("failed to acquire advisory lock: %w", err)
	}
	return nil
}

// acquireUserXactLock takes a transaction-scoped advisory lock in the two-key space,
// which never overlaps the single-key graph locks
func acquireUserXactLock(ctx context.Context, db *gorm.DB, namespace int32, userID string) error {
	if !isPostgres(db) {
		return nil
	}
	if err := db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(?, hashtext(?))", namespace, userID).Error; err != nil {
		return fmt.Errorf("failed to acquire user lock: %w", err)
	}
	return nil
}

// insertIgnoringConflict inserts value and reports whether a row was written
func insertIgnoringConflict(ctx context.Context, db *gorm.DB, value interface{}) (bool, error) {
	result := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(value)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func paginate(page, size int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return (page - 1) * size, size
}
