package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"swapshelf/pkg/domain"
)

const migrateLockID int64 = 84518451

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations under an advisory lock
// so multiple instances can start concurrently.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&ListingModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// Insert stores a new listing.
func (s *GormStore) Insert(l domain.Listing) error {
	model := listingToModel(l)
	if err := s.db.Create(&model).Error; err != nil {
		return &domain.StorageError{Op: "insert", Err: err}
	}
	return nil
}

// FindByID retrieves a listing.
func (s *GormStore) FindByID(id string) (domain.Listing, bool, error) {
	var model ListingModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Listing{}, false, nil
		}
		return domain.Listing{}, false, &domain.StorageError{Op: "find", Err: err}
	}
	return listingFromModel(model), true, nil
}

// FindAll returns listings matching the predicate, ordered by created_at
// descending with id as the tie-break for deterministic pagination.
func (s *GormStore) FindAll(match func(domain.Listing) bool) ([]domain.Listing, error) {
	var models []ListingModel
	if err := s.db.Order("created_at DESC, id DESC").Find(&models).Error; err != nil {
		return nil, &domain.StorageError{Op: "find all", Err: err}
	}
	res := make([]domain.Listing, 0, len(models))
	for _, m := range models {
		l := listingFromModel(m)
		if match == nil || match(l) {
			res = append(res, l)
		}
	}
	return res, nil
}

// UpdateStatus performs a compare-and-set status transition. Zero rows
// affected means either the listing vanished (ErrNotFound) or a concurrent
// transition already moved it off expected (ErrConflict).
func (s *GormStore) UpdateStatus(id string, expected, next domain.ListingStatus) error {
	res := s.db.Model(&ListingModel{}).
		Where("id = ? AND status = ?", id, string(expected)).
		Updates(map[string]any{
			"status":     string(next),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return &domain.StorageError{Op: "update status", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := s.db.Model(&ListingModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return &domain.StorageError{Op: "update status", Err: err}
		}
		if count == 0 {
			return domain.ErrNotFound
		}
		return domain.ErrConflict
	}
	return nil
}

// SetFeatured flips the featured flag without touching status.
func (s *GormStore) SetFeatured(id string, featured bool) error {
	res := s.db.Model(&ListingModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"featured":   featured,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return &domain.StorageError{Op: "set featured", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// IncrementViews bumps the view counter atomically.
func (s *GormStore) IncrementViews(id string) error {
	res := s.db.Model(&ListingModel{}).
		Where("id = ?", id).
		Update("views", gorm.Expr("views + 1"))
	if res.Error != nil {
		return &domain.StorageError{Op: "increment views", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a listing permanently.
func (s *GormStore) Delete(id string) error {
	res := s.db.Delete(&ListingModel{}, "id = ?", id)
	if res.Error != nil {
		return &domain.StorageError{Op: "delete", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteIfStatus removes a listing only while it still carries expected,
// with the same zero-rows disambiguation as UpdateStatus.
func (s *GormStore) DeleteIfStatus(id string, expected domain.ListingStatus) error {
	res := s.db.Delete(&ListingModel{}, "id = ? AND status = ?", id, string(expected))
	if res.Error != nil {
		return &domain.StorageError{Op: "delete if status", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := s.db.Model(&ListingModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return &domain.StorageError{Op: "delete if status", Err: err}
		}
		if count == 0 {
			return domain.ErrNotFound
		}
		return domain.ErrConflict
	}
	return nil
}
