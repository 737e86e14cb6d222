package inmem

import (
	"context"

	"github.com/hksamms/samms-services/internal/apisvc/models"
	"github.com/hksamms/samms-services/internal/apisvc/store"
)

// ResetRepository keeps one pending reset per email. Expiry is left to the caller.
type ResetRepository struct {
	db *resetTable
}

func NewResetRepository(db *DB) *ResetRepository {
	return &ResetRepository{db: db.resets}
}

func (r *ResetRepository) SaveCode(_ context.Context, rc *models.ResetCode) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	cp := *rc
	r.db.t[rc.Email] = &cp
	return nil
}

func (r *ResetRepository) GetCode(_ context.Context, email string) (*models.ResetCode, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	rc, ok := r.db.t[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *rc
	return &cp, nil
}

func (r *ResetRepository) MarkVerified(_ context.Context, email string) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	rc, ok := r.db.t[email]
	if !ok {
		return store.ErrNotFound
	}
	rc.Verified = true
	return nil
}

func (r *ResetRepository) DeleteCode(_ context.Context, email string) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()
	delete(r.db.t, email)
	return nil
}
