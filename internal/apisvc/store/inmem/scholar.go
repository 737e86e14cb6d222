package inmem

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hksamms/samms-services/internal/apisvc/models"
	"github.com/hksamms/samms-services/internal/apisvc/store"
)

type ScholarRepository struct {
	db *table[models.Scholar]
}

func NewScholarRepository(db *DB) *ScholarRepository {
	return &ScholarRepository{db: db.scholars}
}

func (r *ScholarRepository) ListScholars(_ context.Context) ([]*models.Scholar, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()
	return r.db.newestFirst(nil), nil
}

func (r *ScholarRepository) get(match func(*models.Scholar) bool) (*models.Scholar, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	if s, ok := r.db.find(match); ok {
		return s, nil
	}
	return nil, store.ErrNotFound
}

func (r *ScholarRepository) GetByID(_ context.Context, id string) (*models.Scholar, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, store.ErrNotFound
	}
	return r.get(func(s *models.Scholar) bool { return s.ID == oid })
}

func (r *ScholarRepository) GetByScholarID(_ context.Context, scholarID string) (*models.Scholar, error) {
	return r.get(func(s *models.Scholar) bool { return s.ScholarID == scholarID })
}

func (r *ScholarRepository) FindConflict(_ context.Context, scholarID, email string) (*models.Scholar, error) {
	return r.get(func(s *models.Scholar) bool { return s.ScholarID == scholarID || s.Email == email })
}

func (r *ScholarRepository) CreateScholar(_ context.Context, s *models.Scholar) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if r.duplicate(s) {
		return store.ErrDuplicate
	}

	s.ID = primitive.NewObjectID()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now()
	}
	s.UpdatedAt = s.CreatedAt
	r.db.put(s.ID, *s)
	return nil
}

// duplicate mirrors the unique indexes on id and email. The caller holds the lock.
func (r *ScholarRepository) duplicate(s *models.Scholar) bool {
	_, dup := r.db.find(func(x *models.Scholar) bool {
		return x.ID != s.ID && (x.ScholarID == s.ScholarID || x.Email == s.Email)
	})
	return dup
}

func (r *ScholarRepository) UpdateScholar(_ context.Context, s *models.Scholar) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if _, ok := r.db.t[s.ID]; !ok {
		return store.ErrNotFound
	}
	if r.duplicate(s) {
		return store.ErrDuplicate
	}
	s.UpdatedAt = now()
	r.db.put(s.ID, *s)
	return nil
}

func (r *ScholarRepository) DeleteScholar(_ context.Context, id primitive.ObjectID) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()
	r.db.remove(id)
	return nil
}

func (r *ScholarRepository) CountCreatedBetween(_ context.Context, from, to time.Time) (int64, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	var n int64
	for _, s := range r.db.t {
		if !s.CreatedAt.Before(from) && s.CreatedAt.Before(to) {
			n++
		}
	}
	return n, nil
}
