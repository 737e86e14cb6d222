package inmem

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hksamms/samms-services/internal/apisvc/models"
	"github.com/hksamms/samms-services/internal/apisvc/store"
)

type UserRepository struct {
	db *table[models.User]
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db.users}
}

func (r *UserRepository) CreateUser(_ context.Context, u *models.User) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if r.duplicate(u) {
		return store.ErrDuplicate
	}

	u.ID = primitive.NewObjectID()
	u.CreatedAt = now()
	u.UpdatedAt = u.CreatedAt
	r.db.put(u.ID, *u)
	return nil
}

func (r *UserRepository) get(match func(*models.User) bool) (*models.User, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	if u, ok := r.db.find(match); ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, store.ErrNotFound
	}
	return r.get(func(u *models.User) bool { return u.ID == oid })
}

func (r *UserRepository) GetByUsername(_ context.Context, username string) (*models.User, error) {
	return r.get(func(u *models.User) bool { return u.Username == username })
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return r.get(func(u *models.User) bool { return u.Email == email })
}

func (r *UserRepository) FindConflict(_ context.Context, scholarID, email string) (*models.User, error) {
	return r.get(func(u *models.User) bool {
		return u.Email == email || u.Username == scholarID || u.EmployeeID == scholarID
	})
}

// duplicate mirrors the unique indexes on username, email and the sparse
// employeeId. The caller holds the lock.
func (r *UserRepository) duplicate(u *models.User) bool {
	_, dup := r.db.find(func(x *models.User) bool {
		return x.ID != u.ID && (x.Username == u.Username || x.Email == u.Email ||
			(u.EmployeeID != "" && x.EmployeeID == u.EmployeeID))
	})
	return dup
}

func (r *UserRepository) UpdateUser(_ context.Context, u *models.User) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if _, ok := r.db.t[u.ID]; !ok {
		return store.ErrNotFound
	}
	if r.duplicate(u) {
		return store.ErrDuplicate
	}
	u.UpdatedAt = now()
	r.db.put(u.ID, *u)
	return nil
}

func (r *UserRepository) DeleteUser(_ context.Context, id primitive.ObjectID) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()
	r.db.remove(id)
	return nil
}
