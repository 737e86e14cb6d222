package inmem

import (
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hksamms/samms-services/internal/apisvc/models"
)

type (
	// DB is a process-local stand-in for the mongo collections, used with
	// STORE=memory and in tests.
	DB struct {
		users    *table[models.User]
		scholars *table[models.Scholar]
		checks   *table[models.CheckerAttendance]
		selfies  *table[models.SelfAttendance]
		resets   *resetTable
	}

	table[T any] struct {
		t     map[primitive.ObjectID]*T
		order []primitive.ObjectID
		mutex sync.RWMutex
	}

	resetTable struct {
		t     map[string]*models.ResetCode
		mutex sync.RWMutex
	}
)

func newTable[T any]() *table[T] {
	return &table[T]{t: make(map[primitive.ObjectID]*T)}
}

func Open() *DB {
	return &DB{
		users:    newTable[models.User](),
		scholars: newTable[models.Scholar](),
		checks:   newTable[models.CheckerAttendance](),
		selfies:  newTable[models.SelfAttendance](),
		resets:   &resetTable{t: make(map[string]*models.ResetCode)},
	}
}

// callers hold the lock
func (t *table[T]) put(id primitive.ObjectID, v T) {
	if _, ok := t.t[id]; !ok {
		t.order = append(t.order, id)
	}
	t.t[id] = &v
}

func (t *table[T]) remove(id primitive.ObjectID) {
	if _, ok := t.t[id]; !ok {
		return
	}
	delete(t.t, id)
	for i, o := range t.order {
		if o == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// newestFirst returns copies in reverse insertion order.
func (t *table[T]) newestFirst(keep func(*T) bool) []*T {
	out := make([]*T, 0, len(t.order))
	for i := len(t.order) - 1; i >= 0; i-- {
		v := *t.t[t.order[i]]
		if keep == nil || keep(&v) {
			out = append(out, &v)
		}
	}
	return out
}

func (t *table[T]) find(match func(*T) bool) (*T, bool) {
	for _, id := range t.order {
		if v := t.t[id]; match(v) {
			cp := *v
			return &cp, true
		}
	}
	return nil, false
}

var now = func() time.Time { return time.Now().UTC() }
