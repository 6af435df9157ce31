// Package fleet exposes each owner's vehicles, drivers, transactions and
// trips as cached collections. Writes go to the store first and reach the
// cache only on success.
package fleet

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"myfleet/internal/apperr"
	"myfleet/internal/models"
	"myfleet/internal/session"
	"myfleet/internal/store"
)

// Store is the persistence the collections need.
type Store interface {
	ListVehicles(ctx context.Context, ownerID string) ([]models.Vehicle, error)
	GetVehicle(ctx context.Context, ownerID, id string) (*models.Vehicle, error)
	RegistrationExists(ctx context.Context, ownerID, reg, excludeID string) (bool, error)
	CreateVehicle(ctx context.Context, v *models.Vehicle) error
	SaveVehicle(ctx context.Context, v *models.Vehicle) error
	DeleteVehicle(ctx context.Context, ownerID, id string) (*models.Driver, error)
	TopUp(ctx context.Context, ownerID, vehicleID string, entry *models.Transaction) (*models.Vehicle, error)

	ListDrivers(ctx context.Context, ownerID string) ([]models.Driver, error)
	GetDriver(ctx context.Context, ownerID, id string) (*models.Driver, error)
	CreateDriver(ctx context.Context, d *models.Driver) error
	SaveDriver(ctx context.Context, d *models.Driver) error
	DeleteDriver(ctx context.Context, ownerID, id string) ([]string, error)
	AssignVehicle(ctx context.Context, ownerID, driverID, vehicleID string) (*store.Assignment, error)
	UnassignVehicle(ctx context.Context, ownerID, driverID, vehicleID string) (*store.Assignment, error)

	ListTransactions(ctx context.Context, ownerID string) ([]models.Transaction, error)
	CreateTransaction(ctx context.Context, t *models.Transaction) error
	SaveTransaction(ctx context.Context, t *models.Transaction) error
	DeleteTransaction(ctx context.Context, ownerID, id string) error

	ListTrips(ctx context.Context, ownerID string) ([]models.Trip, error)
	CreateTrip(ctx context.Context, t *models.Trip) error
	SaveTrip(ctx context.Context, t *models.Trip) error
	DeleteTrip(ctx context.Context, ownerID, id string) error
}

// ChangeFunc runs after a successful mutation of an owner's workspace.
type ChangeFunc func(ownerID string, ws *Workspace)

// Registry hands out one Workspace per owner and drops it whenever that
// owner's session changes.
type Registry struct {
	store Store
	now   func() time.Time

	mu         sync.RWMutex
	workspaces map[string]*Workspace
	onChange   []ChangeFunc
}

func NewRegistry(s Store) *Registry {
	return &Registry{
		store:      s,
		now:        time.Now,
		workspaces: make(map[string]*Workspace),
	}
}

// OnChange registers fn to run after every successful mutation.
func (r *Registry) OnChange(fn ChangeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = append(r.onChange, fn)
}

// Workspace returns the owner's workspace, creating an empty one on first use.
func (r *Registry) Workspace(ownerID string) *Workspace {
	r.mu.RLock()
	ws, ok := r.workspaces[ownerID]
	r.mu.RUnlock()
	if ok {
		return ws
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if ws, ok := r.workspaces[ownerID]; ok {
		return ws
	}
	ws = newWorkspace(r, ownerID)
	r.workspaces[ownerID] = ws
	return ws
}

// Cached reports whether the owner has a live workspace.
func (r *Registry) Cached(ownerID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.workspaces[ownerID]
	return ok
}

// Invalidate drops the owner's workspace. Operations still running on it
// finish against the store but their cache updates are never seen again.
func (r *Registry) Invalidate(ownerID string) {
	r.mu.Lock()
	ws, ok := r.workspaces[ownerID]
	delete(r.workspaces, ownerID)
	r.mu.Unlock()

	if ok {
		ws.detached.Store(true)
		logrus.WithField("owner_id", ownerID).Debug("Workspace cache cleared")
	}
}

// HandleSessionEvent is subscribed to the session store: any identity change
// clears the owner's cached collections.
func (r *Registry) HandleSessionEvent(ev session.Event) {
	r.Invalidate(ev.Session.UserID)
}

func (r *Registry) changed(ws *Workspace) {
	if ws.detached.Load() {
		return
	}
	r.mu.RLock()
	fns := make([]ChangeFunc, len(r.onChange))
	copy(fns, r.onChange)
	r.mu.RUnlock()

	for _, fn := range fns {
		fn(ws.ownerID, ws)
	}
}

// Workspace is the cached view of one owner's fleet. Operations on it are
// serialised, so cache updates apply in submission order.
type Workspace struct {
	reg     *Registry
	ownerID string

	mu           sync.Mutex
	vehicles     cache[models.Vehicle]
	drivers      cache[models.Driver]
	transactions cache[models.Transaction]
	trips        cache[models.Trip]

	detached atomic.Bool
}

func newWorkspace(r *Registry, ownerID string) *Workspace {
	ws := &Workspace{reg: r, ownerID: ownerID}
	ws.vehicles = cache[models.Vehicle]{
		key:   func(v *models.Vehicle) string { return v.ID },
		load:  func(ctx context.Context) ([]models.Vehicle, error) { return r.store.ListVehicles(ctx, ownerID) },
		clone: models.Vehicle.Clone,
	}
	ws.drivers = cache[models.Driver]{
		key:   func(d *models.Driver) string { return d.ID },
		load:  func(ctx context.Context) ([]models.Driver, error) { return r.store.ListDrivers(ctx, ownerID) },
		clone: models.Driver.Clone,
	}
	ws.transactions = cache[models.Transaction]{
		less: func(a, b *models.Transaction) bool {
			if !a.Date.Equal(b.Date) {
				return a.Date.After(b.Date)
			}
			return a.CreatedAt.After(b.CreatedAt)
		},
		key:   func(t *models.Transaction) string { return t.ID },
		load:  func(ctx context.Context) ([]models.Transaction, error) { return r.store.ListTransactions(ctx, ownerID) },
		clone: models.Transaction.Clone,
	}
	ws.trips = cache[models.Trip]{
		key:   func(t *models.Trip) string { return t.ID },
		load:  func(ctx context.Context) ([]models.Trip, error) { return r.store.ListTrips(ctx, ownerID) },
		clone: models.Trip.Clone,
		less:  func(a, b *models.Trip) bool { return a.ScheduledStart.Before(b.ScheduledStart) },
	}
	return ws
}

func (w *Workspace) OwnerID() string { return w.ownerID }

func (w *Workspace) Vehicles() Vehicles         { return Vehicles{w} }
func (w *Workspace) Drivers() Drivers           { return Drivers{w} }
func (w *Workspace) Transactions() Transactions { return Transactions{w} }
func (w *Workspace) Trips() Trips               { return Trips{w} }

// read runs fn under the workspace lock and converts panics into errors.
func (w *Workspace) read(op string, fn func() error) (err error) {
	defer apperr.Recover(op, &err)
	w.mu.Lock()
	defer w.mu.Unlock()
	return apperr.Wrap(op, fn())
}

// mutate is read plus the change notification on success.
func (w *Workspace) mutate(op string, fn func() error) error {
	err := w.read(op, fn)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"owner_id": w.ownerID,
			"op":       op,
		}).Warn("Fleet operation failed")
		return err
	}
	w.reg.changed(w)
	return nil
}
