package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	pkgerrors "github.com/tablewise-app/tablewise-backend/pkg/errors"
	"github.com/tablewise-app/tablewise-backend/pkg/logger"
	"github.com/tablewise-app/tablewise-backend/pkg/metrics"
)

// State names the coordinator's position in the sync lifecycle.
type State string

const (
	StateAnonymous  State = "ANONYMOUS"
	StateSyncing    State = "SYNCING"
	StateSynced     State = "SYNCED"
	StateSyncFailed State = "SYNC_FAILED"
)

const (
	remoteReadTimeout  = 5 * time.Second
	remoteWriteTimeout = 5 * time.Second

	defaultWriteBacklog = 64
)

// RemoteStore is the consumed contract of the durable cross-device cart
// record. Item-level calls are partial updates; Set replaces the whole
// record. Every write carries a monotonically increasing revision stamp so
// the transport reordering weakness stays observable server-side.
type RemoteStore interface {
	Get(ctx context.Context, userID string) (Snapshot, bool, error)
	Set(ctx context.Context, userID string, snapshot Snapshot, revision int64) error
	UpsertItem(ctx context.Context, userID string, item LineItem, revision int64) error
	RemoveItem(ctx context.Context, userID, itemID string, revision int64) error
	SetQuantity(ctx context.Context, userID, itemID string, quantity int, revision int64) error
	SetPromo(ctx context.Context, userID string, promo *PromoCode, revision int64) error
	Delete(ctx context.Context, userID string) error
}

// persistence is the slice of the session adapter the coordinator drives:
// serialize the snapshot after every local commit.
type persistence interface {
	Save(ctx context.Context, snapshot Snapshot) error
}

type remoteOp func(ctx context.Context, userID string, revision int64) error

type writeJob struct {
	epoch  uint64
	userID string
	op     func(ctx context.Context) error
}

// CoordinatorParams wires a coordinator.
type CoordinatorParams struct {
	Store   *Store
	Remote  RemoteStore
	Persist persistence
	Catalog *Catalog
	Logger  *logger.Logger
	Metrics *metrics.SyncMetrics
	Backlog int
}

// Coordinator applies every mutation to the local store first (optimistic,
// the caller never waits on the network) and propagates it to the remote
// record when a user identity is attached. Remote writes go through a single
// worker goroutine, so they are issued in the exact order mutations were
// committed locally.
type Coordinator struct {
	store   *Store
	remote  RemoteStore
	persist persistence
	catalog *Catalog
	logg    *logger.Logger
	metrics *metrics.SyncMetrics

	mu       sync.Mutex
	state    State
	userID   string
	epoch    uint64
	revision int64
	closed   bool

	writes chan writeJob
	wg     sync.WaitGroup
}

// NewCoordinator builds a coordinator in the ANONYMOUS state.
func NewCoordinator(params CoordinatorParams) (*Coordinator, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if params.Remote == nil {
		return nil, fmt.Errorf("remote store required")
	}
	if params.Persist == nil {
		return nil, fmt.Errorf("persistence adapter required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("promo catalog required")
	}
	backlog := params.Backlog
	if backlog <= 0 {
		backlog = defaultWriteBacklog
	}

	c := &Coordinator{
		store:   params.Store,
		remote:  params.Remote,
		persist: params.Persist,
		catalog: params.Catalog,
		logg:    params.Logger,
		metrics: params.Metrics,
		state:   StateAnonymous,
		writes:  make(chan writeJob, backlog),
	}
	c.wg.Add(1)
	go c.runWriter()
	return c, nil
}

// State returns the current sync state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Identity returns the user identity the coordinator is syncing for, if any.
func (c *Coordinator) Identity() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID, c.userID != ""
}

// Snapshot exposes the local store's current state.
func (c *Coordinator) Snapshot() Snapshot {
	return c.store.Snapshot()
}

// AddItem commits the item locally and schedules a partial remote write.
func (c *Coordinator) AddItem(ctx context.Context, item LineItem) (Snapshot, error) {
	snapshot, err := c.store.AddItem(item)
	if err != nil {
		return snapshot, err
	}

	var merged LineItem
	for _, line := range snapshot.Items {
		if line.ID == item.ID {
			merged = line
			break
		}
	}
	c.afterMutation(ctx, snapshot, func(opCtx context.Context, userID string, revision int64) error {
		return c.remote.UpsertItem(opCtx, userID, merged, revision)
	})
	return snapshot, nil
}

// UpdateQuantity commits the quantity change locally; zero or below removes
// the line both locally and remotely.
func (c *Coordinator) UpdateQuantity(ctx context.Context, id string, quantity int) Snapshot {
	snapshot := c.store.UpdateQuantity(id, quantity)

	op := func(opCtx context.Context, userID string, revision int64) error {
		return c.remote.SetQuantity(opCtx, userID, id, quantity, revision)
	}
	if quantity <= 0 {
		op = func(opCtx context.Context, userID string, revision int64) error {
			return c.remote.RemoveItem(opCtx, userID, id, revision)
		}
	}
	c.afterMutation(ctx, snapshot, op)
	return snapshot
}

// RemoveItem commits the removal locally and schedules the remote pull.
func (c *Coordinator) RemoveItem(ctx context.Context, id string) Snapshot {
	snapshot := c.store.RemoveItem(id)
	c.afterMutation(ctx, snapshot, func(opCtx context.Context, userID string, revision int64) error {
		return c.remote.RemoveItem(opCtx, userID, id, revision)
	})
	return snapshot
}

// ApplyPromo resolves the code against the catalog and applies it when the
// subtotal clears the promo's minimum. State is unchanged on rejection.
func (c *Coordinator) ApplyPromo(ctx context.Context, code string) (Snapshot, error) {
	promo, ok := c.catalog.Lookup(code)
	if !ok {
		return c.store.Snapshot(), pkgerrors.New(pkgerrors.CodeNotFound, "promo code not found").
			WithDetails(map[string]any{"code": code})
	}

	snapshot, err := c.store.ApplyPromo(promo)
	if err != nil {
		return snapshot, err
	}

	applied := promo
	c.afterMutation(ctx, snapshot, func(opCtx context.Context, userID string, revision int64) error {
		return c.remote.SetPromo(opCtx, userID, &applied, revision)
	})
	return snapshot, nil
}

// RemovePromo drops the applied promo locally and clears it remotely.
func (c *Coordinator) RemovePromo(ctx context.Context) Snapshot {
	snapshot := c.store.RemovePromo()
	c.afterMutation(ctx, snapshot, func(opCtx context.Context, userID string, revision int64) error {
		return c.remote.SetPromo(opCtx, userID, nil, revision)
	})
	return snapshot
}

// Clear empties the cart locally and deletes the remote record.
func (c *Coordinator) Clear(ctx context.Context) Snapshot {
	snapshot := c.store.Clear()
	c.afterMutation(ctx, snapshot, func(opCtx context.Context, userID string, _ int64) error {
		return c.remote.Delete(opCtx, userID)
	})
	return snapshot
}

// SetIdentity reacts to a sign-in or identity change: the coordinator moves
// to SYNCING and reads the remote cart in the background. An empty userID is
// a sign-out, which keeps the local snapshot per the session contract.
func (c *Coordinator) SetIdentity(ctx context.Context, userID string) {
	c.mu.Lock()
	if c.userID == userID {
		c.mu.Unlock()
		return
	}
	c.epoch++
	epoch := c.epoch
	c.userID = userID
	if userID == "" {
		c.state = StateAnonymous
		c.mu.Unlock()
		return
	}
	c.state = StateSyncing
	c.mu.Unlock()

	if c.logg != nil {
		c.logg.Info(c.logg.WithUserID(ctx, userID), "cart.sync.start")
	}
	go c.reconcile(epoch, userID)
}

// ClearIdentity handles sign-out. The in-memory snapshot survives for the
// rest of the session unless the user clears it explicitly.
func (c *Coordinator) ClearIdentity() {
	c.SetIdentity(context.Background(), "")
}

// ApplyExternal installs a snapshot broadcast by another surface of the same
// session. It is neither re-persisted nor pushed remotely: the originating
// surface already did both.
func (c *Coordinator) ApplyExternal(snapshot Snapshot) {
	c.store.Replace(snapshot)
}

// Close stops the write worker. Pending writes are drained first.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.writes)
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Coordinator) reconcile(epoch uint64, userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), remoteReadTimeout)
	defer cancel()

	remoteSnapshot, found, err := c.remote.Get(ctx, userID)

	c.mu.Lock()
	if epoch != c.epoch {
		// The session identity moved on while the read was in flight. Drop
		// the response silently so it cannot clobber the new user's cart.
		c.mu.Unlock()
		c.metrics.IncStaleDiscard()
		return
	}

	if err != nil {
		c.state = StateSyncFailed
		c.mu.Unlock()
		c.metrics.IncSyncFailure()
		if c.logg != nil {
			lctx := c.logg.WithUserID(context.Background(), userID)
			c.logg.Warn(c.logg.WithField(lctx, "error", err.Error()), "cart.sync.read_failed")
		}
		return
	}

	if found && !remoteSnapshot.IsEmpty() {
		// Remote wins over anonymous-session items.
		c.state = StateSynced
		c.mu.Unlock()
		snapshot := c.store.Replace(remoteSnapshot)
		c.saveLocal(context.Background(), snapshot)
		c.metrics.IncSyncSuccess()
		return
	}

	// Empty remote cart: seed it from the local snapshot when there is one.
	local := c.store.Snapshot()
	c.state = StateSynced
	if !local.IsEmpty() {
		c.enqueueLocked(epoch, userID, func(opCtx context.Context, uid string, revision int64) error {
			return c.remote.Set(opCtx, uid, local, revision)
		})
	}
	c.mu.Unlock()
	c.metrics.IncSyncSuccess()
}

func (c *Coordinator) afterMutation(ctx context.Context, snapshot Snapshot, op remoteOp) {
	c.saveLocal(ctx, snapshot)

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateSynced:
		c.enqueueLocked(c.epoch, c.userID, op)
	case StateSyncFailed:
		// No explicit retry queue: the next mutation pushes the whole
		// current snapshot, which subsumes anything that failed before it.
		// An empty snapshot retries as a delete so a cleared cart leaves no
		// record behind, same as the synced path.
		if snapshot.IsEmpty() && snapshot.AppliedPromo == nil {
			c.enqueueLocked(c.epoch, c.userID, func(opCtx context.Context, userID string, _ int64) error {
				return c.remote.Delete(opCtx, userID)
			})
			return
		}
		c.enqueueLocked(c.epoch, c.userID, func(opCtx context.Context, userID string, revision int64) error {
			return c.remote.Set(opCtx, userID, snapshot, revision)
		})
	}
	// ANONYMOUS and SYNCING mutations stay local; a SYNCING read resolving
	// afterwards replaces or seeds per the remote-wins rule.
}

// enqueueLocked stamps the next revision and hands the write to the worker.
// Callers hold c.mu.
func (c *Coordinator) enqueueLocked(epoch uint64, userID string, op remoteOp) {
	if c.closed || userID == "" {
		return
	}
	c.revision++
	revision := c.revision

	job := writeJob{
		epoch:  epoch,
		userID: userID,
		op: func(opCtx context.Context) error {
			return op(opCtx, userID, revision)
		},
	}

	select {
	case c.writes <- job:
	default:
		// Backlog full. Mark the sync broken; the next mutation re-pushes
		// the full snapshot.
		c.state = StateSyncFailed
		c.metrics.IncWriteFailure()
		if c.logg != nil {
			c.logg.Warn(context.Background(), "cart.sync.write_backlog_full")
		}
	}
}

func (c *Coordinator) runWriter() {
	defer c.wg.Done()
	for job := range c.writes {
		c.execute(job)
	}
}

func (c *Coordinator) execute(job writeJob) {
	c.mu.Lock()
	stale := job.epoch != c.epoch
	c.mu.Unlock()
	if stale {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), remoteWriteTimeout)
	defer cancel()

	start := time.Now()
	err := job.op(ctx)
	c.metrics.ObserveWriteDuration(time.Since(start))

	c.mu.Lock()
	current := job.epoch == c.epoch
	if err != nil {
		if current && c.state == StateSynced {
			c.state = StateSyncFailed
		}
	} else if current && c.state == StateSyncFailed {
		c.state = StateSynced
	}
	c.mu.Unlock()

	if err != nil {
		// The local mutation already committed and stays visible; rolling it
		// back would contradict the optimistic-update contract.
		c.metrics.IncWriteFailure()
		if c.logg != nil {
			lctx := c.logg.WithUserID(context.Background(), job.userID)
			c.logg.Warn(c.logg.WithField(lctx, "error", err.Error()), "cart.sync.write_failed")
		}
	}
}

func (c *Coordinator) saveLocal(ctx context.Context, snapshot Snapshot) {
	if err := c.persist.Save(ctx, snapshot); err != nil && c.logg != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "cart.session.save_failed")
	}
}
