// Package collection owns the in-memory stamp collection and keeps it
// mirrored to whichever backend the current identity selects: the local
// cache while anonymous, the remote collection once signed in.
//
// The store is the single writer of the in-memory list. Backends are
// mirrors; they are only read during (re)initialization. Remote writes are
// asynchronous and may overlap with local mutations, so the store tracks a
// mutation sequence number to decide whether a finished sync actually made
// the collection clean.
package collection

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tomp11/sb-stamp-manager/pkg/identity"
	"github.com/tomp11/sb-stamp-manager/pkg/stamp"
	"github.com/tomp11/sb-stamp-manager/pkg/storage"
)

// ErrNotReady is returned by mutation entry points before initialization
// for the current identity has completed. Mutations racing the migration
// would not be guaranteed to survive it, so they are rejected instead.
var ErrNotReady = errors.New("collection store is not ready")

// state is the store's position in the dirty/sync machine.
type state int

const (
	stateUninitialized state = iota
	stateLoading
	stateReadyClean
	stateReadyDirty
	stateSyncing
)

// DefaultDebounce is the quiet period after the last mutation before the
// automatic background sync fires. It coalesces a bursty multi-record
// ingestion into one remote write.
const DefaultDebounce = 1500 * time.Millisecond

// Options configures a Store. Local is required; Remote may be nil, in
// which case authenticated sessions degrade to local-style operation.
type Options struct {
	Local    storage.Backend
	Remote   storage.Backend
	Debounce time.Duration
	Logger   *zap.Logger
}

// Store orchestrates the collection: it runs the merge engine on
// ingestion, drives the dirty/sync state machine, and performs the
// one-time local-to-remote migration when identity transitions from
// anonymous to authenticated.
type Store struct {
	local    storage.Backend
	remote   storage.Backend
	debounce time.Duration
	logger   *zap.Logger

	// initMu serializes Activate calls; identity events arrive one at a
	// time but nothing stops a caller from racing them.
	initMu sync.Mutex

	mu      sync.Mutex
	session identity.Session
	records []stamp.Record
	state   state
	seq     uint64 // bumped on every mutation
	timer   *time.Timer

	// bg tracks background remote writes so Close can wait them out
	// instead of letting process exit abort them.
	bg sync.WaitGroup
}

// NewStore creates a Store. It is unusable until Activate runs for some
// session.
func NewStore(opts Options) *Store {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Store{
		local:    opts.Local,
		remote:   opts.Remote,
		debounce: debounce,
		logger:   logger,
		state:    stateUninitialized,
	}
}

// Records returns a copy of the current collection, most recent first.
func (s *Store) Records() []stamp.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]stamp.Record, len(s.records))
	copy(out, s.records)
	return out
}

// Session returns the identity context the store is currently serving.
func (s *Store) Session() identity.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// IsLoading reports whether initialization for the current identity is
// still running.
func (s *Store) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateUninitialized || s.state == stateLoading
}

// IsSyncing reports whether a remote write is in flight.
func (s *Store) IsSyncing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateSyncing
}

// IsDirty reports whether the collection holds mutations the remote
// backend has not confirmed. A failed sync turns this back on so the user
// can retry manually.
func (s *Store) IsDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateReadyDirty
}

// Activate (re)initializes the store for a session. It runs on first use
// and on every identity change, including switching between two
// authenticated identities. When an anonymous session's leftovers meet a
// freshly authenticated identity, the leftovers migrate into the remote
// collection exactly once.
//
// Initialization failures never return as errors: the store logs them and
// settles in the best available state, preferring stale or partial data
// over blocking the caller.
func (s *Store) Activate(ctx context.Context, session identity.Session) {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	s.mu.Lock()
	s.stopTimerLocked()
	s.session = session
	s.state = stateLoading
	s.records = nil
	s.mu.Unlock()

	if session.IsAnonymous() || s.remote == nil {
		if !session.IsAnonymous() {
			s.logger.Warn("no remote collection configured, keeping signed-in collection device-local",
				zap.String("owner", session.OwnerID()),
			)
		}
		records, err := s.local.Load(ctx, session.OwnerID())
		if err != nil {
			s.logger.Error("loading local cache", zap.Error(err))
			records = []stamp.Record{}
		}
		s.settle(records, stateReadyClean)
		return
	}

	owner := session.OwnerID()
	remoteRecords, err := s.remote.Load(ctx, owner)
	if err != nil {
		// Remote backends degrade internally; an error here is unexpected
		// but still must not take the store down.
		s.logger.Error("loading remote collection", zap.Error(err))
		remoteRecords = []stamp.Record{}
	}

	leftovers, err := s.local.Load(ctx, stamp.AnonymousOwner)
	if err != nil {
		s.logger.Error("loading local leftovers", zap.Error(err))
		leftovers = nil
	}

	// A previous run may have exited with unsynced changes; they sit in
	// the owner's cache slot and re-merge exactly like guest leftovers.
	unsynced, err := s.local.Load(ctx, owner)
	if err != nil {
		s.logger.Error("loading unsynced local collection", zap.Error(err))
		unsynced = nil
	}

	carry := append(append([]stamp.Record{}, leftovers...), unsynced...)
	if len(carry) == 0 {
		s.settle(remoteRecords, stateReadyClean)
		return
	}

	merged, tally := stamp.Merge(remoteRecords, carry, owner)
	toPush := changedRecords(remoteRecords, merged)

	if len(toPush) > 0 {
		if err := s.remote.Save(ctx, toPush, owner); err != nil {
			// Keep the cache so a later activation can retry the
			// migration; surface the unsynced state through the dirty
			// flag.
			s.logger.Error("migration push failed, keeping local leftovers",
				zap.Int("records", len(toPush)),
				zap.Error(err),
			)
			s.settle(merged, stateReadyDirty)
			return
		}
	}

	// The cache slots are single-slot resources: drain each exactly once
	// so a later session cannot replay stale leftovers.
	if len(leftovers) > 0 {
		if err := s.local.Clear(ctx, stamp.AnonymousOwner); err != nil {
			s.logger.Error("clearing local cache after migration", zap.Error(err))
		}
	}
	if len(unsynced) > 0 {
		if err := s.local.Clear(ctx, owner); err != nil {
			s.logger.Error("clearing unsynced local collection", zap.Error(err))
		}
	}

	s.logger.Info("migration complete",
		zap.String("owner", owner),
		zap.Int("added", tally.Added),
		zap.Int("updated", tally.Updated),
		zap.Int("skipped", tally.Skipped),
	)
	s.settle(merged, stateReadyClean)
}

// Watch consumes a stream of identity events, re-activating the store on
// each one. It returns when the stream closes or the context ends.
func (s *Store) Watch(ctx context.Context, sessions <-chan identity.Session) {
	for {
		select {
		case <-ctx.Done():
			return
		case session, ok := <-sessions:
			if !ok {
				return
			}
			s.Activate(ctx, session)
		}
	}
}

// Ingest merges a batch of candidate records into the collection and
// returns the change tally. Candidates without a store name are unusable
// for matching and count as skipped. Anonymous collections persist
// synchronously; authenticated ones go dirty and ride the debounce timer.
func (s *Store) Ingest(ctx context.Context, candidates []stamp.Record) (stamp.Tally, error) {
	s.mu.Lock()

	if s.state == stateUninitialized || s.state == stateLoading {
		s.mu.Unlock()
		return stamp.Tally{}, ErrNotReady
	}

	usable := make([]stamp.Record, 0, len(candidates))
	var tally stamp.Tally
	for _, cand := range candidates {
		if stamp.NormalizeName(cand.StoreName) == "" {
			tally.Skipped++
			continue
		}
		// The id is the storage key. A candidate arriving without one
		// (pre-extracted records posted straight to the API) gets its id
		// here; discovering the gap at save time would fail every sync
		// after the record is already in memory.
		if cand.ID == "" {
			cand.ID = uuid.NewString()
		}
		usable = append(usable, cand)
	}

	merged, mergeTally := stamp.Merge(s.records, usable, s.session.OwnerID())
	tally.Added = mergeTally.Added
	tally.Updated = mergeTally.Updated
	tally.Skipped += mergeTally.Skipped
	s.records = merged

	// An all-skipped batch changed nothing; no write needed.
	if tally.Added == 0 && tally.Updated == 0 {
		s.mu.Unlock()
		return tally, nil
	}

	s.seq++
	return tally, s.afterMutationLocked(ctx, false)
}

// Update replaces a record by id, e.g. after a direct user edit.
// Authenticated updates also attempt an immediate best-effort background
// write instead of waiting out the full debounce.
func (s *Store) Update(ctx context.Context, rec stamp.Record) error {
	if rec.ID == "" {
		return storage.ErrMissingID{StoreName: rec.StoreName}
	}
	rec.Sanitize()

	s.mu.Lock()

	if s.state == stateUninitialized || s.state == stateLoading {
		s.mu.Unlock()
		return ErrNotReady
	}

	idx := -1
	for i := range s.records {
		if s.records[i].ID == rec.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return storage.ErrNotFound{ID: rec.ID}
	}

	rec.OwnerID = s.records[idx].OwnerID
	s.records[idx] = rec
	s.seq++

	return s.afterMutationLocked(ctx, true)
}

// Delete removes a record from the in-memory list immediately, regardless
// of backend reachability. For an authenticated owner exactly one remote
// delete is attempted; its failure is reported, not retried.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()

	if s.state == stateUninitialized || s.state == stateLoading {
		s.mu.Unlock()
		return ErrNotReady
	}

	idx := -1
	for i := range s.records {
		if s.records[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return storage.ErrNotFound{ID: id}
	}

	s.records = append(s.records[:idx:idx], s.records[idx+1:]...)
	s.seq++

	session := s.session
	if session.IsAnonymous() || s.remote == nil {
		return s.persistLocalLocked(ctx)
	}

	s.markDirtyLocked()
	s.spillLocked(ctx)
	s.mu.Unlock()

	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.remote.Delete(ctx, session.OwnerID(), id); err != nil {
			s.logger.Error("remote delete failed",
				zap.String("id", id),
				zap.Error(err),
			)
		}
	}()

	return nil
}

// Sync pushes the collection to the remote backend now. It is a no-op
// when a sync is already in flight (requests are not queued) or when the
// collection is clean. On failure the dirty flag re-arms and the error
// returns to the caller; there is no automatic retry.
func (s *Store) Sync(ctx context.Context) error {
	s.mu.Lock()

	switch s.state {
	case stateUninitialized, stateLoading:
		s.mu.Unlock()
		return ErrNotReady
	case stateSyncing:
		s.mu.Unlock()
		return nil
	case stateReadyClean:
		s.mu.Unlock()
		return nil
	}

	session := s.session
	if session.IsAnonymous() || s.remote == nil {
		err := s.persistLocalLocked(ctx)
		return err
	}

	snapshot := make([]stamp.Record, len(s.records))
	copy(snapshot, s.records)
	seq := s.seq
	s.state = stateSyncing
	s.mu.Unlock()

	err := s.remote.Save(ctx, snapshot, session.OwnerID())

	s.mu.Lock()

	// Identity may have changed underneath a slow sync; in that case the
	// new activation already owns the state machine.
	if s.session != session {
		s.mu.Unlock()
		return err
	}

	if err != nil {
		s.state = stateReadyDirty
		s.mu.Unlock()
		s.logger.Error("sync failed",
			zap.String("owner", session.OwnerID()),
			zap.Int("records", len(snapshot)),
			zap.Error(err),
		)
		return err
	}

	if s.seq == seq {
		s.state = stateReadyClean
		// Everything the owner's cache slot held is now confirmed
		// remote. Drained under the lock so a racing mutation cannot
		// spill between the state change and the drain.
		if err := s.local.Clear(ctx, session.OwnerID()); err != nil {
			s.logger.Warn("draining the local cache slot failed", zap.Error(err))
		}
	} else {
		// Mutations landed while the write was in flight; they still
		// need their own sync.
		s.state = stateReadyDirty
	}
	s.mu.Unlock()

	s.logger.Debug("sync complete",
		zap.String("owner", session.OwnerID()),
		zap.Int("records", len(snapshot)),
	)
	return nil
}

// Close stops the pending debounce timer and waits out in-flight
// background remote writes. Backends are injected, so closing them stays
// with whoever created them.
func (s *Store) Close() error {
	s.mu.Lock()
	s.stopTimerLocked()
	s.mu.Unlock()
	s.bg.Wait()
	return nil
}

// afterMutationLocked persists or schedules persistence after a mutation.
// The caller must hold mu; it is released on return.
func (s *Store) afterMutationLocked(ctx context.Context, immediate bool) error {
	if s.session.IsAnonymous() || s.remote == nil {
		return s.persistLocalLocked(ctx)
	}

	s.markDirtyLocked()
	s.spillLocked(ctx)
	s.mu.Unlock()

	if immediate {
		s.bg.Add(1)
		go func() {
			defer s.bg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
			defer cancel()
			// Best effort; a failure re-arms the dirty flag inside Sync.
			_ = s.Sync(ctx)
		}()
	}

	return nil
}

// persistLocalLocked writes the collection straight through to the local
// cache. The caller must hold mu; it is released on return. The write
// happens under the lock so interleaved mutations cannot commit an older
// snapshot after a newer one.
func (s *Store) persistLocalLocked(ctx context.Context) error {
	defer s.mu.Unlock()

	s.state = stateReadyClean
	if err := s.local.Save(ctx, s.records, s.session.OwnerID()); err != nil {
		s.logger.Error("saving local cache", zap.Error(err))
		return err
	}
	return nil
}

// spillLocked mirrors an authenticated collection's unsynced state into
// the owner's local cache slot, so a process exit before the debounced
// sync does not lose the mutation. Activate re-merges the slot and Sync
// drains it once the remote confirms. Caller must hold mu.
func (s *Store) spillLocked(ctx context.Context) {
	if err := s.local.Save(ctx, s.records, s.session.OwnerID()); err != nil {
		s.logger.Warn("keeping unsynced changes in the local cache failed",
			zap.Error(err),
		)
	}
}

// markDirtyLocked flips the dirty flag and re-arms the debounce timer.
// Each new mutation cancels the pending task and schedules a fresh one,
// so a burst collapses into a single remote write after the quiet period.
func (s *Store) markDirtyLocked() {
	s.state = stateReadyDirty
	s.stopTimerLocked()
	s.timer = time.AfterFunc(s.debounce, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.Sync(ctx); err != nil && !errors.Is(err, ErrNotReady) {
			s.logger.Warn("background sync failed, collection stays dirty", zap.Error(err))
		}
	})
}

func (s *Store) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// settle installs the loaded collection and terminal state after
// initialization.
func (s *Store) settle(records []stamp.Record, st state) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if records == nil {
		records = []stamp.Record{}
	}
	s.records = records
	s.state = st
}

// changedRecords returns the records in after that are new or updated
// relative to before, comparing by id. Migration pushes only these, so an
// untouched remote record never burns a write.
func changedRecords(before, after []stamp.Record) []stamp.Record {
	prev := make(map[string]stamp.Record, len(before))
	for _, rec := range before {
		prev[rec.ID] = rec
	}

	var changed []stamp.Record
	for _, rec := range after {
		old, ok := prev[rec.ID]
		if !ok || !equalRecords(old, rec) {
			changed = append(changed, rec)
		}
	}
	return changed
}

func equalRecords(a, b stamp.Record) bool {
	return a.ID == b.ID &&
		a.OwnerID == b.OwnerID &&
		a.StoreName == b.StoreName &&
		a.Prefecture == b.Prefecture &&
		a.Address == b.Address &&
		equalStr(a.LastVisitDate, b.LastVisitDate) &&
		equalInt(a.VisitCount, b.VisitCount) &&
		equalFloat(a.Latitude, b.Latitude) &&
		equalFloat(a.Longitude, b.Longitude)
}

func equalStr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
