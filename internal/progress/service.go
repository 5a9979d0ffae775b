// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package progress

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tarkovtracker/internal/debounce"
	"github.com/tomtom215/tarkovtracker/internal/logging"
	"github.com/tomtom215/tarkovtracker/internal/metrics"
	"github.com/tomtom215/tarkovtracker/internal/store"
)

// ErrUnknownMode is returned for game modes other than pvp and pve.
var ErrUnknownMode = errors.New("unknown game mode")

// ReferenceProvider loads reference data for a state game mode.
type ReferenceProvider interface {
	Reference(ctx context.Context, mode string) (*Reference, error)
}

// Notifier is told about every persisted state change.
type Notifier interface {
	ProgressUpdated(ctx context.Context, userID string, state UserState)
}

// Snapshot is a user's state with its storage ETag and the repairs applied
// while producing it, keyed by game mode.
type Snapshot struct {
	State   UserState               `json:"state"`
	ETag    string                  `json:"-"`
	Repairs map[string]RepairReport `json:"repairs,omitempty"`
}

// TaskUpdate is a field-level task mutation. Nil fields are left unchanged.
type TaskUpdate struct {
	Complete *bool `json:"complete,omitempty"`
	Failed   *bool `json:"failed,omitempty"`
	Manual   *bool `json:"manual,omitempty"`
}

const userLockStripes = 64

// Service loads, merges, repairs and persists user progress.
type Service struct {
	table     *store.Table
	refs      ReferenceProvider
	notifier  Notifier
	debouncer *debounce.Debouncer[string]
	now       func() time.Time

	locks [userLockStripes]sync.Mutex

	mu      sync.Mutex
	pending map[string]*UserState
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithNotifier registers a listener for persisted changes.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) { s.notifier = n }
}

// WithClock replaces the clock used for record timestamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service. refs may be nil, which disables repairs.
func NewService(table *store.Table, refs ReferenceProvider, debouncer *debounce.Debouncer[string], opts ...ServiceOption) *Service {
	s := &Service{
		table:     table,
		refs:      refs,
		debouncer: debouncer,
		now:       time.Now,
		pending:   make(map[string]*UserState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) lockUser(userID string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	mu := &s.locks[h.Sum32()%userLockStripes]
	mu.Lock()
	return mu.Unlock
}

// Load returns the user's state, repaired against current reference data.
// Legacy documents are migrated. Repairs and migrations are persisted.
func (s *Service) Load(ctx context.Context, userID string) (Snapshot, error) {
	unlock := s.lockUser(userID)
	defer unlock()

	snap, migrated, err := s.current(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	snap.Repairs = s.repair(ctx, &snap.State)
	if migrated || totalRepairs(snap.Repairs) > 0 {
		etag, err := s.write(ctx, userID, snap.State, "")
		if err != nil {
			return Snapshot{}, err
		}
		// The written state already carries any pending mutations.
		s.takePending(userID)
		snap.ETag = etag
	}
	return snap, nil
}

// Save merges a client snapshot into the stored state, repairs the result
// and persists it. A non-empty ifMatch must equal the stored ETag.
func (s *Service) Save(ctx context.Context, userID string, client UserState, ifMatch string) (Snapshot, error) {
	unlock := s.lockUser(userID)
	defer unlock()

	current, _, err := s.current(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}

	merged := MergeUserState(client, current.State)
	repairs := s.repair(ctx, &merged)

	// Pending mutations stay queued until a write that includes them succeeds.
	etag, err := s.write(ctx, userID, merged, ifMatch)
	if err != nil {
		return Snapshot{}, err
	}
	s.takePending(userID)
	return Snapshot{State: merged, ETag: etag, Repairs: repairs}, nil
}

// UpdateTask applies a task mutation immediately in memory and schedules
// one debounced write per user.
func (s *Service) UpdateTask(ctx context.Context, userID, mode, taskID string, upd TaskUpdate) (UserState, error) {
	if !IsStateMode(mode) {
		return UserState{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	unlock := s.lockUser(userID)
	defer unlock()

	snap, _, err := s.current(ctx, userID)
	if err != nil {
		return UserState{}, err
	}
	state := snap.State
	p := state.Mode(mode)

	ts := Millis(s.now())
	if p.TaskCompletions == nil {
		p.TaskCompletions = make(map[string]TaskCompletion)
	}
	c := p.TaskCompletions[taskID]
	if upd.Complete != nil {
		c.Complete = *upd.Complete
	}
	if upd.Failed != nil {
		c.Failed = *upd.Failed
	}
	if upd.Manual != nil {
		c.Manual = *upd.Manual
	}
	c.Timestamp = ts
	p.TaskCompletions[taskID] = c
	p.UpdatedAt = ts

	s.mu.Lock()
	s.pending[userID] = &state
	s.mu.Unlock()

	if err := s.debouncer.Trigger(userID, s.flushFunc(userID)); err != nil {
		// Shutting down: write now instead of losing the change.
		if _, werr := s.write(ctx, userID, state, ""); werr != nil {
			return UserState{}, werr
		}
		s.takePending(userID)
	}
	return state, nil
}

// EnforceHideout runs the hideout prerequisite pass on one mode now and
// returns the number of modules removed.
func (s *Service) EnforceHideout(ctx context.Context, userID, mode string) (int, error) {
	if !IsStateMode(mode) {
		return 0, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	unlock := s.lockUser(userID)
	defer unlock()

	snap, _, err := s.current(ctx, userID)
	if err != nil {
		return 0, err
	}

	ref, err := s.reference(ctx, mode)
	if err != nil || ref == nil {
		return 0, err
	}
	state := snap.State
	edition := ref.Edition(state.GameEdition)
	removed := EnforceHideoutPrereqs(state.Mode(mode), ref.Stations, edition, ref.Tasks, s.now())
	if removed == 0 {
		return 0, nil
	}
	if _, err := s.write(ctx, userID, state, ""); err != nil {
		return 0, err
	}
	s.takePending(userID)
	return removed, nil
}

// Peek returns the user's current state, pending mutations included,
// without repairing or persisting anything.
func (s *Service) Peek(ctx context.Context, userID string) (UserState, error) {
	unlock := s.lockUser(userID)
	defer unlock()

	snap, _, err := s.current(ctx, userID)
	if err != nil {
		return UserState{}, err
	}
	return snap.State, nil
}

// Flush writes all pending task mutations now.
func (s *Service) Flush() {
	s.debouncer.Flush()
}

func (s *Service) flushFunc(userID string) debounce.Func {
	return func(ctx context.Context) {
		unlock := s.lockUser(userID)
		defer unlock()

		state, ok := s.takePending(userID)
		if !ok {
			return
		}
		if _, err := s.write(ctx, userID, *state, ""); err != nil {
			// Keep the state so the next write for this user carries it.
			s.mu.Lock()
			s.pending[userID] = state
			s.mu.Unlock()
			logging.Ctx(ctx).Error().Err(err).Str("user_id", logging.SanitizeUserID(userID)).Msg("Debounced progress write failed")
		}
	}
}

func (s *Service) takePending(userID string) (*UserState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.pending[userID]
	delete(s.pending, userID)
	return st, ok
}

// current returns the pending state when one exists, otherwise the stored
// state. Callers hold the user lock.
func (s *Service) current(ctx context.Context, userID string) (Snapshot, bool, error) {
	s.mu.Lock()
	if st, ok := s.pending[userID]; ok {
		cp := cloneState(*st)
		s.mu.Unlock()
		return Snapshot{State: cp}, false, nil
	}
	s.mu.Unlock()

	raw, err := s.table.GetRaw(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return Snapshot{State: NewUserState()}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("load progress: %w", err)
	}

	var row struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &row); err != nil {
		return Snapshot{}, false, fmt.Errorf("decode progress row: %w", err)
	}
	data := row.Data
	if len(data) == 0 {
		// Rows written by the first client releases held the document inline.
		data = raw
	}
	state, migrated, err := DecodeUserState(data)
	if err != nil {
		return Snapshot{}, false, err
	}
	return Snapshot{State: state, ETag: store.ETag(raw)}, migrated, nil
}

func (s *Service) write(ctx context.Context, userID string, state UserState, ifMatch string) (string, error) {
	state.Version = CurrentVersion
	_, etag, err := s.table.Upsert(ctx, userID, store.Row{"data": state}, ifMatch)
	if err != nil {
		result := "error"
		if errors.Is(err, store.ErrPreconditionFailed) {
			result = "conflict"
		}
		metrics.ProgressSaves.WithLabelValues(result).Inc()
		return "", err
	}
	metrics.ProgressSaves.WithLabelValues("success").Inc()

	if s.notifier != nil {
		s.notifier.ProgressUpdated(ctx, userID, state)
	}
	return etag, nil
}

func (s *Service) reference(ctx context.Context, mode string) (*Reference, error) {
	if s.refs == nil {
		return nil, nil
	}
	ref, err := s.refs.Reference(ctx, mode)
	if err != nil {
		return nil, fmt.Errorf("load reference data: %w", err)
	}
	return ref, nil
}

// repair runs every pass on both modes. Missing reference data skips the
// mode with a warning; repairs never fail the request.
func (s *Service) repair(ctx context.Context, state *UserState) map[string]RepairReport {
	if s.refs == nil {
		return nil
	}
	now := s.now()
	out := make(map[string]RepairReport, 2)
	for _, mode := range []string{ModePvP, ModePvE} {
		ref, err := s.reference(ctx, mode)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("mode", mode).Msg("Skipping progress repairs")
			continue
		}
		r := RepairMode(state.Mode(mode), ref, state.GameEdition, now)
		if r.Total() > 0 {
			out[mode] = r
			logging.Ctx(ctx).Info().
				Str("mode", mode).
				Int("failed_tasks", r.FailedTasks).
				Int("hideout_prereqs", r.HideoutPrereqs).
				Int("edition_hideout", r.EditionHideout).
				Msg("Progress repaired")
		}
	}
	return out
}

func totalRepairs(m map[string]RepairReport) int {
	n := 0
	for _, r := range m {
		n += r.Total()
	}
	return n
}

func cloneState(s UserState) UserState {
	s.PvP = cloneProgress(s.PvP)
	s.PvE = cloneProgress(s.PvE)
	return s
}

func cloneProgress(p UserProgressData) UserProgressData {
	p.TaskCompletions = copyMap(p.TaskCompletions)
	p.TaskObjectives = copyMap(p.TaskObjectives)
	p.HideoutParts = copyMap(p.HideoutParts)
	p.HideoutModules = copyMap(p.HideoutModules)
	p.SkillOffsets = copyMap(p.SkillOffsets)
	p.Traders = copyMap(p.Traders)
	if p.StoryChapters != nil {
		chapters := make(map[string]StoryChapter, len(p.StoryChapters))
		for k, ch := range p.StoryChapters {
			ch.Objectives = copyMap(ch.Objectives)
			chapters[k] = ch
		}
		p.StoryChapters = chapters
	}
	return p
}
