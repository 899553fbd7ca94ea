package complaint

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/civic-chat/agent/contract"
	extractx "github.com/tanpawarit/civic-chat/agent/extract"
	promptx "github.com/tanpawarit/civic-chat/agent/prompt"
)

type State int

const (
	StateNoActiveComplaint State = iota
	StateAccumulating
	StateSaveEligible
	StateSaved
)

func (s State) String() string {
	switch s {
	case StateNoActiveComplaint:
		return "no_active_complaint"
	case StateAccumulating:
		return "accumulating"
	case StateSaveEligible:
		return "save_eligible"
	case StateSaved:
		return "saved"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Outcome reports what one tick did. Record is a snapshot: the persisted
// copy when Saved is true, otherwise the in-progress record (nil when none).
type Outcome struct {
	State    State
	Changed  bool
	Saved    bool
	Notified bool
	Record   *Record
}

type slot struct {
	mu     sync.Mutex
	record *Record
}

// Machine accumulates complaint fields per user across turns and persists
// the record once it is save-eligible.
type Machine struct {
	store     contractx.StorageGateway
	notifier  contractx.Notifier
	extractor contractx.Extractor
	schema    *schemaValidator
	entities  EntityTable
	prompt    string

	now   func() time.Time
	newID func() string

	mu    sync.Mutex
	slots map[string]*slot
}

type Option func(*Machine)

func WithEntityTable(t EntityTable) Option {
	return func(m *Machine) { m.entities = t }
}

func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		if now != nil {
			m.now = now
		}
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(m *Machine) {
		if newID != nil {
			m.newID = newID
		}
	}
}

func NewMachine(
	store contractx.StorageGateway,
	notifier contractx.Notifier,
	extractor contractx.Extractor,
	opts ...Option,
) (*Machine, error) {
	if store == nil {
		return nil, errors.New("complaint store is required")
	}
	if extractor == nil {
		return nil, errors.New("complaint extractor is required")
	}
	if notifier == nil {
		notifier = LogNotifier{}
	}
	prompt, err := promptx.Lookup(promptx.ComplaintExtract)
	if err != nil {
		return nil, err
	}
	schema, err := newSchemaValidator()
	if err != nil {
		return nil, err
	}

	m := &Machine{
		store:     store,
		notifier:  notifier,
		extractor: extractor,
		schema:    schema,
		entities:  DefaultEntityTable(),
		prompt:    prompt,
		now:       time.Now,
		newID:     uuid.NewString,
		slots:     make(map[string]*slot),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *Machine) slotFor(userID string) *slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[userID]
	if !ok {
		s = &slot{}
		m.slots[userID] = s
	}
	return s
}

func stateOf(rec *Record) State {
	switch {
	case rec == nil:
		return StateNoActiveComplaint
	case rec.SaveEligible():
		return StateSaveEligible
	default:
		return StateAccumulating
	}
}

// State returns the user's current state. Saved is transient and never
// reported here.
func (m *Machine) State(userID string) State {
	s := m.slotFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return stateOf(s.record)
}

// Current returns a copy of the in-progress record, or nil.
func (m *Machine) Current(userID string) *Record {
	s := m.slotFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.record == nil {
		return nil
	}
	return s.record.Clone()
}

// Reset discards the in-progress record without saving it.
func (m *Machine) Reset(userID string) {
	s := m.slotFor(userID)
	s.mu.Lock()
	s.record = nil
	s.mu.Unlock()
}

// Observe runs one tick for an utterance. Extraction problems never
// surface as errors; a failed save is returned wrapped in ErrPersistence
// and retried with the same id on the next tick.
func (m *Machine) Observe(ctx context.Context, userID string, utterance string) (Outcome, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Outcome{}, fmt.Errorf("%w: user id is required", contractx.ErrValidation)
	}

	s := m.slotFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return m.outcome(s.record, false), err
	}

	changed := m.accumulate(ctx, s, userID, utterance)
	if s.record == nil || !s.record.SaveEligible() {
		return m.outcome(s.record, changed), nil
	}

	saved, notified, err := m.save(ctx, s.record)
	if err != nil {
		return m.outcome(s.record, changed), err
	}
	s.record = nil
	return Outcome{State: StateSaved, Changed: changed, Saved: true, Notified: notified, Record: saved}, nil
}

func (m *Machine) outcome(rec *Record, changed bool) Outcome {
	out := Outcome{State: stateOf(rec), Changed: changed}
	if rec != nil {
		out.Record = rec.Clone()
	}
	return out
}

// accumulate extracts and merges. The caller holds s.mu.
func (m *Machine) accumulate(ctx context.Context, s *slot, userID, utterance string) bool {
	if extractx.ShouldSkip(utterance) {
		return false
	}

	raw, err := m.extractor.Extract(ctx, m.prompt, utterance)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("complaint extraction failed")
		return false
	}
	obj, err := extractx.Parse(raw)
	if err != nil {
		log.Debug().Err(err).Str("user_id", userID).Msg("complaint extraction ignored")
		return false
	}
	if err := m.schema.validate(obj.Raw); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("complaint extraction ignored")
		return false
	}

	if s.record != nil {
		return s.record.apply(obj)
	}
	rec := newRecord(m.newID(), userID, m.now())
	if !rec.apply(obj) {
		return false
	}
	s.record = rec
	log.Debug().Str("user_id", userID).Str("complaint_id", rec.ID).Msg("complaint started")
	return true
}

func (m *Machine) save(ctx context.Context, rec *Record) (*Record, bool, error) {
	snapshot := rec.Clone()
	snapshot.ResponsibleEntity = m.entities.Resolve(snapshot.Category)

	if _, err := m.store.Put(ctx, Container, snapshot.PartitionKey(), snapshot); err != nil {
		log.Warn().Err(err).Str("complaint_id", rec.ID).Msg("complaint save failed; will retry next turn")
		return nil, false, fmt.Errorf("%w: save complaint %s: %v", contractx.ErrPersistence, rec.ID, err)
	}

	notified := true
	if err := m.notifier.Notify(ctx, BuildNotification(snapshot)); err != nil {
		notified = false
		log.Warn().Err(err).
			Str("complaint_id", snapshot.ID).
			Str("entity", string(snapshot.ResponsibleEntity)).
			Msg("complaint notification failed")
	}

	log.Info().
		Str("complaint_id", snapshot.ID).
		Str("user_id", snapshot.SubmitterID).
		Str("entity", string(snapshot.ResponsibleEntity)).
		Msg("complaint saved")
	return snapshot, notified, nil
}
