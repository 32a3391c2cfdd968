// Package view holds the client's local copy of the expense list and
// applies create and delete optimistically.
//
// Each mutation is applied to the local list when it starts, stays Pending
// while its request is in flight and ends either Confirmed or RolledBack.
// A mutation only ever touches its own record: creates are tracked by their
// placeholder id and deletes by a snapshot of the removed record, never by
// list position. Several mutations may be pending at once and may resolve
// in any order.
//
// A State is not safe for concurrent use. It is meant to be driven from a
// single event loop.
package view

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"expenses/internal/core"
	"expenses/internal/ports"
)

var (
	ErrUnknownMutation = errors.New("unknown or already resolved mutation")
	ErrPendingRecord   = errors.New("record is still being saved")
	ErrRecordNotFound  = errors.New("record is not in the local list")
	ErrInvalidRecord   = errors.New("server returned a record without an id")
)

type Kind int

const (
	KindCreate Kind = iota
	KindDelete
)

func (k Kind) String() string {
	if k == KindDelete {
		return "delete"
	}
	return "create"
}

type Status int

const (
	Pending Status = iota
	Confirmed
	RolledBack
)

func (s Status) String() string {
	switch s {
	case Confirmed:
		return "confirmed"
	case RolledBack:
		return "rolled back"
	default:
		return "pending"
	}
}

type MutationID uint64

// Mutation describes one optimistic change. For a create, Placeholder is
// the temporary id of the inserted record and Record is the server copy
// once confirmed. For a delete, Record is the snapshot of the removed
// record.
type Mutation struct {
	ID          MutationID
	Kind        Kind
	Status      Status
	Placeholder int64
	Input       core.NewExpense
	Record      core.ExpenseRecord

	// seq is the list position of the removed record, used to put it back.
	seq uint64
}

type entry struct {
	rec core.ExpenseRecord
	seq uint64
}

// Row is one line of the rendered list.
type Row struct {
	core.ExpenseRecord
	Pending bool
}

type State struct {
	entries   []entry
	mutations map[MutationID]*Mutation

	nextMutation    MutationID
	nextSeq         uint64
	lastPlaceholder int64
	now             func() time.Time
}

type Option func(*State)

// WithClock sets the time source used to derive placeholder ids.
func WithClock(now func() time.Time) Option {
	return func(s *State) { s.now = now }
}

func New(opts ...Option) *State {
	s := &State{
		mutations: make(map[MutationID]*Mutation),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the local list with the server's records. Pending creates
// keep their placeholders at the end of the list and records with a pending
// delete stay hidden.
func (s *State) Load(recs []core.ExpenseRecord) {
	deleting := make(map[int64]*Mutation)
	for _, m := range s.mutations {
		if m.Kind == KindDelete {
			deleting[m.Record.ID] = m
		}
	}

	var placeholders []entry
	for _, e := range s.entries {
		if core.IsPlaceholderID(e.rec.ID) {
			placeholders = append(placeholders, e)
		}
	}

	entries := make([]entry, 0, len(recs)+len(placeholders))
	for _, rec := range recs {
		seq := s.seq()
		if m, ok := deleting[rec.ID]; ok {
			m.seq = seq
			delete(deleting, rec.ID)
			continue
		}
		entries = append(entries, entry{rec: rec, seq: seq})
	}
	// Pending deletes the server no longer lists restore after the loaded
	// records, keeping their relative order.
	absent := make([]*Mutation, 0, len(deleting))
	for _, m := range deleting {
		absent = append(absent, m)
	}
	sort.Slice(absent, func(i, j int) bool { return absent[i].seq < absent[j].seq })
	for _, m := range absent {
		m.seq = s.seq()
	}
	for _, e := range placeholders {
		e.seq = s.seq()
		entries = append(entries, e)
	}
	s.entries = entries
}

// Records returns the local list, placeholders included.
func (s *State) Records() []core.ExpenseRecord {
	out := make([]core.ExpenseRecord, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.rec
	}
	return out
}

func (s *State) Len() int { return len(s.entries) }

// PendingCount returns the number of unresolved mutations.
func (s *State) PendingCount() int { return len(s.mutations) }

// Mutation returns an unresolved mutation by id.
func (s *State) Mutation(id MutationID) (Mutation, bool) {
	m, ok := s.mutations[id]
	if !ok {
		return Mutation{}, false
	}
	return *m, true
}

// PreCheck is the quick client-side check run before a create is applied.
// The server remains the authority.
func PreCheck(in core.NewExpense) error {
	var issues []core.ValidationIssue
	if utf8.RuneCountInString(in.Description) < core.MinDescriptionLength {
		issues = append(issues, core.NewIssue(core.IssueTooSmall, core.FieldDescription,
			"Description should be at least 3 characters."))
	}
	if !in.Category.IsValid() {
		issues = append(issues, core.ValidateCategory(string(in.Category))...)
	}
	if len(issues) > 0 {
		return &core.ValidationError{Issues: issues}
	}
	return nil
}

// BeginCreate appends a placeholder record for in and returns the pending
// mutation. Input failing PreCheck leaves the list untouched.
func (s *State) BeginCreate(in core.NewExpense) (Mutation, error) {
	if err := PreCheck(in); err != nil {
		return Mutation{}, err
	}

	placeholder := s.placeholderID()
	s.entries = append(s.entries, entry{
		rec: core.ExpenseRecord{
			ID:          placeholder,
			Description: in.Description,
			Amount:      in.Amount,
			Category:    in.Category,
		},
		seq: s.seq(),
	})

	m := s.track(&Mutation{Kind: KindCreate, Placeholder: placeholder, Input: in})
	return *m, nil
}

// BeginDelete removes the record with id from the list and returns the
// pending mutation holding its snapshot.
func (s *State) BeginDelete(id int64) (Mutation, error) {
	if core.IsPlaceholderID(id) {
		return Mutation{}, ErrPendingRecord
	}
	i := s.indexOf(id)
	if i < 0 {
		return Mutation{}, fmt.Errorf("delete %d: %w", id, ErrRecordNotFound)
	}

	removed := s.entries[i]
	s.entries = append(s.entries[:i], s.entries[i+1:]...)

	m := s.track(&Mutation{Kind: KindDelete, Record: removed.rec, seq: removed.seq})
	return *m, nil
}

// Confirm settles a pending mutation as successful. For a create, rec is
// the server's record and replaces the placeholder in place.
func (s *State) Confirm(id MutationID, rec core.ExpenseRecord) (Mutation, error) {
	m, ok := s.mutations[id]
	if !ok {
		return Mutation{}, ErrUnknownMutation
	}

	if m.Kind == KindCreate {
		if core.IsPlaceholderID(rec.ID) {
			return Mutation{}, ErrInvalidRecord
		}
		i := s.indexOf(m.Placeholder)
		switch {
		case i < 0:
		case s.indexOf(rec.ID) >= 0:
			// A reload already brought the server copy in.
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
		default:
			s.entries[i].rec = rec
		}
		m.Record = rec
	}

	return s.settle(m, Confirmed), nil
}

// Rollback settles a pending mutation as failed and restores the list:
// a create loses its placeholder and a delete gets its record back at its
// previous position.
func (s *State) Rollback(id MutationID) (Mutation, error) {
	m, ok := s.mutations[id]
	if !ok {
		return Mutation{}, ErrUnknownMutation
	}

	switch m.Kind {
	case KindCreate:
		if i := s.indexOf(m.Placeholder); i >= 0 {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
		}
	case KindDelete:
		if s.indexOf(m.Record.ID) < 0 {
			s.insert(entry{rec: m.Record, seq: m.seq})
		}
	}

	return s.settle(m, RolledBack), nil
}

// Resolve applies a request outcome. A delete answered with NotFound is
// confirmed since the record is gone either way.
func (s *State) Resolve(id MutationID, rec core.ExpenseRecord, err error) (Mutation, error) {
	m, ok := s.mutations[id]
	if !ok {
		return Mutation{}, ErrUnknownMutation
	}

	switch {
	case err == nil && m.Kind == KindCreate && core.IsPlaceholderID(rec.ID):
		return s.Rollback(id)
	case err == nil:
		return s.Confirm(id, rec)
	case m.Kind == KindDelete && errors.Is(err, ports.ErrNotFound):
		return s.Confirm(id, rec)
	default:
		return s.Rollback(id)
	}
}

// Rows returns the list filtered by category. AllCategories or an empty
// filter selects everything. The list itself is never changed.
func (s *State) Rows(filter string) []Row {
	all := filter == "" || filter == AllCategories
	rows := make([]Row, 0, len(s.entries))
	for _, e := range s.entries {
		if !all && string(e.rec.Category) != filter {
			continue
		}
		rows = append(rows, Row{ExpenseRecord: e.rec, Pending: core.IsPlaceholderID(e.rec.ID)})
	}
	return rows
}

// Total sums the amounts of the rows matching filter.
func (s *State) Total(filter string) core.Amount {
	var cents int64
	for _, r := range s.Rows(filter) {
		cents += r.Amount.Cents()
	}
	return core.AmountFromCents(cents)
}

func (s *State) track(m *Mutation) *Mutation {
	s.nextMutation++
	m.ID = s.nextMutation
	m.Status = Pending
	s.mutations[m.ID] = m
	return m
}

func (s *State) settle(m *Mutation, status Status) Mutation {
	m.Status = status
	delete(s.mutations, m.ID)
	return *m
}

func (s *State) seq() uint64 {
	s.nextSeq++
	return s.nextSeq
}

// placeholderID derives a negative id from the clock, strictly decreasing
// so two creates in the same instant never share one.
func (s *State) placeholderID() int64 {
	id := -s.now().UnixNano()
	if id >= 0 {
		id = -1
	}
	if s.lastPlaceholder != 0 && id >= s.lastPlaceholder {
		id = s.lastPlaceholder - 1
	}
	s.lastPlaceholder = id
	return id
}

func (s *State) indexOf(id int64) int {
	for i, e := range s.entries {
		if e.rec.ID == id {
			return i
		}
	}
	return -1
}

func (s *State) insert(e entry) {
	i := sort.Search(len(s.entries), func(i int) bool { return s.entries[i].seq > e.seq })
	s.entries = append(s.entries, entry{})
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = e
}

// DescribeError turns a request error into a one-line status message.
func DescribeError(err error) string {
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		msgs := ve.FieldMessages()
		parts := make([]string, 0, len(msgs))
		for _, f := range []string{"", core.FieldDescription, core.FieldAmount, core.FieldCategory} {
			if msg, ok := msgs[f]; ok {
				parts = append(parts, msg)
			}
		}
		return strings.Join(parts, " ")
	}
	return err.Error()
}
