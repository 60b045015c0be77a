package vault

import "github.com/google/uuid"

// SubjectRegistry is the open set of currently-delegated subjects,
// kept as a dense array with a reverse-index map so membership removal
// is O(1) (swap-remove; ordering carries no meaning).
type SubjectRegistry struct {
	subjects []string
	index    map[string]int
}

func NewSubjectRegistry() *SubjectRegistry {
	return &SubjectRegistry{
		subjects: make([]string, 0),
		index:    make(map[string]int),
	}
}

// Add registers a subject. No-op if already present.
func (r *SubjectRegistry) Add(subject string) {
	if _, ok := r.index[subject]; ok {
		return
	}
	r.index[subject] = len(r.subjects)
	r.subjects = append(r.subjects, subject)
}

// Remove swap-removes a subject: the last element takes the vacated
// slot and both index entries are rewritten.
func (r *SubjectRegistry) Remove(subject string) {
	pos, ok := r.index[subject]
	if !ok {
		return
	}
	last := len(r.subjects) - 1
	moved := r.subjects[last]
	r.subjects[pos] = moved
	r.index[moved] = pos
	r.subjects = r.subjects[:last]
	delete(r.index, subject)
}

func (r *SubjectRegistry) Contains(subject string) bool {
	_, ok := r.index[subject]
	return ok
}

func (r *SubjectRegistry) Len() int {
	return len(r.subjects)
}

// List returns the backing array. Callers must not mutate it, and must
// not hold it across a Remove; iteration during removal uses index math.
func (r *SubjectRegistry) List() []string {
	return r.subjects
}

// Snapshot returns a copy safe to retain.
func (r *SubjectRegistry) Snapshot() []string {
	out := make([]string, len(r.subjects))
	copy(out, r.subjects)
	return out
}

// EscrowRegistry is the open set of active withdrawal escrows, with the
// same dense-array + reverse-index structure plus subject↔escrow lookups.
// Exactly one escrow may exist per subject at a time.
type EscrowRegistry struct {
	escrows   []uuid.UUID
	index     map[uuid.UUID]int
	bySubject map[string]uuid.UUID
	subjectOf map[uuid.UUID]string
}

func NewEscrowRegistry() *EscrowRegistry {
	return &EscrowRegistry{
		escrows:   make([]uuid.UUID, 0),
		index:     make(map[uuid.UUID]int),
		bySubject: make(map[string]uuid.UUID),
		subjectOf: make(map[uuid.UUID]string),
	}
}

func (r *EscrowRegistry) Add(escrow uuid.UUID, subject string) {
	if _, ok := r.index[escrow]; ok {
		return
	}
	r.index[escrow] = len(r.escrows)
	r.escrows = append(r.escrows, escrow)
	r.bySubject[subject] = escrow
	r.subjectOf[escrow] = subject
}

func (r *EscrowRegistry) Remove(escrow uuid.UUID) {
	pos, ok := r.index[escrow]
	if !ok {
		return
	}
	last := len(r.escrows) - 1
	moved := r.escrows[last]
	r.escrows[pos] = moved
	r.index[moved] = pos
	r.escrows = r.escrows[:last]
	delete(r.index, escrow)

	subject := r.subjectOf[escrow]
	delete(r.subjectOf, escrow)
	delete(r.bySubject, subject)
}

func (r *EscrowRegistry) Contains(escrow uuid.UUID) bool {
	_, ok := r.index[escrow]
	return ok
}

// ForSubject returns the pending escrow for a subject, if any.
func (r *EscrowRegistry) ForSubject(subject string) (uuid.UUID, bool) {
	id, ok := r.bySubject[subject]
	return id, ok
}

// SubjectOf returns the subject an escrow was spawned from.
func (r *EscrowRegistry) SubjectOf(escrow uuid.UUID) (string, bool) {
	s, ok := r.subjectOf[escrow]
	return s, ok
}

func (r *EscrowRegistry) Len() int {
	return len(r.escrows)
}

func (r *EscrowRegistry) List() []uuid.UUID {
	return r.escrows
}

func (r *EscrowRegistry) Snapshot() []uuid.UUID {
	out := make([]uuid.UUID, len(r.escrows))
	copy(out, r.escrows)
	return out
}
