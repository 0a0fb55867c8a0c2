package store

import (
	"sort"
	"sync"
	"time"
)

// VariableInfo is one stored variable. Value holds plain data only: int64,
// *big.Int, float64, string, bool, nil, []any or map[string]any. Complex
// numbers are kept as their string form, e.g. "(3+4j)".
type VariableInfo struct {
	Value         any     `json:"value"`
	Type          string  `json:"type"`
	BlockTitle    string  `json:"blockTitle"`
	SourceBlockID *string `json:"sourceBlockId"`
	Timestamp     int64   `json:"timestamp"`
}

// OwnedBy reports whether the variable is tracked as belonging to blockID.
func (v VariableInfo) OwnedBy(blockID string) bool {
	return v.SourceBlockID != nil && *v.SourceBlockID == blockID
}

// VariableSet maps variable names to their info.
type VariableSet map[string]VariableInfo

// Variable is a freshly computed value handed to Commit.
type Variable struct {
	Name  string
	Value any
	Type  string
}

type slot struct {
	name string
	info VariableInfo
}

// scope is an arena of slots with a name index. Removal moves the last slot
// into the hole, so slot order is arbitrary.
type scope struct {
	slots []slot
	index map[string]int
}

func newScope() *scope {
	return &scope{index: map[string]int{}}
}

func (sc *scope) put(name string, info VariableInfo) {
	if i, ok := sc.index[name]; ok {
		sc.slots[i].info = info
		return
	}
	sc.index[name] = len(sc.slots)
	sc.slots = append(sc.slots, slot{name: name, info: info})
}

func (sc *scope) remove(i int) {
	last := len(sc.slots) - 1
	delete(sc.index, sc.slots[i].name)
	if i != last {
		sc.slots[i] = sc.slots[last]
		sc.index[sc.slots[i].name] = i
	}
	sc.slots = sc.slots[:last]
}

// purge drops every slot owned by blockID and returns how many went.
func (sc *scope) purge(blockID string) int {
	n := 0
	for i := len(sc.slots) - 1; i >= 0; i-- {
		if sc.slots[i].info.OwnedBy(blockID) {
			sc.remove(i)
			n++
		}
	}
	return n
}

// Store holds variables by note path and scope name. It is safe for
// concurrent use; every method is atomic.
type Store struct {
	mu    sync.Mutex
	notes map[string]map[string]*scope
	last  int64
	now   func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		notes: map[string]map[string]*scope{},
		now:   time.Now,
	}
}

// stamp returns the current time in Unix milliseconds, never earlier than
// a previously issued stamp.
func (s *Store) stamp() int64 {
	ts := s.now().UnixMilli()
	if ts < s.last {
		ts = s.last
	}
	s.last = ts
	return ts
}

func (s *Store) lookup(note, name string) *scope {
	return s.notes[note][name]
}

func (s *Store) ensure(note, name string) *scope {
	scopes, ok := s.notes[note]
	if !ok {
		scopes = map[string]*scope{}
		s.notes[note] = scopes
	}
	sc, ok := scopes[name]
	if !ok {
		sc = newScope()
		scopes[name] = sc
	}
	return sc
}

// Get returns a copy of the scope's variables. Unknown notes and scopes
// give an empty set.
func (s *Store) Get(note, scopeName string) VariableSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := VariableSet{}
	if sc := s.lookup(note, scopeName); sc != nil {
		for _, sl := range sc.slots {
			out[sl.name] = sl.info
		}
	}
	return out
}

// SetAll replaces the scope's contents with vars.
func (s *Store) SetAll(note, scopeName string, vars VariableSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setAll(note, scopeName, vars)
}

func (s *Store) setAll(note, scopeName string, vars VariableSet) {
	sc := newScope()
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		info := vars[name]
		if info.Timestamp > s.last {
			s.last = info.Timestamp
		}
		sc.put(name, info)
	}
	s.ensure(note, scopeName)
	s.notes[note][scopeName] = sc
}

// Upsert creates or overwrites one variable with a fresh timestamp. A nil
// blockID stores the variable untracked.
func (s *Store) Upsert(note, scopeName, name string, value any, typ, blockTitle string, blockID *string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(note, scopeName).put(name, s.info(value, typ, blockTitle, blockID))
}

func (s *Store) info(value any, typ, blockTitle string, blockID *string) VariableInfo {
	var owner *string
	if blockID != nil {
		id := *blockID
		owner = &id
	}
	return VariableInfo{
		Value:         value,
		Type:          typ,
		BlockTitle:    blockTitle,
		SourceBlockID: owner,
		Timestamp:     s.stamp(),
	}
}

// PurgeOwnedBy deletes every variable in the scope owned by blockID and
// returns the number deleted. Untracked variables and those owned by other
// blocks stay.
func (s *Store) PurgeOwnedBy(note, scopeName, blockID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc := s.lookup(note, scopeName)
	if sc == nil {
		return 0
	}
	return sc.purge(blockID)
}

// Commit is the write-back of one block run: the variables blockID owned
// before are purged, then vars are written as owned by blockID, under one
// lock. A nil blockID skips the purge and writes untracked variables. It
// returns how many variables were purged.
func (s *Store) Commit(note, scopeName string, blockID *string, blockTitle string, vars []Variable) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc := s.ensure(note, scopeName)
	purged := 0
	if blockID != nil {
		purged = sc.purge(*blockID)
	}
	for _, v := range vars {
		sc.put(v.Name, s.info(v.Value, v.Type, blockTitle, blockID))
	}
	return purged
}

// ClearNote deletes every scope of the note.
func (s *Store) ClearNote(note string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.notes, note)
}

// ClearScope deletes one scope of the note.
func (s *Store) ClearScope(note, scopeName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if scopes, ok := s.notes[note]; ok {
		delete(scopes, scopeName)
		if len(scopes) == 0 {
			delete(s.notes, note)
		}
	}
}

// Notes returns the note paths with stored scopes, sorted.
func (s *Store) Notes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.notes))
	for note := range s.notes {
		out = append(out, note)
	}
	sort.Strings(out)
	return out
}

// Scopes returns the scope names of a note, sorted.
func (s *Store) Scopes(note string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.notes[note]))
	for name := range s.notes[note] {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
