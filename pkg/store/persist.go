package store

import (
	"encoding/json"
	"io"
	"math/big"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Snapshot is the serialized form of a store: note -> scope -> variables.
type Snapshot map[string]map[string]VariableSet

// Snapshot copies the store's contents.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := Snapshot{}
	for note, scopes := range s.notes {
		out[note] = map[string]VariableSet{}
		for name, sc := range scopes {
			vars := VariableSet{}
			for _, sl := range sc.slots {
				vars[sl.name] = sl.info
			}
			out[note][name] = vars
		}
	}
	return out
}

// Restore replaces the store's contents with snap.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = map[string]map[string]*scope{}
	for note, scopes := range snap {
		for name, vars := range scopes {
			s.setAll(note, name, vars)
		}
	}
}

// Save writes the store as indented JSON.
func (s *Store) Save(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(s.Snapshot()), "encode store")
}

// Load replaces the store's contents with a snapshot written by Save.
func (s *Store) Load(r io.Reader) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var snap Snapshot
	if err := dec.Decode(&snap); err != nil {
		return errors.Wrap(err, "decode store")
	}
	for _, scopes := range snap {
		for _, vars := range scopes {
			for name, info := range vars {
				info.Value = NormalizeAs(info.Value, info.Type)
				vars[name] = info
			}
		}
	}
	s.Restore(snap)
	return nil
}

// SaveFile writes the store to path.
func (s *Store) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create store file")
	}
	if err := s.Save(f); err != nil {
		f.Close()
		return err
	}
	return errors.Wrap(f.Close(), "close store file")
}

// LoadFile loads the store from path. A missing file leaves the store
// empty and is not an error.
func (s *Store) LoadFile(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "open store file")
	}
	defer f.Close()
	return errors.Wrapf(s.Load(f), "load %s", path)
}

// NormalizeAs is Normalize for a value whose type tag is known. JSON
// writes whole floats without a fraction, so a "float" that decodes as an
// integer is turned back into a float64.
func NormalizeAs(v any, typ string) any {
	v = Normalize(v)
	if typ != "float" {
		return v
	}
	switch n := v.(type) {
	case int64:
		return float64(n)
	case *big.Int:
		f, _ := new(big.Float).SetInt(n).Float64()
		return f
	}
	return v
}

// Normalize converts JSON-decoded data (decoded with UseNumber) into the
// value forms the store keeps: integers become int64 or *big.Int, other
// numbers float64, recursively through lists and maps.
func Normalize(v any) any {
	switch n := v.(type) {
	case json.Number:
		s := n.String()
		if !strings.ContainsAny(s, ".eE") {
			if i, err := n.Int64(); err == nil {
				return i
			}
			if b, ok := new(big.Int).SetString(s, 10); ok {
				return b
			}
		}
		f, _ := n.Float64()
		return f
	case []any:
		for i := range n {
			n[i] = Normalize(n[i])
		}
		return n
	case map[string]any:
		for k := range n {
			n[k] = Normalize(n[k])
		}
		return n
	default:
		return v
	}
}
