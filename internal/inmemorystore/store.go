package inmemorystore

import (
	"sort"
	"sync"

	"github.com/specialistvlad/gridflow/internal/invoker"
)

// Store maps node IDs to the invoker holding that node's outputs.
type Store struct {
	invokers sync.Map // Key: node ID string, Value: invoker.Invoker
}

// New creates a new, empty store.
func New() *Store {
	return &Store{}
}

// Set records the invoker for a node, replacing any earlier attempt.
func (s *Store) Set(id string, inv invoker.Invoker) {
	s.invokers.Store(id, inv)
}

// Get returns the invoker recorded for a node.
func (s *Store) Get(id string) (invoker.Invoker, bool) {
	v, ok := s.invokers.Load(id)
	if !ok {
		return nil, false
	}
	return v.(invoker.Invoker), true
}

// Delete forgets the invoker of a node.
func (s *Store) Delete(id string) {
	s.invokers.Delete(id)
}

// IDs returns the sorted IDs of every node with a recorded invoker.
func (s *Store) IDs() []string {
	var ids []string
	s.invokers.Range(func(k, _ any) bool {
		ids = append(ids, k.(string))
		return true
	})
	sort.Strings(ids)
	return ids
}

// Release drops every invoker and returns how many were held.
func (s *Store) Release() int {
	n := 0
	s.invokers.Range(func(k, _ any) bool {
		s.invokers.Delete(k)
		n++
		return true
	})
	return n
}
