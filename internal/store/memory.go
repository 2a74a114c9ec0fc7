package store

import (
	"context"
	"sort"
	"sync"
)

// Memory is a process-local Store. It implements ConditionalSetter and
// MaxUpserter, so it behaves like the hardened Redis backend.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
	sets   map[string]map[string]float64
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		values: make(map[string]string),
		sets:   make(map[string]map[string]float64),
	}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) SetNX(_ context.Context, key, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value
	return true, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	delete(m.sets, key)
	return nil
}

func (m *Memory) RangeTop(_ context.Context, key string, count int64, dir Direction) ([]Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if count <= 0 {
		return []Member{}, nil
	}
	members := m.sortedLocked(key)
	if dir == Descending {
		for i, j := 0, len(members)-1; i < j; i, j = i+1, j-1 {
			members[i], members[j] = members[j], members[i]
		}
	}
	if int64(len(members)) > count {
		members = members[:count]
	}
	return members, nil
}

func (m *Memory) RankAscending(_ context.Context, key, member string) (int64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i, entry := range m.sortedLocked(key) {
		if entry.Name == member {
			return int64(i), true, nil
		}
	}
	return 0, false, nil
}

func (m *Memory) Score(_ context.Context, key, member string) (float64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	score, ok := m.sets[key][member]
	return score, ok, nil
}

func (m *Memory) Cardinality(_ context.Context, key string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.sets[key])), nil
}

func (m *Memory) Upsert(_ context.Context, key, member string, score float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLocked(key)[member] = score
	return nil
}

func (m *Memory) UpsertMax(_ context.Context, key, member string, score float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.setLocked(key)
	if current, ok := set[member]; ok && current >= score {
		return current, nil
	}
	set[member] = score
	return score, nil
}

func (m *Memory) setLocked(key string) map[string]float64 {
	set, ok := m.sets[key]
	if !ok {
		set = make(map[string]float64)
		m.sets[key] = set
	}
	return set
}

// sortedLocked orders by score, then member name, like a Redis sorted set.
func (m *Memory) sortedLocked(key string) []Member {
	set := m.sets[key]
	members := make([]Member, 0, len(set))
	for name, score := range set {
		members = append(members, Member{Name: name, Score: score})
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].Score != members[j].Score {
			return members[i].Score < members[j].Score
		}
		return members[i].Name < members[j].Name
	})
	return members
}
