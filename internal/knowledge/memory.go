package knowledge

import (
	"context"
	"sync"
)

// MemoryQuerier is an in-memory Querier. It backs tests and small fixed
// datasets.
type MemoryQuerier struct {
	mu      sync.RWMutex
	courses []Course
	qas     []QA
}

// NewMemoryQuerier creates an empty in-memory querier.
func NewMemoryQuerier() *MemoryQuerier {
	return &MemoryQuerier{}
}

// AddCourse appends a course record.
func (m *MemoryQuerier) AddCourse(c Course) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.courses = append(m.courses, c)
}

// AddQA appends a QA record.
func (m *MemoryQuerier) AddQA(q QA) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.qas = append(m.qas, q)
}

func (m *MemoryQuerier) Courses(_ context.Context, f Filter) ([]Course, error) {
	if f.Empty() {
		return nil, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Course
	for _, c := range m.courses {
		if f.Matches(c.Title) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MemoryQuerier) QAs(_ context.Context, f Filter) ([]QA, error) {
	if f.Empty() {
		return nil, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []QA
	for _, q := range m.qas {
		if f.Matches(q.Question) {
			out = append(out, q)
		}
	}
	return out, nil
}
