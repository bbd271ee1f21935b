package memory

import (
	"time"

	"github.com/runbookhq/core/cache"
	"github.com/runbookhq/core/database"
	"github.com/runbookhq/core/model"
)

func (m *Memory) SaveFunction(fn model.Function) (model.Function, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()

	if prev, ok := m.data[fn.Name]; ok {
		existing, err := dec(prev)
		if err != nil {
			return fn, err
		}

		fn.CreatedAt = existing.CreatedAt
		fn.UsageCount = existing.UsageCount
		fn.LastUsedAt = existing.LastUsedAt
		fn.Version = existing.Version + 1
		fn.UpdatedAt = now

		m.data[fn.Name] = mustEnc(fn)

		m.publish(cache.EventFunctionUpdated, fn.Name)
		return fn, nil
	}

	if len(m.data) >= m.limit {
		return fn, database.ErrQuotaExceeded
	}

	fn.Version = 1
	fn.CreatedAt = now
	fn.UpdatedAt = now
	fn.UsageCount = 0
	fn.LastUsedAt = time.Time{}

	m.data[fn.Name] = mustEnc(fn)
	m.order = append(m.order, fn.Name)

	m.publish(cache.EventFunctionCreated, fn.Name)
	return fn, nil
}

func (m *Memory) GetFunction(name string) (model.Function, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.data[name]
	if !ok {
		return model.Function{}, database.ErrFunctionNotFound
	}

	return dec(b)
}

func (m *Memory) ListFunctions(category string, tags []string) ([]model.Function, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []model.Function
	for _, name := range m.order {
		b, ok := m.data[name]
		if !ok {
			continue
		}

		fn, err := dec(b)
		if err != nil {
			return nil, err
		}

		if category != "" && fn.Category != category {
			continue
		} else if !fn.HasTag(tags) {
			continue
		}

		results = append(results, fn)
	}

	return results, nil
}

func (m *Memory) DeleteFunction(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.data[name]; !ok {
		return database.ErrFunctionNotFound
	}

	delete(m.data, name)

	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}

	m.publish(cache.EventFunctionDeleted, name)
	return nil
}

func (m *Memory) TouchFunction(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.data[name]
	if !ok {
		return database.ErrFunctionNotFound
	}

	fn, err := dec(b)
	if err != nil {
		return err
	}

	fn.UsageCount++
	fn.LastUsedAt = time.Now()

	m.data[name] = mustEnc(fn)
	return nil
}

func (m *Memory) CountFunctions() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.data), nil
}
