package session

import (
	"sync"
	"time"
)

// MemoryTier is an in-process [AccessTier].
type MemoryTier struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryTier creates an empty [MemoryTier].
func NewMemoryTier() *MemoryTier {
	return &MemoryTier{values: make(map[string]string)}
}

func (m *MemoryTier) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Put applies values and drop under one lock.
func (m *MemoryTier) Put(values map[string]string, drop ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		m.values[k] = v
	}
	for _, k := range drop {
		delete(m.values, k)
	}
	return nil
}

func (m *MemoryTier) Delete(keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

// MemoryRefreshTier is an in-process [RefreshTier] honoring the credential lifetime.
type MemoryRefreshTier struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
	now       func() time.Time
}

// NewMemoryRefreshTier creates an empty [MemoryRefreshTier].
func NewMemoryRefreshTier() *MemoryRefreshTier {
	return &MemoryRefreshTier{now: time.Now}
}

func (m *MemoryRefreshTier) Load() (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" || !m.now().Before(m.expiresAt) {
		return "", false, nil
	}
	return m.token, true, nil
}

func (m *MemoryRefreshTier) Save(token string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.expiresAt = m.now().Add(ttl)
	return nil
}

func (m *MemoryRefreshTier) Remove() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.expiresAt = time.Time{}
	return nil
}
