package directory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is the in-process fallback used when no DATABASE_URL is
// configured, and in tests. Accounts do not survive a restart.
type Memory struct {
	mu       sync.RWMutex
	accounts map[string]*Account // keyed by username
}

func NewMemory() *Memory {
	return &Memory{accounts: make(map[string]*Account)}
}

func (m *Memory) Lookup(_ context.Context, username string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acct, ok := m.accounts[username]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *acct
	return &cp, nil
}

func (m *Memory) Create(_ context.Context, username, passwordHash string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[username]; ok {
		return nil, ErrExists
	}
	acct := &Account{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	m.accounts[username] = acct
	cp := *acct
	return &cp, nil
}

func (m *Memory) Close() error {
	return nil
}
