package matrix

import (
	"context"
	"fmt"
	"sync"

	"github.com/sid3xyz/slircd-ng/internal/store"
)

// memoryAccountStore is an in-process stand-in for store.AccountStore.
// internal/store deliberately ships no concrete backend (spec section
// 1 places the SQL store out of core scope), but NickServ/SASL need
// something to read and write accounts against to be exercised by a
// running server at all; a deployment wiring a real SQL-backed
// store.AccountStore into Deps.Accounts replaces this outright.
type memoryAccountStore struct {
	mu       sync.RWMutex
	accounts map[string]store.Account
	nicks    map[string]store.Nickname
}

func newMemoryAccountStore() *memoryAccountStore {
	return &memoryAccountStore{
		accounts: make(map[string]store.Account),
		nicks:    make(map[string]store.Nickname),
	}
}

func (s *memoryAccountStore) GetAccount(ctx context.Context, name string) (*store.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[name]
	if !ok {
		return nil, fmt.Errorf("matrix: no such account %q", name)
	}
	return &a, nil
}

func (s *memoryAccountStore) PutAccount(ctx context.Context, a store.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.Name] = a
	return nil
}

func (s *memoryAccountStore) DeleteAccount(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.accounts, name)
	return nil
}

func (s *memoryAccountStore) GetNickname(ctx context.Context, nick string) (*store.Nickname, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nicks[nick]
	if !ok {
		return nil, fmt.Errorf("matrix: no such nickname %q", nick)
	}
	return &n, nil
}

func (s *memoryAccountStore) LinkNickname(ctx context.Context, n store.Nickname) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nicks[n.Nick] = n
	return nil
}

func (s *memoryAccountStore) UnlinkNickname(ctx context.Context, nick string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.nicks, nick)
	return nil
}
