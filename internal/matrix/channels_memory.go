package matrix

import (
	"context"
	"fmt"
	"sync"

	"github.com/sid3xyz/slircd-ng/internal/store"
)

// memoryChannelStore is an in-process stand-in for store.ChannelStore,
// the same rationale as memoryAccountStore: internal/store ships no
// concrete backend, but ChanServ's REGISTER/MLOCK handling needs
// something to read registrations from to be exercised end to end.
type memoryChannelStore struct {
	mu       sync.RWMutex
	channels map[string]store.ChannelRegistration
	access   map[string][]store.AccessEntry
	akicks   map[string][]store.AKickEntry
}

func newMemoryChannelStore() *memoryChannelStore {
	return &memoryChannelStore{
		channels: make(map[string]store.ChannelRegistration),
		access:   make(map[string][]store.AccessEntry),
		akicks:   make(map[string][]store.AKickEntry),
	}
}

func (s *memoryChannelStore) GetChannel(ctx context.Context, name string) (*store.ChannelRegistration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.channels[name]
	if !ok {
		return nil, fmt.Errorf("matrix: no such registered channel %q", name)
	}
	return &c, nil
}

func (s *memoryChannelStore) PutChannel(ctx context.Context, c store.ChannelRegistration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels[c.Name] = c
	return nil
}

func (s *memoryChannelStore) DeleteChannel(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.channels, name)
	return nil
}

func (s *memoryChannelStore) ListAccess(ctx context.Context, channel string) ([]store.AccessEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]store.AccessEntry(nil), s.access[channel]...), nil
}

func (s *memoryChannelStore) PutAccess(ctx context.Context, a store.AccessEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access[a.Channel] = append(s.access[a.Channel], a)
	return nil
}

func (s *memoryChannelStore) RemoveAccess(ctx context.Context, channel, account string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.access[channel]
	for i, e := range entries {
		if e.Account == account {
			s.access[channel] = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	return nil
}

func (s *memoryChannelStore) ListAKicks(ctx context.Context, channel string) ([]store.AKickEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]store.AKickEntry(nil), s.akicks[channel]...), nil
}

func (s *memoryChannelStore) PutAKick(ctx context.Context, a store.AKickEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.akicks[a.Channel] = append(s.akicks[a.Channel], a)
	return nil
}

func (s *memoryChannelStore) RemoveAKick(ctx context.Context, channel, mask string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.akicks[channel]
	for i, e := range entries {
		if e.Mask == mask {
			s.akicks[channel] = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	return nil
}
