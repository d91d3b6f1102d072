// Package matrix is the central dependency-injection container: it
// constructs every manager from spec section 4 and wires them
// together, then owns graceful shutdown. Named "Matrix" after spec
// section 2's term for the whole set of live collaborators a session
// touches. Grounded on btnmasher-dircd/server.go's Server struct
// (single struct holding Users/Nicks/Conns/Channels) generalized from
// one flat struct-of-maps into a struct-of-managers, and on
// cmd/dircd/main.go's graceful-shutdown shape
// (context.WithCancel + conc.WaitGroup + signal.Notify).
package matrix

import (
	"context"
	"fmt"
	"time"

	"github.com/sid3xyz/slircd-ng/internal/capauth"
	"github.com/sid3xyz/slircd-ng/internal/channel"
	"github.com/sid3xyz/slircd-ng/internal/client"
	"github.com/sid3xyz/slircd-ng/internal/config"
	"github.com/sid3xyz/slircd-ng/internal/effects"
	"github.com/sid3xyz/slircd-ng/internal/historystore"
	"github.com/sid3xyz/slircd-ng/internal/idgen"
	"github.com/sid3xyz/slircd-ng/internal/metrics"
	"github.com/sid3xyz/slircd-ng/internal/router"
	"github.com/sid3xyz/slircd-ng/internal/s2s"
	"github.com/sid3xyz/slircd-ng/internal/sasl"
	"github.com/sid3xyz/slircd-ng/internal/security"
	"github.com/sid3xyz/slircd-ng/internal/services"
	"github.com/sid3xyz/slircd-ng/internal/store"
	"github.com/sid3xyz/slircd-ng/internal/user"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sourcegraph/conc"
)

// Matrix holds every live collaborator for one running server process.
type Matrix struct {
	Config *config.Live

	Users    *user.Manager
	Channels *channel.Manager
	Clients  *client.Manager
	UIDs     *idgen.UIDAllocator

	IPDenyList *security.IPDenyList
	BanCache   *security.BanCache
	Conns      *security.ConnectionGovernor

	Authority *capauth.Authority

	NickServ *services.Service
	ChanServ *services.Service
	Effects      *effects.Applier
	Accounts     store.AccountStore
	ChannelStore store.ChannelStore
	Sasl         *sasl.Authenticator

	Topology   *s2s.Topology
	Peers      *s2s.PeerRegistry
	Propagator *s2s.Propagator
	Router     *router.Router

	History *historystore.BadgerStore
	Metrics *metrics.Metrics

	wg       conc.WaitGroup
	cancel   context.CancelFunc
	shutdown time.Duration
}

// Deps bundles the construction-time collaborators a caller must
// supply: things that need I/O or live outside a pure-function
// constructor (the channel-member-level check used by capauth, a
// Prometheus registerer, etc).
type Deps struct {
	ChannelOpCheck func(uid, channel string) bool
	Registerer     prometheus.Registerer
	HistoryDBPath  string
	Accounts       store.AccountStore
	ChannelStore   store.ChannelStore
}

// Build constructs a Matrix from a loaded configuration. It opens the
// history database and fails fast if that doesn't succeed; every
// in-memory manager construction is otherwise infallible.
func Build(ctx context.Context, cfg *config.Config, deps Deps) (*Matrix, error) {
	if cfg.SID == "" || cfg.ServerName == "" {
		return nil, fmt.Errorf("matrix: server_name and sid are required")
	}

	history, err := historystore.Open(deps.HistoryDBPath)
	if err != nil {
		return nil, fmt.Errorf("matrix: opening history store: %w", err)
	}

	reg := deps.Registerer
	if reg == nil {
		// No registerer supplied: register against a private registry
		// so the collectors still work without being exported.
		reg = prometheus.NewRegistry()
	}

	m := &Matrix{
		Config:     config.NewLive(cfg),
		Users:      user.NewManager(),
		Channels:   channel.NewManager(),
		Clients:    client.NewManager(),
		UIDs:       idgen.NewUIDAllocator(cfg.SID),
		IPDenyList: security.NewIPDenyList(),
		BanCache:   security.NewBanCache(),
		Conns:      security.NewConnectionGovernor(),
		History:    history,
		Metrics:    metrics.NewMetrics(reg),
	}

	channelOpCheck := deps.ChannelOpCheck
	if channelOpCheck == nil {
		// Default wiring: ask the channel actor's own membership
		// snapshot rather than requiring every caller to supply this
		// closure, now that Channels exists to ask.
		channelOpCheck = func(uid, chanName string) bool {
			actor, ok := m.Channels.Lookup(chanName)
			if !ok {
				return false
			}
			for _, member := range actor.Members() {
				if member.UID == uid {
					return member.Prefix.HasOpOrHigher()
				}
			}
			return false
		}
	}
	m.Authority = capauth.NewAuthority(channelOpCheck)
	m.NickServ = services.NewNickServ()
	m.ChanServ = services.NewChanServ()
	m.Effects = effects.New("NickServ")

	m.Accounts = deps.Accounts
	if m.Accounts == nil {
		m.Accounts = newMemoryAccountStore()
	}
	m.Sasl = sasl.New(m.Accounts)

	m.ChannelStore = deps.ChannelStore
	if m.ChannelStore == nil {
		m.ChannelStore = newMemoryChannelStore()
	}

	m.Topology = s2s.NewTopology(cfg.SID, cfg.ServerName, cfg.Description)
	m.Peers = s2s.NewPeerRegistry()
	m.Propagator = s2s.NewPropagator(m.Peers.Snapshot)
	m.Router = router.New(m.Topology, m.Propagator, cfg.SID)

	for _, link := range cfg.Links {
		if link.Autoconn {
			// No outbound dialer exists: an Autoconn link is skipped
			// here and nothing else dials it, so links are only
			// established when the peer connects to the s2s listener.
			continue
		}
	}

	return m, nil
}

// Go runs fn in a supervised goroutine tracked by the Matrix's
// WaitGroup, matching cmd/dircd/main.go's wg.Go(...) usage -- a panic
// inside fn propagates to Wait() rather than crashing the process
// silently.
func (m *Matrix) Go(fn func()) {
	m.wg.Go(fn)
}

// Shutdown drains every actor-backed manager (channels) and closes the
// history store, then waits up to timeout for supervised goroutines to
// exit. Grounded on cmd/dircd/main.go's shutdownTimeout pattern.
func (m *Matrix) Shutdown(timeout time.Duration) error {
	m.Channels.Drain(timeout)
	if err := m.History.Close(); err != nil {
		return fmt.Errorf("matrix: closing history store: %w", err)
	}
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("matrix: shutdown timed out after %s", timeout)
	}
}
