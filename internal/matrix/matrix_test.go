package matrix

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sid3xyz/slircd-ng/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		ServerName: "irc.test.example",
		SID:        "001",
		Limits:     config.DefaultLimits,
	}
}

func testDeps(t *testing.T) Deps {
	t.Helper()
	return Deps{
		ChannelOpCheck: func(uid, channel string) bool { return true },
		HistoryDBPath:  filepath.Join(t.TempDir(), "history"),
	}
}

func TestBuildRejectsMissingServerIdentity(t *testing.T) {
	cfg := testConfig(t)
	cfg.SID = ""
	_, err := Build(context.Background(), cfg, testDeps(t))
	assert.Error(t, err)
}

func TestBuildWiresAllManagers(t *testing.T) {
	m, err := Build(context.Background(), testConfig(t), testDeps(t))
	require.NoError(t, err)
	defer m.Shutdown(time.Second)

	assert.NotNil(t, m.Users)
	assert.NotNil(t, m.Channels)
	assert.NotNil(t, m.Clients)
	assert.NotNil(t, m.Authority)
	assert.NotNil(t, m.NickServ)
	assert.NotNil(t, m.ChanServ)
	assert.NotNil(t, m.Effects)
	assert.NotNil(t, m.Topology)
	assert.NotNil(t, m.Router)
	assert.NotNil(t, m.History)
	assert.NotNil(t, m.Metrics)
}

func TestShutdownClosesHistoryStore(t *testing.T) {
	m, err := Build(context.Background(), testConfig(t), testDeps(t))
	require.NoError(t, err)
	require.NoError(t, m.Shutdown(time.Second))
}

func TestGoTracksSupervisedGoroutine(t *testing.T) {
	m, err := Build(context.Background(), testConfig(t), testDeps(t))
	require.NoError(t, err)
	ran := make(chan struct{})
	m.Go(func() { close(ran) })
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("supervised goroutine did not run")
	}
	require.NoError(t, m.Shutdown(time.Second))
}
