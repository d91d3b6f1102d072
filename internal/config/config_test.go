package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `
server_name = "irc.example.net"
network_name = "ExampleNet"
sid = "001"
description = "an example network"
admin_name = "Alice Admin"

[[listener]]
address = "0.0.0.0:6667"

[[listener]]
address = "0.0.0.0:6697"
tls = true
cert_file = "cert.pem"
key_file = "key.pem"

[[link]]
name = "hub.example.net"
sid = "002"
password = "hunter2"
autoconnect = true

[[oper]]
name = "alice"
password_hash = "argon2id$..."
level = "netop"

[limits]
max_nick_length = 32

[security]
messages_per_second = 3
message_burst = 12
`

func TestStringLoaderParsesFullDocument(t *testing.T) {
	cfg, err := StringLoader{Document: sampleDoc}.Load()
	require.NoError(t, err)
	assert.Equal(t, "irc.example.net", cfg.ServerName)
	require.Len(t, cfg.Listeners, 2)
	assert.True(t, cfg.Listeners[1].TLS)
	require.Len(t, cfg.Links, 1)
	assert.Equal(t, "002", cfg.Links[0].SID)
	require.Len(t, cfg.Opers, 1)
	assert.Equal(t, "netop", cfg.Opers[0].Level)
}

func TestLimitDefaultsFillUnsetFields(t *testing.T) {
	cfg, err := StringLoader{Document: sampleDoc}.Load()
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Limits.MaxNickLength) // explicit
	assert.Equal(t, DefaultLimits.MaxChanLength, cfg.Limits.MaxChanLength) // defaulted
}

func TestMissingServerNameIsRejected(t *testing.T) {
	_, err := StringLoader{Document: `network_name = "x"`}.Load()
	assert.Error(t, err)
}

func TestRehashOnlySwapsReloadableFields(t *testing.T) {
	cfg, err := StringLoader{Document: sampleDoc}.Load()
	require.NoError(t, err)
	live := NewLive(cfg)

	newDoc := strings.Replace(sampleDoc, `description = "an example network"`, `description = "updated description"`, 1)
	require.NoError(t, live.Rehash(StringLoader{Document: newDoc}))

	updated := live.Get()
	assert.Equal(t, "updated description", updated.Description)
	assert.Equal(t, cfg.ServerName, updated.ServerName)
	assert.Equal(t, cfg.Listeners, updated.Listeners) // unchanged, non-reloadable
}
