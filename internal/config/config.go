// Package config loads the server's TOML configuration document into
// a typed Config, per SPEC_FULL.md A.3. Loading itself sits behind the
// ConfigLoader interface so the core only ever consumes an already
// -parsed Config/ReloadableConfig value -- config parsing is a
// collaborator, mirroring spec section 1's "external TOML config
// loading" exclusion. Library grounded on lrstanley-girc's go.mod,
// which pulls in github.com/BurntSushi/toml.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Listener describes one client or S2S listen address.
type Listener struct {
	Address  string `toml:"address"`
	TLS      bool   `toml:"tls"`
	CertFile string `toml:"cert_file"`
	KeyFile  string `toml:"key_file"`
	S2S      bool   `toml:"s2s"`
}

// LinkBlock is one configured S2S peer, per spec section 4.6.
type LinkBlock struct {
	Name     string `toml:"name"`
	SID      string `toml:"sid"`
	Password string `toml:"password"`
	Class    string `toml:"class"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Autoconn bool   `toml:"autoconnect"`
}

// WebIRCBlock authorizes one trusted gateway to assert a connecting
// client's real hostname/IP via the WEBIRC pre-registration command,
// per spec section 4.1's handler list.
type WebIRCBlock struct {
	Password string `toml:"password"`
	Gateway  string `toml:"gateway"`
}

// StartTLSBlock configures the certificate STARTTLS presents for a
// mid-connection TLS upgrade, independent of any listener's own
// `tls = true` socket -- a plaintext listener can still offer STARTTLS
// if this block is present.
type StartTLSBlock struct {
	CertFile string `toml:"cert_file"`
	KeyFile  string `toml:"key_file"`
}

// OperBlock grants an oper account a privilege level name (resolved to
// a security.Level by the caller, to avoid this package importing
// security and creating a cycle).
type OperBlock struct {
	Name     string `toml:"name"`
	Hash     string `toml:"password_hash"`
	Level    string `toml:"level"`
	VHost    string `toml:"vhost"`
}

// Limits mirrors btnmasher-dircd/settings.go's constant block, made
// configurable instead of compiled-in.
type Limits struct {
	MaxMsgLength   int `toml:"max_msg_length"`
	MaxTagsLength  int `toml:"max_tags_length"`
	MaxChanLength  int `toml:"max_chan_length"`
	MaxKickLength  int `toml:"max_kick_length"`
	MaxTopicLength int `toml:"max_topic_length"`
	MaxListItems   int `toml:"max_list_items"`
	MaxModeChange  int `toml:"max_mode_change"`
	MaxNickLength  int `toml:"max_nick_length"`
	MaxUserLength  int `toml:"max_user_length"`
	MaxJoinedChans int `toml:"max_joined_chans"`
	MaxAwayLength  int `toml:"max_away_length"`
}

// DefaultLimits mirrors the teacher's compiled-in constants exactly,
// used when a document omits the [limits] table.
var DefaultLimits = Limits{
	MaxMsgLength:   512,
	MaxTagsLength:  4096,
	MaxChanLength:  16,
	MaxKickLength:  400,
	MaxTopicLength: 400,
	MaxListItems:   256,
	MaxModeChange:  6,
	MaxNickLength:  16,
	MaxUserLength:  16,
	MaxJoinedChans: 32,
	MaxAwayLength:  100,
}

// SecurityThresholds configures internal/security's rate and spam
// gates from the document.
type SecurityThresholds struct {
	MessagesPerSecond float64 `toml:"messages_per_second"`
	MessageBurst      int     `toml:"message_burst"`
	JoinsPerSecond    float64 `toml:"joins_per_second"`
	JoinBurst         int     `toml:"join_burst"`
	BanCacheTTLSec    int64   `toml:"ban_cache_ttl_seconds"`
	MinEntropy        float64 `toml:"min_entropy"`
	MaxURLRatio       float64 `toml:"max_url_ratio"`
}

// Reloadable is the subset of Config that REHASH/SIGHUP swaps
// atomically, per spec section 6.6 -- everything else requires a
// process restart.
type Reloadable struct {
	Description string      `toml:"description"`
	MOTDPath    string      `toml:"motd_path"`
	Opers       []OperBlock `toml:"oper"`
	AdminName   string      `toml:"admin_name"`
	AdminEmail  string      `toml:"admin_email"`
}

// Config is the full parsed document.
type Config struct {
	ServerName string     `toml:"server_name"`
	NetworkName string    `toml:"network_name"`
	SID        string     `toml:"sid"`
	Listeners  []Listener `toml:"listener"`
	Links      []LinkBlock `toml:"link"`
	WebIRC     []WebIRCBlock `toml:"webirc"`
	StartTLS   StartTLSBlock `toml:"starttls"`
	Limits     Limits     `toml:"limits"`
	Security   SecurityThresholds `toml:"security"`
	HistoryDBPath string  `toml:"history_db_path"`
	Reloadable
}

// ConfigLoader is the collaborator interface the core depends on.
// FileLoader reads from disk; StringLoader parses an in-memory
// document, for tests.
type ConfigLoader interface {
	Load() (*Config, error)
}

// FileLoader loads a Config from a TOML file on disk.
type FileLoader struct {
	Path string
}

// Load parses the file at l.Path, applying DefaultLimits for any zero
// -valued limit field.
func (l FileLoader) Load() (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(l.Path, &cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", l.Path, err)
	}
	applyLimitDefaults(&cfg.Limits)
	if cfg.ServerName == "" {
		return nil, fmt.Errorf("config: server_name is required")
	}
	return &cfg, nil
}

// StringLoader parses a TOML document already held in memory, used by
// tests and by RehashFromString.
type StringLoader struct {
	Document string
}

// Load parses l.Document.
func (l StringLoader) Load() (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(l.Document, &cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	applyLimitDefaults(&cfg.Limits)
	if cfg.ServerName == "" {
		return nil, fmt.Errorf("config: server_name is required")
	}
	return &cfg, nil
}

func applyLimitDefaults(l *Limits) {
	d := DefaultLimits
	if l.MaxMsgLength == 0 {
		l.MaxMsgLength = d.MaxMsgLength
	}
	if l.MaxTagsLength == 0 {
		l.MaxTagsLength = d.MaxTagsLength
	}
	if l.MaxChanLength == 0 {
		l.MaxChanLength = d.MaxChanLength
	}
	if l.MaxKickLength == 0 {
		l.MaxKickLength = d.MaxKickLength
	}
	if l.MaxTopicLength == 0 {
		l.MaxTopicLength = d.MaxTopicLength
	}
	if l.MaxListItems == 0 {
		l.MaxListItems = d.MaxListItems
	}
	if l.MaxModeChange == 0 {
		l.MaxModeChange = d.MaxModeChange
	}
	if l.MaxNickLength == 0 {
		l.MaxNickLength = d.MaxNickLength
	}
	if l.MaxUserLength == 0 {
		l.MaxUserLength = d.MaxUserLength
	}
	if l.MaxJoinedChans == 0 {
		l.MaxJoinedChans = d.MaxJoinedChans
	}
	if l.MaxAwayLength == 0 {
		l.MaxAwayLength = d.MaxAwayLength
	}
}

// fileExists reports whether path can be stat'ed; FileExists exports it.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// FileExists reports whether path exists on disk.
func FileExists(path string) bool { return fileExists(path) }
