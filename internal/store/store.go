// Package store declares the relational persistence collaborator from
// spec section 6.4. Unlike internal/historystore, no concrete
// implementation is provided here: spec section 1 places the SQL
// backend itself out of core scope as an external collaborator, so
// this package intentionally stops at the interface boundary. The core
// depends only on these types; wiring a real driver (pgx, database/sql
// + a specific dialect) is deployment-specific and outside this
// module's responsibility.
package store

import (
	"context"
	"time"
)

// Account is one registered (NickServ-style) identity.
type Account struct {
	Name          string
	PasswordHash  string
	Email         string
	RegisteredAt  time.Time
	LastSeenAt    time.Time
	Verified      bool
	SCRAMSalt     []byte
	SCRAMIters    int
	SCRAMStoredKey []byte
	SCRAMServerKey []byte
	CertFingerprints []string
}

// Nickname is one nick grouped under an account, per NickServ GROUP
// semantics.
type Nickname struct {
	Nick      string
	Account   string
	LinkedAt  time.Time
}

// LineKind identifies the *-line ban classes in spec section 6.4.
type LineKind string

const (
	LineK LineKind = "K" // user@host ban
	LineD LineKind = "D" // IP deny
	LineG LineKind = "G" // global user@host ban (network-wide)
	LineZ LineKind = "Z" // CIDR deny
	LineR LineKind = "R" // realname ban
)

// Line is one persisted ban/deny entry.
type Line struct {
	Kind      LineKind
	Mask      string
	Reason    string
	SetBy     string
	SetAt     time.Time
	ExpiresAt time.Time // zero means permanent
}

// Shun is a persisted shun (silently ignore, do not disconnect).
type Shun struct {
	Mask      string
	Reason    string
	SetAt     time.Time
	ExpiresAt time.Time
}

// ChannelRegistration is one ChanServ-registered channel.
type ChannelRegistration struct {
	Name        string
	Founder     string
	RegisteredAt time.Time
	Topic       string
	MLock       string
	Successor   string
}

// AccessEntry is one ChanServ access-list row (flags-based, e.g. "+ov").
type AccessEntry struct {
	Channel string
	Account string
	Flags   string
}

// AKickEntry is one ChanServ auto-kick list row.
type AKickEntry struct {
	Channel string
	Mask    string
	Reason  string
	SetBy   string
	SetAt   time.Time
}

// ReputationScore is a per-account or per-mask abuse score used by the
// security manager's spam heuristics to weight thresholds.
type ReputationScore struct {
	Subject string
	Score   float64
	UpdatedAt time.Time
}

// AccountStore persists registered accounts and their nicknames.
type AccountStore interface {
	GetAccount(ctx context.Context, name string) (*Account, error)
	PutAccount(ctx context.Context, a Account) error
	DeleteAccount(ctx context.Context, name string) error
	GetNickname(ctx context.Context, nick string) (*Nickname, error)
	LinkNickname(ctx context.Context, n Nickname) error
	UnlinkNickname(ctx context.Context, nick string) error
}

// LineStore persists *-line bans and shuns.
type LineStore interface {
	PutLine(ctx context.Context, l Line) error
	RemoveLine(ctx context.Context, kind LineKind, mask string) error
	ListLines(ctx context.Context, kind LineKind) ([]Line, error)
	PutShun(ctx context.Context, s Shun) error
	ListShuns(ctx context.Context) ([]Shun, error)
}

// ChannelStore persists channel registration metadata.
type ChannelStore interface {
	GetChannel(ctx context.Context, name string) (*ChannelRegistration, error)
	PutChannel(ctx context.Context, c ChannelRegistration) error
	DeleteChannel(ctx context.Context, name string) error
	ListAccess(ctx context.Context, channel string) ([]AccessEntry, error)
	PutAccess(ctx context.Context, a AccessEntry) error
	RemoveAccess(ctx context.Context, channel, account string) error
	ListAKicks(ctx context.Context, channel string) ([]AKickEntry, error)
	PutAKick(ctx context.Context, a AKickEntry) error
	RemoveAKick(ctx context.Context, channel, mask string) error
}

// ReputationStore persists abuse-reputation scores.
type ReputationStore interface {
	GetReputation(ctx context.Context, subject string) (*ReputationScore, error)
	PutReputation(ctx context.Context, r ReputationScore) error
}

// Store is the full relational collaborator surface. A deployment
// wires a concrete implementation (any SQL dialect) behind this; the
// core only ever depends on the interface.
type Store interface {
	AccountStore
	LineStore
	ChannelStore
	ReputationStore
}
