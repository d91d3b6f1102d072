// Package effects implements the sole applier of service effects
// against live server state, per spec section 4.8: "the effect
// applier is the only party allowed to perform these mutations on
// behalf of services; services never touch state directly." Every
// dependency here is a small interface rather than a concrete
// package import, so internal/services stays decoupled from
// internal/channel, internal/client, and internal/session -- the
// same inversion internal/capauth uses for its memberLevel callback.
package effects

import (
	"fmt"
	"time"

	"github.com/sid3xyz/slircd-ng/internal/services"
)

// Sender delivers a line of text to one UID, e.g. a NOTICE from a
// service.
type Sender interface {
	SendNotice(targetUID, from, text string)
}

// AccountBinder identifies or logs out a session's account state.
type AccountBinder interface {
	SetAccount(targetUID, account string)
	ClearAccount(targetUID string)
}

// Enforcer cancels or schedules nick-reclaim enforcement.
type Enforcer interface {
	CancelEnforcement(nick string)
	EnforceNick(nick string, after time.Duration)
}

// SessionKiller fatally disconnects a session (local) or forwards a
// network KILL (remote), matching the GHOST-delivery Open Question
// decision recorded in DESIGN.md.
type SessionKiller interface {
	Kill(targetUID, killer, reason string) error
}

// ChannelMutator applies a kick or a batch of mode operations to a
// named channel, using the actor's command queue under the hood.
type ChannelMutator interface {
	Kick(channel, targetUID, kicker, reason string) error
	ApplyModes(channel string, ops []services.ModeOpRequest, setter string) error
}

// Wallopper broadcasts an operator-visible wallops line.
type Wallopper interface {
	Wallops(msg string)
}

// Applier wires the above collaborators together and is the only
// type in the codebase permitted to turn a services.Effect into a
// state mutation.
type Applier struct {
	Sender    Sender
	Accounts  AccountBinder
	Enforcer  Enforcer
	Killer    SessionKiller
	Channels  ChannelMutator
	Wallopper Wallopper

	serviceName string // identity effects are attributed to, e.g. "NickServ"
}

// New constructs an Applier. serviceName is used as the NOTICE sender
// for Reply effects that don't carry their own origin.
func New(serviceName string) *Applier {
	return &Applier{serviceName: serviceName}
}

// Apply applies a single effect. Errors are non-fatal: a failed Kick
// or Kill (e.g. target already gone) does not halt processing of the
// remaining effects in the batch.
func (a *Applier) Apply(e services.Effect) error {
	switch v := e.(type) {
	case services.Reply:
		if a.Sender != nil {
			a.Sender.SendNotice(v.TargetUID, a.serviceName, v.Msg)
		}
		return nil
	case services.AccountIdentify:
		if a.Accounts != nil {
			a.Accounts.SetAccount(v.TargetUID, v.Account)
		}
		return nil
	case services.AccountLogout:
		if a.Accounts != nil {
			a.Accounts.ClearAccount(v.TargetUID)
		}
		return nil
	case services.CancelEnforcement:
		if a.Enforcer != nil {
			a.Enforcer.CancelEnforcement(v.Nick)
		}
		return nil
	case services.EnforceNick:
		if a.Enforcer != nil {
			a.Enforcer.EnforceNick(v.Nick, v.Delay)
		}
		return nil
	case services.Kill:
		if a.Killer == nil {
			return fmt.Errorf("effects: no killer wired")
		}
		return a.Killer.Kill(v.TargetUID, v.Killer, v.Reason)
	case services.Kick:
		if a.Channels == nil {
			return fmt.Errorf("effects: no channel mutator wired")
		}
		return a.Channels.Kick(v.Channel, v.TargetUID, a.serviceName, v.Reason)
	case services.ChannelMode:
		if a.Channels == nil {
			return fmt.Errorf("effects: no channel mutator wired")
		}
		return a.Channels.ApplyModes(v.Channel, v.ModeOps, a.serviceName)
	case services.Wallops:
		if a.Wallopper != nil {
			a.Wallopper.Wallops(v.Msg)
		}
		return nil
	default:
		return fmt.Errorf("effects: unhandled effect type %T", e)
	}
}

// ApplyAll applies a batch in order, collecting (not stopping on) the
// first error per effect; it returns the first error seen, if any,
// after attempting every effect.
func (a *Applier) ApplyAll(all []services.Effect) error {
	var firstErr error
	for _, e := range all {
		if err := a.Apply(e); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
