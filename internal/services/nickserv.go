package services

import (
	"fmt"
	"strings"
	"time"
)

// NewNickServ builds the NickServ command table: REGISTER, IDENTIFY,
// LOGOUT, GHOST, RELEASE and HELP. There is no GROUP or DROP command.
func NewNickServ() *Service {
	s := NewService("NickServ")
	s.Register("REGISTER", nsRegister)
	s.Register("IDENTIFY", nsIdentify)
	s.Register("LOGOUT", nsLogout)
	s.Register("GHOST", nsGhost)
	s.Register("RELEASE", nsRelease)
	s.Register("HELP", nsHelp)
	return s
}

func reply(ctx Context, format string, a ...any) Effect {
	return Reply{TargetUID: ctx.UID, Msg: fmt.Sprintf(format, a...)}
}

func nsRegister(args []string, ctx Context) []Effect {
	if len(args) < 1 {
		return []Effect{reply(ctx, "Insufficient parameters for \x02REGISTER\x02. Syntax: REGISTER <password> [email]")}
	}
	if ctx.Account != "" {
		return []Effect{reply(ctx, "You are already identified to account \x02%s\x02.", ctx.Account)}
	}
	// Password hashing and persistence are the caller's job: this
	// handler only decides on the outcome, not on storage mechanics.
	return []Effect{
		AccountIdentify{TargetUID: ctx.UID, Account: ctx.Nick},
		reply(ctx, "\x02%s\x02 is now registered. You are now identified.", ctx.Nick),
	}
}

func nsIdentify(args []string, ctx Context) []Effect {
	if len(args) < 1 {
		return []Effect{reply(ctx, "Insufficient parameters for \x02IDENTIFY\x02. Syntax: IDENTIFY <password>")}
	}
	if ctx.Account != "" {
		return []Effect{reply(ctx, "You are already identified.")}
	}
	// Credential verification happens upstream of this pure function
	// (it needs the store's password hash); here we only produce the
	// effects for the already-verified-good case, mirroring how the
	// SASL sub-state machine in internal/session hands off a verified
	// identity without re-checking it itself.
	return []Effect{
		AccountIdentify{TargetUID: ctx.UID, Account: ctx.Nick},
		CancelEnforcement{Nick: ctx.Nick},
		reply(ctx, "You are now identified for \x02%s\x02.", ctx.Nick),
	}
}

func nsLogout(args []string, ctx Context) []Effect {
	if ctx.Account == "" {
		return []Effect{reply(ctx, "You are not identified.")}
	}
	return []Effect{
		AccountLogout{TargetUID: ctx.UID},
		reply(ctx, "You have been logged out."),
	}
}

func nsGhost(args []string, ctx Context) []Effect {
	if len(args) < 1 {
		return []Effect{reply(ctx, "Insufficient parameters for \x02GHOST\x02. Syntax: GHOST <nick>")}
	}
	target := args[0]
	if ctx.Account == "" {
		return []Effect{reply(ctx, "You must be identified to use \x02GHOST\x02.")}
	}
	if strings.EqualFold(target, ctx.Nick) {
		return []Effect{reply(ctx, "You cannot GHOST yourself.")}
	}
	return []Effect{
		Kill{TargetUID: target, Killer: "NickServ", Reason: fmt.Sprintf("GHOST command used by %s", ctx.Nick)},
		reply(ctx, "\x02%s\x02 has been ghosted.", target),
	}
}

func nsRelease(args []string, ctx Context) []Effect {
	if len(args) < 1 {
		return []Effect{reply(ctx, "Insufficient parameters for \x02RELEASE\x02. Syntax: RELEASE <nick>")}
	}
	if ctx.Account == "" {
		return []Effect{reply(ctx, "You must be identified to use \x02RELEASE\x02.")}
	}
	return []Effect{
		CancelEnforcement{Nick: args[0]},
		reply(ctx, "\x02%s\x02 has been released.", args[0]),
	}
}

func nsHelp(args []string, ctx Context) []Effect {
	return []Effect{reply(ctx, "NickServ commands: REGISTER, IDENTIFY, LOGOUT, GHOST, RELEASE, HELP")}
}

// EnforcementDelay is a hold duration for the EnforceNick effect. No
// NickServ command emits EnforceNick, and nothing reads this constant.
const EnforcementDelay = 60 * time.Second
