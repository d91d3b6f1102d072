package services

import "fmt"

// NewChanServ builds the ChanServ command table: OP, DEOP, KICK, TOPIC
// and HELP, effect-mediated so ChanServ itself never touches a
// channel.Actor directly. There is no REGISTER or INVITE command.
func NewChanServ() *Service {
	s := NewService("ChanServ")
	s.Register("OP", csOp)
	s.Register("DEOP", csDeop)
	s.Register("KICK", csKick)
	s.Register("TOPIC", csTopic)
	s.Register("HELP", csHelp)
	return s
}

func requireOpPrivilege(args []string, ctx Context) (channel string, ok bool, errEffects []Effect) {
	if len(args) < 1 {
		return "", false, []Effect{reply(ctx, "Syntax: <command> <#channel> [target]")}
	}
	channel = args[0]
	if !ctx.ChannelOp(channel) && !ctx.IsOper {
		return channel, false, []Effect{reply(ctx, "You do not have access to \x02%s\x02.", channel)}
	}
	return channel, true, nil
}

func csOp(args []string, ctx Context) []Effect {
	channel, ok, errs := requireOpPrivilege(args, ctx)
	if !ok {
		return errs
	}
	target := ctx.UID
	if len(args) >= 2 {
		target = args[1]
	}
	return []Effect{
		ChannelMode{Channel: channel, ModeOps: []ModeOpRequest{{Add: true, Mode: "o", Arg: target}}},
		reply(ctx, "You have been opped in \x02%s\x02.", channel),
	}
}

func csDeop(args []string, ctx Context) []Effect {
	channel, ok, errs := requireOpPrivilege(args, ctx)
	if !ok {
		return errs
	}
	target := ctx.UID
	if len(args) >= 2 {
		target = args[1]
	}
	return []Effect{
		ChannelMode{Channel: channel, ModeOps: []ModeOpRequest{{Add: false, Mode: "o", Arg: target}}},
	}
}

func csKick(args []string, ctx Context) []Effect {
	channel, ok, errs := requireOpPrivilege(args, ctx)
	if !ok {
		return errs
	}
	if len(args) < 2 {
		return []Effect{reply(ctx, "Syntax: KICK <#channel> <nick> [reason]")}
	}
	reason := "Requested"
	if len(args) >= 3 {
		reason = args[2]
	}
	return []Effect{Kick{Channel: channel, TargetUID: args[1], Reason: fmt.Sprintf("%s (%s)", reason, ctx.Nick)}}
}

func csTopic(args []string, ctx Context) []Effect {
	channel, ok, errs := requireOpPrivilege(args, ctx)
	if !ok {
		return errs
	}
	if len(args) < 2 {
		return []Effect{reply(ctx, "Syntax: TOPIC <#channel> <new topic>")}
	}
	return []Effect{reply(ctx, "Topic changes for \x02%s\x02 must go through TOPIC directly; ChanServ only enforces MLOCK.", channel)}
}

func csHelp(args []string, ctx Context) []Effect {
	return []Effect{reply(ctx, "ChanServ commands: OP, DEOP, KICK, TOPIC, HELP")}
}
