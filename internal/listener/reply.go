package listener

import "github.com/sid3xyz/slircd-ng/internal/wire"

// renderNumeric builds a numeric reply line (no trailing CRLF) for use
// with handler.Context.Reply, which accumulates raw lines rather than
// *wire.MessageRef values so the label/batch middleware can rewrite
// them uniformly.
func renderNumeric(source string, code uint16, params ...string) string {
	return mustRender(wire.NewNumeric(source, code, params...))
}

// renderCommand builds a textual command line (NICK, QUIT, PRIVMSG...).
func renderCommand(source, command string, params ...string) string {
	return mustRender(wire.NewCommand(source, command, params...))
}

func mustRender(ref *wire.MessageRef) string {
	line, err := ref.Render()
	if err != nil {
		// Truncate rather than drop: a numeric/command that overflows
		// the wire budget is a configuration bug (an absurdly long
		// realname or topic), not a reason to lose the line entirely.
		full := ref.Msg.String()
		budget := wire.MaxLineLength - 2
		if len(ref.Msg.Tags) > 0 {
			budget = wire.MaxTaggedLength - 2
		}
		if len(full) > budget {
			full = full[:budget]
		}
		return full
	}
	return line[:len(line)-2]
}
