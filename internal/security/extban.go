package security

import "strings"

// ExtendedBan is one parsed $-prefixed extended ban entry, per spec
// section 4.5 item 5.
type ExtendedBan struct {
	Kind string // "a" account, "r" realname, "j" channel membership, "x" hostmask regex-ish, "z" TLS-only
	Arg  string
}

// ParseExtendedBan parses a mask of the form "$a:account",
// "$r:realname-glob", "$j:#channel", "$x:combined-mask", or the
// argument-less "$z". Returns ok=false if mask is not an extended ban
// (the caller should fall back to ordinary nick!user@host matching).
func ParseExtendedBan(mask string) (ExtendedBan, bool) {
	if !strings.HasPrefix(mask, "$") {
		return ExtendedBan{}, false
	}
	body := mask[1:]
	if body == "z" {
		return ExtendedBan{Kind: "z"}, true
	}
	parts := strings.SplitN(body, ":", 2)
	if len(parts) != 2 {
		return ExtendedBan{}, false
	}
	switch parts[0] {
	case "a", "r", "j", "x":
		return ExtendedBan{Kind: parts[0], Arg: parts[1]}, true
	default:
		return ExtendedBan{}, false
	}
}

// MatchSubject is everything an extended ban needs about the joining
// or speaking client to decide a match.
type MatchSubject struct {
	Account     string
	Realname    string
	Hostmask    string // nick!user@host
	TLS         bool
	MemberOf    func(channel string) bool
}

// Match reports whether subject satisfies the extended ban.
func (b ExtendedBan) Match(subject MatchSubject) bool {
	switch b.Kind {
	case "a":
		return subject.Account != "" && MatchMask(strings.ToLower(b.Arg), strings.ToLower(subject.Account))
	case "r":
		return MatchMask(b.Arg, subject.Realname)
	case "j":
		return subject.MemberOf != nil && subject.MemberOf(b.Arg)
	case "x":
		return MatchMask(strings.ToLower(b.Arg), strings.ToLower(subject.Hostmask))
	case "z":
		return subject.TLS
	default:
		return false
	}
}
