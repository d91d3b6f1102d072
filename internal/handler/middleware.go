package handler

import (
	"fmt"
	"strings"
)

// BatchKind names the IRCv3 batch type tag for a synthesized BATCH
// bracket, per spec section 4.7's batch middleware.
type BatchKind string

const (
	BatchNames       BatchKind = "draft/names"
	BatchWhois       BatchKind = "draft/whois"
	BatchChatHistory BatchKind = "chathistory"
)

// WrapLabeled implements the labeled-response middleware: every line
// in replies gets the client's label tag echoed onto it, and if the
// handler produced no replies at all, a bare ACK is synthesized so the
// client's label always gets at least one response. Grounded on spec
// section 4.7 ("Labeled response: ... ACK-if-no-replies").
func WrapLabeled(label string, replies []string) []string {
	if label == "" {
		return replies
	}
	if len(replies) == 0 {
		return []string{tagLabel(label, "ACK")}
	}
	out := make([]string, len(replies))
	for i, line := range replies {
		out[i] = tagLabel(label, line)
	}
	return out
}

func tagLabel(label, line string) string {
	if strings.HasPrefix(line, "@") {
		// Existing tags: insert label as an additional tag.
		if sp := strings.IndexByte(line, ' '); sp != -1 {
			return line[:sp] + ";label=" + label + line[sp:]
		}
	}
	return "@label=" + label + " " + line
}

// WrapBatch implements the batch middleware: when replies would span
// multiple messages (NAMES, WHOIS, CHATHISTORY), it synthesizes
// `BATCH +<ref>` / `BATCH -<ref>` brackets around them and tags each
// inner line with the batch ref, per spec section 4.7. ref is supplied
// by the caller (e.g. a fresh idgen.SessionId().String()) so this
// function stays free of ID-generation side effects.
func WrapBatch(kind BatchKind, ref string, target string, replies []string) []string {
	if len(replies) == 0 {
		return replies
	}
	out := make([]string, 0, len(replies)+2)
	open := fmt.Sprintf("BATCH +%s %s", ref, kind)
	if target != "" {
		open += " " + target
	}
	out = append(out, open)
	for _, line := range replies {
		out = append(out, tagBatch(ref, line))
	}
	out = append(out, fmt.Sprintf("BATCH -%s", ref))
	return out
}

func tagBatch(ref, line string) string {
	if strings.HasPrefix(line, "@") {
		if sp := strings.IndexByte(line, ' '); sp != -1 {
			return line[:sp] + ";batch=" + ref + line[sp:]
		}
	}
	return "@batch=" + ref + " " + line
}

// WrapLabeledBatch composes both middlewares in the order spec section
// 4.7 implies: the batch bracket is built first (so its BATCH +/-
// framing lines also carry the label), then the label is applied to
// the whole result.
func WrapLabeledBatch(label string, kind BatchKind, ref string, target string, replies []string) []string {
	return WrapLabeled(label, WrapBatch(kind, ref, target, replies))
}
