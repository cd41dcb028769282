package skeleton

import (
	"regexp"
	"strings"
)

// Delegation is one sub-task delegation extracted from a UI message.
type Delegation struct {
	Mode    string
	Message string
}

// structuredBlockRe matches explicit new_task(...) / new_task: blocks naming
// a mode, e.g. "new_task(mode: code)" or "new_task: mode=code".
var structuredBlockRe = regexp.MustCompile(`(?i)new_task\s*(?:\(|:)\s*mode\s*[:=]\s*"?([\w.-]+)"?`)

// inlinePhrasingRe matches conversational delegation phrasing, e.g.
// "I'll delegate this to the researcher in code mode to investigate...".
var inlinePhrasingRe = regexp.MustCompile(`(?i)\b(?:delegat(?:e|ing)|transfer(?:ring)?|hand(?:ing)? off)\b.*?\bin\s+([\w.-]+)\s+mode\b`)

// tagEnvelopeRe tolerantly scans <new_task> or <task> tag envelopes that may
// enclose <mode> and <message> (or <task>) child elements in either order.
var tagEnvelopeRe = regexp.MustCompile(`(?is)<(?:new_task|task)>(.*?)</(?:new_task|task)>`)
var tagModeRe = regexp.MustCompile(`(?is)<mode>(.*?)</mode>`)
var tagMessageRe = regexp.MustCompile(`(?is)<(?:message|task)>(.*?)</(?:message|task)>`)

// ExtractDelegations scans a message's text for sub-task delegations using
// the union of the three recognized pattern families: structured
// new_task(...) blocks, inline delegation phrasing, and tolerant
// <new_task>/<task> tag envelopes.
func ExtractDelegations(text string) []Delegation {
	var out []Delegation

	for _, m := range structuredBlockRe.FindAllStringSubmatchIndex(text, -1) {
		mode := text[m[2]:m[3]]
		message := trailingContext(text, m[1])
		out = append(out, Delegation{Mode: normalizeMode(mode), Message: message})
	}

	for _, m := range inlinePhrasingRe.FindAllStringSubmatchIndex(text, -1) {
		mode := text[m[2]:m[3]]
		message := strings.TrimSpace(text[m[0]:m[1]])
		out = append(out, Delegation{Mode: normalizeMode(mode), Message: message})
	}

	for _, env := range tagEnvelopeRe.FindAllStringSubmatch(text, -1) {
		body := env[1]
		mode := ""
		if mm := tagModeRe.FindStringSubmatch(body); mm != nil {
			mode = normalizeMode(mm[1])
		}
		message := ""
		if mm := tagMessageRe.FindStringSubmatch(body); mm != nil {
			message = strings.TrimSpace(mm[1])
		}
		if mode == "" && message == "" {
			message = strings.TrimSpace(body)
		}
		out = append(out, Delegation{Mode: mode, Message: message})
	}

	return out
}

func normalizeMode(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// trailingContext grabs up to 200 characters of text following a structured
// block's mode declaration, treated as the delegation's message body when
// no separate message field is present.
func trailingContext(text string, from int) string {
	rest := text[from:]
	rest = strings.TrimLeft(rest, " \t:\n\r)")
	if len(rest) > 200 {
		rest = rest[:200]
	}
	return strings.TrimSpace(rest)
}
