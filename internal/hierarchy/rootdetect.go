package hierarchy

import (
	"regexp"
	"strings"
)

const rootMinLength = 10

var greetingRe = regexp.MustCompile(`(?i)^\s*(hello|hi|hey|please|i\s+would\s+like|i'd\s+like|can\s+you|could\s+you)\b`)

// isRootLike reports whether an instruction looks like the opening message
// of a fresh conversation rather than a delegated sub-task: a bare greeting,
// a generic opening phrase, or simply too short to carry any signal.
func isRootLike(instruction string) bool {
	trimmed := strings.TrimSpace(instruction)
	if len(trimmed) < rootMinLength {
		return true
	}
	return greetingRe.MatchString(trimmed)
}
