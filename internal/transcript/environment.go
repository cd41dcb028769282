package transcript

import "regexp"

// environmentWorkspaceRe matches the "Current Workspace Directory" line the
// host tool embeds in environment-details blocks within UI message text,
// e.g. "# Current Workspace Directory (/home/user/project) Files".
var environmentWorkspaceRe = regexp.MustCompile(`#\s*Current Workspace Directory\s*\(([^)]+)\)\s*Files`)

// WorkspaceFromEnvironmentDetails scans a UI message's text for the
// environment-details workspace line, used as a lower-confidence fallback
// when task_metadata.json has no workspace field.
func WorkspaceFromEnvironmentDetails(text string) (string, bool) {
	m := environmentWorkspaceRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// WorkspaceFromMessages scans a set of UI messages in order and returns the
// first environment-details workspace match found.
func WorkspaceFromMessages(msgs []UIMessage) (string, bool) {
	for _, m := range msgs {
		if ws, ok := WorkspaceFromEnvironmentDetails(m.Text); ok {
			return ws, true
		}
	}
	return "", false
}
