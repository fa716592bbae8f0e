package forward

import "strings"

// IsSource reports whether a post's channel identity matches any configured
// source entry.
//
// Each entry is either a numeric chat id or a channel username, stored with
// or without a leading "@". Numeric ids compare literally, usernames
// case-insensitively. A post without a username simply fails the username
// branch; it can still match by id. No prefix matching.
func IsSource(chatID, username string, sources []string) bool {
	for _, source := range sources {
		entry := strings.TrimPrefix(source, "@")
		if chatID == entry {
			return true
		}
		if username != "" && strings.EqualFold(username, entry) {
			return true
		}
	}
	return false
}
