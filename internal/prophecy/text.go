package prophecy

const (
	// ChatMessageLimit is the longest message a chat channel accepts.
	ChatMessageLimit = 2000

	ellipsis = "..."
)

// Truncate shortens s to at most limit runes, ending with "..." when cut.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if limit <= 0 || len(runes) <= limit {
		return s
	}
	if limit <= len(ellipsis) {
		return string(runes[:limit])
	}
	return string(runes[:limit-len(ellipsis)]) + ellipsis
}
