// Package history models the chat history panel: which sessions are
// listed, how they are labeled, and where the list is scrolled.
package history

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/soyeahso/campusbot/internal/domain"
)

// Placeholder labels a session without any user message.
const Placeholder = "Chat Session"

// Summary derives a short label from the first user message: its first
// two words of at least two characters.
func Summary(s domain.Session) string {
	first, ok := s.FirstUserMessage()
	if !ok {
		return Placeholder
	}

	var kept []string
	for _, w := range strings.Fields(first.Text) {
		if utf8.RuneCountInString(w) < 2 {
			continue
		}
		kept = append(kept, w)
		if len(kept) == 2 {
			break
		}
	}
	if len(kept) == 0 {
		return Placeholder
	}
	return strings.Join(kept, " ")
}

// DateLabel buckets ts relative to now: "Today", "Yesterday", or a short
// month/day such as "Mar 4". Calendar days are taken in now's location.
func DateLabel(ts, now time.Time) string {
	loc := now.Location()
	ts = ts.In(loc)

	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)
	ty, tm, td := ts.Date()
	day := time.Date(ty, tm, td, 0, 0, 0, 0, loc)

	switch {
	case day.Equal(today):
		return "Today"
	case day.Equal(today.AddDate(0, 0, -1)):
		return "Yesterday"
	default:
		return ts.Format("Jan 2")
	}
}
