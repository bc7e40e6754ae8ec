package domain

// Role tags who produced a message.
type Role string

const (
	RoleUser   Role = "user"
	RoleBot    Role = "bot"
	RoleSystem Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleBot, RoleSystem:
		return true
	}
	return false
}

// Message is a single turn in a chat session. Messages are never edited
// once appended.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// UserMessage builds a message typed by the student.
func UserMessage(text string) Message { return Message{Role: RoleUser, Text: text} }

// BotMessage builds a reply from the assistant.
func BotMessage(text string) Message { return Message{Role: RoleBot, Text: text} }

// SystemMessage builds a status notice shown inline in the conversation.
func SystemMessage(text string) Message { return Message{Role: RoleSystem, Text: text} }
