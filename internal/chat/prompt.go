package chat

// BuildPrompt joins the instruction prefix and the question. Earlier turns
// of the session are never included.
func BuildPrompt(prefix, question string) string {
	return prefix + question
}
