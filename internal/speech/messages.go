package speech

import "fmt"

// User-facing notices posted into the conversation as system messages.
const (
	MsgUnavailable      = "Speech recognition is not supported in this environment. You can still type your questions."
	MsgPermissionDenied = "Microphone access is blocked. Please allow microphone access in your browser settings to use voice input."
	MsgRequesting       = "Requesting microphone access..."
	MsgListening        = "Listening..."
	MsgNotAllowed       = "Microphone access was denied. Please change your browser permissions to allow microphone access."
	MsgNetworkGaveUp    = "Speech recognition is unavailable due to network problems. Try a different network or browser, or type your question instead."
)

func retryingMessage(retry, maxRetries int) string {
	return fmt.Sprintf("Network error during speech recognition. Retrying (%d/%d)...", retry, maxRetries)
}

func failedMessage(kind ErrorKind) string {
	return fmt.Sprintf("Speech recognition failed (%s). Please try again or type your question.", kind)
}
