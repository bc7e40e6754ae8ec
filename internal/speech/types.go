// Package speech coordinates optional speech-to-text and text-to-speech
// capabilities for the chat widget.
package speech

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when a speech capability is not present.
var ErrUnavailable = errors.New("speech capability unavailable")

// ErrorKind classifies a recognition failure.
type ErrorKind string

const (
	ErrorNotAllowed        ErrorKind = "not-allowed"
	ErrorServiceNotAllowed ErrorKind = "service-not-allowed"
	ErrorNetwork           ErrorKind = "network"
	ErrorNoSpeech          ErrorKind = "no-speech"
	ErrorAborted           ErrorKind = "aborted"
	ErrorAudioCapture      ErrorKind = "audio-capture"
)

// PermissionState is the microphone permission as reported by the host.
type PermissionState string

const (
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
	PermissionPrompt  PermissionState = "prompt"
	PermissionUnknown PermissionState = "unknown"
)

// RecognitionHandler receives recognition callbacks. Calls may arrive on
// any goroutine.
type RecognitionHandler interface {
	OnResult(transcript string)
	OnError(kind ErrorKind)
	OnEnd()
}

// Recognizer is a speech-to-text engine. Start begins one recognition
// session and reports back through h until OnEnd.
type Recognizer interface {
	Start(h RecognitionHandler) error
	Stop()
}

// Permissions queries and requests microphone access.
type Permissions interface {
	Microphone(ctx context.Context) (PermissionState, error)
	RequestMicrophone(ctx context.Context) error
}

// Synthesizer is a text-to-speech engine. Cancel drops queued and
// in-flight utterances.
type Synthesizer interface {
	Speak(text string) error
	Cancel()
}

// Capabilities bundles the optional speech handles found in the running
// environment. A nil field means the capability is absent.
type Capabilities struct {
	Recognizer  Recognizer
	Permissions Permissions
	Synthesizer Synthesizer
}

// CanRecognize reports whether speech input is possible.
func (c Capabilities) CanRecognize() bool { return c.Recognizer != nil }

// CanSynthesize reports whether speech output is possible.
func (c Capabilities) CanSynthesize() bool { return c.Synthesizer != nil }

// Availability is implemented by handles whose backing device can come and
// go while the process runs, such as a browser page lending its speech
// engine over a socket.
type Availability interface {
	Available() bool
}

func present(h any) bool {
	if h == nil {
		return false
	}
	if a, ok := h.(Availability); ok {
		return a.Available()
	}
	return true
}
