package speech

import (
	"sync"

	"github.com/soyeahso/campusbot/internal/logging"
	"github.com/soyeahso/campusbot/internal/metrics"
)

// OutputAdapter gates a Synthesizer behind the voice output toggle.
type OutputAdapter struct {
	synth Synthesizer
	log   *logging.Logger

	mu      sync.Mutex
	enabled bool
}

// NewOutputAdapter creates an adapter. synth may be nil.
func NewOutputAdapter(synth Synthesizer, enabled bool, log *logging.Logger) *OutputAdapter {
	return &OutputAdapter{
		synth:   synth,
		enabled: enabled,
		log:     log.Sub("speech.output"),
	}
}

// Available reports whether a synthesizer is present and currently usable.
func (o *OutputAdapter) Available() bool {
	return present(o.synth)
}

// Enabled reports whether voice output is on.
func (o *OutputAdapter) Enabled() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.enabled
}

// Toggle flips voice output and returns the new setting. Turning output
// off cancels queued and in-flight speech.
func (o *OutputAdapter) Toggle() bool {
	o.mu.Lock()
	o.enabled = !o.enabled
	on := o.enabled
	o.mu.Unlock()

	if !on && present(o.synth) {
		o.synth.Cancel()
	}
	o.log.Debug().Bool("enabled", on).Msg("voice output toggled")
	return on
}

// Speak hands text to the synthesizer when output is on. Failures are
// logged and swallowed.
func (o *OutputAdapter) Speak(text string) {
	if !o.Available() || !o.Enabled() || text == "" {
		return
	}
	if err := o.synth.Speak(text); err != nil {
		metrics.UtterancesTotal.WithLabelValues("error").Inc()
		o.log.Warn().Err(err).Msg("speech synthesis failed")
		return
	}
	metrics.UtterancesTotal.WithLabelValues("ok").Inc()
}
