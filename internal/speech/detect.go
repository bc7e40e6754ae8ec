package speech

import (
	"github.com/soyeahso/campusbot/internal/config"
	"github.com/soyeahso/campusbot/internal/logging"
)

// Detect returns the speech capabilities available to a local process.
// There is no local recognizer; synthesis is available when a speech
// program is installed.
func Detect(cfg config.SpeechConfig, log *logging.Logger) Capabilities {
	var caps Capabilities

	if path, ok := LookupSynthesizer(cfg.Output.Command); ok {
		caps.Synthesizer = NewCommandSynthesizer(path, cfg.Output.Args, log)
		log.Debug().Str("command", path).Msg("speech synthesizer found")
	} else {
		log.Debug().Msg("no speech synthesizer found")
	}
	return caps
}

// Merge overlays the non-nil handles of extra onto c.
func (c Capabilities) Merge(extra Capabilities) Capabilities {
	if extra.Recognizer != nil {
		c.Recognizer = extra.Recognizer
	}
	if extra.Permissions != nil {
		c.Permissions = extra.Permissions
	}
	if extra.Synthesizer != nil {
		c.Synthesizer = extra.Synthesizer
	}
	return c
}

// InputOptionsFromConfig maps speech input config onto adapter options.
func InputOptionsFromConfig(cfg config.SpeechInputConfig) InputOptions {
	return InputOptions{
		RetryDelay:  cfg.RetryDelay,
		MaxAttempts: cfg.MaxAttempts,
	}
}
