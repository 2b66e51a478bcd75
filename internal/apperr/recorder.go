package apperr

import (
	"time"

	"github.com/rs/zerolog"
)

// ErrorCounter receives one call per recorded error.
type ErrorCounter interface {
	RecordError(kind string)
}

// Recorder writes classified errors to the log sink. Each entry carries the
// time it was recorded, the normalized error and an optional context map.
type Recorder struct {
	logger  zerolog.Logger
	counter ErrorCounter
	now     func() time.Time
}

func NewRecorder(logger zerolog.Logger, counter ErrorCounter) *Recorder {
	return &Recorder{
		logger:  logger.With().Str("component", "errors").Logger(),
		counter: counter,
		now:     time.Now,
	}
}

// Record classifies raw, logs it and returns the classified error.
func (r *Recorder) Record(raw any, fields map[string]any) *Error {
	e := Classify(raw)
	if r == nil {
		return e
	}

	var event *zerolog.Event
	switch e.Kind {
	case KindServer, KindUnknown, KindNetwork:
		event = r.logger.Error()
	default:
		event = r.logger.Warn()
	}

	event = event.
		Time("recorded_at", r.now()).
		Str("kind", string(e.Kind)).
		Str("message", e.Message)
	if e.Code != "" {
		event = event.Str("code", e.Code)
	}
	if e.Details != nil {
		event = event.Interface("details", e.Details)
	}
	if e.Cause != nil {
		event = event.AnErr("cause", e.Cause)
	}
	if len(fields) > 0 {
		event = event.Interface("context", fields)
	}
	event.Msg("classified error")

	if r.counter != nil {
		r.counter.RecordError(string(e.Kind))
	}
	return e
}
