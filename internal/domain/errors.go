package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnrecognizedVocabulary is returned when a string does not name a value of a closed vocabulary.
	ErrUnrecognizedVocabulary = errors.New("sensorlog: unrecognized vocabulary value")
	// ErrInvalidMeasurement rejects non-finite measurements and negative or non-finite durations.
	ErrInvalidMeasurement = errors.New("sensorlog: invalid measurement")
	// ErrSinkUnavailable indicates the broker could not be reached or was never started.
	ErrSinkUnavailable = errors.New("sensorlog: sink unavailable")
	// ErrSinkSendFailed indicates the broker accepted the connection but rejected or lost the payload.
	ErrSinkSendFailed = errors.New("sensorlog: sink send failed")
	// ErrPipelineClosed is reported for dispatches attempted after Close.
	ErrPipelineClosed = errors.New("sensorlog: pipeline closed")
	// ErrChannelBrokerClosed is returned by a channel broker after Stop.
	ErrChannelBrokerClosed = errors.New("sensorlog: channel broker closed")
)

// UnrecognizedVocabularyError names the offending input and the set it was checked against.
type UnrecognizedVocabularyError struct {
	Vocabulary string
	Value      string
	Expected   []string
}

func (e *UnrecognizedVocabularyError) Error() string {
	return fmt.Sprintf("%s: %q is not a %s (expected one of: %s)",
		ErrUnrecognizedVocabulary, e.Value, e.Vocabulary, strings.Join(e.Expected, ", "))
}

func (e *UnrecognizedVocabularyError) Is(target error) bool {
	return target == ErrUnrecognizedVocabulary
}
