package report

import (
	"encoding/json"
	"fmt"
	"iter"
	"maps"
	"regexp"
	"slices"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
	SeverityDebug   Severity = "debug"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityError, SeverityWarning, SeverityInfo, SeverityDebug:
		return true
	}
	return false
}

// Tech holds technical troubleshooting texts.
type Tech struct {
	Cause string `json:"cause"`
}

// User holds user-friendly troubleshooting texts.
type User struct {
	Cause       string `json:"cause"`
	Consequence string `json:"consequence"`
	Suggestion  string `json:"suggestion"`
}

// Message is a troubleshooting message attached to an outcome.
type Message struct {
	Severity Severity `json:"severity"`
	Tech     Tech     `json:"tech"`
	User     User     `json:"user"`
}

func NewMessage(severity Severity, techCause, userCause, consequence, suggestion string) Message {
	return Message{
		Severity: severity,
		Tech:     Tech{Cause: techCause},
		User:     User{Cause: userCause, Consequence: consequence, Suggestion: suggestion},
	}
}

func ErrorMessage(techCause, userCause, consequence, suggestion string) Message {
	return NewMessage(SeverityError, techCause, userCause, consequence, suggestion)
}

func DebugMessage(techCause, userCause, consequence, suggestion string) Message {
	return NewMessage(SeverityDebug, techCause, userCause, consequence, suggestion)
}

var codePattern = regexp.MustCompile(`^[0-9]{4}$`)

// Outcome is the result and/or messages of an execution.
// Messages are keyed by a four-digit code, e.g. "1234".
type Outcome struct {
	Result   any                `json:"result"`
	Messages map[string]Message `json:"messages"`
}

// Validate checks message codes and severities.
func (o Outcome) Validate() error {
	for code, msg := range o.Messages {
		if !codePattern.MatchString(code) {
			return fmt.Errorf("%w: %q", ErrInvalidCode, code)
		}
		if !msg.Severity.Valid() {
			return fmt.Errorf("message %s: %w: %q", code, ErrUnknownSeverity, msg.Severity)
		}
	}
	return nil
}

// Empty reports whether there is neither a result nor any message.
func (o Outcome) Empty() bool {
	return o.Result == nil && len(o.Messages) == 0
}

// Errors yields the error messages ordered by code.
func (o Outcome) Errors() iter.Seq2[string, Message] {
	return func(yield func(string, Message) bool) {
		for _, code := range slices.Sorted(maps.Keys(o.Messages)) {
			msg := o.Messages[code]
			if msg.Severity != SeverityError {
				continue
			}
			if !yield(code, msg) {
				return
			}
		}
	}
}

func (o Outcome) FirstError() (string, Message, bool) {
	for code, msg := range o.Errors() {
		return code, msg, true
	}
	return "", Message{}, false
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	type plain Outcome
	if o.Messages == nil {
		o.Messages = map[string]Message{}
	}
	return json.Marshal(plain(o))
}
