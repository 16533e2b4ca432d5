package parser

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

const (
	actionInputOpen  = "<action_input>"
	actionInputClose = "</action_input>"
)

// Parsed holds the fields extracted from one reply. Every field is optional:
// nil means the tag was absent or carried null content.
type Parsed struct {
	Thought *string `json:"thought,omitempty"`
	Action  *string `json:"action,omitempty"`
	// ActionInput is the raw trimmed action_input text.
	ActionInput *string `json:"action_input,omitempty"`
	// Params is ActionInput decoded as a JSON object. It is an empty map for
	// null/none/empty input and nil when the text is not a JSON object.
	Params      map[string]any `json:"params,omitempty"`
	FinalAnswer *string        `json:"final_answer,omitempty"`
}

// ToolName returns the requested tool, if any.
func (p *Parsed) ToolName() (string, bool) {
	if p.Action == nil {
		return "", false
	}
	return *p.Action, true
}

// Answer returns the final answer, if any.
func (p *Parsed) Answer() (string, bool) {
	if p.FinalAnswer == nil {
		return "", false
	}
	return *p.FinalAnswer, true
}

// ThoughtText returns the thought or an empty string.
func (p *Parsed) ThoughtText() string {
	if p.Thought == nil {
		return ""
	}
	return *p.Thought
}

// Result finalizes the parse. It applies truncation recovery for an unclosed
// final_answer and a missing action_input, then normalizes the fields. It
// may be called more than once.
func (p *ResponseStreamParser) Result() *Parsed {
	if p.pending != "" {
		rest := p.pending
		p.pending = ""
		p.raw.WriteString(rest)
		p.processRune(utf8.RuneError, rest)
	}

	values := make(map[Field]string, len(p.values)+2)
	nulls := make(map[Field]bool, len(p.nulls)+2)

	for k, v := range p.values {
		values[k] = v
	}

	for k, v := range p.nulls {
		nulls[k] = v
	}

	raw := p.raw.String()

	if _, closed := values[FieldFinalAnswer]; !closed && p.finalAnswerStart >= 0 {
		v := strings.TrimSpace(raw[p.finalAnswerStart:])
		values[FieldFinalAnswer] = v
		nulls[FieldFinalAnswer] = isNullContent(v)
	}

	if _, hasAction := values[FieldAction]; hasAction && !nulls[FieldAction] {
		if _, closed := values[FieldActionInput]; !closed {
			if v, ok := recoverActionInput(raw); ok {
				values[FieldActionInput] = v
				nulls[FieldActionInput] = isNullContent(v)
			}
		}
	}

	out := &Parsed{}

	if v, ok := values[FieldThought]; ok {
		out.Thought = &v
	}

	if v, ok := values[FieldAction]; ok && !nulls[FieldAction] && !strings.EqualFold(v, "none") {
		out.Action = &v
	}

	if v, ok := values[FieldActionInput]; ok {
		out.ActionInput = &v
		out.Params = decodeParams(v)
	}

	if v, ok := values[FieldFinalAnswer]; ok && !nulls[FieldFinalAnswer] && !strings.EqualFold(v, "none") {
		out.FinalAnswer = &v
	}

	return out
}

// recoverActionInput extracts the payload after the first action_input
// marker: up to its closing marker, else up to the next tag, else to the end.
func recoverActionInput(raw string) (string, bool) {
	start := strings.Index(raw, actionInputOpen)
	if start < 0 {
		return "", false
	}

	rest := raw[start+len(actionInputOpen):]

	if end := strings.Index(rest, actionInputClose); end >= 0 {
		return strings.TrimSpace(rest[:end]), true
	}

	if next := strings.Index(rest, "<"); next >= 0 {
		return strings.TrimSpace(rest[:next]), true
	}

	return strings.TrimSpace(rest), true
}

// decodeParams turns action_input text into tool parameters.
func decodeParams(s string) map[string]any {
	switch strings.ToLower(s) {
	case "", "null", "none":
		return map[string]any{}
	}

	if !strings.HasPrefix(s, "{") {
		return nil
	}

	var params map[string]any
	if err := json.Unmarshal([]byte(s), &params); err == nil {
		return params
	}

	// Tolerate trailing garbage from a truncated stream.
	if i := strings.LastIndex(s, "}"); i >= 0 {
		if err := json.Unmarshal([]byte(s[:i+1]), &params); err == nil {
			return params
		}
	}

	return nil
}
