package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Field is one of the recognized reply fields.
type Field string

const (
	FieldThought     Field = "thought"
	FieldAction      Field = "action"
	FieldActionInput Field = "action_input"
	FieldFinalAnswer Field = "final_answer"
)

// rootTag wraps the fields and carries no content.
const rootTag = "response"

type state int

const (
	stateText state = iota
	stateTagOpenPending
	stateTagName
)

func fieldFor(name string) (Field, bool) {
	switch Field(name) {
	case FieldThought, FieldAction, FieldActionInput, FieldFinalAnswer:
		return Field(name), true
	}
	return "", false
}

func isStreaming(f Field) bool {
	return f == FieldThought || f == FieldFinalAnswer
}

// isNullContent reports whether trimmed field content counts as absent.
func isNullContent(s string) bool {
	return s == "" || strings.EqualFold(s, "null")
}

// ResponseStreamParser is a character-level state machine over tagged model
// output. It is not safe for concurrent use: chunks must be fed in order from
// a single goroutine.
type ResponseStreamParser struct {
	sink Sink

	state    state
	tagBuf   strings.Builder
	inEndTag bool

	current Field
	content strings.Builder

	raw     strings.Builder
	pending string

	values  map[Field]string
	nulls   map[Field]bool
	started map[Field]bool

	inFinalAnswer      bool
	finalAnswerStarted bool
	finalAnswerStart   int
}

// New returns a parser that streams progressive output to sink. A nil sink
// discards output.
func New(sink Sink) *ResponseStreamParser {
	if sink == nil {
		sink = NopSink{}
	}

	return &ResponseStreamParser{
		sink:             sink,
		values:           map[Field]string{},
		nulls:            map[Field]bool{},
		started:          map[Field]bool{},
		finalAnswerStart: -1,
	}
}

// Parse runs a complete reply through a fresh parser.
func Parse(text string) *Parsed {
	p := New(nil)
	p.Feed(text)

	return p.Result()
}

// Feed consumes the next chunk. Chunks may split runes; incomplete UTF-8
// sequences are held until the rest arrives.
func (p *ResponseStreamParser) Feed(chunk string) {
	p.pending += chunk

	for len(p.pending) > 0 {
		if !utf8.FullRuneInString(p.pending) {
			return
		}

		r, size := utf8.DecodeRuneInString(p.pending)
		ch := p.pending[:size]
		p.pending = p.pending[size:]

		p.raw.WriteString(ch)
		p.processRune(r, ch)
	}
}

// Raw returns everything fed so far.
func (p *ResponseStreamParser) Raw() string { return p.raw.String() + p.pending }

func (p *ResponseStreamParser) processRune(r rune, ch string) {
	switch p.state {
	case stateText:
		if r == '<' {
			p.state = stateTagOpenPending
			p.tagBuf.Reset()
			p.inEndTag = false

			return
		}

		if p.current != "" {
			p.content.WriteString(ch)
			p.emit(ch)
		}
	case stateTagOpenPending:
		switch {
		case r == '<':
			p.literal("<")
			p.tagBuf.Reset()
		case r == '/':
			p.inEndTag = true
			p.state = stateTagName
		case unicode.IsLetter(r) || r == '_':
			p.tagBuf.WriteString(ch)
			p.state = stateTagName
		default:
			p.literal("<" + ch)
			p.state = stateText
		}
	case stateTagName:
		switch {
		case r == '>':
			p.state = stateText
			p.tagComplete()
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			p.tagBuf.WriteString(ch)
		case r == '<':
			// "a<b</thought>": the pending text is literal, a new tag may start here.
			p.literal(p.tagPrefix() + p.tagBuf.String())
			p.tagBuf.Reset()
			p.inEndTag = false
			p.state = stateTagOpenPending
		default:
			p.literal(p.tagPrefix() + p.tagBuf.String() + ch)
			p.state = stateText
		}
	}
}

func (p *ResponseStreamParser) tagPrefix() string {
	if p.inEndTag {
		return "</"
	}
	return "<"
}

// emit pushes streamed content of the open field to the sink. final_answer
// swallows leading whitespace until the first visible character.
func (p *ResponseStreamParser) emit(text string) {
	if !isStreaming(p.current) {
		return
	}

	if p.current == FieldFinalAnswer && !p.finalAnswerStarted {
		trimmed := strings.TrimLeftFunc(text, unicode.IsSpace)
		if trimmed == "" {
			return
		}

		p.finalAnswerStarted = true
		text = trimmed
	}

	p.sink.Write(p.current, text)
}

// literal treats text as content of the open field, or echoes it when no
// field is open but output has already begun.
func (p *ResponseStreamParser) literal(text string) {
	if p.current != "" {
		p.content.WriteString(text)
		p.emit(text)

		return
	}

	if len(p.started) > 0 {
		p.sink.Write("", text)
	}
}

func (p *ResponseStreamParser) tagComplete() {
	name := p.tagBuf.String()

	if name == rootTag {
		return
	}

	field, ok := fieldFor(name)
	if !ok {
		p.literal(p.tagPrefix() + name + ">")
		return
	}

	if p.inEndTag {
		if p.current != field {
			p.literal("</" + name + ">")
			return
		}

		p.closeField()

		return
	}

	// Inside final_answer every tag is content.
	if p.inFinalAnswer && p.current == FieldFinalAnswer {
		p.literal("<" + name + ">")
		return
	}

	p.current = field
	p.content.Reset()

	if field == FieldFinalAnswer {
		p.inFinalAnswer = true
		p.finalAnswerStarted = false
		p.finalAnswerStart = p.raw.Len()
	}

	if !p.started[field] {
		p.started[field] = true
		if isStreaming(field) {
			p.sink.FieldStart(field)
		}
	}
}

func (p *ResponseStreamParser) closeField() {
	value := strings.TrimSpace(p.content.String())
	p.values[p.current] = value
	p.nulls[p.current] = isNullContent(value)

	if p.current == FieldFinalAnswer {
		p.inFinalAnswer = false
		p.finalAnswerStarted = false
	}

	p.current = ""
	p.content.Reset()
}
