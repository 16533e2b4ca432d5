package parser

import (
	"fmt"
	"io"
)

// Sink receives progressive output while a reply is parsed.
type Sink interface {
	// FieldStart is called the first time a streaming field opens.
	FieldStart(f Field)
	// Write receives streamed content. f is empty for stray text echoed
	// outside any field.
	Write(f Field, text string)
}

// NopSink discards all output.
type NopSink struct{}

// FieldStart implements Sink.
func (NopSink) FieldStart(Field) {}

// Write implements Sink.
func (NopSink) Write(Field, string) {}

// WriterSink renders streamed fields to an io.Writer with short markers,
// the way the console shows progress.
type WriterSink struct {
	w io.Writer
}

// NewWriterSink returns a Sink writing to w.
func NewWriterSink(w io.Writer) *WriterSink { return &WriterSink{w: w} }

// FieldStart implements Sink.
func (s *WriterSink) FieldStart(f Field) {
	switch f {
	case FieldThought:
		fmt.Fprint(s.w, "[THINK] ")
	case FieldFinalAnswer:
		fmt.Fprint(s.w, "\n[RESPONSE] ")
	}
}

// Write implements Sink.
func (s *WriterSink) Write(_ Field, text string) {
	_, _ = io.WriteString(s.w, text)
}
