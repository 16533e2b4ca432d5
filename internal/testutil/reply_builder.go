package testutil

import "strings"

// ReplyBuilder provides a fluent helper for writing tagged model replies.
// Example:
//
//	reply := NewReplyBuilder().Thought("look it up").Action("search", `{"q": "go"}`).Build()
//
// Chain only the fields you need; they are emitted in call order.
type ReplyBuilder struct {
	sb   strings.Builder
	root bool
}

// NewReplyBuilder creates a builder without the root marker.
func NewReplyBuilder() *ReplyBuilder { return &ReplyBuilder{} }

// Root wraps the reply in the ignorable <response> marker (chainable).
func (b *ReplyBuilder) Root() *ReplyBuilder { b.root = true; return b }

// Thought appends a thought field (chainable).
func (b *ReplyBuilder) Thought(t string) *ReplyBuilder { return b.field("thought", t) }

// Action appends an action and its input (chainable).
func (b *ReplyBuilder) Action(name, input string) *ReplyBuilder {
	return b.field("action", name).field("action_input", input)
}

// FinalAnswer appends a null action and the final answer (chainable).
func (b *ReplyBuilder) FinalAnswer(answer string) *ReplyBuilder {
	return b.field("action", "null").field("final_answer", answer)
}

// Raw appends text verbatim (chainable).
func (b *ReplyBuilder) Raw(s string) *ReplyBuilder { b.sb.WriteString(s); return b }

func (b *ReplyBuilder) field(tag, content string) *ReplyBuilder {
	b.sb.WriteString("<" + tag + ">" + content + "</" + tag + ">")
	return b
}

// Build returns the reply text.
func (b *ReplyBuilder) Build() string {
	if b.root {
		return "<response>" + b.sb.String() + "</response>"
	}
	return b.sb.String()
}

// Answer is shorthand for a reply that only carries a final answer.
func Answer(thought, answer string) string {
	return NewReplyBuilder().Thought(thought).FinalAnswer(answer).Build()
}

// Call is shorthand for a reply that invokes a tool.
func Call(thought, name, input string) string {
	return NewReplyBuilder().Thought(thought).Action(name, input).Build()
}
