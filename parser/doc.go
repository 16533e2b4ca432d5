// Package parser implements the incremental reply parser used by reasoning
// agents. Model output arrives in arbitrary chunks (possibly split mid-tag or
// mid-rune) and carries a closed set of tagged fields:
//
//	<response>
//	<thought> ... </thought>
//	<action> tool name or null </action>
//	<action_input> {"json": "object"} </action_input>
//	<final_answer> ... </final_answer>
//	</response>
//
// thought and final_answer are streaming fields: their characters are pushed
// to a Sink as soon as they arrive. action and action_input are buffered until
// their closing tag. Any "<...>" sequence that is not one of the known tags is
// literal content of the open field.
//
// When the stream ends early, Result recovers an unclosed final_answer and a
// missing action_input from the raw buffer, and tolerates trailing garbage
// after a JSON object in action_input.
package parser
