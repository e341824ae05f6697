package machine

import "github.com/chartrun/machine/charter"

// InputKind discriminates the three ways a turn can begin (§4.7 step 1).
type InputKind string

const (
	// InputUser starts a turn from a plain user message.
	InputUser InputKind = "user"
	// InputCommand records that a command already ran (via command.Run)
	// and its invocation/result messages should seed this turn's history
	// before inference resumes.
	InputCommand InputKind = "command"
	// InputResume continues a suspended instance.
	InputResume InputKind = "resume"
)

// Input is the tagged union runMachine accepts.
type Input struct {
	Kind InputKind

	// Text is the user message body, set when Kind == InputUser.
	Text string

	// Messages seeds the queue directly, set when Kind == InputCommand.
	Messages []charter.Message

	// SuspendID, Payload, and IsError describe the resume, set when
	// Kind == InputResume (§4.7 "Resume path").
	SuspendID string
	Payload   any
	IsError   bool
}

// UserInput builds a plain user-message Input.
func UserInput(text string) Input {
	return Input{Kind: InputUser, Text: text}
}

// CommandInput builds an Input that seeds a turn's history with messages a
// command invocation already produced (via command.Run) before inference
// continues.
func CommandInput(messages ...charter.Message) Input {
	return Input{Kind: InputCommand, Messages: messages}
}

// ResumeInput builds a resume Input.
func ResumeInput(suspendID string, payload any, isError bool) Input {
	return Input{Kind: InputResume, SuspendID: suspendID, Payload: payload, IsError: isError}
}
