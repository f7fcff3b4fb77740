package chat

import "strings"

// ToolPolicy controls how the model is allowed to use tools for a request.
type ToolPolicy int

const (
	// PolicyAuto leaves tool use to model discretion.
	PolicyAuto ToolPolicy = iota
	// PolicyForceRetrieval requires a get_information call before the
	// model produces a free-form answer.
	PolicyForceRetrieval
)

func (p ToolPolicy) String() string {
	switch p {
	case PolicyForceRetrieval:
		return "force_retrieval"
	default:
		return "auto"
	}
}

// DecidePolicy picks the tool policy for a conversation. A conversation
// whose latest message comes from the user gets forced retrieval so the
// answer is grounded in stored notes. Follow-up turns inside an agent loop
// (latest message is a tool result or assistant turn) run on auto.
func DecidePolicy(messages []Message) ToolPolicy {
	if len(messages) == 0 {
		return PolicyAuto
	}
	if messages[len(messages)-1].Role == RoleUser {
		return PolicyForceRetrieval
	}
	return PolicyAuto
}

// HasPDF reports whether any message carries a PDF attachment.
func HasPDF(messages []Message) bool {
	for _, m := range messages {
		for _, a := range m.Attachments {
			if strings.EqualFold(a.ContentType, "application/pdf") {
				return true
			}
		}
	}
	return false
}
