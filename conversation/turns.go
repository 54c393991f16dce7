package conversation

import (
	"time"

	"github.com/atmosuwiryo/onboarding-chatbot/unifiedllm"
)

// TurnKind says who produced a turn.
type TurnKind string

const (
	TurnUser        TurnKind = "user"
	TurnAssistant   TurnKind = "assistant"
	TurnToolResults TurnKind = "tool_results"
)

// Turn is one entry of a Transcript. Which fields are set depends on Kind:
// user turns carry Text, assistant turns carry Text, ToolCalls, Usage and
// ResponseID, and tool-results turns carry Results.
type Turn struct {
	Kind       TurnKind                `json:"kind"`
	At         time.Time               `json:"at"`
	Text       string                  `json:"text,omitempty"`
	ToolCalls  []unifiedllm.ToolCall   `json:"tool_calls,omitempty"`
	Results    []unifiedllm.ToolResult `json:"results,omitempty"`
	Usage      unifiedllm.Usage        `json:"usage"`
	ResponseID string                  `json:"response_id,omitempty"`
}

func NewUserTurn(text string) Turn {
	return Turn{Kind: TurnUser, At: time.Now(), Text: text}
}

func NewAssistantTurn(text string, calls []unifiedllm.ToolCall, usage unifiedllm.Usage, responseID string) Turn {
	return Turn{
		Kind:       TurnAssistant,
		At:         time.Now(),
		Text:       text,
		ToolCalls:  calls,
		Usage:      usage,
		ResponseID: responseID,
	}
}

func NewToolResultsTurn(results []unifiedllm.ToolResult) Turn {
	return Turn{Kind: TurnToolResults, At: time.Now(), Results: results}
}

// Transcript is the ordered history of a session. It only grows.
type Transcript []Turn

// Messages renders the transcript for a completion request. The system
// instruction is sent separately.
func (tr Transcript) Messages() []unifiedllm.Message {
	messages := make([]unifiedllm.Message, 0, len(tr))
	for _, turn := range tr {
		switch turn.Kind {
		case TurnUser:
			messages = append(messages, unifiedllm.UserMessage(turn.Text))
		case TurnAssistant:
			msg := unifiedllm.AssistantMessage(turn.Text)
			for _, call := range turn.ToolCalls {
				msg.Content = append(msg.Content, unifiedllm.ToolCallPart(call.ID, call.Name, call.Arguments))
			}
			messages = append(messages, msg)
		case TurnToolResults:
			for _, r := range turn.Results {
				messages = append(messages, unifiedllm.ToolResultMessage(r.ToolCallID, r.Name, r.Content, r.IsError))
			}
		}
	}
	return messages
}
