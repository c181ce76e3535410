// Package llm abstracts the language model behind the chat assistant. The
// chat loop drives the Client interface; the only production implementation
// talks to the Gemini API. Tests script the interface directly.
package llm

import (
	"context"

	"google.golang.org/genai"
)

// Conversation roles understood by the bridge.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolDefinition declares one callable function to the model: name, purpose
// and a JSON-schema parameter contract.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  *genai.Schema
}

// ToolCall is a function invocation requested by the model.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]interface{}
}

// ToolResult carries one executed call's payload back to the model, keyed by
// the call id it answers.
type ToolResult struct {
	ID      string
	Name    string
	Content map[string]interface{}
}

// Turn is one message of the conversation sent to the model.
type Turn struct {
	Role      string
	Content   string
	ToolCalls []ToolCall   // assistant turns that requested tools
	Results   []ToolResult // tool turns answering those requests
}

// Prompt is a complete model request: system instruction, the conversation so
// far, and the tool catalog the model may draw on.
type Prompt struct {
	System string
	Turns  []Turn
	Tools  []ToolDefinition
}

// Reply is the model's answer: final text, or one or more tool calls.
type Reply struct {
	Text      string
	ToolCalls []ToolCall
}

// Client is the minimal model surface the chat loop needs.
type Client interface {
	Complete(ctx context.Context, prompt Prompt) (*Reply, error)
}
