package model

// ChatMessage is one prior turn of the assistant conversation.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// ChatRequest is the inbound chat payload: a new message plus optional
// conversation history, oldest first.
type ChatRequest struct {
	Message string        `json:"message" binding:"required"`
	History []ChatMessage `json:"history"`
}

// ChatResponse is the assistant's reply. Faults inside the assistant are
// recovered into a polite response with Success=false — never an HTTP error.
type ChatResponse struct {
	Response string `json:"response"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}
