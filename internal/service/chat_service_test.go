package service

import (
	"context"
	"errors"
	"testing"

	"backend/internal/llm"
	"backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeModel replays scripted replies and records every prompt it receives.
// When the script runs out the last reply repeats, which is how the
// pathological always-calling model is expressed.
type fakeModel struct {
	replies []llm.Reply
	err     error
	prompts []llm.Prompt
}

func (f *fakeModel) Complete(_ context.Context, prompt llm.Prompt) (*llm.Reply, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return nil, f.err
	}
	idx := len(f.prompts) - 1
	if idx >= len(f.replies) {
		idx = len(f.replies) - 1
	}
	reply := f.replies[idx]
	return &reply, nil
}

func newChatFixture(t *testing.T, client llm.Client) (*serviceFixture, ChatService) {
	t.Helper()
	f := newFixture(t)
	stats := NewStatisticsService(f.expenseRepo, f.fallback)
	return f, NewChatService(client, f.service, stats)
}

func TestChatNotConfigured(t *testing.T) {
	_, chat := newChatFixture(t, nil)

	assert.False(t, chat.IsConfigured())

	resp := chat.ProcessMessage(context.Background(), model.ChatRequest{Message: "hello"})
	assert.True(t, resp.Success)
	assert.Contains(t, resp.Response, "not configured")
	assert.Contains(t, resp.Response, "GEMINI_API_KEY")
}

func TestChatPlainAnswer(t *testing.T) {
	fake := &fakeModel{replies: []llm.Reply{{Text: "You have no expenses yet."}}}
	_, chat := newChatFixture(t, fake)

	resp := chat.ProcessMessage(context.Background(), model.ChatRequest{
		Message: "How many expenses do I have?",
		History: []model.ChatMessage{
			{Role: "user", Content: "Hi"},
			{Role: "assistant", Content: "Hello! How can I help?"},
		},
	})
	assert.True(t, resp.Success)
	assert.Equal(t, "You have no expenses yet.", resp.Response)
	assert.Empty(t, resp.Error)

	require.Len(t, fake.prompts, 1)
	prompt := fake.prompts[0]
	assert.Contains(t, prompt.System, "Expense Management System")
	assert.Len(t, prompt.Tools, 8)
	require.Len(t, prompt.Turns, 3)
	assert.Equal(t, llm.RoleUser, prompt.Turns[0].Role)
	assert.Equal(t, llm.RoleAssistant, prompt.Turns[1].Role)
	assert.Equal(t, "How many expenses do I have?", prompt.Turns[2].Content)
}

func TestChatToolThenAnswer(t *testing.T) {
	fake := &fakeModel{replies: []llm.Reply{
		{ToolCalls: []llm.ToolCall{{ID: "call-1", Name: "get_dashboard_stats", Args: map[string]interface{}{}}}},
		{Text: "You have 1 expense totalling £12.34."},
	}}
	f, chat := newChatFixture(t, fake)
	f.create(t, "12.34")

	resp := chat.ProcessMessage(context.Background(), model.ChatRequest{Message: "Summarize my spending"})
	assert.True(t, resp.Success)
	assert.Equal(t, "You have 1 expense totalling £12.34.", resp.Response)

	// Second round trip carries the assistant's call and the tool result.
	require.Len(t, fake.prompts, 2)
	turns := fake.prompts[1].Turns
	require.Len(t, turns, 3)
	assert.Equal(t, llm.RoleAssistant, turns[1].Role)
	require.Len(t, turns[1].ToolCalls, 1)
	assert.Equal(t, "get_dashboard_stats", turns[1].ToolCalls[0].Name)

	assert.Equal(t, llm.RoleTool, turns[2].Role)
	require.Len(t, turns[2].Results, 1)
	result := turns[2].Results[0]
	assert.Equal(t, "call-1", result.ID)
	require.Contains(t, result.Content, "stats")
	stats, ok := result.Content["stats"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 1, stats["total_expenses"])
}

func TestChatIterationLimit(t *testing.T) {
	fake := &fakeModel{replies: []llm.Reply{
		{ToolCalls: []llm.ToolCall{{ID: "c", Name: "get_dashboard_stats", Args: map[string]interface{}{}}}},
	}}
	_, chat := newChatFixture(t, fake)

	resp := chat.ProcessMessage(context.Background(), model.ChatRequest{Message: "loop forever"})
	assert.False(t, resp.Success)
	assert.Equal(t, "I encountered an issue processing your request. Please try again.", resp.Response)
	assert.Equal(t, "Maximum function call iterations reached", resp.Error)
	assert.Len(t, fake.prompts, maxToolIterations)
}

func TestChatUnknownFunction(t *testing.T) {
	fake := &fakeModel{replies: []llm.Reply{
		{ToolCalls: []llm.ToolCall{{ID: "c1", Name: "delete_everything", Args: map[string]interface{}{}}}},
		{Text: "I can't do that."},
	}}
	_, chat := newChatFixture(t, fake)

	resp := chat.ProcessMessage(context.Background(), model.ChatRequest{Message: "wipe the database"})
	assert.True(t, resp.Success)

	require.Len(t, fake.prompts, 2)
	turns := fake.prompts[1].Turns
	result := turns[len(turns)-1].Results[0]
	assert.Equal(t, "Unknown function: delete_everything", result.Content["error"])
}

func TestChatMissingRequiredArgument(t *testing.T) {
	fake := &fakeModel{replies: []llm.Reply{
		{ToolCalls: []llm.ToolCall{{ID: "c1", Name: "get_expense_by_id", Args: map[string]interface{}{}}}},
		{Text: "Which expense did you mean?"},
	}}
	_, chat := newChatFixture(t, fake)

	resp := chat.ProcessMessage(context.Background(), model.ChatRequest{Message: "show me the expense"})
	assert.True(t, resp.Success)

	turns := fake.prompts[1].Turns
	result := turns[len(turns)-1].Results[0]
	assert.Equal(t, "missing required parameter: expenseId", result.Content["error"])
}

func TestChatToolDrivesLifecycle(t *testing.T) {
	// Model creates an expense, then submits it, then answers.
	fake := &fakeModel{replies: []llm.Reply{
		{ToolCalls: []llm.ToolCall{{ID: "c1", Name: "create_expense", Args: map[string]interface{}{
			"userId":      float64(1),
			"categoryId":  float64(2),
			"amount":      23.5,
			"expenseDate": "2026-08-20",
			"description": "Team lunch",
		}}}},
		{ToolCalls: []llm.ToolCall{{ID: "c2", Name: "submit_expense", Args: map[string]interface{}{
			"expenseId": float64(1),
		}}}},
		{Text: "Created and submitted your £23.50 lunch expense."},
	}}
	f, chat := newChatFixture(t, fake)

	resp := chat.ProcessMessage(context.Background(), model.ChatRequest{Message: "log a £23.50 team lunch and submit it"})
	assert.True(t, resp.Success)

	expense, err := f.service.GetExpenseByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "23.50", expense.Amount)
	assert.Equal(t, model.StatusSubmitted, expense.StatusID)
}

func TestChatGuardFailureIsSoftError(t *testing.T) {
	fake := &fakeModel{replies: []llm.Reply{
		{ToolCalls: []llm.ToolCall{{ID: "c1", Name: "approve_expense", Args: map[string]interface{}{
			"expenseId":  float64(1),
			"reviewerId": float64(2),
		}}}},
		{Text: "That expense is not awaiting approval."},
	}}
	f, chat := newChatFixture(t, fake)
	f.create(t, "10.00") // still Draft

	resp := chat.ProcessMessage(context.Background(), model.ChatRequest{Message: "approve expense 1"})
	assert.True(t, resp.Success)

	turns := fake.prompts[1].Turns
	result := turns[len(turns)-1].Results[0]
	assert.Equal(t,
		"Expense not found or cannot be approved (only Submitted expenses can be approved).",
		result.Content["error"])
}

func TestChatModelError(t *testing.T) {
	fake := &fakeModel{err: errors.New("rate limited")}
	_, chat := newChatFixture(t, fake)

	resp := chat.ProcessMessage(context.Background(), model.ChatRequest{Message: "hello"})
	assert.False(t, resp.Success)
	assert.Equal(t, "I'm sorry, I encountered an error processing your request.", resp.Response)
	assert.Equal(t, "rate limited", resp.Error)
}

func TestChatEmptyModelText(t *testing.T) {
	fake := &fakeModel{replies: []llm.Reply{{Text: "   "}}}
	_, chat := newChatFixture(t, fake)

	resp := chat.ProcessMessage(context.Background(), model.ChatRequest{Message: "hello"})
	assert.True(t, resp.Success)
	assert.Equal(t, "I couldn't process your request.", resp.Response)
}
