package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"

	"backend/internal/llm"
	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/apperror"

	"github.com/shopspring/decimal"
	"google.golang.org/genai"
)

// maxToolIterations bounds the function-calling loop. A model that keeps
// requesting tools is cut off here rather than allowed to spin.
const maxToolIterations = 5

const chatSystemPrompt = `You are an intelligent assistant for the Expense Management System. You help users manage their expenses, view reports, and understand their spending patterns.

You have access to the following functions to interact with the expense database:
- get_expenses: Retrieve expenses with optional filters
- get_expense_by_id: Get details of a specific expense
- create_expense: Create a new expense
- submit_expense: Submit an expense for approval
- get_pending_approvals: Get expenses pending approval
- approve_expense: Approve a submitted expense
- reject_expense: Reject a submitted expense
- get_dashboard_stats: Get overall statistics

When users ask about their expenses or want to perform actions:
1. Use the appropriate function to get or modify data
2. Present the results in a clear, formatted way
3. Use bullet points or numbered lists for multiple items
4. Format currency values as £X.XX
5. Be helpful and suggest related actions the user might want to take

If the user asks about something outside the expense system, politely redirect them to expense-related topics.`

const notConfiguredResponse = "**GenAI services are not configured.**\n\n" +
	"To enable intelligent chat features, set the GEMINI_API_KEY environment " +
	"variable (and optionally GEMINI_MODEL) and restart the server. " +
	"This enables natural language interactions with your expense data."

// --- Interface ---

// ChatService bridges the conversational assistant onto the expense
// operations. Every fault is recovered into a ChatResponse; ProcessMessage
// never returns an error to the transport.
type ChatService interface {
	ProcessMessage(ctx context.Context, req model.ChatRequest) model.ChatResponse
	IsConfigured() bool
}

// chatTool pairs a model-facing declaration with its executor. Executors
// return the payload sent back to the model; errors become soft
// {"error": ...} payloads, never loop aborts.
type chatTool struct {
	def llm.ToolDefinition
	run func(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error)
}

type chatService struct {
	client   llm.Client // nil when unconfigured
	expenses ExpenseService
	stats    StatisticsService
	tools    []chatTool
	byName   map[string]chatTool
}

func NewChatService(client llm.Client, expenses ExpenseService, stats StatisticsService) ChatService {
	s := &chatService{
		client:   client,
		expenses: expenses,
		stats:    stats,
	}
	s.tools = s.buildTools()
	s.byName = make(map[string]chatTool, len(s.tools))
	for _, t := range s.tools {
		s.byName[t.def.Name] = t
	}
	return s
}

// --- Implementation ---

func (s *chatService) IsConfigured() bool {
	return s.client != nil
}

func (s *chatService) ProcessMessage(ctx context.Context, req model.ChatRequest) model.ChatResponse {
	if !s.IsConfigured() {
		return model.ChatResponse{Response: notConfiguredResponse, Success: true}
	}

	turns := historyToTurns(req.History)
	turns = append(turns, llm.Turn{Role: llm.RoleUser, Content: req.Message})

	defs := make([]llm.ToolDefinition, 0, len(s.tools))
	for _, t := range s.tools {
		defs = append(defs, t.def)
	}

	for iteration := 0; iteration < maxToolIterations; iteration++ {
		reply, err := s.client.Complete(ctx, llm.Prompt{
			System: chatSystemPrompt,
			Turns:  turns,
			Tools:  defs,
		})
		if err != nil {
			log.Printf("chat: model call failed: %v", err)
			return model.ChatResponse{
				Response: "I'm sorry, I encountered an error processing your request.",
				Success:  false,
				Error:    err.Error(),
			}
		}

		if len(reply.ToolCalls) == 0 {
			text := reply.Text
			if strings.TrimSpace(text) == "" {
				text = "I couldn't process your request."
			}
			return model.ChatResponse{Response: text, Success: true}
		}

		turns = append(turns, llm.Turn{
			Role:      llm.RoleAssistant,
			Content:   reply.Text,
			ToolCalls: reply.ToolCalls,
		})

		results := make([]llm.ToolResult, 0, len(reply.ToolCalls))
		for _, call := range reply.ToolCalls {
			results = append(results, llm.ToolResult{
				ID:      call.ID,
				Name:    call.Name,
				Content: s.executeTool(ctx, call),
			})
		}
		turns = append(turns, llm.Turn{Role: llm.RoleTool, Results: results})
	}

	return model.ChatResponse{
		Response: "I encountered an issue processing your request. Please try again.",
		Success:  false,
		Error:    "Maximum function call iterations reached",
	}
}

func (s *chatService) executeTool(ctx context.Context, call llm.ToolCall) map[string]interface{} {
	tool, ok := s.byName[call.Name]
	if !ok {
		return map[string]interface{}{"error": fmt.Sprintf("Unknown function: %s", call.Name)}
	}
	payload, err := tool.run(ctx, call.Args)
	if err != nil {
		log.Printf("chat: function %s failed: %v", call.Name, err)
		return map[string]interface{}{"error": err.Error()}
	}
	return payload
}

// --- Tool catalog ---

func (s *chatService) buildTools() []chatTool {
	return []chatTool{
		{
			def: llm.ToolDefinition{
				Name:        "get_expenses",
				Description: "Retrieves a list of expenses. Can filter by user, status, category, or search term.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"userId":     {Type: genai.TypeInteger, Description: "Filter by user ID"},
						"statusId":   {Type: genai.TypeInteger, Description: "Filter by status ID (1=Draft, 2=Submitted, 3=Approved, 4=Rejected)"},
						"categoryId": {Type: genai.TypeInteger, Description: "Filter by category ID (1=Travel, 2=Meals, 3=Supplies, 4=Accommodation, 5=Other)"},
						"searchTerm": {Type: genai.TypeString, Description: "Search in description, category, or user name"},
					},
				},
			},
			run: s.runGetExpenses,
		},
		{
			def: llm.ToolDefinition{
				Name:        "get_expense_by_id",
				Description: "Gets detailed information about a specific expense by its ID.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"expenseId": {Type: genai.TypeInteger, Description: "The ID of the expense to retrieve"},
					},
					Required: []string{"expenseId"},
				},
			},
			run: s.runGetExpenseByID,
		},
		{
			def: llm.ToolDefinition{
				Name:        "create_expense",
				Description: "Creates a new expense entry.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"userId":      {Type: genai.TypeInteger, Description: "The user ID who is creating the expense"},
						"categoryId":  {Type: genai.TypeInteger, Description: "Category ID (1=Travel, 2=Meals, 3=Supplies, 4=Accommodation, 5=Other)"},
						"amount":      {Type: genai.TypeNumber, Description: "Amount in GBP"},
						"expenseDate": {Type: genai.TypeString, Description: "Date of the expense in YYYY-MM-DD format"},
						"description": {Type: genai.TypeString, Description: "Description of the expense"},
					},
					Required: []string{"userId", "categoryId", "amount", "expenseDate"},
				},
			},
			run: s.runCreateExpense,
		},
		{
			def: llm.ToolDefinition{
				Name:        "submit_expense",
				Description: "Submits a draft expense for approval.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"expenseId": {Type: genai.TypeInteger, Description: "The ID of the expense to submit"},
					},
					Required: []string{"expenseId"},
				},
			},
			run: s.runSubmitExpense,
		},
		{
			def: llm.ToolDefinition{
				Name:        "get_pending_approvals",
				Description: "Gets all expenses that are waiting for approval.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"searchTerm": {Type: genai.TypeString, Description: "Optional search term to filter pending approvals"},
					},
				},
			},
			run: s.runGetPendingApprovals,
		},
		{
			def: llm.ToolDefinition{
				Name:        "approve_expense",
				Description: "Approves a submitted expense. Only managers can do this.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"expenseId":  {Type: genai.TypeInteger, Description: "The ID of the expense to approve"},
						"reviewerId": {Type: genai.TypeInteger, Description: "The user ID of the manager approving"},
					},
					Required: []string{"expenseId", "reviewerId"},
				},
			},
			run: s.runApproveExpense,
		},
		{
			def: llm.ToolDefinition{
				Name:        "reject_expense",
				Description: "Rejects a submitted expense. Only managers can do this.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"expenseId":  {Type: genai.TypeInteger, Description: "The ID of the expense to reject"},
						"reviewerId": {Type: genai.TypeInteger, Description: "The user ID of the manager rejecting"},
					},
					Required: []string{"expenseId", "reviewerId"},
				},
			},
			run: s.runRejectExpense,
		},
		{
			def: llm.ToolDefinition{
				Name:        "get_dashboard_stats",
				Description: "Gets overall statistics including total expenses, pending approvals, and approved amounts.",
				Parameters: &genai.Schema{
					Type:       genai.TypeObject,
					Properties: map[string]*genai.Schema{},
				},
			},
			run: s.runGetDashboardStats,
		},
	}
}

// --- Tool executors ---

func (s *chatService) runGetExpenses(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	userID, err := intArg(args, "userId")
	if err != nil {
		return nil, err
	}
	statusID, err := intArg(args, "statusId")
	if err != nil {
		return nil, err
	}
	categoryID, err := intArg(args, "categoryId")
	if err != nil {
		return nil, err
	}

	expenses, err := s.expenses.GetExpenses(ctx, repository.ExpenseFilter{
		UserID:     userID,
		StatusID:   statusID,
		CategoryID: categoryID,
		SearchTerm: stringArg(args, "searchTerm"),
	})
	// Degraded reads still carry usable fallback data for the model.
	if err != nil && !apperror.IsStoreUnavailable(err) {
		return nil, err
	}
	return map[string]interface{}{
		"expenses": toolJSON(expenses),
		"count":    len(expenses),
	}, nil
}

func (s *chatService) runGetExpenseByID(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	expenseID, err := requiredIntArg(args, "expenseId")
	if err != nil {
		return nil, err
	}
	expense, err := s.expenses.GetExpenseByID(ctx, expenseID)
	if err != nil && !apperror.IsStoreUnavailable(err) {
		return nil, err
	}
	return map[string]interface{}{"expense": toolJSON(expense)}, nil
}

func (s *chatService) runCreateExpense(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	userID, err := requiredIntArg(args, "userId")
	if err != nil {
		return nil, err
	}
	categoryID, err := requiredIntArg(args, "categoryId")
	if err != nil {
		return nil, err
	}
	amount, err := requiredNumberArg(args, "amount")
	if err != nil {
		return nil, err
	}
	expenseDate := stringArg(args, "expenseDate")
	if expenseDate == "" {
		return nil, fmt.Errorf("missing required parameter: expenseDate")
	}

	var description *string
	if d := stringArg(args, "description"); d != "" {
		description = &d
	}

	expense, err := s.expenses.CreateExpense(ctx, CreateExpenseRequest{
		UserID:      userID,
		CategoryID:  categoryID,
		Amount:      decimal.NewFromFloat(amount).StringFixed(2),
		ExpenseDate: expenseDate,
		Description: description,
	})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"success":    true,
		"expense_id": expense.ExpenseID,
		"expense":    toolJSON(expense),
	}, nil
}

func (s *chatService) runSubmitExpense(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	expenseID, err := requiredIntArg(args, "expenseId")
	if err != nil {
		return nil, err
	}
	expense, err := s.expenses.SubmitExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"success": true, "expense": toolJSON(expense)}, nil
}

func (s *chatService) runGetPendingApprovals(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	expenses, err := s.expenses.GetPendingApprovals(ctx, stringArg(args, "searchTerm"))
	if err != nil && !apperror.IsStoreUnavailable(err) {
		return nil, err
	}
	return map[string]interface{}{
		"expenses": toolJSON(expenses),
		"count":    len(expenses),
	}, nil
}

func (s *chatService) runApproveExpense(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	return s.runReview(ctx, args, s.expenses.ApproveExpense)
}

func (s *chatService) runRejectExpense(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	return s.runReview(ctx, args, s.expenses.RejectExpense)
}

func (s *chatService) runReview(ctx context.Context, args map[string]interface{}, review func(context.Context, int, int) (ExpenseResponse, error)) (map[string]interface{}, error) {
	expenseID, err := requiredIntArg(args, "expenseId")
	if err != nil {
		return nil, err
	}
	reviewerID, err := requiredIntArg(args, "reviewerId")
	if err != nil {
		return nil, err
	}
	expense, err := review(ctx, expenseID, reviewerID)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"success": true, "expense": toolJSON(expense)}, nil
}

func (s *chatService) runGetDashboardStats(ctx context.Context, _ map[string]interface{}) (map[string]interface{}, error) {
	stats, err := s.stats.GetDashboardStats(ctx)
	if err != nil && !apperror.IsStoreUnavailable(err) {
		return nil, err
	}
	return map[string]interface{}{"stats": toolJSON(stats)}, nil
}

// --- Helpers ---

func historyToTurns(history []model.ChatMessage) []llm.Turn {
	turns := make([]llm.Turn, 0, len(history)+1)
	for _, msg := range history {
		switch strings.ToLower(msg.Role) {
		case llm.RoleUser:
			turns = append(turns, llm.Turn{Role: llm.RoleUser, Content: msg.Content})
		case llm.RoleAssistant:
			turns = append(turns, llm.Turn{Role: llm.RoleAssistant, Content: msg.Content})
		}
	}
	return turns
}

// toolJSON round-trips a value through JSON so tool payloads consist only of
// plain maps, slices and scalars.
func toolJSON(v interface{}) interface{} {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func requiredIntArg(args map[string]interface{}, key string) (int, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("missing required parameter: %s", key)
	}
	return coerceInt(v, key)
}

// intArg returns nil when the argument is absent.
func intArg(args map[string]interface{}, key string) (*int, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return nil, nil
	}
	n, err := coerceInt(v, key)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func requiredNumberArg(args map[string]interface{}, key string) (float64, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("missing required parameter: %s", key)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("parameter %s must be a number", key)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("parameter %s must be a number", key)
	}
}

func stringArg(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// coerceInt accepts the numeric shapes JSON decoding produces.
func coerceInt(v interface{}, key string) (int, error) {
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case float32:
		return int(n), nil
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("parameter %s must be an integer", key)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("parameter %s must be an integer", key)
	}
}
