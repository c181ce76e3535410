package llm

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

// DefaultModel is used when GEMINI_MODEL is not set.
const DefaultModel = "gemini-2.0-flash"

const (
	maxOutputTokens = 2000
	temperature     = 0.7
)

// GeminiClient implements Client on the Google GenAI SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiClient{client: client, model: model}, nil
}

func (c *GeminiClient) Complete(ctx context.Context, prompt Prompt) (*Reply, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](temperature),
		MaxOutputTokens: maxOutputTokens,
	}
	if prompt.System != "" {
		config.SystemInstruction = genai.NewContentFromText(prompt.System, genai.RoleUser)
	}
	if len(prompt.Tools) > 0 {
		declarations := make([]*genai.FunctionDeclaration, 0, len(prompt.Tools))
		for _, tool := range prompt.Tools {
			declarations = append(declarations, &genai.FunctionDeclaration{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			})
		}
		config.Tools = []*genai.Tool{{FunctionDeclarations: declarations}}
	}

	contents := make([]*genai.Content, 0, len(prompt.Turns))
	for _, turn := range prompt.Turns {
		content, err := toContent(turn)
		if err != nil {
			return nil, err
		}
		contents = append(contents, content)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("model call failed: %w", err)
	}

	reply := &Reply{Text: resp.Text()}
	for _, call := range resp.FunctionCalls() {
		id := call.ID
		if id == "" {
			// The Gemini API does not always assign call ids; results must
			// still be keyed back to their call.
			id = uuid.NewString()
		}
		reply.ToolCalls = append(reply.ToolCalls, ToolCall{ID: id, Name: call.Name, Args: call.Args})
	}
	return reply, nil
}

func toContent(turn Turn) (*genai.Content, error) {
	switch turn.Role {
	case RoleUser:
		return genai.NewContentFromText(turn.Content, genai.RoleUser), nil

	case RoleAssistant:
		var parts []*genai.Part
		if turn.Content != "" {
			parts = append(parts, genai.NewPartFromText(turn.Content))
		}
		for _, call := range turn.ToolCalls {
			parts = append(parts, &genai.Part{
				FunctionCall: &genai.FunctionCall{ID: call.ID, Name: call.Name, Args: call.Args},
			})
		}
		if len(parts) == 0 {
			parts = append(parts, genai.NewPartFromText(""))
		}
		return &genai.Content{Role: genai.RoleModel, Parts: parts}, nil

	case RoleTool:
		parts := make([]*genai.Part, 0, len(turn.Results))
		for _, result := range turn.Results {
			parts = append(parts, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					ID:       result.ID,
					Name:     result.Name,
					Response: result.Content,
				},
			})
		}
		return &genai.Content{Role: genai.RoleUser, Parts: parts}, nil

	default:
		return nil, fmt.Errorf("unknown turn role %q", turn.Role)
	}
}
