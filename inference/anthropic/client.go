// Package anthropic provides an inference.Backend implementation backed by
// the Anthropic Claude Messages API via github.com/anthropics/anthropic-sdk-go.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/chartrun/machine/inference"
)

// MessagesClient captures the subset of the Anthropic SDK client the
// adapter uses. It is satisfied by *sdk.MessageService so callers can pass
// either a real client or a mock in tests.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Options configures the Anthropic backend.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// Client implements inference.Backend on top of Anthropic Claude Messages.
type Client struct {
	msg   MessagesClient
	model string
	maxT  int
	temp  float64
}

// New builds an Anthropic-backed inference.Backend.
func New(msg MessagesClient, opts Options) (*Client, error) {
	if msg == nil {
		return nil, errors.New("anthropic: messages client is required")
	}
	if opts.Model == "" {
		return nil, errors.New("anthropic: model identifier is required")
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Client{msg: msg, model: opts.Model, maxT: maxTokens, temp: opts.Temperature}, nil
}

// NewFromAPIKey constructs a client using the default Anthropic HTTP client,
// authenticated with the given apiKey, which must be non-empty.
func NewFromAPIKey(apiKey, modelID string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic: api key is required")
	}
	c := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&c.Messages, Options{Model: modelID})
}

// Infer issues a non-streaming Messages.New request and translates the
// response into inference.Response.
func (c *Client) Infer(ctx context.Context, req inference.Request) (inference.Response, error) {
	params, err := c.prepareRequest(req)
	if err != nil {
		return inference.Response{}, err
	}
	msg, err := c.msg.New(ctx, *params)
	if err != nil {
		return inference.Response{}, fmt.Errorf("anthropic messages.new: %w", err)
	}
	return translateResponse(msg), nil
}

func (c *Client) prepareRequest(req inference.Request) (*sdk.MessageNewParams, error) {
	msgs, err := encodeHistory(req.History)
	if err != nil {
		return nil, err
	}
	if req.User != "" {
		msgs = append(msgs, sdk.NewUserMessage(sdk.NewTextBlock(req.User)))
	}
	if len(msgs) == 0 {
		return nil, errors.New("anthropic: at least one message is required")
	}
	params := &sdk.MessageNewParams{
		MaxTokens: int64(c.maxT),
		Messages:  msgs,
		Model:     sdk.Model(c.model),
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	if len(req.Tools) > 0 {
		toolParams, err := encodeTools(req.Tools)
		if err != nil {
			return nil, err
		}
		params.Tools = toolParams
	}
	if c.temp > 0 {
		params.Temperature = sdk.Float(c.temp)
	}
	return params, nil
}

func encodeHistory(history []inference.HistoryMessage) ([]sdk.MessageParam, error) {
	out := make([]sdk.MessageParam, 0, len(history))
	for _, m := range history {
		blocks := make([]sdk.ContentBlockParamUnion, 0, len(m.Content))
		for _, b := range m.Content {
			switch b.Type {
			case "text":
				if b.Text != "" {
					blocks = append(blocks, sdk.NewTextBlock(b.Text))
				}
			case "tool_use":
				blocks = append(blocks, sdk.NewToolUseBlock(b.ID, b.Input, b.Name))
			case "tool_result":
				content, err := encodeToolResultContent(b.Result)
				if err != nil {
					return nil, fmt.Errorf("anthropic: tool result %q: %w", b.ToolUseID, err)
				}
				blocks = append(blocks, sdk.NewToolResultBlock(b.ToolUseID, content, b.IsError))
			}
		}
		if len(blocks) == 0 {
			continue
		}
		switch m.Role {
		case "user":
			out = append(out, sdk.NewUserMessage(blocks...))
		case "assistant":
			out = append(out, sdk.NewAssistantMessage(blocks...))
		default:
			return nil, fmt.Errorf("anthropic: unsupported history role %q", m.Role)
		}
	}
	return out, nil
}

// encodeToolResultContent stringifies a tool result for the Anthropic
// tool_result content block, which expects plain text.
func encodeToolResultContent(result any) (string, error) {
	if s, ok := result.(string); ok {
		return s, nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func encodeTools(defs []inference.ToolDef) ([]sdk.ToolUnionParam, error) {
	out := make([]sdk.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		schema, err := encodeSchema(def.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("anthropic: tool %q schema: %w", def.Name, err)
		}
		u := sdk.ToolUnionParamOfTool(schema, def.Name)
		if u.OfTool != nil {
			u.OfTool.Description = sdk.String(def.Description)
		}
		out = append(out, u)
	}
	return out, nil
}

func encodeSchema(schema map[string]any) (sdk.ToolInputSchemaParam, error) {
	if schema == nil {
		return sdk.ToolInputSchemaParam{}, nil
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return sdk.ToolInputSchemaParam{}, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return sdk.ToolInputSchemaParam{}, err
	}
	return sdk.ToolInputSchemaParam{ExtraFields: m}, nil
}

func translateResponse(msg *sdk.Message) inference.Response {
	resp := inference.Response{}
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			if block.Text == "" {
				continue
			}
			resp.Content = append(resp.Content, inference.ContentBlock{Type: "text", Text: block.Text})
		case "tool_use":
			var input map[string]any
			_ = json.Unmarshal(block.Input, &input)
			resp.Content = append(resp.Content, inference.ContentBlock{
				Type:  "tool_use",
				ID:    block.ID,
				Name:  block.Name,
				Input: input,
			})
		case "thinking":
			resp.Content = append(resp.Content, inference.ContentBlock{Type: "thinking", Text: block.Thinking})
		}
	}
	switch msg.StopReason {
	case "end_turn", "stop_sequence":
		resp.StopReason = inference.StopEndTurn
	case "max_tokens":
		resp.StopReason = inference.StopMaxTokens
	default:
		resp.StopReason = inference.StopToolUse
	}
	return resp
}
