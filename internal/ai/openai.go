package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// OpenAI calls any OpenAI-compatible chat completion endpoint. Structured
// formats use a json_schema response format whose root object wraps the list.
type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(baseURL, apiKey, model string) *OpenAI {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAI{client: openai.NewClientWithConfig(config), model: model}
}

func (o *OpenAI) Generate(ctx context.Context, req Request) (string, error) {
	chatReq := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	}
	if name, schema := openAISchema(req.Format); schema != nil {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   name,
				Schema: schema,
			},
		}
	}

	resp, err := o.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errors.New("no response generated")
	}
	return resp.Choices[0].Message.Content, nil
}

func openAISchema(format Format) (string, *jsonschema.Definition) {
	switch format {
	case FormatQuiz:
		return "quiz", &jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"questions": {
					Type: jsonschema.Array,
					Items: &jsonschema.Definition{
						Type: jsonschema.Object,
						Properties: map[string]jsonschema.Definition{
							"question":      {Type: jsonschema.String},
							"options":       {Type: jsonschema.Array, Items: &jsonschema.Definition{Type: jsonschema.String}},
							"correctAnswer": {Type: jsonschema.String},
						},
						Required: []string{"question", "options", "correctAnswer"},
					},
				},
			},
			Required: []string{"questions"},
		}
	case FormatMindmap:
		return "mindmap", &jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"nodes": {
					Type: jsonschema.Array,
					Items: &jsonschema.Definition{
						Type: jsonschema.Object,
						Properties: map[string]jsonschema.Definition{
							"id":       {Type: jsonschema.String},
							"label":    {Type: jsonschema.String},
							"parentId": {Type: jsonschema.String, Description: "null for the root node"},
							"type": {
								Type: jsonschema.String,
								Enum: []string{string(NodeTopic), string(NodeSubtopic), string(NodeDetail)},
							},
						},
						Required: []string{"id", "label", "type"},
					},
				},
			},
			Required: []string{"nodes"},
		}
	default:
		return "", nil
	}
}
