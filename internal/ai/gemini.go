package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const DefaultGeminiModel = "gemini-2.0-flash"

// Gemini calls Google's Gemini API in JSON mode with a response schema per
// format. Several API keys may be given; a failing key rotates to the next.
type Gemini struct {
	clients    []*genai.Client
	modelName  string
	mu         sync.Mutex
	currentKey int
}

func NewGemini(ctx context.Context, apiKeys []string, modelName string) (*Gemini, error) {
	if len(apiKeys) == 0 {
		return nil, errors.New("no API keys provided")
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	g := &Gemini{modelName: modelName}
	for i, key := range apiKeys {
		client, err := genai.NewClient(ctx, option.WithAPIKey(key))
		if err != nil {
			g.Close()
			return nil, fmt.Errorf("create gemini client %d: %w", i, err)
		}
		g.clients = append(g.clients, client)
	}
	return g, nil
}

func (g *Gemini) current() (int, *genai.Client) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.currentKey, g.clients[g.currentKey]
}

// rotate moves past key idx unless another caller already did.
func (g *Gemini) rotate(idx int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.currentKey == idx {
		g.currentKey = (g.currentKey + 1) % len(g.clients)
	}
}

func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	var lastErr error
	for attempt := 0; attempt < len(g.clients); attempt++ {
		idx, client := g.current()
		model := client.GenerativeModel(g.modelName)
		if schema := geminiSchema(req.Format); schema != nil {
			model.ResponseMIMEType = "application/json"
			model.ResponseSchema = schema
		}

		resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			log.Printf("ai: gemini key %d failed: %v", idx, err)
			g.rotate(idx)
			continue
		}
		text := responseText(resp)
		if text == "" {
			return "", errors.New("no response generated")
		}
		return text, nil
	}
	return "", fmt.Errorf("gemini generate: %w", lastErr)
}

func responseText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
		// Only the first candidate with content is used.
		if b.Len() > 0 {
			break
		}
	}
	return b.String()
}

func geminiSchema(format Format) *genai.Schema {
	switch format {
	case FormatQuiz:
		return &genai.Schema{
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"question":      {Type: genai.TypeString},
					"options":       {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
					"correctAnswer": {Type: genai.TypeString},
				},
				Required: []string{"question", "options", "correctAnswer"},
			},
		}
	case FormatMindmap:
		return &genai.Schema{
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"id":       {Type: genai.TypeString},
					"label":    {Type: genai.TypeString},
					"parentId": {Type: genai.TypeString, Nullable: true},
					"type": {
						Type:   genai.TypeString,
						Format: "enum",
						Enum:   []string{string(NodeTopic), string(NodeSubtopic), string(NodeDetail)},
					},
				},
				Required: []string{"id", "label", "type"},
			},
		}
	default:
		return nil
	}
}

func (g *Gemini) Close() error {
	var errs []error
	for _, c := range g.clients {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
