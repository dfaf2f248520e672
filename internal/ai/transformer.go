package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"studynotes/api/internal/document"
)

const DefaultTimeout = 60 * time.Second

const summaryPrompt = `You are an expert summarizer. Summarize the following academic notes in bullet points, retaining the key concepts. Reply with Markdown only.

%s`

const quizPrompt = `You are an expert quiz creator. Based on the following academic notes, generate exactly %d multiple-choice questions. Each question must have:
- a question string
- %d answer options (as strings)
- the correct answer (the exact string of one of the options)

Notes:
%s`

const mindmapPrompt = `Extract a structured mind map from the following text.

It must be a JSON array of nodes where each node has:
- id: unique string identifier
- label: string (text shown in the mind map)
- parentId: null for the single root, otherwise the id of a node listed earlier
- type: one of "topic", "subtopic", "detail" depending on its depth; use "detail" for anything deeper than three levels

Here's the content to process:
%s`

const formatPrompt = `You are an expert content formatter for academic note-taking. Format this extracted text into clean, well-structured HTML.

Guidelines:
- Use h1, h2, h3, p, ul, ol, li, strong and em
- Break content into logical sections with headings
- Use lists where appropriate
- Preserve important information but improve readability
- Remove excessive whitespace and formatting artifacts
- No CSS, no scripts

Original filename: %s

Raw text to format:
%s

Return only the HTML without Markdown code blocks or explanations.`

// Transformer runs the study transforms against a Provider.
type Transformer struct {
	provider Provider
	timeout  time.Duration
}

func NewTransformer(provider Provider, timeout time.Duration) *Transformer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Transformer{provider: provider, timeout: timeout}
}

func (t *Transformer) generate(ctx context.Context, op string, req Request) (string, error) {
	if t.provider == nil {
		return "", &TransformError{Op: op, Err: errors.New("no provider configured")}
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	reply, err := t.provider.Generate(ctx, req)
	if err != nil {
		return "", &TransformError{Op: op, Err: err}
	}
	return reply, nil
}

// Summarize returns Markdown bullet points for the text.
func (t *Transformer) Summarize(ctx context.Context, plainText string) (Summary, error) {
	if strings.TrimSpace(plainText) == "" {
		return Summary{}, ErrNotEnoughContent
	}
	reply, err := t.generate(ctx, "summarize", Request{Prompt: fmt.Sprintf(summaryPrompt, plainText), Format: FormatText})
	if err != nil {
		return Summary{}, err
	}
	summary := stripFence(reply)
	if summary == "" {
		return Summary{}, &TransformError{Op: "summarize", Err: errors.New("empty summary")}
	}
	return Summary{Summary: summary}, nil
}

func (t *Transformer) GenerateQuiz(ctx context.Context, plainText string) ([]QuizQuestion, error) {
	if strings.TrimSpace(plainText) == "" {
		return nil, ErrNotEnoughContent
	}
	prompt := fmt.Sprintf(quizPrompt, QuizQuestionCount, QuizOptionCount, plainText)
	reply, err := t.generate(ctx, "quiz", Request{Prompt: prompt, Format: FormatQuiz})
	if err != nil {
		return nil, err
	}
	questions, err := decodeList[QuizQuestion](reply, "questions")
	if err != nil {
		return nil, &TransformError{Op: "quiz", Err: err}
	}
	if err := ValidateQuiz(questions); err != nil {
		return nil, &TransformError{Op: "quiz", Err: err}
	}
	return questions, nil
}

func (t *Transformer) GenerateMindmap(ctx context.Context, plainText string) ([]MindmapNode, error) {
	if strings.TrimSpace(plainText) == "" {
		return nil, ErrNotEnoughContent
	}
	reply, err := t.generate(ctx, "mindmap", Request{Prompt: fmt.Sprintf(mindmapPrompt, plainText), Format: FormatMindmap})
	if err != nil {
		return nil, err
	}
	nodes, err := decodeList[MindmapNode](reply, "nodes")
	if err != nil {
		return nil, &TransformError{Op: "mindmap", Err: err}
	}
	if err := ValidateMindmap(nodes); err != nil {
		return nil, &TransformError{Op: "mindmap", Err: err}
	}
	return nodes, nil
}

// FormatText structures raw imported text (such as text pulled out of a PDF)
// into a document. The reply must parse into at least one block of text.
func (t *Transformer) FormatText(ctx context.Context, rawText, fileName string) (*document.Document, error) {
	if strings.TrimSpace(rawText) == "" {
		return nil, ErrNotEnoughContent
	}
	if fileName == "" {
		fileName = "Unknown"
	}
	reply, err := t.generate(ctx, "format", Request{Prompt: fmt.Sprintf(formatPrompt, fileName, rawText), Format: FormatText})
	if err != nil {
		return nil, err
	}
	doc, err := document.ParseMarkup(stripFence(reply))
	if err != nil {
		return nil, &TransformError{Op: "format", Err: err}
	}
	if document.IsEmpty(doc) {
		return nil, &TransformError{Op: "format", Err: errors.New("formatted reply has no text")}
	}
	return doc, nil
}
