// Package ai turns extracted note text into AI-generated study material:
// summaries, multiple-choice quizzes and mind maps. Provider replies are
// validated here and never handed out partially.
package ai

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotEnoughContent is returned when the plain text is empty, before any provider call.
	ErrNotEnoughContent = errors.New("not enough content")
	// ErrTransformFailed matches every *TransformError.
	ErrTransformFailed = errors.New("ai transform failed")
)

// TransformError reports a provider failure or a reply that does not have the
// expected shape. It is retryable from the caller's point of view.
type TransformError struct {
	Op  string
	Err error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("ai %s: %v", e.Op, e.Err)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

func (e *TransformError) Is(target error) bool {
	return target == ErrTransformFailed
}

// Format selects the reply shape a provider is asked for.
type Format string

const (
	FormatText    Format = "text"
	FormatQuiz    Format = "quiz"
	FormatMindmap Format = "mindmap"
)

type Request struct {
	Prompt string
	Format Format
}

// Provider is a generative model endpoint. Generate returns the raw reply text.
type Provider interface {
	Generate(ctx context.Context, req Request) (string, error)
}

type Summary struct {
	Summary string `json:"summary"`
}

type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
}

type MindmapNodeType string

const (
	NodeTopic    MindmapNodeType = "topic"
	NodeSubtopic MindmapNodeType = "subtopic"
	NodeDetail   MindmapNodeType = "detail"
)

type MindmapNode struct {
	ID       string          `json:"id"`
	Label    string          `json:"label"`
	ParentID *string         `json:"parentId"`
	Type     MindmapNodeType `json:"type"`
}
