package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	QuizQuestionCount = 5
	QuizOptionCount   = 4
)

// ValidateQuiz checks every question has exactly four options and an answer
// that is one of them.
func ValidateQuiz(questions []QuizQuestion) error {
	if len(questions) == 0 {
		return errors.New("quiz has no questions")
	}
	for i, q := range questions {
		if strings.TrimSpace(q.Question) == "" {
			return fmt.Errorf("question %d: empty question", i)
		}
		if len(q.Options) != QuizOptionCount {
			return fmt.Errorf("question %d: %d options, want %d", i, len(q.Options), QuizOptionCount)
		}
		found := false
		for _, opt := range q.Options {
			if opt == q.CorrectAnswer {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("question %d: correct answer %q is not an option", i, q.CorrectAnswer)
		}
	}
	return nil
}

// ValidateMindmap checks the nodes form a single tree in emission order: one
// root, unique ids, and every parent emitted before its children.
func ValidateMindmap(nodes []MindmapNode) error {
	if len(nodes) == 0 {
		return errors.New("mindmap has no nodes")
	}
	seen := make(map[string]bool, len(nodes))
	roots := 0
	for i, n := range nodes {
		if n.ID == "" {
			return fmt.Errorf("node %d: empty id", i)
		}
		if seen[n.ID] {
			return fmt.Errorf("node %d: duplicate id %q", i, n.ID)
		}
		switch n.Type {
		case NodeTopic, NodeSubtopic, NodeDetail:
		default:
			return fmt.Errorf("node %d: unknown type %q", i, n.Type)
		}
		if n.ParentID == nil {
			roots++
		} else if !seen[*n.ParentID] {
			return fmt.Errorf("node %d: parent %q not emitted before it", i, *n.ParentID)
		}
		seen[n.ID] = true
	}
	if roots != 1 {
		return fmt.Errorf("mindmap has %d roots, want 1", roots)
	}
	return nil
}

// stripFence removes a single code fence enclosing the whole reply.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	body := strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	nl := strings.IndexByte(body, '\n')
	if nl < 0 {
		return strings.TrimSpace(body)
	}
	// The first line is an optional language tag.
	if tag := strings.TrimSpace(body[:nl]); !strings.ContainsAny(tag, " \t") {
		body = body[nl+1:]
	}
	return strings.TrimSpace(body)
}

// decodeList accepts either a bare JSON array or an object wrapping it under field.
func decodeList[T any](reply, field string) ([]T, error) {
	raw := []byte(stripFence(reply))
	var list []T
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	inner, ok := wrapped[field]
	if !ok {
		return nil, fmt.Errorf("decode reply: missing %q", field)
	}
	if err := json.Unmarshal(inner, &list); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	return list, nil
}
