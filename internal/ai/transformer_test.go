package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	generate func(ctx context.Context, req Request) (string, error)
	calls    int
}

func (f *fakeProvider) Generate(ctx context.Context, req Request) (string, error) {
	f.calls++
	return f.generate(ctx, req)
}

func replying(reply string) *fakeProvider {
	return &fakeProvider{generate: func(context.Context, Request) (string, error) { return reply, nil }}
}

const validQuiz = `[
 {"question":"Q1","options":["a","b","c","d"],"correctAnswer":"a"},
 {"question":"Q2","options":["a","b","c","d"],"correctAnswer":"b"},
 {"question":"Q3","options":["a","b","c","d"],"correctAnswer":"c"},
 {"question":"Q4","options":["a","b","c","d"],"correctAnswer":"d"},
 {"question":"Q5","options":["a","b","c","d"],"correctAnswer":"a"}
]`

const validMindmap = `[
 {"id":"1","label":"Cell","parentId":null,"type":"topic"},
 {"id":"2","label":"Organelles","parentId":"1","type":"subtopic"},
 {"id":"3","label":"Mitochondria","parentId":"2","type":"detail"}
]`

func TestEmptyTextNeverReachesProvider(t *testing.T) {
	provider := replying("unused")
	tr := NewTransformer(provider, time.Second)
	ctx := context.Background()

	_, err := tr.Summarize(ctx, "  \n\t")
	require.ErrorIs(t, err, ErrNotEnoughContent)
	_, err = tr.GenerateQuiz(ctx, "")
	require.ErrorIs(t, err, ErrNotEnoughContent)
	_, err = tr.GenerateMindmap(ctx, "")
	require.ErrorIs(t, err, ErrNotEnoughContent)
	_, err = tr.FormatText(ctx, " ", "notes.pdf")
	require.ErrorIs(t, err, ErrNotEnoughContent)

	require.Zero(t, provider.calls)
}

func TestSummarize(t *testing.T) {
	var got Request
	provider := &fakeProvider{generate: func(_ context.Context, req Request) (string, error) {
		got = req
		return "```markdown\n- mitochondria make ATP\n```", nil
	}}
	tr := NewTransformer(provider, time.Second)

	summary, err := tr.Summarize(context.Background(), "Mitochondria make ATP.")
	require.NoError(t, err)
	require.Equal(t, "- mitochondria make ATP", summary.Summary)
	require.Equal(t, FormatText, got.Format)
	require.Contains(t, got.Prompt, "Mitochondria make ATP.")
}

func TestSummarizeEmptyReplyFails(t *testing.T) {
	_, err := NewTransformer(replying("  "), time.Second).Summarize(context.Background(), "text")
	require.ErrorIs(t, err, ErrTransformFailed)
}

func TestGenerateQuiz(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		ok    bool
	}{
		{name: "bare array", reply: validQuiz, ok: true},
		{name: "fenced", reply: "```json\n" + validQuiz + "\n```", ok: true},
		{name: "wrapped object", reply: `{"questions":` + validQuiz + `}`, ok: true},
		{name: "answer not an option", reply: `[{"question":"Q","options":["a","b","c","d"],"correctAnswer":"e"}]`},
		{name: "three options", reply: `[{"question":"Q","options":["a","b","c"],"correctAnswer":"a"}]`},
		{name: "empty list", reply: `[]`},
		{name: "not json", reply: `Here is your quiz!`},
		{name: "wrong wrapper", reply: `{"items":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quiz, err := NewTransformer(replying(tt.reply), time.Second).GenerateQuiz(context.Background(), "notes")
			if tt.ok {
				require.NoError(t, err)
				require.Len(t, quiz, QuizQuestionCount)
				return
			}
			require.ErrorIs(t, err, ErrTransformFailed)
			require.Nil(t, quiz)
			var te *TransformError
			require.ErrorAs(t, err, &te)
			require.Equal(t, "quiz", te.Op)
		})
	}
}

func TestGenerateMindmap(t *testing.T) {
	provider := &fakeProvider{generate: func(_ context.Context, req Request) (string, error) {
		require.Equal(t, FormatMindmap, req.Format)
		return validMindmap, nil
	}}
	nodes, err := NewTransformer(provider, time.Second).GenerateMindmap(context.Background(), "cells")
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	require.Nil(t, nodes[0].ParentID)
	require.Equal(t, "1", *nodes[1].ParentID)
	require.Equal(t, NodeDetail, nodes[2].Type)

	_, err = NewTransformer(replying(`[{"id":"1","label":"a","parentId":"9","type":"topic"}]`), time.Second).
		GenerateMindmap(context.Background(), "cells")
	require.ErrorIs(t, err, ErrTransformFailed)
}

func TestProviderFailureIsTransformError(t *testing.T) {
	boom := errors.New("quota exceeded")
	provider := &fakeProvider{generate: func(context.Context, Request) (string, error) { return "", boom }}
	_, err := NewTransformer(provider, time.Second).Summarize(context.Background(), "text")
	require.ErrorIs(t, err, ErrTransformFailed)
	require.ErrorIs(t, err, boom)
}

func TestNilProvider(t *testing.T) {
	_, err := NewTransformer(nil, 0).GenerateQuiz(context.Background(), "text")
	require.ErrorIs(t, err, ErrTransformFailed)
}

func TestTimeoutApplied(t *testing.T) {
	provider := &fakeProvider{generate: func(ctx context.Context, _ Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	_, err := NewTransformer(provider, 10*time.Millisecond).Summarize(context.Background(), "text")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.ErrorIs(t, err, ErrTransformFailed)
}

func TestFormatText(t *testing.T) {
	var prompt string
	provider := &fakeProvider{generate: func(_ context.Context, req Request) (string, error) {
		prompt = req.Prompt
		return "```html\n<h1>Photosynthesis</h1><ul><li>light</li><li>dark</li></ul>\n```", nil
	}}
	doc, err := NewTransformer(provider, time.Second).FormatText(context.Background(), "photosynthesis light dark", "")
	require.NoError(t, err)
	require.Contains(t, prompt, "Original filename: Unknown")
	require.Len(t, doc.Content, 2)

	_, err = NewTransformer(replying("<p> </p>"), time.Second).FormatText(context.Background(), "raw", "a.pdf")
	require.ErrorIs(t, err, ErrTransformFailed)
}

func TestStripFence(t *testing.T) {
	tests := map[string]string{
		"plain":                   "plain",
		"```\nbody\n```":          "body",
		"```json\n[1]\n```":       "[1]",
		"  ```md\n# T\n```  ":     "# T",
		"```inline```":            "inline",
		"text ```code``` more":    "text ```code``` more",
		"```not a tag\nbody\n```": "not a tag\nbody",
	}
	for in, want := range tests {
		require.Equal(t, want, stripFence(in), strings.ReplaceAll(in, "\n", `\n`))
	}
}
