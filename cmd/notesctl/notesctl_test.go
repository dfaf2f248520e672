package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"studynotes/api/internal/auth"
	"studynotes/api/internal/document"
)

const sampleNote = `{"type":"doc","content":[{"type":"heading","attrs":{"level":2},"content":[{"type":"text","text":"Krebs cycle"}]},{"type":"bulletList","content":[{"type":"listItem","content":[{"type":"paragraph","content":[{"type":"text","marks":[{"type":"bold"}],"text":"Acetyl-CoA"},{"type":"text","text":" enters"}]}]}]}]}`

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestExtractFromStdin(t *testing.T) {
	out, err := run(t, sampleNote, "extract")
	require.NoError(t, err)
	require.Contains(t, out, "Krebs cycle")
	require.Contains(t, out, "Acetyl-CoA enters")
}

func TestStatsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleNote), 0o644))

	out, err := run(t, "", "stats", "--json=false", path)
	require.NoError(t, err)
	require.Equal(t, "words: 4\ncharacters: 30\n", out)
}

func TestHTML(t *testing.T) {
	out, err := run(t, sampleNote, "html", "-")
	require.NoError(t, err)
	require.Contains(t, out, "<h2>Krebs cycle</h2>")
	require.Contains(t, out, "<strong>Acetyl-CoA</strong>")
}

func TestMarkdown(t *testing.T) {
	out, err := run(t, sampleNote, "markdown", "--title", "Metabolism")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "# Metabolism\n"), out)
	require.Contains(t, out, "## Krebs cycle")
	require.Contains(t, out, "**Acetyl-CoA**")
}

func TestValidate(t *testing.T) {
	out, err := run(t, sampleNote, "validate")
	require.NoError(t, err)
	require.Equal(t, "ok\n", out)

	_, err = run(t, `{"type":"paragraph"}`, "validate")
	require.ErrorIs(t, err, document.ErrMalformedContent)
}

func TestToken(t *testing.T) {
	out, err := run(t, "", "token", "user-7", "--secret", "s3cret", "--name", "Ada")
	require.NoError(t, err)

	claims, err := auth.ParseToken([]byte("s3cret"), strings.TrimSpace(out))
	require.NoError(t, err)
	require.Equal(t, "user-7", claims.Sub)
	require.Equal(t, "Ada", claims.Name)
}
