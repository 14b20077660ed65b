package summarizer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryosukesatoh/leftoff-summarizer/internal/config"
	"github.com/ryosukesatoh/leftoff-summarizer/internal/errors"
)

type fakeClient struct {
	reply   string
	err     error
	prompts []string
	models  []string
}

func (f *fakeClient) Complete(_ context.Context, model, prompt string) (string, error) {
	f.models = append(f.models, model)
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func writeInputs(t *testing.T, template, content string) (dir, templatePath, contentPath string) {
	t.Helper()
	dir = t.TempDir()
	templatePath = filepath.Join(dir, "prompt.md")
	contentPath = filepath.Join(dir, "last-7-days-activities.md")
	require.NoError(t, os.WriteFile(templatePath, []byte(template), 0o644))
	require.NoError(t, os.WriteFile(contentPath, []byte(content), 0o644))
	return dir, templatePath, contentPath
}

func TestGenerateSubstitutesActivities(t *testing.T) {
	dir, tmpl, content := writeInputs(t, "Summarize: << last-7-days-activities.md >>", "Mon: did X")
	out := filepath.Join(dir, "last-7-days-activities-summary.md")

	client := &fakeClient{reply: "You did X on Monday.\n"}
	g := NewGenerator(client, "gpt-4o-mini")

	summary, err := g.Generate(context.Background(), tmpl, content, out)
	require.NoError(t, err)

	require.Len(t, client.prompts, 1)
	assert.Equal(t, "Summarize: Mon: did X", client.prompts[0])
	assert.Equal(t, []string{"gpt-4o-mini"}, client.models)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "You did X on Monday.\n", string(got))

	assert.Equal(t, "You did X on Monday.\n", summary.Text)
	assert.Equal(t, out, summary.Path)
	assert.Equal(t, len("Summarize: Mon: did X"), summary.PromptChars)
	assert.False(t, summary.GeneratedAt.IsZero())
}

func TestGenerateEmptyActivitiesStillRequests(t *testing.T) {
	dir, tmpl, content := writeInputs(t, "Header\n<< last-7-days-activities.md >>\nFooter", "")
	out := filepath.Join(dir, "summary.md")

	client := &fakeClient{reply: "Nothing happened."}
	_, err := NewGenerator(client, "m").Generate(context.Background(), tmpl, content, out)
	require.NoError(t, err)

	require.Len(t, client.prompts, 1)
	assert.Equal(t, "Header\n\nFooter", client.prompts[0])
}

func TestBuildPromptReplacesEveryOccurrence(t *testing.T) {
	got := BuildPrompt("A << last-7-days-activities.md >> B << last-7-days-activities.md >>", " x ")
	assert.Equal(t, "A  x  B  x ", got)

	assert.Equal(t, "no marker", BuildPrompt("no marker", "ignored"))
}

func TestGenerateMissingInputMakesNoCall(t *testing.T) {
	dir, tmpl, content := writeInputs(t, "t", "c")
	client := &fakeClient{reply: "unused"}
	g := NewGenerator(client, "m")

	_, err := g.Generate(context.Background(), filepath.Join(dir, "absent.md"), content, filepath.Join(dir, "out.md"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindGeneration))

	_, err = g.Generate(context.Background(), tmpl, filepath.Join(dir, "absent.md"), filepath.Join(dir, "out.md"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindGeneration))

	assert.Empty(t, client.prompts)
	_, statErr := os.Stat(filepath.Join(dir, "out.md"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestGenerateClientErrorKeepsPreviousSummary(t *testing.T) {
	dir, tmpl, content := writeInputs(t, "t", "c")
	out := filepath.Join(dir, "summary.md")
	require.NoError(t, os.WriteFile(out, []byte("last week"), 0o644))

	client := &fakeClient{err: fmt.Errorf("openai: response contained no choices")}
	_, err := NewGenerator(client, "m").Generate(context.Background(), tmpl, content, out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindGeneration))
	assert.Contains(t, err.Error(), "no choices")

	got, _ := os.ReadFile(out)
	assert.Equal(t, "last week", string(got))
}

func TestNewFromConfig(t *testing.T) {
	cfg := &config.Config{Summarizer: config.SummarizerConfig{Type: "openai", Model: "gpt-4o-mini", APIKey: "k", BaseURL: "http://localhost"}}
	g, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", g.Model())

	cfg.Summarizer.Type = "anthropic"
	_, err = New(cfg)
	require.NoError(t, err)

	cfg.Summarizer.Type = "llama"
	_, err = New(cfg)
	assert.ErrorIs(t, err, ErrUnsupportedSummarizerType)
}
