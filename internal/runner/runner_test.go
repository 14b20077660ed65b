package runner

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ryosukesatoh/leftoff-summarizer/internal/auth"
	"github.com/ryosukesatoh/leftoff-summarizer/internal/config"
	"github.com/ryosukesatoh/leftoff-summarizer/internal/errors"
	"github.com/ryosukesatoh/leftoff-summarizer/internal/extractor"
	"github.com/ryosukesatoh/leftoff-summarizer/internal/publisher"
	"github.com/ryosukesatoh/leftoff-summarizer/internal/summarizer"
)

// Mock implementations

type mockCreds struct {
	cred *auth.Credential
	err  error
}

func (m *mockCreds) Refresh(ctx context.Context) (*auth.Credential, error) {
	return m.cred, m.err
}

type mockFetcher struct {
	called bool
	token  string
	err    error
}

func (m *mockFetcher) Fetch(ctx context.Context, accessToken, fileID, destPath string) (int64, error) {
	m.called = true
	m.token = accessToken
	if m.err != nil {
		return 0, m.err
	}
	return 42, nil
}

type mockExtractor struct {
	called    bool
	reference time.Time
	result    *extractor.Result
	err       error
}

func (m *mockExtractor) Extract(documentPath, outputPath string, reference time.Time) (*extractor.Result, error) {
	m.called = true
	m.reference = reference
	return m.result, m.err
}

type mockGenerator struct {
	called  bool
	summary *summarizer.Summary
	err     error
}

func (m *mockGenerator) Generate(ctx context.Context, templatePath, contentPath, outputPath string) (*summarizer.Summary, error) {
	m.called = true
	return m.summary, m.err
}

type mockPublisher struct {
	name      string
	published bool
	err       error
}

func (m *mockPublisher) Name() string { return m.name }

func (m *mockPublisher) Publish(ctx context.Context, summary *summarizer.Summary) error {
	m.published = true
	return m.err
}

func testPaths(dir string) config.Paths {
	cfg := &config.Config{BaseDir: dir, Document: config.DocumentConfig{FileName: "LEFT-OFF.docx"}}
	return cfg.Paths()
}

func sampleSummary() *summarizer.Summary {
	return &summarizer.Summary{Text: "Summary.", Model: "gpt-4o-mini"}
}

func TestRunSuccess(t *testing.T) {
	f := &mockFetcher{}
	e := &mockExtractor{result: &extractor.Result{Sections: make([]extractor.Section, 2), Total: 5}}
	g := &mockGenerator{summary: sampleSummary()}
	pub := &mockPublisher{name: "stdout"}

	ref := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	r := New("FILE!1", testPaths(t.TempDir()), &mockCreds{cred: &auth.Credential{AccessToken: "at"}}, f, e, g, []publisher.Publisher{pub})

	report, err := r.Run(context.Background(), "run-1", ref)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if f.token != "at" {
		t.Errorf("Expected access token to reach the fetcher, got %q", f.token)
	}
	if !e.reference.Equal(ref) {
		t.Errorf("Expected reference %v, got %v", ref, e.reference)
	}
	if !g.called || !pub.published {
		t.Error("Expected summarize and publish to run")
	}

	var stages []string
	for _, s := range report.Stages {
		stages = append(stages, s.Stage)
	}
	want := "credentials,download,extract,summarize,publish:stdout"
	if strings.Join(stages, ",") != want {
		t.Errorf("Expected stages %s, got %v", want, stages)
	}
	if report.Failed() != nil {
		t.Errorf("Expected no failed stage, got %+v", report.Failed())
	}
	if report.Stages[2].Detail != "2 of 5 sections" {
		t.Errorf("Unexpected extract detail %q", report.Stages[2].Detail)
	}
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	tests := []struct {
		name      string
		creds     *mockCreds
		fetcher   *mockFetcher
		extractor *mockExtractor
		generator *mockGenerator
		stage     string
		kind      errors.Kind
	}{
		{
			name:      "credentials",
			creds:     &mockCreds{err: errors.NewProviderAuth("invalid_grant", "expired", nil)},
			fetcher:   &mockFetcher{},
			extractor: &mockExtractor{},
			generator: &mockGenerator{},
			stage:     StageCredentials,
			kind:      errors.KindAuth,
		},
		{
			name:      "download",
			creds:     &mockCreds{cred: &auth.Credential{AccessToken: "at"}},
			fetcher:   &mockFetcher{err: errors.NewDownloadStatus(404, "not found")},
			extractor: &mockExtractor{},
			generator: &mockGenerator{},
			stage:     StageDownload,
			kind:      errors.KindDownload,
		},
		{
			name:      "extract",
			creds:     &mockCreds{cred: &auth.Credential{AccessToken: "at"}},
			fetcher:   &mockFetcher{},
			extractor: &mockExtractor{err: errors.NewParse("doc", stderrors.New("zip: not a valid zip file"))},
			generator: &mockGenerator{},
			stage:     StageExtract,
			kind:      errors.KindParse,
		},
		{
			name:      "summarize",
			creds:     &mockCreds{cred: &auth.Credential{AccessToken: "at"}},
			fetcher:   &mockFetcher{},
			extractor: &mockExtractor{result: &extractor.Result{}},
			generator: &mockGenerator{err: errors.NewGeneration("completion failed", nil)},
			stage:     StageSummarize,
			kind:      errors.KindGeneration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &mockPublisher{name: "stdout"}
			r := New("id", testPaths(t.TempDir()), tt.creds, tt.fetcher, tt.extractor, tt.generator, []publisher.Publisher{pub})

			report, err := r.Run(context.Background(), "run", time.Now())
			if err == nil {
				t.Fatal("Expected error")
			}
			if !errors.Is(err, tt.kind) {
				t.Errorf("Expected %s error, got %v", tt.kind, err)
			}
			if !strings.Contains(err.Error(), "runner: "+tt.stage+" failed") {
				t.Errorf("Expected stage in error, got %v", err)
			}

			failed := report.Failed()
			if failed == nil || failed.Stage != tt.stage {
				t.Errorf("Expected failed stage %s, got %+v", tt.stage, failed)
			}
			if last := report.Stages[len(report.Stages)-1]; last.Stage != tt.stage {
				t.Errorf("Expected no stage after %s, last was %s", tt.stage, last.Stage)
			}
			if pub.published {
				t.Error("Publisher should not run after a failure")
			}
		})
	}
}

func TestRunInvalidGrantSkipsDownload(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer ts.Close()

	creds := auth.NewManager(auth.Options{ClientID: "app", RefreshToken: "rt", TokenURL: ts.URL})
	f := &mockFetcher{}
	r := New("id", testPaths(t.TempDir()), creds, f, &mockExtractor{}, &mockGenerator{}, nil)

	_, err := r.Run(context.Background(), "run", time.Now())
	if !errors.Is(err, errors.KindAuth) {
		t.Fatalf("Expected auth error, got %v", err)
	}
	if f.called {
		t.Error("No download should be attempted after invalid_grant")
	}
}

func TestRunPublisherFailureIsNotFatal(t *testing.T) {
	failing := &mockPublisher{name: "discord", err: stderrors.New("webhook down")}
	ok := &mockPublisher{name: "html"}
	r := New("id", testPaths(t.TempDir()),
		&mockCreds{cred: &auth.Credential{AccessToken: "at"}},
		&mockFetcher{},
		&mockExtractor{result: &extractor.Result{}},
		&mockGenerator{summary: sampleSummary()},
		[]publisher.Publisher{failing, ok},
	)

	report, err := r.Run(context.Background(), "run", time.Now())
	if err != nil {
		t.Fatalf("Expected publisher failure to be non-fatal, got %v", err)
	}
	if !ok.published {
		t.Error("Expected remaining publishers to run")
	}
	if report.Failed() != nil {
		t.Errorf("Expected no required stage failure, got %+v", report.Failed())
	}
	if !strings.Contains(report.String(), "publish:discord=failed") {
		t.Errorf("Expected publisher failure in report, got %q", report.String())
	}
}

func TestRunEmptyWindowStillSummarizes(t *testing.T) {
	g := &mockGenerator{summary: sampleSummary()}
	r := New("id", testPaths(t.TempDir()),
		&mockCreds{cred: &auth.Credential{AccessToken: "at"}},
		&mockFetcher{},
		&mockExtractor{result: &extractor.Result{}},
		g,
		nil,
	)

	if _, err := r.Run(context.Background(), "run", time.Now()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !g.called {
		t.Error("Expected generation to run with no sections")
	}
}
