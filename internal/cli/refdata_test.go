package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"myth-quiz-service/internal/config"
	"myth-quiz-service/internal/refdata"
)

func TestRefdataCheckEmbedded(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"refdata", "check", "--config", filepath.Join(t.TempDir(), "missing.yaml")})

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("refdata check: %v", err)
	}
	summary := out.String()
	for _, want := range []string{"areas: 5", "questions: 15", "maxScore: 15", "1 First Impressions (3 questions)"} {
		if !strings.Contains(summary, want) {
			t.Fatalf("expected %q in summary:\n%s", want, summary)
		}
	}
	if strings.Contains(summary, "warning") {
		t.Fatalf("embedded documents should not drift:\n%s", summary)
	}
}

func TestRefdataCheckRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	docs := refdata.EmbeddedDocuments()
	questions := filepath.Join(dir, "questions.json")
	scoring := filepath.Join(dir, "scoring.json")
	if err := os.WriteFile(questions, docs.Questions, 0o600); err != nil {
		t.Fatalf("write questions: %v", err)
	}
	if err := os.WriteFile(scoring, []byte(`{"titles": []}`), 0o600); err != nil {
		t.Fatalf("write scoring: %v", err)
	}

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"refdata", "check", "--config", filepath.Join(dir, "missing.yaml"), "--questions", questions, "--scoring", scoring})

	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Fatalf("expected invalid scoring document to fail")
	}
}

func TestReferenceLoaderSelection(t *testing.T) {
	cfg := config.Default()

	if _, ok := mustLoader(t, cfg).(refdata.EmbeddedLoader); !ok {
		t.Fatalf("expected embedded loader by default")
	}

	cfg.Reference.Source = SourceFile
	cfg.Reference.QuestionsPath = "q.json"
	cfg.Reference.ScoringPath = "s.json"
	if _, ok := mustLoader(t, cfg).(refdata.FileLoader); !ok {
		t.Fatalf("expected file loader")
	}

	cfg.Reference.Source = SourcePostgres
	if _, err := referenceLoader(cfg, nil); err == nil {
		t.Fatalf("expected postgres source without a pool to fail")
	}

	cfg.Reference.Source = "ftp"
	if _, err := referenceLoader(cfg, nil); err == nil {
		t.Fatalf("expected unknown source to fail")
	}
}

func mustLoader(t *testing.T, cfg config.Config) refdata.Loader {
	t.Helper()
	loader, err := referenceLoader(cfg, nil)
	if err != nil {
		t.Fatalf("reference loader: %v", err)
	}
	return loader
}
