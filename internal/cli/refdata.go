package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"

	"myth-quiz-service/internal/config"
	"myth-quiz-service/internal/infra/postgres"
	"myth-quiz-service/internal/refdata"
)

// Reference sources accepted in reference.source.
const (
	SourceEmbedded = "embedded"
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

// NewRefdataCmd groups reference document tooling.
func NewRefdataCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refdata",
		Short: "Inspect reference documents",
	}
	cmd.AddCommand(newRefdataCheckCmd(configPath))
	return cmd
}

func newRefdataCheckCmd(configPath *string) *cobra.Command {
	var questionsPath, scoringPath string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the reference documents and print a summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if questionsPath != "" || scoringPath != "" {
				cfg.Reference.Source = SourceFile
				cfg.Reference.QuestionsPath = questionsPath
				cfg.Reference.ScoringPath = scoringPath
			}

			ctx := cmd.Context()
			var pool *pgxpool.Pool
			if cfg.Reference.Source == SourcePostgres && cfg.Postgres.URL != "" {
				pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
				if err != nil {
					return err
				}
				defer pool.Close()
			}
			loader, err := referenceLoader(cfg, pool)
			if err != nil {
				return err
			}
			return checkReference(ctx, loader, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&questionsPath, "questions", "", "questions document to check instead of the configured source")
	cmd.Flags().StringVar(&scoringPath, "scoring", "", "scoring document to check instead of the configured source")
	return cmd
}

func checkReference(ctx context.Context, loader refdata.Loader, out io.Writer) error {
	docs, err := loader.LoadDocuments(ctx)
	if err != nil {
		return err
	}
	ref, err := refdata.Parse(docs)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "areas: %d\n", ref.AreaCount())
	for _, area := range ref.Areas() {
		fmt.Fprintf(out, "  %d %s (%d questions)\n", area.ID, area.Name, ref.QuestionCount(area.ID))
	}
	fmt.Fprintf(out, "questions: %d\n", ref.TotalQuestions())
	fmt.Fprintf(out, "maxScore: %d\n", ref.MaxScore())
	fmt.Fprintf(out, "titles: %d\n", len(ref.Scoring().Titles))
	if configured, derived, drift := ref.MaxScoreDrift(); drift {
		fmt.Fprintf(out, "warning: maxScore %d differs from question count %d\n", configured, derived)
	}
	return nil
}

// referenceLoader picks the document source named in the config.
func referenceLoader(cfg config.Config, pool *pgxpool.Pool) (refdata.Loader, error) {
	switch cfg.Reference.Source {
	case "", SourceEmbedded:
		return refdata.EmbeddedLoader{}, nil
	case SourceFile:
		if cfg.Reference.QuestionsPath == "" || cfg.Reference.ScoringPath == "" {
			return nil, fmt.Errorf("reference source %q needs questionsPath and scoringPath", SourceFile)
		}
		return refdata.FileLoader{QuestionsPath: cfg.Reference.QuestionsPath, ScoringPath: cfg.Reference.ScoringPath}, nil
	case SourcePostgres:
		if pool == nil {
			return nil, fmt.Errorf("reference source %q: %w", SourcePostgres, errPostgresNotConfigured)
		}
		return postgres.NewDocumentLoader(pool), nil
	default:
		return nil, fmt.Errorf("unknown reference source %q", cfg.Reference.Source)
	}
}

// NewSeedCmd uploads reference documents to Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var questionsPath, scoringPath string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upload reference documents to Postgres (embedded documents by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			ctx := cmd.Context()

			var loader refdata.Loader = refdata.EmbeddedLoader{}
			if questionsPath != "" || scoringPath != "" {
				loader = refdata.FileLoader{QuestionsPath: questionsPath, ScoringPath: scoringPath}
			}
			docs, err := loader.LoadDocuments(ctx)
			if err != nil {
				return err
			}

			db, err := openBunDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := migrateDB(ctx, db, logger); err != nil {
				return err
			}
			if err := postgres.SeedDocuments(ctx, db, docs, time.Now().UTC()); err != nil {
				return err
			}
			stored, err := postgres.ListDocuments(ctx, db)
			if err != nil {
				return err
			}
			for _, doc := range stored {
				logger.Info("reference document stored", "name", doc.Name, "updated_at", doc.UpdatedAt)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&questionsPath, "questions", "", "questions document to upload")
	cmd.Flags().StringVar(&scoringPath, "scoring", "", "scoring document to upload")
	return cmd
}
