package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"lingo-quiz-service/internal/config"
	"lingo-quiz-service/internal/domain"
	"lingo-quiz-service/internal/importer"
	pgstore "lingo-quiz-service/internal/infra/postgres"
	redisstore "lingo-quiz-service/internal/infra/redis"
)

type importOptions struct {
	file          string
	challengeType string
	sheet         string
	promptCol     string
	answerCol     string
	presentCol    string
	startRow      int
	target        string
	outDir        string
}

// NewImportCmd loads a spreadsheet of quiz items into a dataset directory or Postgres.
func NewImportCmd(root *rootOptions) *cobra.Command {
	opts := importOptions{}
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import quiz items from an Excel or CSV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			return runImport(cmd.Context(), cfg, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "path to .xlsx or .csv file")
	cmd.Flags().StringVarP(&opts.challengeType, "type", "t", "", "challenge type: word, idiom or verb")
	cmd.Flags().StringVar(&opts.sheet, "sheet", "", "sheet name (xlsx only)")
	cmd.Flags().StringVar(&opts.promptCol, "prompt-col", "A", "column with the French prompt")
	cmd.Flags().StringVar(&opts.answerCol, "answer-col", "B", "column with the Portuguese answer")
	cmd.Flags().StringVar(&opts.presentCol, "present-col", "C", "column with ';'-separated verb conjugations")
	cmd.Flags().IntVar(&opts.startRow, "start-row", 2, "first data row (1-based)")
	cmd.Flags().StringVar(&opts.target, "target", "files", "where to store the items: files or postgres")
	cmd.Flags().StringVar(&opts.outDir, "out-dir", "", "dataset directory for --target files (defaults to content.dir)")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func runImport(ctx context.Context, cfg config.Config, opts importOptions) error {
	t, err := domain.ParseChallengeType(opts.challengeType)
	if err != nil {
		return err
	}
	icfg := importer.DefaultConfig(opts.file, t)
	icfg.SheetName = opts.sheet
	icfg.PromptColumn = opts.promptCol
	icfg.AnswerColumn = opts.answerCol
	icfg.PresentColumn = opts.presentCol
	icfg.StartRow = opts.startRow

	var sink importer.Sink
	switch opts.target {
	case "postgres":
		if cfg.Postgres.URL == "" {
			return fmt.Errorf("postgres url not configured")
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		sink = pgstore.NewContentLoader(pool)
	case "files":
		dir := opts.outDir
		if dir == "" {
			dir = cfg.Content.Dir
		}
		if dir == "" {
			return fmt.Errorf("no dataset directory: set --out-dir or content.dir")
		}
		sink = importer.DirSink{Dir: dir}
	default:
		return fmt.Errorf("unknown import target %q", opts.target)
	}

	result, err := importer.Import(ctx, icfg, sink)
	if result != nil {
		for _, msg := range result.Errors {
			log.Printf("skipped %s", msg)
		}
	}
	if err != nil {
		return err
	}
	log.Printf("imported %d %s items (%d rows read, %d empty, %d invalid)",
		len(result.Items), t, result.Processed, result.Skipped, len(result.Errors))

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		if err := redisstore.NewContentRepository(client, nil, 0).Invalidate(ctx, t); err != nil {
			log.Printf("could not invalidate cached %s content: %v", t, err)
		}
	}
	return nil
}
