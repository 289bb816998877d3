// Package importer turns spreadsheets of vocabulary into challenge datasets.
package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"lingo-quiz-service/internal/content"
	"lingo-quiz-service/internal/domain"
)

// conjugationCount is the number of present-tense forms a verb row carries.
const conjugationCount = 6

// Config describes where the rows come from and which columns hold what.
type Config struct {
	FilePath      string               // .xlsx or .csv
	Type          domain.ChallengeType // dataset the rows belong to
	SheetName     string               // xlsx only; first sheet when empty
	PromptColumn  string               // French prompt
	AnswerColumn  string               // Portuguese answer
	PresentColumn string               // verb conjugations separated by ';', optional
	StartRow      int                  // 1-based first data row
}

// DefaultConfig reads prompts from A, answers from B and conjugations from C, skipping a header row.
func DefaultConfig(path string, t domain.ChallengeType) Config {
	return Config{
		FilePath:      path,
		Type:          t,
		PromptColumn:  "A",
		AnswerColumn:  "B",
		PresentColumn: "C",
		StartRow:      2,
	}
}

// Result holds the outcome of reading a file.
type Result struct {
	Items     []domain.ChallengeItem
	Processed int
	Skipped   int
	Errors    []string
}

// Sink stores an imported set (a dataset directory or the Postgres challenge_items table).
type Sink interface {
	ReplaceChallengeSet(ctx context.Context, set domain.ChallengeSet) (int, error)
}

// DirSink writes the set as a JSON dataset file in Dir.
type DirSink struct {
	Dir string
}

func (s DirSink) ReplaceChallengeSet(_ context.Context, set domain.ChallengeSet) (int, error) {
	if _, err := content.WriteFile(s.Dir, set.Type, set.Items); err != nil {
		return 0, err
	}
	return len(set.Items), nil
}

// Import reads cfg.FilePath and replaces the stored set of cfg.Type with its rows.
func Import(ctx context.Context, cfg Config, sink Sink) (*Result, error) {
	result, err := Read(cfg)
	if err != nil {
		return nil, err
	}
	if len(result.Items) == 0 {
		return result, fmt.Errorf("no importable rows in %s", cfg.FilePath)
	}
	if _, err := sink.ReplaceChallengeSet(ctx, domain.ChallengeSet{Type: cfg.Type, Items: result.Items}); err != nil {
		return result, fmt.Errorf("store %s items: %w", cfg.Type, err)
	}
	return result, nil
}

// Read parses the rows of an Excel or CSV file without storing them.
func Read(cfg Config) (*Result, error) {
	if !cfg.Type.Valid() {
		return nil, domain.Invalid("type", "must be one of word, idiom, verb")
	}
	cols, err := resolveColumns(cfg)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	switch ext := strings.ToLower(filepath.Ext(cfg.FilePath)); ext {
	case ".csv":
		rows, err = readCSV(cfg.FilePath)
	case ".xlsx", ".xlsm":
		rows, err = readExcel(cfg.FilePath, cfg.SheetName)
	default:
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}
	if err != nil {
		return nil, err
	}

	start := cfg.StartRow
	if start < 1 {
		start = 1
	}
	result := &Result{}
	for i, row := range rows {
		if i < start-1 {
			continue
		}
		result.Processed++
		item, ok, err := parseRow(row, cols, cfg.Type)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		if !ok {
			result.Skipped++
			continue
		}
		result.Items = append(result.Items, item)
	}
	return result, nil
}

type columns struct {
	prompt, answer, present int // zero-based; present is -1 when unused
}

func resolveColumns(cfg Config) (columns, error) {
	index := func(name string) (int, error) {
		n, err := excelize.ColumnNameToNumber(strings.TrimSpace(name))
		if err != nil {
			return 0, fmt.Errorf("column %q: %w", name, err)
		}
		return n - 1, nil
	}
	var (
		cols columns
		err  error
	)
	if cols.prompt, err = index(cfg.PromptColumn); err != nil {
		return columns{}, err
	}
	if cols.answer, err = index(cfg.AnswerColumn); err != nil {
		return columns{}, err
	}
	cols.present = -1
	if cfg.Type == domain.ChallengeVerb && cfg.PresentColumn != "" {
		if cols.present, err = index(cfg.PresentColumn); err != nil {
			return columns{}, err
		}
	}
	return cols, nil
}

// parseRow returns ok=false for blank rows.
func parseRow(row []string, cols columns, t domain.ChallengeType) (domain.ChallengeItem, bool, error) {
	cell := func(i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	item := domain.ChallengeItem{Prompt: cell(cols.prompt), Answer: cell(cols.answer)}
	raw := cell(cols.present)

	if item.Prompt == "" && item.Answer == "" && raw == "" {
		return domain.ChallengeItem{}, false, nil
	}
	if item.Prompt == "" {
		return domain.ChallengeItem{}, false, fmt.Errorf("missing prompt")
	}
	if item.Answer == "" {
		return domain.ChallengeItem{}, false, fmt.Errorf("missing answer for %q", item.Prompt)
	}
	if t == domain.ChallengeVerb && raw != "" {
		for _, form := range strings.Split(raw, ";") {
			item.Present = append(item.Present, strings.TrimSpace(form))
		}
		if len(item.Present) != conjugationCount {
			return domain.ChallengeItem{}, false, fmt.Errorf("%q has %d conjugations, want %d", item.Prompt, len(item.Present), conjugationCount)
		}
	}
	return item, true, nil
}

func readExcel(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, record)
	}
	return rows, nil
}
