// Package content loads the quiz datasets (vocabulary, verbs, idioms).
package content

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"lingo-quiz-service/internal/domain"
)

//go:embed data/*.json
var defaultData embed.FS

// FileName is the dataset file for each challenge type.
func FileName(t domain.ChallengeType) string {
	switch t {
	case domain.ChallengeWord:
		return "words.json"
	case domain.ChallengeVerb:
		return "verbs.json"
	case domain.ChallengeIdiom:
		return "idioms.json"
	}
	return ""
}

// FSLoader reads datasets from a file system holding words.json, verbs.json and idioms.json.
type FSLoader struct {
	fsys fs.FS
}

// NewEmbeddedLoader serves the datasets compiled into the binary.
func NewEmbeddedLoader() *FSLoader {
	sub, err := fs.Sub(defaultData, "data")
	if err != nil {
		panic(err)
	}
	return &FSLoader{fsys: sub}
}

// NewDirLoader serves datasets from dir on disk.
func NewDirLoader(dir string) *FSLoader {
	return &FSLoader{fsys: os.DirFS(dir)}
}

func (l *FSLoader) LoadChallengeSet(_ context.Context, t domain.ChallengeType) (domain.ChallengeSet, error) {
	name := FileName(t)
	if name == "" {
		return domain.ChallengeSet{}, domain.ErrContentNotFound
	}
	data, err := fs.ReadFile(l.fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.ChallengeSet{}, fmt.Errorf("%s: %w", name, domain.ErrContentNotFound)
	}
	if err != nil {
		return domain.ChallengeSet{}, fmt.Errorf("read %s: %w", name, err)
	}
	items, err := Decode(data)
	if err != nil {
		return domain.ChallengeSet{}, fmt.Errorf("decode %s: %w", name, err)
	}
	return domain.ChallengeSet{Type: t, Items: items}, nil
}

// Decode parses a dataset and drops entries without a prompt or answer.
func Decode(data []byte) ([]domain.ChallengeItem, error) {
	var raw []domain.ChallengeItem
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	items := raw[:0]
	for _, item := range raw {
		item.Prompt = strings.TrimSpace(item.Prompt)
		item.Answer = strings.TrimSpace(item.Answer)
		if item.Prompt == "" || item.Answer == "" {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// WriteFile stores items as a dataset file in dir.
func WriteFile(dir string, t domain.ChallengeType, items []domain.ChallengeItem) (string, error) {
	name := FileName(t)
	if name == "" {
		return "", domain.Invalid("challengeType", "must be one of word, idiom, verb")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	return path, os.WriteFile(path, data, 0o644)
}

// StaticLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticLoader struct {
	sets map[domain.ChallengeType][]domain.ChallengeItem
}

func NewStaticLoader(sets map[domain.ChallengeType][]domain.ChallengeItem) *StaticLoader {
	return &StaticLoader{sets: sets}
}

func (l *StaticLoader) LoadChallengeSet(_ context.Context, t domain.ChallengeType) (domain.ChallengeSet, error) {
	items, ok := l.sets[t]
	if !ok {
		return domain.ChallengeSet{}, domain.ErrContentNotFound
	}
	return domain.ChallengeSet{Type: t, Items: items}, nil
}
