package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/logger"
)

const maxLineSize = 32 << 20

// JSONL reads one JSON object per line from every file matching its glob
// patterns. Patterns support ** for recursive matches.
type JSONL struct {
	patterns []string
	logger   *slog.Logger
}

func NewJSONL(patterns ...string) *JSONL {
	return &JSONL{
		patterns: patterns,
		logger:   logger.WithComponent("jsonl-source"),
	}
}

func (j *JSONL) Name() string { return "jsonl" }

type jsonlRecord struct {
	ID       json.RawMessage `json:"id"`
	Contents string          `json:"contents"`
	Title    string          `json:"title"`
	Body     string          `json:"body"`
}

// Files expands the patterns into a sorted, duplicate-free file list.
func (j *JSONL) Files() ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range j.patterns {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, apperrors.Configurationf("bad glob pattern %q: %v", pattern, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	if len(files) == 0 {
		return nil, apperrors.Configurationf("no files match %v", j.patterns)
	}
	sort.Strings(files)
	return files, nil
}

func (j *JSONL) Stream(ctx context.Context, out chan<- ingestion.Document) error {
	files, err := j.Files()
	if err != nil {
		return err
	}
	for _, path := range files {
		n, err := j.streamFile(ctx, path, out)
		if err != nil {
			return err
		}
		j.logger.Debug("file streamed", "path", path, "documents", n)
	}
	return nil
}

func (j *JSONL) streamFile(ctx context.Context, path string, out chan<- ingestion.Document) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	count, lineNo := 0, 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		doc, err := decodeLine(line)
		if err != nil {
			return count, apperrors.InvalidArgumentf("%s:%d: %v", path, lineNo, err)
		}
		if err := send(ctx, out, doc); err != nil {
			return count, err
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("reading %s: %w", path, err)
	}
	return count, nil
}

func decodeLine(line []byte) (ingestion.Document, error) {
	var rec jsonlRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return ingestion.Document{}, err
	}
	id, err := decodeID(rec.ID)
	if err != nil {
		return ingestion.Document{}, err
	}
	return ingestion.Document{
		ID:       id,
		Contents: ingestion.JoinFields(rec.Contents, rec.Title, rec.Body),
	}, nil
}

// decodeID accepts string or numeric identifiers; numbers keep their
// literal text.
func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", fmt.Errorf("missing id")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("id must be a string or number: %w", err)
	}
	return n.String(), nil
}
