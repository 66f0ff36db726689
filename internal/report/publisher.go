package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/backroom/internal/domain"
	"github.com/andresuchdata/backroom/internal/storage"
)

// Document is the JSON envelope of a published ranking.
type Document struct {
	RunID       string                        `json:"run_id"`
	GeneratedAt time.Time                     `json:"generated_at"`
	Summary     domain.RankingSummary         `json:"summary"`
	Entries     []domain.ReorderPriorityEntry `json:"entries"`
	Skipped     []domain.SkippedItem          `json:"skipped"`
}

// NewDocument wraps a ranking report with its run metadata.
func NewDocument(runID string, generatedAt time.Time, r *domain.RankingReport) Document {
	return Document{
		RunID:       runID,
		GeneratedAt: generatedAt.UTC(),
		Summary:     r.Summary(),
		Entries:     r.Entries,
		Skipped:     r.Skipped,
	}
}

// WriteJSON writes the document as indented JSON.
func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode report json: %w", err)
	}
	return nil
}

// Published lists the object keys written for a run.
type Published struct {
	CSVKey     string `json:"csv_key"`
	JSONKey    string `json:"json_key"`
	SkippedKey string `json:"skipped_key"`
}

// Publisher uploads ranking reports to object storage.
type Publisher struct {
	store  storage.ObjectStorage
	prefix string
	now    func() time.Time
}

func NewPublisher(store storage.ObjectStorage, prefix string) *Publisher {
	return &Publisher{store: store, prefix: prefix, now: time.Now}
}

const (
	jsonExt    = ".json"
	csvExt     = ".csv"
	skippedExt = ".skipped.csv"
)

// Keys returns the object keys of a run: <prefix>/<yyyy-mm-dd>/<run-id>{.csv,.json,.skipped.csv}.
func (p *Publisher) Keys(runID string, at time.Time) Published {
	return keysFor(path.Join(p.prefix, domain.DateOf(at.UTC()).String(), runID))
}

func keysFor(base string) Published {
	return Published{CSVKey: base + csvExt, JSONKey: base + jsonExt, SkippedKey: base + skippedExt}
}

// Publish uploads the ranking CSV, the skipped-items CSV and the JSON document of r.
func (p *Publisher) Publish(ctx context.Context, runID string, r *domain.RankingReport) (Published, error) {
	at := p.now()
	keys := p.Keys(runID, at)

	var csvBuf bytes.Buffer
	if err := WriteRankingCSV(&csvBuf, r); err != nil {
		return Published{}, err
	}
	var skippedBuf bytes.Buffer
	if err := WriteSkippedCSV(&skippedBuf, r); err != nil {
		return Published{}, err
	}
	var jsonBuf bytes.Buffer
	if err := WriteJSON(&jsonBuf, NewDocument(runID, at, r)); err != nil {
		return Published{}, err
	}

	if err := p.store.UploadObject(ctx, keys.CSVKey, csvBuf.Bytes()); err != nil {
		return Published{}, fmt.Errorf("publish csv: %w", err)
	}
	if err := p.store.UploadObject(ctx, keys.SkippedKey, skippedBuf.Bytes()); err != nil {
		return Published{}, fmt.Errorf("publish skipped csv: %w", err)
	}
	// json goes last: Latest only considers runs whose document exists
	if err := p.store.UploadObject(ctx, keys.JSONKey, jsonBuf.Bytes()); err != nil {
		return Published{}, fmt.Errorf("publish json: %w", err)
	}

	log.Info().
		Str("run_id", runID).
		Str("csv", keys.CSVKey).
		Str("json", keys.JSONKey).
		Int("skipped", len(r.Skipped)).
		Msg("report: ranking published")
	return keys, nil
}

// Latest finds the most recently generated document under the prefix.
// ok is false when nothing has been published yet.
func (p *Publisher) Latest(ctx context.Context) (doc Document, keys Published, ok bool, err error) {
	objects, err := p.store.ListObjects(ctx, p.prefix)
	if err != nil {
		return Document{}, Published{}, false, fmt.Errorf("list reports: %w", err)
	}

	// keys sort by their date directory; only the newest day is downloaded
	var candidates []string
	for _, obj := range objects {
		if p.isDocumentKey(obj.Key) {
			candidates = append(candidates, obj.Key)
		}
	}
	if len(candidates) == 0 {
		return Document{}, Published{}, false, nil
	}
	sort.Strings(candidates)
	newestDay := path.Dir(candidates[len(candidates)-1])

	tmp, err := os.MkdirTemp("", "backroom-report-*")
	if err != nil {
		return Document{}, Published{}, false, fmt.Errorf("create download dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	for _, key := range candidates {
		if path.Dir(key) != newestDay {
			continue
		}
		d, derr := p.download(ctx, key, filepath.Join(tmp, path.Base(key)))
		if derr != nil {
			return Document{}, Published{}, false, derr
		}
		if !ok || d.GeneratedAt.After(doc.GeneratedAt) {
			doc, keys, ok = d, keysFor(strings.TrimSuffix(key, jsonExt)), true
		}
	}
	return doc, keys, ok, nil
}

// isDocumentKey matches <prefix>/<yyyy-mm-dd>/<run-id>.json.
func (p *Publisher) isDocumentKey(key string) bool {
	if path.Ext(key) != jsonExt {
		return false
	}
	day := path.Dir(key)
	if path.Dir(day) != path.Clean(p.prefix) {
		return false
	}
	name := path.Base(day)
	if len(name) != len(domain.DateLayout) {
		return false
	}
	_, err := domain.ParseDate(name)
	return err == nil
}

func (p *Publisher) download(ctx context.Context, key, dest string) (Document, error) {
	if err := p.store.DownloadObject(ctx, key, dest); err != nil {
		return Document{}, fmt.Errorf("download %s: %w", key, err)
	}
	payload, err := os.ReadFile(dest)
	if err != nil {
		return Document{}, fmt.Errorf("read %s: %w", dest, err)
	}
	var doc Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return Document{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return doc, nil
}
