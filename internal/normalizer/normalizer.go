// Package normalizer turns heterogeneous scheme CSV rows into the canonical
// document/metadata pairs the vector index ingests.
package normalizer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/schemedex/internal/domain"
)

// segmentDelimiter joins "Label: value" document segments.
const segmentDelimiter = " | "

// Row is one raw record keyed by canonical field name. Values are already
// trimmed and quote-stripped; absent fields are simply missing keys.
type Row map[string]string

// Normalizer builds canonical documents from raw rows.
type Normalizer struct {
	maxChunkTokens int
	logger         *zap.Logger
}

// New creates a Normalizer. maxChunkTokens <= 0 falls back to 500.
func New(maxChunkTokens int, logger *zap.Logger) *Normalizer {
	if maxChunkTokens <= 0 {
		maxChunkTokens = 500
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{maxChunkTokens: maxChunkTokens, logger: logger}
}

// ReadCSV parses a scheme CSV file into canonical rows.
// Returns domain.ErrNotFound when the file does not exist and
// domain.ErrInvalidInput when no canonical column can be resolved.
func (n *Normalizer) ReadCSV(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("csv file %s: %w", path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("open csv %s: %w", path, err)
	}
	defer f.Close()

	rows, err := n.readCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read csv %s: %w", path, err)
	}
	return rows, nil
}

func (n *Normalizer) readCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // tolerate ragged rows, validated per field below

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	mapping := MapColumns(header)
	if len(mapping) == 0 {
		return nil, fmt.Errorf("no recognizable scheme columns in header %v: %w",
			header, domain.ErrInvalidInput)
	}
	n.logger.Info("Mapped CSV columns",
		zap.Int("columns", len(header)),
		zap.Int("mapped", len(mapping)),
	)

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}

		row := make(Row, len(mapping))
		for field, col := range mapping {
			if col >= len(record) {
				continue
			}
			if v := cleanValue(record[col]); v != "" {
				row[field] = v
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// Normalize maps raw rows to canonical documents with metadata attached.
// Rows with no canonical content are dropped (logged, never fatal); oversized
// documents are chunked, each chunk sharing the origin row's metadata under a
// derived source id. Output order follows input order and is deterministic.
func (n *Normalizer) Normalize(rows []Row) []domain.Document {
	var docs []domain.Document
	dropped := 0

	for idx, row := range rows {
		text := BuildDocumentText(row)
		if text == "" {
			dropped++
			n.logger.Debug("Dropped empty row", zap.Int("row_index", idx))
			continue
		}

		meta := metaFromRow(row, idx)
		chunks := ChunkText(text, n.maxChunkTokens)
		base := fmt.Sprintf("%s_row_%d", meta.SchemeName, idx)

		for c, chunk := range chunks {
			m := meta
			if len(chunks) > 1 {
				m.Source = fmt.Sprintf("%s_chunk_%d", base, c)
			} else {
				m.Source = base
			}
			docs = append(docs, domain.Document{Text: chunk, Meta: m})
		}
	}

	if dropped > 0 {
		n.logger.Info("Dropped rows without canonical content",
			zap.Int("dropped", dropped),
			zap.Int("total", len(rows)),
		)
	}

	return docs
}

// BuildDocumentText flattens a row into "Label: value" segments in the fixed
// canonical field order. Returns "" when no canonical field is present.
func BuildDocumentText(row Row) string {
	parts := make([]string, 0, len(fieldOrder))
	for _, field := range fieldOrder {
		v, ok := row[field]
		if !ok || v == "" {
			continue
		}
		parts = append(parts, fieldLabels[field]+": "+v)
	}
	return strings.Join(parts, segmentDelimiter)
}

// metaFromRow resolves row metadata once, with sentinel defaults applied.
func metaFromRow(row Row, idx int) domain.SchemeMeta {
	m := domain.SchemeMeta{
		SchemeName:  row[FieldSchemeName],
		Sector:      row[FieldCategory],
		State:       row[FieldState],
		Eligibility: row[FieldEligibility],
		Benefits:    row[FieldBenefits],
		OfficialURL: row[FieldOfficialURL],
		Level:       row[FieldLevel],
		Tags:        row[FieldTags],
		RowIndex:    idx,
	}
	m.ApplyDefaults()
	return m
}

// cleanValue trims whitespace and strips embedded double quotes, matching how
// the reference dataset was scraped.
func cleanValue(v string) string {
	return strings.TrimSpace(strings.ReplaceAll(v, `"`, ""))
}
