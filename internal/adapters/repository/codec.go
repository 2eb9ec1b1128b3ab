package repository

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/csv"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/sborms/cyclingsimilarity.com/internal/domain/factorization"
)

// Table is a rectangular string table with a header row.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Column returns the position of name in the header, or -1.
func (t Table) Column(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// EncodeTable renders t as CSV with a header line.
func EncodeTable(t Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Columns); err != nil {
		return nil, err
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return nil, fmt.Errorf("%w: row %d has %d fields, header has %d", ErrFormat, i, len(row), len(t.Columns))
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeTable parses CSV with a header line.
func DecodeTable(data []byte) (Table, error) {
	r := csv.NewReader(bytes.NewReader(data))
	header, err := r.Read()
	if err == io.EOF {
		return Table{}, fmt.Errorf("%w: empty table", ErrFormat)
	}
	if err != nil {
		return Table{}, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	rows, err := r.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	return Table{Columns: header, Rows: rows}, nil
}

// storedSnapshot is the on-store envelope: gob-encoded snapshot, gzip
// compressed, with a SHA-256 checksum of the uncompressed bytes.
type storedSnapshot struct {
	Version        int
	SnapshotID     string
	SavedAt        time.Time
	Checksum       string
	CompressedData []byte
}

const snapshotFormatVersion = 1

// EncodeSnapshot serializes s into the checksummed envelope.
func EncodeSnapshot(s *factorization.Snapshot) ([]byte, error) {
	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(s); err != nil {
		return nil, fmt.Errorf("encode model: %w", err)
	}
	sum := sha256.Sum256(raw.Bytes())

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw.Bytes()); err != nil {
		return nil, fmt.Errorf("compress model: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return nil, fmt.Errorf("finalize compression: %w", err)
	}

	var out bytes.Buffer
	env := storedSnapshot{
		Version:        snapshotFormatVersion,
		SnapshotID:     s.ID,
		SavedAt:        time.Now().UTC(),
		Checksum:       hex.EncodeToString(sum[:]),
		CompressedData: compressed.Bytes(),
	}
	if err := gob.NewEncoder(&out).Encode(env); err != nil {
		return nil, fmt.Errorf("write envelope: %w", err)
	}
	return out.Bytes(), nil
}

// DecodeSnapshot verifies and deserializes an envelope produced by
// EncodeSnapshot.
func DecodeSnapshot(data []byte) (*factorization.Snapshot, error) {
	var env storedSnapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: read envelope: %w", ErrFormat, err)
	}
	if env.Version != snapshotFormatVersion {
		return nil, fmt.Errorf("%w: unsupported snapshot version %d", ErrFormat, env.Version)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(env.CompressedData))
	if err != nil {
		return nil, fmt.Errorf("%w: decompress model: %w", ErrFormat, err)
	}
	defer func() { _ = gzr.Close() }()
	raw, err := io.ReadAll(gzr)
	if err != nil {
		return nil, fmt.Errorf("%w: read decompressed data: %w", ErrFormat, err)
	}

	sum := sha256.Sum256(raw)
	if got := hex.EncodeToString(sum[:]); got != env.Checksum {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrChecksum, env.Checksum, got)
	}

	var s factorization.Snapshot
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: decode model: %w", ErrFormat, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	return &s, nil
}
