package file

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/goodtune/timelog/internal/storage"
	"github.com/rs/zerolog"
)

// header is written once when the log is created. Logs written before the
// project column existed carry a three column header and three field rows.
var header = []string{"task", "duration_ms", "date", "project"}

type recordStore struct {
	path        string
	lockTimeout time.Duration
	logger      zerolog.Logger
}

func (s *recordStore) Lock(ctx context.Context) (func() error, error) {
	return lockPath(ctx, s.path, s.lockTimeout, s.logger)
}

func (s *recordStore) LoadAll(ctx context.Context) ([]storage.Record, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open record file: %w", err)
	}
	defer f.Close()

	records, err := ReadRecords(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	s.logger.Debug().
		Str("path", s.path).
		Int("records", len(records)).
		Msg("Loaded record log")

	return records, nil
}

func (s *recordStore) Append(ctx context.Context, record storage.Record) error {
	if err := storage.EnsureParentDir(s.path); err != nil {
		return fmt.Errorf("create record directory: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open record file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat record file: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("write record header: %w", err)
		}
	}
	if err := w.Write(encodeRow(record)); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush record: %w", err)
	}
	return nil
}

func (s *recordStore) SaveAll(ctx context.Context, records []storage.Record) error {
	err := writeAtomic(s.path, func(f *os.File) error {
		return WriteRecords(f, records)
	})
	if err != nil {
		return fmt.Errorf("rewrite record file: %w", err)
	}
	return nil
}

// ReadRecords parses a record log. A leading header row is skipped.
func ReadRecords(r io.Reader) ([]storage.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var records []storage.Record
	for line := 1; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("unable to read CSV record: %w", err)
		}
		if line == 1 && isHeader(row) {
			continue
		}

		rec, err := decodeRow(row)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", line, err)
		}
		records = append(records, rec)
	}

	if records == nil {
		records = []storage.Record{}
	}
	return records, nil
}

// WriteRecords writes a header and every record.
func WriteRecords(w io.Writer, records []storage.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, rec := range records {
		if err := cw.Write(encodeRow(rec)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func isHeader(row []string) bool {
	return len(row) >= 3 && row[0] == "task" && row[1] == "duration_ms" && row[2] == "date"
}

func encodeRow(r storage.Record) []string {
	return []string{
		r.Task,
		strconv.FormatInt(r.DurationMS, 10),
		r.DateString(),
		r.Project,
	}
}

func decodeRow(row []string) (storage.Record, error) {
	if len(row) < 3 {
		return storage.Record{}, fmt.Errorf("invalid CSV record format: expected at least 3 fields, got %d", len(row))
	}

	durationMS, err := strconv.ParseInt(row[1], 10, 64)
	if err != nil {
		return storage.Record{}, fmt.Errorf("invalid duration %q", row[1])
	}
	if durationMS < 0 {
		return storage.Record{}, fmt.Errorf("negative duration %d", durationMS)
	}

	date, err := storage.ParseDate(row[2])
	if err != nil {
		return storage.Record{}, fmt.Errorf("invalid date %q", row[2])
	}

	rec := storage.Record{
		Task:       row[0],
		DurationMS: durationMS,
		Date:       date,
	}
	if len(row) >= 4 {
		rec.Project = row[3]
	}
	return rec, nil
}
