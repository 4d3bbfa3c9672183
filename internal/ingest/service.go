// Package ingest runs statement files through decoding, normalization and
// ledger building against one store session per batch.
package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/finsplit-dev/finsplit/internal/importer"
	"github.com/finsplit-dev/finsplit/internal/ingestlog"
	"github.com/finsplit-dev/finsplit/internal/ledger"
	"github.com/finsplit-dev/finsplit/internal/model"
	"github.com/finsplit-dev/finsplit/internal/sheet"
	"github.com/finsplit-dev/finsplit/internal/store"
)

// File is one uploaded statement.
type File struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// LocalFile returns a File reading from disk.
func LocalFile(path string) File {
	return File{
		Name: filepath.Base(path),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// FileReport is the outcome of one file. Err is set when the file failed;
// counts still reflect rows committed before the failure.
type FileReport struct {
	Name           string
	Sheets         int
	Transactions   int
	Inserted       int
	Duplicates     int
	IgnoredHeaders int
	Fallbacks      int
	Unassigned     int
	Err            error
}

// Message returns the status line shown to the user.
func (r FileReport) Message() string {
	if r.Err != nil {
		return fmt.Sprintf("Error processing %s: %v", r.Name, r.Err)
	}
	return fmt.Sprintf("Processed %s: %d new, %d duplicate", r.Name, r.Inserted, r.Duplicates)
}

func (r *FileReport) add(res ledger.Result) {
	r.Transactions += len(res.Transactions)
	r.Inserted += res.Inserted
	r.Duplicates += res.Duplicates
	r.IgnoredHeaders += res.IgnoredHeaders
	r.Fallbacks += res.Fallbacks
	r.Unassigned += res.Unassigned
}

// Batch is the outcome of one ingestion call.
type Batch struct {
	ID    string
	Files []FileReport
}

// Failed returns the reports of files that did not complete.
func (b Batch) Failed() []FileReport {
	var out []FileReport
	for _, f := range b.Files {
		if f.Err != nil {
			out = append(out, f)
		}
	}
	return out
}

// Inserted returns the number of new records across the batch.
func (b Batch) Inserted() int {
	n := 0
	for _, f := range b.Files {
		n += f.Inserted
	}
	return n
}

// Options configures a Service.
type Options struct {
	StorePath string
	LogPath   string // ingestion log; empty disables it
	AllSheets bool   // false ingests only the first worksheet of a file
	Registry  *importer.Registry
	Logger    zerolog.Logger
}

// Service ingests statement files into the ledger.
type Service struct {
	storePath string
	logPath   string
	allSheets bool
	registry  *importer.Registry
	log       zerolog.Logger
	now       func() time.Time
	newID     func() string
}

// NewService creates an ingestion Service.
func NewService(opts Options) *Service {
	reg := opts.Registry
	if reg == nil {
		reg = importer.DefaultRegistry()
	}
	return &Service{
		storePath: opts.StorePath,
		logPath:   opts.LogPath,
		allSheets: opts.AllSheets,
		registry:  reg,
		log:       opts.Logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// IngestFiles ingests files in order within one store session. A file that
// cannot be decoded or normalized is reported and skipped. A store failure
// ends the batch and is returned.
func (s *Service) IngestFiles(ctx context.Context, files []File) (Batch, error) {
	batch := Batch{ID: s.newID()}
	log := s.log.With().Str("batch_id", batch.ID).Logger()

	err := store.With(ctx, s.storePath, func(st *store.Store) error {
		builder := ledger.NewBuilder(st, log)
		for _, f := range files {
			report, fatal := s.ingestFile(ctx, builder, f)
			batch.Files = append(batch.Files, report)
			s.logReport(log, report)
			if fatal != nil {
				return fatal
			}
		}
		return nil
	})
	s.appendLog(log, batch)
	if err != nil {
		return batch, fmt.Errorf("batch %s: %w", batch.ID, err)
	}
	return batch, nil
}

// IngestSheets ingests already decoded sheets as one file named name.
func (s *Service) IngestSheets(ctx context.Context, name string, sheets []model.RawSheet) (Batch, error) {
	batch := Batch{ID: s.newID()}
	log := s.log.With().Str("batch_id", batch.ID).Logger()

	err := store.With(ctx, s.storePath, func(st *store.Store) error {
		report := FileReport{Name: name}
		fatal := s.buildSheets(ctx, ledger.NewBuilder(st, log), &report, sheets)
		batch.Files = append(batch.Files, report)
		s.logReport(log, report)
		return fatal
	})
	s.appendLog(log, batch)
	if err != nil {
		return batch, fmt.Errorf("batch %s: %w", batch.ID, err)
	}
	return batch, nil
}

// IngestDir ingests every supported file in <root>/import. When move is set,
// files that completed are moved to <root>/import/processed.
func (s *Service) IngestDir(ctx context.Context, root string, move bool) (Batch, error) {
	infos, err := importer.Scan(root, s.registry)
	if err != nil {
		return Batch{}, err
	}

	files := make([]File, len(infos))
	for i, info := range infos {
		files[i] = LocalFile(info.Path)
	}

	batch, err := s.IngestFiles(ctx, files)
	if err != nil || !move {
		return batch, err
	}

	for _, r := range batch.Files {
		if r.Err != nil {
			continue
		}
		if err := importer.MarkProcessed(root, r.Name); err != nil {
			return batch, err
		}
	}
	return batch, nil
}

// ingestFile returns the file report and, separately, any error that must
// end the batch.
func (s *Service) ingestFile(ctx context.Context, b *ledger.Builder, f File) (FileReport, error) {
	report := FileReport{Name: f.Name}

	sheets, err := s.decode(f)
	if err != nil {
		report.Err = err
		return report, nil
	}
	fatal := s.buildSheets(ctx, b, &report, sheets)
	return report, fatal
}

func (s *Service) decode(f File) ([]model.RawSheet, error) {
	dec, err := s.registry.ForFile(f.Name)
	if err != nil {
		return nil, err
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", f.Name, err)
	}
	defer rc.Close()

	sheets, err := dec.Decode(rc)
	if err != nil {
		return nil, err
	}
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: no worksheets", sheet.ErrSheetTooShort)
	}
	return sheets, nil
}

// buildSheets records per-sheet failures on report and returns store errors.
func (s *Service) buildSheets(ctx context.Context, b *ledger.Builder, report *FileReport, sheets []model.RawSheet) error {
	if !s.allSheets && len(sheets) > 1 {
		sheets = sheets[:1]
	}
	for _, raw := range sheets {
		rows, err := sheet.Normalize(raw)
		if err != nil {
			report.Err = fmt.Errorf("sheet %q: %w", raw.Name, err)
			return nil
		}
		res, err := b.Build(ctx, rows)
		report.add(res)
		if err != nil {
			report.Err = fmt.Errorf("sheet %q: %w", raw.Name, err)
			return report.Err
		}
		report.Sheets++
	}
	return nil
}

func (s *Service) logReport(log zerolog.Logger, r FileReport) {
	if r.Err != nil {
		log.Error().Err(r.Err).Str("file", r.Name).Int("inserted", r.Inserted).Msg("file failed")
		return
	}
	log.Info().
		Str("file", r.Name).
		Int("sheets", r.Sheets).
		Int("inserted", r.Inserted).
		Int("duplicates", r.Duplicates).
		Int("ignored_headers", r.IgnoredHeaders).
		Int("amount_fallbacks", r.Fallbacks).
		Int("unassigned", r.Unassigned).
		Msg("file processed")
}

func (s *Service) appendLog(log zerolog.Logger, batch Batch) {
	if s.logPath == "" || len(batch.Files) == 0 {
		return
	}
	now := s.now()
	entries := make([]ingestlog.Entry, len(batch.Files))
	for i, r := range batch.Files {
		e := ingestlog.Entry{
			Timestamp:  now,
			BatchID:    batch.ID,
			File:       r.Name,
			Status:     ingestlog.StatusOK,
			Sheets:     r.Sheets,
			Inserted:   r.Inserted,
			Duplicates: r.Duplicates,
		}
		if r.Err != nil {
			e.Status = ingestlog.StatusFailed
			e.Detail = r.Err.Error()
		}
		entries[i] = e
	}
	if err := ingestlog.Append(s.logPath, entries); err != nil {
		log.Warn().Err(err).Msg("failed to write ingest log")
	}
}
