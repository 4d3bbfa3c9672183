package ingest

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsplit-dev/finsplit/internal/fixture"
	"github.com/finsplit-dev/finsplit/internal/importer"
	"github.com/finsplit-dev/finsplit/internal/ingestlog"
	"github.com/finsplit-dev/finsplit/internal/model"
	"github.com/finsplit-dev/finsplit/internal/sheet"
	"github.com/finsplit-dev/finsplit/internal/store"
)

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	svc := NewService(Options{
		StorePath: filepath.Join(dir, "finsplit.sqlite"),
		LogPath:   filepath.Join(dir, "logs", "ingest-log.csv"),
		Logger:    zerolog.Nop(),
	})
	svc.now = func() time.Time { return time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC) }
	svc.newID = func() string { return "batch-1" }
	return svc, dir
}

func memFile(name string, data []byte) File {
	return File{
		Name: name,
		Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

func stored(t *testing.T, svc *Service) []model.Transaction {
	t.Helper()
	var all []model.Transaction
	err := store.With(context.Background(), svc.storePath, func(s *store.Store) error {
		var err error
		all, err = s.All(context.Background())
		return err
	})
	require.NoError(t, err)
	return all
}

func TestIngestFiles_EndToEnd(t *testing.T) {
	svc, _ := newTestService(t)
	data := fixture.XLSX(t, fixture.Grid(
		[]string{"1234-567-8901ACME CORP"},
		fixture.Txn("E1", "$1,234.56", "", "Coffee Co", "latte", "2025-01-03", "T1"),
	))

	batch, err := svc.IngestFiles(context.Background(), []File{memFile("jan.xlsx", data)})
	require.NoError(t, err)
	assert.Equal(t, "batch-1", batch.ID)
	require.Len(t, batch.Files, 1)
	assert.NoError(t, batch.Files[0].Err)
	assert.Equal(t, 1, batch.Inserted())
	assert.Equal(t, "Processed jan.xlsx: 1 new, 0 duplicate", batch.Files[0].Message())

	all := stored(t, svc)
	require.Len(t, all, 1)
	txn := all[0]
	assert.Equal(t, "1234.56", txn.Amount.StringFixed(2))
	assert.Equal(t, "Coffee Co", txn.Name)
	assert.Equal(t, "2025-01-03", txn.Date)
	assert.Equal(t, "latte", txn.Memo)
	assert.Equal(t, "T1", txn.TransactionID)
	assert.Equal(t, "1234-567-8901", txn.AccountNumber)
	assert.Equal(t, "ACME CORP", txn.AccountName)
}

func TestIngestFiles_NumericAmountCells(t *testing.T) {
	svc, _ := newTestService(t)
	grid := fixture.Grid(
		[]string{"1234-567-8901ACME CORP"},
		fixture.Txn("E1", "", "", "Refund", "", "", "T1"),
		fixture.Txn("E1", "", "", "Coffee Co", "", "", "T2"),
	)
	data := fixture.XLSXTyped(t, grid,
		fixture.Typed{Cell: "C15", Value: -1234.56, CustomNumFmt: "#,##0.00;(#,##0.00)"},
		fixture.Typed{Cell: "C16", Value: 12.345, NumFmt: 2},
		fixture.Typed{Cell: "G16", Value: 45660, NumFmt: 14},
	)

	batch, err := svc.IngestFiles(context.Background(), []File{memFile("typed.xlsx", data)})
	require.NoError(t, err)
	assert.Equal(t, 0, batch.Files[0].Fallbacks)

	all := stored(t, svc)
	require.Len(t, all, 2)
	assert.Equal(t, "-1234.56", all[0].Amount.String())
	assert.Equal(t, "12.345", all[1].Amount.String())
	assert.Equal(t, "2025-01-03 00:00:00", all[1].Date)
}

func TestIngestFiles_Idempotent(t *testing.T) {
	svc, _ := newTestService(t)
	data := fixture.XLSX(t, fixture.Grid(
		[]string{"1234-567-8901ACME"},
		fixture.Txn("E1", "$1.00", "", "A", "", "d1", "T1"),
		fixture.Txn("E1", "", "$2.00", "", "B memo", "d2", "T2"),
	))
	ctx := context.Background()

	_, err := svc.IngestFiles(ctx, []File{memFile("jan.xlsx", data)})
	require.NoError(t, err)
	first := stored(t, svc)

	batch, err := svc.IngestFiles(ctx, []File{memFile("jan.xlsx", data)})
	require.NoError(t, err)
	assert.Equal(t, 0, batch.Inserted())
	assert.Equal(t, 2, batch.Files[0].Duplicates)
	assert.Equal(t, first, stored(t, svc))
}

func TestIngestFiles_FailedFileDoesNotStopBatch(t *testing.T) {
	svc, dir := newTestService(t)
	good := fixture.XLSX(t, fixture.Grid(fixture.Txn("E1", "$3", "", "A", "", "", "T1")))
	short := fixture.XLSX(t, [][]string{{"label"}, {"just one row"}})

	batch, err := svc.IngestFiles(context.Background(), []File{
		memFile("short.xlsx", short),
		memFile("notes.txt", []byte("hello")),
		memFile("good.xlsx", good),
	})
	require.NoError(t, err)
	require.Len(t, batch.Files, 3)

	assert.ErrorIs(t, batch.Files[0].Err, sheet.ErrSheetTooShort)
	assert.Contains(t, batch.Files[0].Message(), "Error processing short.xlsx")
	assert.ErrorIs(t, batch.Files[1].Err, importer.ErrUnsupportedFormat)
	assert.NoError(t, batch.Files[2].Err)
	assert.Len(t, batch.Failed(), 2)
	assert.Len(t, stored(t, svc), 1)

	entries, err := ingestlog.Read(filepath.Join(dir, "logs", "ingest-log.csv"))
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, ingestlog.StatusFailed, entries[0].Status)
	assert.Contains(t, entries[0].Detail, "sheet too short")
	assert.Equal(t, ingestlog.StatusOK, entries[2].Status)
	assert.Equal(t, 1, entries[2].Inserted)
	assert.Equal(t, "batch-1", entries[2].BatchID)
}

func TestIngestFiles_FirstSheetOnly(t *testing.T) {
	svc, _ := newTestService(t)
	data := fixture.XLSX(t,
		fixture.Grid(fixture.Txn("E1", "$1", "", "A", "", "", "T1")),
		fixture.Grid(fixture.Txn("E1", "$2", "", "B", "", "", "T2")),
	)

	batch, err := svc.IngestFiles(context.Background(), []File{memFile("two.xlsx", data)})
	require.NoError(t, err)
	assert.Equal(t, 1, batch.Files[0].Sheets)
	assert.Len(t, stored(t, svc), 1)
}

func TestIngestFiles_AllSheets(t *testing.T) {
	svc, _ := newTestService(t)
	svc.allSheets = true
	data := fixture.XLSX(t,
		fixture.Grid([]string{"1111-111-1111FIRST"}, fixture.Txn("E1", "$1", "", "A", "", "", "T1")),
		fixture.Grid(fixture.Txn("E1", "$1", "", "A", "", "", "T1")),
	)

	batch, err := svc.IngestFiles(context.Background(), []File{memFile("two.xlsx", data)})
	require.NoError(t, err)
	assert.Equal(t, 2, batch.Files[0].Sheets)

	all := stored(t, svc)
	require.Len(t, all, 2, "account context resets per sheet")
	assert.Equal(t, "FIRST", all[0].AccountName)
	assert.Empty(t, all[1].AccountName)
}

func TestIngestFiles_CSV(t *testing.T) {
	svc, _ := newTestService(t)
	data := fixture.CSV(t, fixture.Grid(
		[]string{"1234-567-8901ACME"},
		fixture.Txn("E1", "", "$9.99", "", "SUBSCRIPTION", "2025-02-01", "T7"),
	))

	_, err := svc.IngestFiles(context.Background(), []File{memFile("feb.csv", data)})
	require.NoError(t, err)
	all := stored(t, svc)
	require.Len(t, all, 1)
	assert.Equal(t, "SUBSCRIPTION", all[0].Name)
	assert.Equal(t, "9.99", all[0].Amount.String())
}

func TestIngestFiles_StoreUnavailable(t *testing.T) {
	svc, dir := newTestService(t)
	svc.storePath = filepath.Join(dir, "missing", "dir", "finsplit.sqlite")
	data := fixture.XLSX(t, fixture.Grid())

	_, err := svc.IngestFiles(context.Background(), []File{memFile("jan.xlsx", data)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch batch-1")
}

func TestIngestSheets(t *testing.T) {
	svc, _ := newTestService(t)
	var rows [][]model.Cell
	for i := 0; i < sheet.BannerRows; i++ {
		rows = append(rows, []model.Cell{model.StringCell("banner")})
	}
	rows = append(rows,
		[]model.Cell{model.StringCell("x"), model.StringCell("Entity Code"), model.StringCell("Credit")},
		[]model.Cell{model.StringCell("1234-567-8901ACME")},
		[]model.Cell{{}, model.StringCell("E1"), model.NumberCell(12.5)},
	)

	batch, err := svc.IngestSheets(context.Background(), "api", []model.RawSheet{{Name: "api", Rows: rows}})
	require.NoError(t, err)
	assert.Equal(t, 1, batch.Inserted())

	all := stored(t, svc)
	require.Len(t, all, 1)
	assert.Equal(t, "12.5", all[0].Amount.String())
	assert.Equal(t, "ACME", all[0].AccountName)
}

func TestIngestDir_MovesProcessed(t *testing.T) {
	svc, dir := newTestService(t)
	importDir := filepath.Join(dir, "import")
	require.NoError(t, os.MkdirAll(importDir, 0o755))

	good := fixture.XLSX(t, fixture.Grid(fixture.Txn("E1", "$1", "", "A", "", "", "T1")))
	short := fixture.XLSX(t, [][]string{{"label"}})
	require.NoError(t, os.WriteFile(filepath.Join(importDir, "good.xlsx"), good, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(importDir, "short.xlsx"), short, 0o644))

	batch, err := svc.IngestDir(context.Background(), dir, true)
	require.NoError(t, err)
	require.Len(t, batch.Files, 2)

	_, err = os.Stat(filepath.Join(importDir, "processed", "good.xlsx"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(importDir, "short.xlsx"))
	assert.NoError(t, err, "failed files stay in import/")
}

func TestIngestDir_NoMove(t *testing.T) {
	svc, dir := newTestService(t)
	importDir := filepath.Join(dir, "import")
	require.NoError(t, os.MkdirAll(importDir, 0o755))
	good := fixture.XLSX(t, fixture.Grid(fixture.Txn("E1", "$1", "", "A", "", "", "T1")))
	require.NoError(t, os.WriteFile(filepath.Join(importDir, "good.xlsx"), good, 0o644))

	_, err := svc.IngestDir(context.Background(), dir, false)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(importDir, "good.xlsx"))
	assert.NoError(t, err)
}
