package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsplit-dev/finsplit/internal/fixture"
	"github.com/finsplit-dev/finsplit/internal/ingest"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()
	storePath := filepath.Join(t.TempDir(), "finsplit.sqlite")
	h := &Handler{
		StorePath: storePath,
		Ingest:    ingest.NewService(ingest.Options{StorePath: storePath, Logger: zerolog.Nop()}),
		Log:       zerolog.Nop(),
	}
	return NewApp(h)
}

func uploadRequest(t *testing.T, files map[string][]byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, data := range files {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, v), "body: %s", body)
}

func statementXLSX(t *testing.T) []byte {
	return fixture.XLSX(t, fixture.Grid(
		[]string{"1234-567-8901ACME CORP"},
		fixture.Txn("E1", "$60.00", "", "Rent", "", "2025-01-01", "T1"),
		fixture.Txn("E1", "$40.00", "", "", "Coffee", "2025-01-02", "T2"),
	))
}

func TestHealthEndpoint(t *testing.T) {
	app := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result map[string]string
	decode(t, resp, &result)
	assert.Equal(t, "ok", result["status"])
}

func TestUploadThenRead(t *testing.T) {
	app := setupTestApp(t)

	resp, err := app.Test(uploadRequest(t, map[string][]byte{"jan.xlsx": statementXLSX(t)}), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var up UploadResponse
	decode(t, resp, &up)
	assert.True(t, up.Success)
	assert.Equal(t, "Upload successful", up.Message)
	assert.Equal(t, 2, up.Stored)
	require.Len(t, up.Files, 1)
	assert.Equal(t, 2, up.Files[0].Inserted)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/transactions", nil), -1)
	require.NoError(t, err)
	var list struct {
		Count        int `json:"count"`
		Transactions []struct {
			Amount        string `json:"amount"`
			Name          string `json:"name"`
			AccountNumber string `json:"account_number"`
		} `json:"transactions"`
	}
	decode(t, resp, &list)
	assert.Equal(t, 2, list.Count)
	assert.Equal(t, "60", list.Transactions[0].Amount)
	assert.Equal(t, "Coffee", list.Transactions[1].Name)
	assert.Equal(t, "1234-567-8901", list.Transactions[1].AccountNumber)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/summary", nil), -1)
	require.NoError(t, err)
	var summary struct {
		Total  string `json:"total"`
		Slices []struct {
			Name    string `json:"name"`
			Percent string `json:"percent"`
		} `json:"slices"`
	}
	decode(t, resp, &summary)
	assert.Equal(t, "100", summary.Total)
	require.Len(t, summary.Slices, 2)
	assert.Equal(t, "Rent", summary.Slices[0].Name)
	assert.Equal(t, "60", summary.Slices[0].Percent)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/accounts", nil), -1)
	require.NoError(t, err)
	var accts struct {
		Accounts []struct {
			Number string `json:"account_number"`
			Name   string `json:"account_name"`
		} `json:"accounts"`
	}
	decode(t, resp, &accts)
	require.Len(t, accts.Accounts, 1)
	assert.Equal(t, "ACME CORP", accts.Accounts[0].Name)
}

func TestUpload_Twice(t *testing.T) {
	app := setupTestApp(t)
	data := statementXLSX(t)

	_, err := app.Test(uploadRequest(t, map[string][]byte{"jan.xlsx": data}), -1)
	require.NoError(t, err)
	resp, err := app.Test(uploadRequest(t, map[string][]byte{"jan-copy.xlsx": data}), -1)
	require.NoError(t, err)

	var up UploadResponse
	decode(t, resp, &up)
	assert.Equal(t, 2, up.Stored)
	assert.Equal(t, 2, up.Files[0].Duplicates)
}

func TestUpload_PerFileError(t *testing.T) {
	app := setupTestApp(t)

	resp, err := app.Test(uploadRequest(t, map[string][]byte{"broken.xlsx": []byte("not a workbook")}), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var up UploadResponse
	decode(t, resp, &up)
	assert.False(t, up.Success)
	assert.True(t, strings.HasPrefix(up.Message, "Error processing broken.xlsx"), up.Message)
	assert.Equal(t, 0, up.Stored)
}

func TestUpload_NoData(t *testing.T) {
	app := setupTestApp(t)

	resp, err := app.Test(uploadRequest(t, map[string][]byte{"empty.xlsx": fixture.XLSX(t, fixture.Grid())}), -1)
	require.NoError(t, err)

	var up UploadResponse
	decode(t, resp, &up)
	assert.True(t, up.Success)
	assert.Equal(t, "Upload completed but no data.", up.Message)
}

func TestUpload_RequiresFiles(t *testing.T) {
	app := setupTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
	req.Header.Set("Content-Type", "multipart/form-data; boundary=----test")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSheetsEndpoint(t *testing.T) {
	app := setupTestApp(t)

	rows := make([][]any, 0, 14)
	for i := 0; i < 11; i++ {
		rows = append(rows, []any{"banner"})
	}
	rows = append(rows,
		[]any{"Account", "Entity Code", "Credit", "Debit", "Original Master Name"},
		[]any{"1234-567-8901ACME"},
		[]any{nil, "E1", nil, 12.5, "Books"},
	)
	body, err := json.Marshal(map[string]any{
		"name":   "manual",
		"sheets": []any{map[string]any{"name": "s1", "rows": rows}},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/sheets", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var up UploadResponse
	decode(t, resp, &up)
	assert.True(t, up.Success)
	assert.Equal(t, 1, up.Stored)
	assert.Equal(t, "manual", up.Files[0].Name)
}

func TestSheetsEndpoint_Empty(t *testing.T) {
	app := setupTestApp(t)
	req := httptest.NewRequest(http.MethodPost, "/api/sheets", strings.NewReader(`{"sheets":[]}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestEmptyLedger(t *testing.T) {
	app := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/transactions", nil), -1)
	require.NoError(t, err)
	var list struct {
		Count        int               `json:"count"`
		Transactions []json.RawMessage `json:"transactions"`
	}
	decode(t, resp, &list)
	assert.Equal(t, 0, list.Count)
	assert.NotNil(t, list.Transactions)
}
