// Package server exposes the ledger over HTTP.
package server

import (
	"context"
	"io"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/finsplit-dev/finsplit/internal/accounts"
	"github.com/finsplit-dev/finsplit/internal/ingest"
	"github.com/finsplit-dev/finsplit/internal/model"
	"github.com/finsplit-dev/finsplit/internal/report"
	"github.com/finsplit-dev/finsplit/internal/store"
)

const uploadLimit = 32 << 20

// Handler holds the HTTP handlers. Every request opens the store for its own
// duration.
type Handler struct {
	StorePath string
	Ingest    *ingest.Service
	Log       zerolog.Logger
}

// FileStatus is the per-file part of an upload response.
type FileStatus struct {
	Name       string `json:"name"`
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Inserted   int    `json:"inserted"`
	Duplicates int    `json:"duplicates"`
}

// UploadResponse is the JSON response from the upload endpoints.
type UploadResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	BatchID string       `json:"batchId,omitempty"`
	Files   []FileStatus `json:"files"`
	Stored  int          `json:"stored"`
}

// SheetsRequest carries already decoded sheets.
type SheetsRequest struct {
	Name   string           `json:"name"`
	Sheets []model.RawSheet `json:"sheets"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewApp returns a fiber app with all routes registered.
func NewApp(h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "finsplit",
		BodyLimit:             uploadLimit,
		DisableStartupMessage: true,
	})
	h.RegisterRoutes(app)
	return app
}

// RegisterRoutes sets up the HTTP routes.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	api := app.Group("/api")
	api.Get("/health", h.handleHealth)
	api.Get("/transactions", h.handleTransactions)
	api.Get("/summary", h.handleSummary)
	api.Get("/accounts", h.handleAccounts)
	api.Post("/upload", h.handleUpload)
	api.Post("/sheets", h.handleSheets)
}

// Serve runs app on addr until ctx is cancelled.
func Serve(ctx context.Context, app *fiber.App, addr string) error {
	errc := make(chan error, 1)
	go func() { errc <- app.Listen(addr) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		if err := app.Shutdown(); err != nil {
			return err
		}
		return <-errc
	}
}

func (h *Handler) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *Handler) loadAll(ctx context.Context) ([]model.Transaction, error) {
	var txns []model.Transaction
	err := store.With(ctx, h.StorePath, func(s *store.Store) error {
		var err error
		txns, err = s.All(ctx)
		return err
	})
	return txns, err
}

func (h *Handler) handleTransactions(c *fiber.Ctx) error {
	txns, err := h.loadAll(c.UserContext())
	if err != nil {
		return h.fail(c, fiber.StatusInternalServerError, err)
	}
	if txns == nil {
		txns = []model.Transaction{}
	}
	return c.JSON(fiber.Map{"count": len(txns), "transactions": txns})
}

func (h *Handler) handleSummary(c *fiber.Ctx) error {
	txns, err := h.loadAll(c.UserContext())
	if err != nil {
		return h.fail(c, fiber.StatusInternalServerError, err)
	}
	summary := report.Summarize(txns)
	if summary.Slices == nil {
		summary.Slices = []report.Slice{}
	}
	return c.JSON(summary)
}

func (h *Handler) handleAccounts(c *fiber.Ctx) error {
	txns, err := h.loadAll(c.UserContext())
	if err != nil {
		return h.fail(c, fiber.StatusInternalServerError, err)
	}
	accts := accounts.FromTransactions(txns).All()
	if accts == nil {
		accts = []accounts.Account{}
	}
	return c.JSON(fiber.Map{"accounts": accts})
}

func (h *Handler) handleUpload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return h.fail(c, fiber.StatusBadRequest, err)
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "no files uploaded (form field \"files\")"})
	}

	files := make([]ingest.File, len(headers))
	for i, fh := range headers {
		files[i] = uploadedFile(fh)
	}

	batch, err := h.Ingest.IngestFiles(c.UserContext(), files)
	if err != nil {
		return h.fail(c, fiber.StatusInternalServerError, err)
	}
	return h.respond(c, batch)
}

func (h *Handler) handleSheets(c *fiber.Ctx) error {
	var req SheetsRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, fiber.StatusBadRequest, err)
	}
	if len(req.Sheets) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "no sheets in request"})
	}
	if req.Name == "" {
		req.Name = "api"
	}

	batch, err := h.Ingest.IngestSheets(c.UserContext(), req.Name, req.Sheets)
	if err != nil {
		return h.fail(c, fiber.StatusInternalServerError, err)
	}
	return h.respond(c, batch)
}

func (h *Handler) respond(c *fiber.Ctx, batch ingest.Batch) error {
	resp := UploadResponse{Success: true, Message: "Upload successful", BatchID: batch.ID}
	for _, r := range batch.Files {
		resp.Files = append(resp.Files, FileStatus{
			Name:       r.Name,
			Success:    r.Err == nil,
			Message:    r.Message(),
			Inserted:   r.Inserted,
			Duplicates: r.Duplicates,
		})
	}
	if failed := batch.Failed(); len(failed) > 0 {
		resp.Success = false
		resp.Message = failed[0].Message()
	}

	err := store.With(c.UserContext(), h.StorePath, func(s *store.Store) error {
		var err error
		resp.Stored, err = s.Count(c.UserContext())
		return err
	})
	if err != nil {
		return h.fail(c, fiber.StatusInternalServerError, err)
	}
	if resp.Success && resp.Stored == 0 {
		resp.Message = "Upload completed but no data."
	}
	return c.JSON(resp)
}

func (h *Handler) fail(c *fiber.Ctx, status int, err error) error {
	if status >= fiber.StatusInternalServerError {
		h.Log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}
	return c.Status(status).JSON(errorResponse{Error: err.Error()})
}

func uploadedFile(fh *multipart.FileHeader) ingest.File {
	return ingest.File{
		Name: fh.Filename,
		Open: func() (io.ReadCloser, error) { return fh.Open() },
	}
}
