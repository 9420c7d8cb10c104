package api

import (
	"encoding/base64"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/tomp11/sb-stamp-manager/pkg/collection"
	"github.com/tomp11/sb-stamp-manager/pkg/extract"
	"github.com/tomp11/sb-stamp-manager/pkg/stamp"
	"github.com/tomp11/sb-stamp-manager/pkg/storage"
)

// ErrorResponse is the JSON error envelope for all non-2xx replies.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse reports the store's position in the sync lifecycle.
type StatusResponse struct {
	Owner   string `json:"owner"`
	Loading bool   `json:"loading"`
	Dirty   bool   `json:"dirty"`
	Syncing bool   `json:"syncing"`
	Records int    `json:"records"`
}

// IngestRequest carries either a screenshot to extract or pre-extracted
// records. Image takes precedence when both are set.
type IngestRequest struct {
	Image    string         `json:"image,omitempty"`
	MimeType string         `json:"mimeType,omitempty"`
	Records  []stamp.Record `json:"records,omitempty"`
}

// IngestResponse reports what the merge did with the batch.
type IngestResponse struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleStatus returns the store's session and sync state.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(StatusResponse{
		Owner:   s.store.Session().OwnerID(),
		Loading: s.store.IsLoading(),
		Dirty:   s.store.IsDirty(),
		Syncing: s.store.IsSyncing(),
		Records: len(s.store.Records()),
	})
}

// handleListRecords returns the collection. With ?sort=visit_date the
// records are ordered by last visit date, newest first.
func (s *Server) handleListRecords(c *fiber.Ctx) error {
	records := s.store.Records()
	if c.Query("sort") == "visit_date" {
		storage.SortByVisitDate(records)
	}
	return c.JSON(records)
}

// handleIngest merges new stamps into the collection, extracting them from
// a screenshot first when one is provided.
func (s *Server) handleIngest(c *fiber.Ctx) error {
	var req IngestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	records := req.Records
	if req.Image != "" {
		if s.extractor == nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: "no extraction provider configured"})
		}

		image, err := base64.StdEncoding.DecodeString(req.Image)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "image is not valid base64"})
		}

		candidates, err := s.extractor.Extract(c.Context(), image, req.MimeType)
		if err != nil {
			s.logger.Error("extraction failed", zap.Error(err))
			return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: "extraction failed"})
		}
		records = extract.ToRecords(candidates)
	}

	if len(records) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "nothing to ingest"})
	}

	tally, err := s.store.Ingest(c.Context(), records)
	if err != nil {
		if errors.Is(err, collection.ErrNotReady) {
			return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Error: "collection is still loading"})
		}
		s.logger.Error("ingest failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "ingest failed"})
	}

	return c.JSON(IngestResponse{
		Added:   tally.Added,
		Updated: tally.Updated,
		Skipped: tally.Skipped,
	})
}

// handleSync pushes the collection to the remote backend now.
func (s *Server) handleSync(c *fiber.Ctx) error {
	if err := s.store.Sync(c.Context()); err != nil {
		if errors.Is(err, collection.ErrNotReady) {
			return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Error: "collection is still loading"})
		}
		s.logger.Error("sync failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: "sync failed"})
	}
	return c.JSON(fiber.Map{"dirty": s.store.IsDirty()})
}

// handleUpdateRecord replaces a record by id.
func (s *Server) handleUpdateRecord(c *fiber.Ctx) error {
	var rec stamp.Record
	if err := c.BodyParser(&rec); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	rec.ID = c.Params("id")

	if err := s.store.Update(c.Context(), rec); err != nil {
		switch {
		case errors.Is(err, collection.ErrNotReady):
			return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Error: "collection is still loading"})
		case errors.As(err, &storage.ErrNotFound{}):
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "record not found"})
		case errors.As(err, &storage.ErrMissingID{}):
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "record id required"})
		}
		s.logger.Error("update failed", zap.String("id", rec.ID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "update failed"})
	}

	return c.JSON(rec)
}

// handleDeleteRecord removes a record by id.
func (s *Server) handleDeleteRecord(c *fiber.Ctx) error {
	id := c.Params("id")

	if err := s.store.Delete(c.Context(), id); err != nil {
		switch {
		case errors.Is(err, collection.ErrNotReady):
			return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Error: "collection is still loading"})
		case errors.As(err, &storage.ErrNotFound{}):
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "record not found"})
		}
		s.logger.Error("delete failed", zap.String("id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "delete failed"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}
