package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yourusername/exifsnap/models"
	"github.com/yourusername/exifsnap/services"
)

const (
	defaultPreviewSize = 512
	maxPreviewSize     = 4096
	previewQuality     = 85
)

type ImageHandler struct {
	session   models.SessionInterface
	exporter  *services.Exporter
	storage   services.Storage
	config    services.Config
	validator *validator.Validate
	log       zerolog.Logger
}

func NewImageHandler(session models.SessionInterface, exporter *services.Exporter, storage services.Storage, config services.Config, logger zerolog.Logger) *ImageHandler {
	validate := validator.New()
	// storageprefix keeps saved exports inside the storage root.
	_ = validate.RegisterValidation("storageprefix", func(fl validator.FieldLevel) bool {
		return services.ValidatePrefix(fl.Field().String()) == nil
	})
	return &ImageHandler{
		session:   session,
		exporter:  exporter,
		storage:   storage,
		config:    config,
		validator: validate,
		log:       logger,
	}
}

type RotateRequest struct {
	Direction string `json:"direction" validate:"required,oneof=clockwise counterclockwise"`
}

type TimestampRequest struct {
	Timestamp string `json:"timestamp" validate:"required"`
}

type SaveExportRequest struct {
	Zip    bool   `json:"zip"`
	Prefix string `json:"prefix" validate:"omitempty,max=200,storageprefix"`
}

type rejectedUpload struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

func (h *ImageHandler) Upload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Expected a multipart form"})
	}
	files := form.File["images"]
	if len(files) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No image files provided"})
	}

	maxBytes := int64(h.config.Upload.MaxFileMB) * 1024 * 1024
	added := make([]models.ImageResponse, 0, len(files))
	rejected := []rejectedUpload{}
	for _, file := range files {
		if !h.isAllowedExtension(file.Filename) {
			rejected = append(rejected, rejectedUpload{Name: file.Filename, Error: "Unsupported file type"})
			continue
		}
		if maxBytes > 0 && file.Size > maxBytes {
			rejected = append(rejected, rejectedUpload{Name: file.Filename, Error: "File too large. Maximum size: " + strconv.Itoa(h.config.Upload.MaxFileMB) + "MB"})
			continue
		}

		src, err := file.Open()
		if err != nil {
			rejected = append(rejected, rejectedUpload{Name: file.Filename, Error: "Failed to open uploaded file"})
			continue
		}
		raw, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			rejected = append(rejected, rejectedUpload{Name: file.Filename, Error: "Failed to read uploaded file"})
			continue
		}

		record := services.NewImageRecord(filepath.Base(file.Filename), raw, h.log)
		if err := h.session.Add(record); err != nil {
			rejected = append(rejected, rejectedUpload{Name: file.Filename, Error: "Failed to add image"})
			continue
		}
		added = append(added, h.toResponse(record))
	}

	status := fiber.StatusCreated
	if len(added) == 0 {
		status = fiber.StatusBadRequest
	}
	return c.Status(status).JSON(fiber.Map{"images": added, "rejected": rejected})
}

func (h *ImageHandler) List(c *fiber.Ctx) error {
	records, ts := h.session.Snapshot()
	images := make([]models.ImageResponse, 0, len(records))
	for _, r := range records {
		images = append(images, h.toResponse(r))
	}
	return c.JSON(fiber.Map{"images": images, "timestamp": ts})
}

func (h *ImageHandler) GetImage(c *fiber.Ctx) error {
	record, err := h.lookup(c)
	if err != nil {
		return err
	}
	return c.JSON(h.toResponse(record))
}

func (h *ImageHandler) GetMetadata(c *fiber.Ctx) error {
	record, err := h.lookup(c)
	if err != nil {
		return err
	}
	tags := record.Metadata
	if tags == nil {
		tags = []models.DisplayTag{}
	}
	return c.JSON(fiber.Map{
		"tags":        tags,
		"flash_fired": services.FlashFired(record.Metadata),
		"degraded":    record.MetadataDegraded,
	})
}

// Preview renders the image at its pending rotation, scaled down to fit max
// (query parameter) on the longer side. Nothing is written back.
func (h *ImageHandler) Preview(c *fiber.Ctx) error {
	record, err := h.lookup(c)
	if err != nil {
		return err
	}
	size := c.QueryInt("max", defaultPreviewSize)
	if size <= 0 || size > maxPreviewSize {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "max must be within 1.." + strconv.Itoa(maxPreviewSize)})
	}

	img, _, err := services.DecodeImage(record.Raw)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	}
	rotated, err := services.RotateImage(services.FitWithin(img, size), record.Rotation)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	}
	data, err := services.EncodeJPEG(rotated, previewQuality)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to render preview"})
	}
	c.Set(fiber.HeaderContentType, "image/jpeg")
	return c.Send(data)
}

func (h *ImageHandler) Rotate(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid image ID"})
	}
	var req RotateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "direction must be clockwise or counterclockwise"})
	}

	delta := 90
	if req.Direction == "counterclockwise" {
		delta = -90
	}
	record, err := h.session.Rotate(id, delta)
	if err != nil {
		if errors.Is(err, models.ErrImageNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Image not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to rotate image"})
	}
	return c.JSON(h.toResponse(record))
}

func (h *ImageHandler) DeleteImage(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid image ID"})
	}
	if err := h.session.Delete(id); err != nil {
		if errors.Is(err, models.ErrImageNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Image not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete image"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ImageHandler) GetTimestamp(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"timestamp": h.session.Timestamp()})
}

func (h *ImageHandler) SetTimestamp(c *fiber.Ctx) error {
	var req TimestampRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "timestamp is required"})
	}
	ts, err := services.ParseTimestamp(req.Timestamp, time.Local)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	h.session.SetTimestamp(ts)
	return c.JSON(fiber.Map{"timestamp": h.session.Timestamp()})
}

// ExportImage returns one composed JPEG under its original file name.
func (h *ImageHandler) ExportImage(c *fiber.Ctx) error {
	record, err := h.lookup(c)
	if err != nil {
		return err
	}
	result := h.exporter.ExportOne(c.UserContext(), record, h.session.Timestamp())
	if !result.OK() {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(result.ToResponse(""))
	}
	c.Attachment(result.Filename)
	c.Set(fiber.HeaderContentType, "image/jpeg")
	return c.Send(result.Data)
}

// ExportAll returns every successful export in one zip. Failed images are
// reported in the X-Export-Failures header as a comma separated list of
// escaped names.
func (h *ImageHandler) ExportAll(c *fiber.Ctx) error {
	records, ts := h.session.Snapshot()
	if len(records) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No images to export"})
	}

	var buf bytes.Buffer
	results, err := h.exporter.ExportArchive(c.UserContext(), &buf, records, ts)
	if err != nil {
		h.log.Error().Err(err).Msg("archive write failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to build archive"})
	}

	if failed := failedNames(results); len(failed) > 0 {
		if len(failed) == len(results) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "No image could be exported", "results": toResultResponses(results, nil)})
		}
		c.Set("X-Export-Failures", strings.Join(failed, ","))
	}
	c.Attachment(h.config.Export.ArchiveName)
	c.Set(fiber.HeaderContentType, "application/zip")
	return c.Send(buf.Bytes())
}

// SaveExport writes the exports to the configured storage instead of
// sending them back.
func (h *ImageHandler) SaveExport(c *fiber.Ctx) error {
	var req SaveExportRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid prefix"})
	}
	records, ts := h.session.Snapshot()
	if len(records) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No images to export"})
	}

	ctx := c.UserContext()
	results := h.exporter.ExportAll(ctx, records, ts)
	if req.Zip {
		name := h.config.Export.ArchiveName
		if req.Prefix != "" {
			name = req.Prefix + "/" + name
		}
		loc, n, err := services.SaveArchive(ctx, h.storage, name, results)
		if errors.Is(err, services.ErrUnsafeKey) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid prefix"})
		}
		if err != nil {
			h.log.Error().Err(err).Msg("saving archive failed")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save archive"})
		}
		return c.JSON(fiber.Map{"location": loc, "local": h.storage.IsLocal(), "count": n, "results": toResultResponses(results, nil)})
	}

	locations, err := services.SaveResults(ctx, h.storage, req.Prefix, results)
	if errors.Is(err, services.ErrUnsafeKey) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid file name"})
	}
	if err != nil {
		h.log.Error().Err(err).Msg("saving exports failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save exports", "results": toResultResponses(results, nil)})
	}
	return c.JSON(fiber.Map{"local": h.storage.IsLocal(), "results": toResultResponses(results, locations)})
}

func (h *ImageHandler) lookup(c *fiber.Ctx) (*models.ImageRecord, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid image ID")
	}
	record, err := h.session.GetByID(id)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Image not found")
	}
	return record, nil
}

func (h *ImageHandler) toResponse(r *models.ImageRecord) models.ImageResponse {
	return r.ToResponse(services.FlashFired(r.Metadata))
}

func (h *ImageHandler) isAllowedExtension(name string) bool {
	if len(h.config.Upload.Formats) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, f := range h.config.Upload.Formats {
		if strings.EqualFold(f, ext) {
			return true
		}
	}
	return false
}

func failedNames(results []models.ExportResult) []string {
	var names []string
	for _, r := range results {
		if !r.OK() {
			names = append(names, url.QueryEscape(r.Name))
		}
	}
	return names
}

func toResultResponses(results []models.ExportResult, locations []string) []models.ExportResultResponse {
	out := make([]models.ExportResultResponse, len(results))
	for i, r := range results {
		loc := ""
		if i < len(locations) {
			loc = locations[i]
		}
		out[i] = r.ToResponse(loc)
	}
	return out
}
