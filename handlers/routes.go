package handlers

import "github.com/gofiber/fiber/v2"

// Register mounts the image API on router (normally the /api group).
func (h *ImageHandler) Register(router fiber.Router) {
	router.Post("/images", h.Upload)
	router.Get("/images", h.List)
	router.Get("/images/:id", h.GetImage)
	router.Get("/images/:id/metadata", h.GetMetadata)
	router.Get("/images/:id/preview", h.Preview)
	router.Post("/images/:id/rotate", h.Rotate)
	router.Delete("/images/:id", h.DeleteImage)
	router.Get("/images/:id/export", h.ExportImage)

	router.Get("/timestamp", h.GetTimestamp)
	router.Put("/timestamp", h.SetTimestamp)

	router.Get("/export", h.ExportAll)
	router.Post("/export/save", h.SaveExport)
}
