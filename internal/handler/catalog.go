package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/slidereel/api/internal/catalog"
	"github.com/slidereel/api/pkg/response"
)

type CatalogHandler struct {
	catalogs *catalog.Catalog
}

func NewCatalogHandler(catalogs *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{catalogs: catalogs}
}

// Soundtracks handles GET /api/catalog/soundtracks
// @Summary      List soundtracks
// @Description  List the selectable background soundtrack catalog
// @Tags         Catalog
// @Produce      json
// @Success      200 {array} catalog.SoundtrackEntry
// @Failure      401 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/catalog/soundtracks [get]
func (h *CatalogHandler) Soundtracks(c *fiber.Ctx) error {
	return response.OK(c, h.catalogs.Soundtracks())
}

// Filters handles GET /api/catalog/filters
// @Summary      List filters
// @Description  List the selectable visual-overlay filter catalog
// @Tags         Catalog
// @Produce      json
// @Success      200 {array} catalog.FilterEntry
// @Failure      401 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/catalog/filters [get]
func (h *CatalogHandler) Filters(c *fiber.Ctx) error {
	return response.OK(c, h.catalogs.Filters())
}
