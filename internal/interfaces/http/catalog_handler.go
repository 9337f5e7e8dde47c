package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/medprod-fiscal/internal/application/dto"
	"github.com/jhoicas/medprod-fiscal/internal/domain/repository"
	"github.com/jhoicas/medprod-fiscal/pkg/logger"
)

// CatalogHandler profesionales y entidades activas para los selectores (protegido).
type CatalogHandler struct {
	catalog repository.CatalogRepository
	log     *logger.Logger
}

func NewCatalogHandler(catalog repository.CatalogRepository, log *logger.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, log: log.Component("http")}
}

// Professionals godoc
// @Summary      Profesionales activos
// @Tags         catalog
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.ProfessionalResponse
// @Router       /api/catalog/professionals [get]
func (h *CatalogHandler) Professionals(c *fiber.Ctx) error {
	list, err := h.catalog.ListActiveProfessionals(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := make([]dto.ProfessionalResponse, 0, len(list))
	for _, p := range list {
		out = append(out, dto.ProfessionalResponse{ID: p.ID, Name: p.Name, CPF: p.CPF, Dependents: p.Dependents})
	}
	return c.JSON(out)
}

// Entities godoc
// @Summary      Entidades pagadoras activas
// @Tags         catalog
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.PayingEntityResponse
// @Router       /api/catalog/entities [get]
func (h *CatalogHandler) Entities(c *fiber.Ctx) error {
	list, err := h.catalog.ListActiveEntities(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := make([]dto.PayingEntityResponse, 0, len(list))
	for _, e := range list {
		out = append(out, dto.PayingEntityResponse{ID: e.ID, Name: e.Name, CNPJ: e.CNPJ})
	}
	return c.JSON(out)
}

// Contract godoc
// @Summary      Contrato entidad/hospital
// @Tags         catalog
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del contrato"
// @Success      200  {object}  dto.ContractResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/catalog/contracts/{id} [get]
func (h *CatalogHandler) Contract(c *fiber.Ctx) error {
	ct, err := h.catalog.GetContract(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ContractResponse{
		ID:             ct.ID,
		PayingEntityID: ct.PayingEntityID,
		HospitalID:     ct.HospitalID,
		Description:    ct.Description,
		Active:         ct.Active,
	})
}
