package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/medprod-fiscal/internal/application/consolidation"
	"github.com/jhoicas/medprod-fiscal/internal/application/dto"
	"github.com/jhoicas/medprod-fiscal/internal/domain/entity"
	"github.com/jhoicas/medprod-fiscal/internal/domain/repository"
	"github.com/jhoicas/medprod-fiscal/pkg/logger"
)

// ConsolidationHandler simulación, consolidación, reparación e historial (protegido).
type ConsolidationHandler struct {
	svc *consolidation.Service
	log *logger.Logger
}

// NewConsolidationHandler construye el handler.
func NewConsolidationHandler(svc *consolidation.Service, log *logger.Logger) *ConsolidationHandler {
	return &ConsolidationHandler{svc: svc, log: log.Component("http")}
}

// Simulate godoc
// @Summary      Simular retenciones (sin efectos)
// @Tags         consolidations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.SimulateRequest  true  "Profesional y competencia"
// @Success      200   {object}  dto.SimulationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/consolidations/simulate [post]
func (h *ConsolidationHandler) Simulate(c *fiber.Ctx) error {
	var in dto.SimulateRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido: " + err.Error()})
	}
	if in.ProfessionalID == "" || in.Competence.IsZero() {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "professional_id y competence son requeridos"})
	}
	sim, err := h.svc.Simulate(c.UserContext(), consolidation.SimulateRequest{
		ProfessionalID:   in.ProfessionalID,
		Competence:       in.Competence,
		PayingEntityID:   in.PayingEntityID,
		IncludeRecurring: in.IncludeRecurring,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ToSimulationResponse(sim))
}

// Commit godoc
// @Summary      Consolidar una entidad pagadora
// @Tags         consolidations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CommitRequest  true  "Profesional, entidad y competencia"
// @Success      201   {object}  dto.CommitResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.PartialCommitResponse
// @Failure      423   {object}  dto.ErrorResponse
// @Router       /api/consolidations [post]
func (h *ConsolidationHandler) Commit(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "user_id requerido"})
	}
	var in dto.CommitRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido: " + err.Error()})
	}
	if in.ProfessionalID == "" || in.PayingEntityID == "" || in.Competence.IsZero() {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "professional_id, paying_entity_id y competence son requeridos"})
	}
	out, err := h.svc.SimulateAndCommit(c.UserContext(), consolidation.CommitCommand{
		ProfessionalID:    in.ProfessionalID,
		PayingEntityID:    in.PayingEntityID,
		Competence:        in.Competence,
		IncludeRecurring:  in.IncludeRecurring,
		ResponsibleUserID: userID,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	w := dto.ToWithholdingResponse(out.Withholding)
	return c.Status(fiber.StatusCreated).JSON(dto.CommitResponse{
		Result:   dto.ToResultResponse(out.Result, nil),
		Records:  out.Records,
		Warnings: w.Warnings,
	})
}

// Repair godoc
// @Summary      Completar un commit parcial
// @Tags         consolidations
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del resultado"
// @Success      200  {object}  dto.RepairResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.PartialCommitResponse
// @Router       /api/consolidations/{id}/repair [post]
func (h *ConsolidationHandler) Repair(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_ID", Message: "id es requerido"})
	}
	rep, err := h.svc.Repair(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.RepairResponse(*rep))
}

// GetByID godoc
// @Summary      Obtener resultado con sus ítems
// @Tags         consolidations
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del resultado"
// @Success      200  {object}  dto.ResultResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/consolidations/{id} [get]
func (h *ConsolidationHandler) GetByID(c *fiber.Ctx) error {
	res, items, err := h.svc.GetResult(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ToResultResponse(res, items))
}

// List godoc
// @Summary      Historial de consolidaciones
// @Tags         consolidations
// @Security     Bearer
// @Produce      json
// @Param        professional_id   query  string  false  "Profesional"
// @Param        paying_entity_id  query  string  false  "Entidad pagadora"
// @Param        competence        query  string  false  "YYYY-MM"
// @Param        limit             query  int     false  "Límite (default 20)"
// @Param        offset            query  int     false  "Desplazamiento"
// @Success      200  {object}  dto.ResultListResponse
// @Router       /api/consolidations [get]
func (h *ConsolidationHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "limit/offset inválidos"})
	}
	page.DefaultPage()
	f := repository.ResultFilter{
		ProfessionalID: c.Query("professional_id"),
		PayingEntityID: c.Query("paying_entity_id"),
		Limit:          page.Limit,
		Offset:         page.Offset,
	}
	if raw := c.Query("competence"); raw != "" {
		comp, err := entity.ParseCompetence(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
		}
		f.Competence = &comp
	}
	list, err := h.svc.History(c.UserContext(), f)
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := dto.ResultListResponse{
		Items: make([]dto.ResultResponse, 0, len(list)),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}
	for _, r := range list {
		out.Items = append(out.Items, dto.ToResultResponse(r, nil))
	}
	return c.JSON(out)
}

// Worklist godoc
// @Summary      Profesionales con lanzamientos en la competencia
// @Tags         consolidations
// @Security     Bearer
// @Produce      json
// @Param        competence        query  string  true   "YYYY-MM"
// @Param        paying_entity_id  query  string  false  "Entidad pagadora"
// @Success      200  {array}   dto.WorklistEntryResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/consolidations/worklist [get]
func (h *ConsolidationHandler) Worklist(c *fiber.Ctx) error {
	comp, err := entity.ParseCompetence(c.Query("competence"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	}
	entries, err := h.svc.Worklist(c.UserContext(), comp, c.Query("paying_entity_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ToWorklistResponse(entries))
}
