package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/medprod-fiscal/internal/application/dto"
	"github.com/jhoicas/medprod-fiscal/internal/domain"
	"github.com/jhoicas/medprod-fiscal/pkg/logger"
)

// writeError traduce la taxonomía de errores del dominio a status + ErrorResponse.
// El orden importa: PartialCommitError también envuelve su causa.
func writeError(c *fiber.Ctx, log *logger.Logger, err error) error {
	var partial *domain.PartialCommitError
	if errors.As(err, &partial) {
		return c.Status(fiber.StatusConflict).JSON(dto.PartialCommitResponse{
			Code:         "PARTIAL_COMMIT",
			Message:      "resultado creado con pasos pendientes; ejecutar repair",
			ResultID:     partial.ResultID,
			PendingItems: nonNil(partial.PendingItems),
			PendingMarks: nonNil(partial.PendingMarks),
			ManualReview: partial.ManualReview,
		})
	}

	status, code := fiber.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status, code = fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrNotFound):
		status, code = fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrNothingToCalculate):
		status, code = fiber.StatusUnprocessableEntity, "NOTHING_TO_CALCULATE"
	case errors.Is(err, domain.ErrDuplicateConsolidation):
		status, code = fiber.StatusConflict, "DUPLICATE_CONSOLIDATION"
	case errors.Is(err, domain.ErrConcurrentConsolidation):
		status, code = fiber.StatusLocked, "CONSOLIDATION_IN_PROGRESS"
	case errors.Is(err, domain.ErrMissingFiscalTable):
		status, code = fiber.StatusUnprocessableEntity, "MISSING_FISCAL_TABLE"
	case errors.Is(err, domain.ErrInvalidTable):
		status, code = fiber.StatusUnprocessableEntity, "INVALID_FISCAL_TABLE"
	case errors.Is(err, domain.ErrTransient):
		status, code = fiber.StatusServiceUnavailable, "UNAVAILABLE"
	}
	if status >= fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("error no controlado")
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: err.Error()})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
