package dto

// PageRequest paginación para listados.
type PageRequest struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

// DefaultPage aplica valores por defecto y tope de 100.
func (p *PageRequest) DefaultPage() {
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// PageResponse metadatos de página en respuestas.
type PageResponse struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PartialCommitResponse cuerpo de error cuando el resultado existe pero el commit quedó incompleto.
// El cliente debe llamar a POST /api/consolidations/{result_id}/repair.
type PartialCommitResponse struct {
	Code         string   `json:"code"`
	Message      string   `json:"message"`
	ResultID     string   `json:"result_id"`
	PendingItems []string `json:"pending_items"`
	PendingMarks []string `json:"pending_marks"`
	ManualReview []string `json:"manual_review,omitempty"`
}
