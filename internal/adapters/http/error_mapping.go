package httpadapter

import (
	"net/http"

	"github.com/kirillkom/rag-builder-assistant/internal/core/domain"
)

// queryFailure maps a pipeline error to the query endpoint's response.
// Bad input gets a 400 with an "error" field; every other kind, including
// open circuits, stays on 500 with the {state, message} failure shape.
func queryFailure(err error) (int, any) {
	if domain.IsKind(err, domain.ErrInvalidInput) {
		return http.StatusBadRequest, map[string]string{"error": err.Error()}
	}
	return http.StatusInternalServerError, map[string]string{"state": "error", "message": err.Error()}
}
