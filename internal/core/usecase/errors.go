package usecase

import (
	"errors"
	"fmt"

	"github.com/kirillkom/rag-builder-assistant/internal/core/domain"
)

// MissingQueryMessage is returned to callers that omit the query.
const MissingQueryMessage = "Missing 'query' (string) in request body."

var errMissingQuery = errors.New("query is required")

func errUnknownAgent(agent domain.Agent) error {
	return fmt.Errorf("unknown agent %q", agent)
}
