package gemini

import (
	"errors"

	"google.golang.org/genai"
)

// asAPIError matches both value and pointer forms of genai.APIError.
func asAPIError(err error, target *genai.APIError) bool {
	if errors.As(err, target) {
		return true
	}
	var ptr *genai.APIError
	if errors.As(err, &ptr) && ptr != nil {
		*target = *ptr
		return true
	}
	return false
}
