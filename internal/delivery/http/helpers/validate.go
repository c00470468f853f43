package helpers

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Validator is implemented by request bodies that can validate themselves.
// Validate returns a list of human-readable problems, empty when valid.
type Validator interface {
	Validate() []string
}

// DecodeAndValidate decodes the JSON request body into dst and runs its
// validation. On a malformed body or validation failure it writes a 400
// response and returns false; the handler should return immediately.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, dst Validator) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return false
	}
	if errs := dst.Validate(); len(errs) > 0 {
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, strings.Join(errs, "; "))
		return false
	}
	return true
}
