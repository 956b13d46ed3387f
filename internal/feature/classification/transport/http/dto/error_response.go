package dto

// ErrorResponse carries a human-readable failure description.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// ValidationError describes one invalid request field.
type ValidationError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// ValidationErrorResponse is returned with 422 when request fields are missing or invalid.
type ValidationErrorResponse struct {
	Detail []ValidationError `json:"detail"`
}

// MissingField builds the 422 body for a required field that was not supplied.
func MissingField(loc ...string) ValidationErrorResponse {
	return ValidationErrorResponse{
		Detail: []ValidationError{{Loc: loc, Msg: "Field required", Type: "missing"}},
	}
}
