package api

import (
	"net/http"

	"github.com/good-yellow-bee/jpapi/internal/api/render"
)

// WriteError writes err in the requested format.
func WriteError(w http.ResponseWriter, f render.Format, err *Error) {
	render.Error(w, f, err.Status, err.Code, err.Message)
}
