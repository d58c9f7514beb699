package respond

import "net/http"

func BadRequest(w http.ResponseWriter, msg string) {
	Error(w, http.StatusBadRequest, "bad_request", msg)
}
func Unprocessable(w http.ResponseWriter, msg string) {
	Error(w, http.StatusUnprocessableEntity, "validation_failed", msg)
}
func NotFound(w http.ResponseWriter, msg string) {
	Error(w, http.StatusNotFound, "not_found", msg)
}
func Conflict(w http.ResponseWriter, msg string) {
	Error(w, http.StatusConflict, "conflict", msg)
}
func BadGateway(w http.ResponseWriter, msg string) {
	Error(w, http.StatusBadGateway, "bad_gateway", msg)
}
func Internal(w http.ResponseWriter, msg string) {
	Error(w, http.StatusInternalServerError, "internal", msg)
}
