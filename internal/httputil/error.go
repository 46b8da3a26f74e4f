package httputil

import (
	"log/slog"
	"net/http"
)

func InternalServerError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	WriteError(w, http.StatusInternalServerError, "Internal Server Error")
}

func BadRequest(w http.ResponseWriter, msg string, err error) {
	logWarn("bad request", msg, err)
	WriteError(w, http.StatusBadRequest, msg)
}

func NotFound(w http.ResponseWriter, msg string, err error) {
	logWarn("not found", msg, err)
	WriteError(w, http.StatusNotFound, msg)
}

func Unauthorized(w http.ResponseWriter, msg string) {
	WriteError(w, http.StatusUnauthorized, msg)
}

func Forbidden(w http.ResponseWriter, msg string, err error) {
	logWarn("forbidden", msg, err)
	WriteError(w, http.StatusForbidden, msg)
}

func Conflict(w http.ResponseWriter, msg string, err error) {
	logWarn("conflict", msg, err)
	WriteError(w, http.StatusConflict, msg)
}

// BadGateway reports a failing upstream, such as the code sandbox.
func BadGateway(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	WriteError(w, http.StatusBadGateway, msg)
}

func logWarn(kind, msg string, err error) {
	if err != nil {
		slog.Warn(kind, "message", msg, "error", err)
	} else {
		slog.Warn(kind, "message", msg)
	}
}
