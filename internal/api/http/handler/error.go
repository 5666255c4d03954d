package handler

import (
	"errors"
	"net/http"

	"github.com/dtroode/healping/internal/model"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func handleError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Message, Field: verr.Field})
	case errors.Is(err, model.ErrInvalidArgument), errors.Is(err, model.ErrInvalidRole):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, model.ErrNoSession), errors.Is(err, model.ErrTokenInvalid), errors.Is(err, model.ErrRefreshRejected):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
	case errors.Is(err, model.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden"})
	case errors.Is(err, model.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, model.ErrProfileExists):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "profile already exists"})
	case errors.Is(err, model.ErrNoClinic):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "no clinic associated with your account"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}
