package httpresponse

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	apperr "goban/internal/errors"
)

type Response[T any] struct {
	Status int `json:"Status"`
	Body   any `json:"Body,omitempty"`
}

type ErrorResponse struct {
	ErrorDescription string `json:"ErrorDescription"`
}

const INTERNALERRORJSON = "{\"Status\": 500,\"Body\":{\"ErrorDescription\": \"Internal server error\"}}"

const MALFORMEDJSON_errorDesc = "json unmarshalling error"

func WriteResponseWithStatus(w http.ResponseWriter, status int, body any) {
	jsonByte, err := marshalStatusJson(status, body)
	if err != nil {
		WriteInternalErrorResponse(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(jsonByte)
}

// WriteError answers with the status matching the error kind of err.
func WriteError(w http.ResponseWriter, err error) {
	WriteResponseWithStatus(w, StatusFromError(err), ErrorResponse{ErrorDescription: err.Error()})
}

func StatusFromError(err error) int {
	switch {
	case errors.Is(err, apperr.ErrGameNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrBoardSize), errors.Is(err, apperr.ErrDifficultyRange):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrEngineBusy), errors.Is(err, apperr.ErrGameEnded):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrRepetition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrEngineNotUsable), errors.Is(err, apperr.ErrUnparseableMove):
		return http.StatusBadGateway
	case errors.Is(err, apperr.ErrEngineUnavailable),
		errors.Is(err, apperr.ErrEngineNotFound),
		errors.Is(err, apperr.ErrEngineConfigMissing),
		errors.Is(err, apperr.ErrEngineModelMissing):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func marshalStatusJson(status int, body any) ([]byte, error) {
	response := Response[any]{
		Status: status,
		Body:   body,
	}
	marshal, err := json.Marshal(response)
	if err != nil {
		return nil, err
	}
	return marshal, nil
}

func WriteInternalErrorResponse(w http.ResponseWriter) {
	// implementation similar to http.Error, only difference is the Content-type
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(500)
	_, _ = fmt.Fprintln(w, INTERNALERRORJSON)
}
