package apperr

import "net/http"

// Code represents the type of error
type Code string

const (
	CodeInvalidParams    Code = "INVALID_PARAMS"
	CodeInvalidSignal    Code = "INVALID_SIGNAL"
	CodeEmptyFingerprint Code = "EMPTY_FINGERPRINT"
	CodeUnknownRecording Code = "UNKNOWN_RECORDING"
	CodeConflict         Code = "CONFLICT"
	CodeIndexIO          Code = "INDEX_IO"
	CodeNotFound         Code = "NOT_FOUND"
	CodeBadRequest       Code = "BAD_REQUEST"
	CodeInternal         Code = "INTERNAL_ERROR"
)

// StatusCodeMap maps Code to HTTP status code
var StatusCodeMap = map[Code]int{
	CodeInvalidParams:    http.StatusUnprocessableEntity,
	CodeInvalidSignal:    http.StatusUnprocessableEntity,
	CodeEmptyFingerprint: http.StatusUnprocessableEntity,
	CodeUnknownRecording: http.StatusNotFound,
	CodeConflict:         http.StatusConflict,
	CodeIndexIO:          http.StatusServiceUnavailable,
	CodeNotFound:         http.StatusNotFound,
	CodeBadRequest:       http.StatusBadRequest,
	CodeInternal:         http.StatusInternalServerError,
}

// StatusCode returns the HTTP status code for this error code
func (c Code) StatusCode() int {
	if code, ok := StatusCodeMap[c]; ok {
		return code
	}
	return http.StatusInternalServerError
}
