package interview

import (
	"net/http"

	"github.com/tansive/mockinterview/internal/common/apperrors"
)

var (
	ErrInterview       apperrors.Error = apperrors.New("interview error").SetStatusCode(http.StatusInternalServerError)
	ErrInvalidRequest  apperrors.Error = ErrInterview.New("invalid request").SetStatusCode(http.StatusBadRequest)
	ErrSessionNotFound apperrors.Error = ErrInterview.New("interview session not found").SetStatusCode(http.StatusNotFound)
	ErrNotOwner        apperrors.Error = ErrInterview.New("interview session belongs to another owner").SetStatusCode(http.StatusForbidden)
	ErrStore           apperrors.Error = ErrInterview.New("unable to persist interview session")
	ErrGenerateTimeout apperrors.Error = ErrInterview.New("text generation timed out").SetStatusCode(http.StatusGatewayTimeout)
)

// Diagnostic codes attached to degraded turns.
const (
	DiagGenerationFailed = "generation_failed"
	DiagDecodeFailed     = "decode_failed"
	DiagReportFallback   = "report_fallback"
)
