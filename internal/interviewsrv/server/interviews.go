package server

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"

	"github.com/anand-gl/jsoncanonicalizer"
	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"

	"github.com/tansive/mockinterview/internal/common/httpx"
	"github.com/tansive/mockinterview/internal/common/uuid"
	"github.com/tansive/mockinterview/internal/interviewsrv/interview"
	"github.com/tansive/mockinterview/internal/interviewsrv/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func (s *InterviewServer) interviewRoutes(r chi.Router) {
	r.Post("/", httpx.WrapHttpRsp(s.startInterview))
	r.Get("/", httpx.WrapHttpRsp(s.listInterviews))
	r.Get("/{id}", httpx.WrapHttpRsp(s.getInterview))
	r.Post("/{id}/turns", httpx.WrapHttpRsp(s.processTurn))
	r.Post("/{id}/abandon", httpx.WrapHttpRsp(s.abandonInterview))
}

type ListInterviewsRsp struct {
	Interviews []InterviewSummary `json:"interviews"`
}

type InterviewSummary struct {
	ID            uuid.UUID     `json:"id"`
	Kind          models.Kind   `json:"kind"`
	Status        models.Status `json:"status"`
	Phase         models.Phase  `json:"phase"`
	Answered      int           `json:"answered"`
	QuestionCount int           `json:"questionCount"`
	OverallScore  *float64      `json:"overallScore,omitempty"`
	CreatedAt     string        `json:"createdAt"`
	UpdatedAt     string        `json:"updatedAt"`
}

func summarize(sess *models.Session) InterviewSummary {
	sum := InterviewSummary{
		ID:            sess.ID,
		Kind:          sess.Kind,
		Status:        sess.Status,
		Phase:         sess.Phase(),
		Answered:      sess.AnsweredCount(),
		QuestionCount: sess.Settings.QuestionCount,
		CreatedAt:     sess.CreatedAt.Format(timeFormat),
		UpdatedAt:     sess.UpdatedAt.Format(timeFormat),
	}
	if sess.Report != nil {
		score := sess.Report.OverallScore
		sum.OverallScore = &score
	}
	return sum
}

const timeFormat = "2006-01-02T15:04:05Z07:00"

func sessionID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, httpx.ErrInvalidRequest("invalid interview id")
	}
	return id, nil
}

func (s *InterviewServer) startInterview(r *http.Request) (*httpx.Response, error) {
	var req interview.StartRequest
	if err := httpx.GetRequestData(r, &req, s.opts.MaxBodyBytes); err != nil {
		return nil, err
	}
	req.OwnerID = OwnerFromContext(r.Context())
	sess, err := s.orch.StartSession(r.Context(), req)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusCreated,
		Location:   "/interviews/" + sess.ID.String(),
		Response:   sess,
	}, nil
}

func (s *InterviewServer) listInterviews(r *http.Request) (*httpx.Response, error) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil || n < 0 {
			return nil, httpx.ErrInvalidRequest("limit must be a non-negative integer")
		}
		limit = n
	}
	list, err := s.orch.ListSessions(r.Context(), OwnerFromContext(r.Context()), limit)
	if err != nil {
		return nil, err
	}
	rsp := ListInterviewsRsp{Interviews: make([]InterviewSummary, 0, len(list))}
	for _, sess := range list {
		rsp.Interviews = append(rsp.Interviews, summarize(sess))
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: rsp}, nil
}

func (s *InterviewServer) getInterview(r *http.Request) (*httpx.Response, error) {
	id, idErr := sessionID(r)
	if idErr != nil {
		return nil, idErr
	}
	sess, err := s.orch.GetSession(r.Context(), id, OwnerFromContext(r.Context()))
	if err != nil {
		return nil, err
	}
	body, marshalErr := json.Marshal(sess)
	if marshalErr != nil {
		return nil, httpx.ErrApplicationError("unable to encode interview")
	}
	tag, tagErr := etag(body)
	if tagErr != nil {
		return nil, httpx.ErrApplicationError("unable to encode interview")
	}
	headers := map[string]string{"ETag": tag}
	if match := r.Header.Get("If-None-Match"); match != "" && etagMatches(match, tag) {
		return &httpx.Response{StatusCode: http.StatusNotModified, Headers: headers}, nil
	}
	return &httpx.Response{StatusCode: http.StatusOK, Headers: headers, Response: body}, nil
}

func (s *InterviewServer) processTurn(r *http.Request) (*httpx.Response, error) {
	id, idErr := sessionID(r)
	if idErr != nil {
		return nil, idErr
	}
	var req interview.TurnRequest
	if err := httpx.GetRequestData(r, &req, s.opts.MaxBodyBytes); err != nil {
		return nil, err
	}
	req.SessionID = id
	req.OwnerID = OwnerFromContext(r.Context())
	rsp, err := s.orch.ProcessTurn(r.Context(), req)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: rsp}, nil
}

func (s *InterviewServer) abandonInterview(r *http.Request) (*httpx.Response, error) {
	id, idErr := sessionID(r)
	if idErr != nil {
		return nil, idErr
	}
	sess, err := s.orch.Abandon(r.Context(), id, OwnerFromContext(r.Context()))
	if err != nil {
		return nil, err
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: sess}, nil
}

// etag hashes the canonical form of a JSON document, so the tag does not
// depend on key order.
func etag(doc []byte) (string, error) {
	canonical, err := jsoncanonicalizer.Transform(doc)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return `"` + hex.EncodeToString(sum[:16]) + `"`, nil
}

func etagMatches(header, tag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		candidate = strings.TrimPrefix(candidate, "W/")
		if candidate == "*" || candidate == tag {
			return true
		}
	}
	return false
}
