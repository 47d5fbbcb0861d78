package interview

import (
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/tansive/mockinterview/internal/common/apperrors"
	"github.com/tansive/mockinterview/internal/common/uuid"
	"github.com/tansive/mockinterview/internal/interviewsrv/models"
)

// StartSettings are the candidate's choices for a new interview.
type StartSettings struct {
	Difficulty    string   `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	Duration      string   `json:"duration" validate:"omitempty,oneof=short medium long"`
	FocusAreas    []string `json:"focusAreas" validate:"max=10,dive,required,max=64"`
	QuestionCount int      `json:"questionCount" validate:"omitempty,min=1,max=30"`
}

// StartRequest opens a session for OwnerID.
type StartRequest struct {
	OwnerID  string        `json:"-" validate:"required,max=128"`
	Kind     models.Kind   `json:"kind" validate:"required,oneof=technical behavioral screening"`
	Settings StartSettings `json:"settings"`
}

// TurnRequest carries one candidate message. QuestionIndex is required on
// every turn except the first.
type TurnRequest struct {
	SessionID         uuid.UUID `json:"-"`
	OwnerID           string    `json:"-" validate:"required,max=128"`
	Answer            string    `json:"answer" validate:"max=20000"`
	QuestionIndex     *int      `json:"questionIndex,omitempty" validate:"omitempty,min=0,max=1000"`
	NextQuestionIndex *int      `json:"nextQuestionIndex,omitempty" validate:"omitempty,min=0,max=1000"`
	IsFirstQuestion   bool      `json:"isFirstQuestion"`
	IsLastQuestion    bool      `json:"isLastQuestion"`
	ForceNewQuestion  bool      `json:"forceNewQuestion"`
}

// TurnResponse is the outcome of one turn.
type TurnResponse struct {
	SessionID      uuid.UUID        `json:"sessionId"`
	Status         models.Status    `json:"status"`
	Question       string           `json:"question,omitempty"`
	QuestionIndex  int              `json:"questionIndex"`
	Terminal       bool             `json:"terminal"`
	Degraded       bool             `json:"degraded"`
	Diagnostics    []string         `json:"diagnostics,omitempty"`
	Feedback       *models.Feedback `json:"feedback,omitempty"`
	ClosingRemarks string           `json:"closingRemarks,omitempty"`
	Report         *models.Report   `json:"report,omitempty"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

func validateRequest(v any) apperrors.Error {
	err := requestValidator().Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return ErrInvalidRequest.Err(err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fe.Namespace()+": failed "+fe.Tag())
	}
	return ErrInvalidRequest.Msg(strings.Join(msgs, "; "))
}

func (r *TurnRequest) validate() apperrors.Error {
	if err := validateRequest(r); err != nil {
		return err
	}
	if r.SessionID == uuid.Nil {
		return ErrInvalidRequest.Msg("session id is required")
	}
	if !r.IsFirstQuestion && r.QuestionIndex == nil {
		return ErrInvalidRequest.Msg("questionIndex is required after the first question")
	}
	// Asking into the slot being answered would discard the answer.
	if !r.ForceNewQuestion && !r.IsLastQuestion && r.QuestionIndex != nil && r.NextQuestionIndex != nil &&
		*r.NextQuestionIndex == *r.QuestionIndex {
		return ErrInvalidRequest.Msg("nextQuestionIndex must differ from questionIndex unless forceNewQuestion is set")
	}
	return nil
}

// questionCount picks the planned length of an interview.
func questionCount(s StartSettings, fallback int) int {
	if s.QuestionCount > 0 {
		return s.QuestionCount
	}
	switch s.Duration {
	case "short":
		return 3
	case "long":
		return 8
	case "medium":
		return 5
	}
	return fallback
}
