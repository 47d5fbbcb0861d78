package api

import (
	"github.com/tansive/mockinterview/internal/interviewsrv/interview"
	"github.com/tansive/mockinterview/internal/interviewsrv/models"
	"github.com/tansive/mockinterview/internal/interviewsrv/server"
)

type (
	Session        = models.Session
	Feedback       = models.Feedback
	Report         = models.Report
	StartSettings  = interview.StartSettings
	TurnResponse   = interview.TurnResponse
	Summary        = server.InterviewSummary
	VersionInfo    = server.GetVersionRsp
	InterviewKind  = models.Kind
	InterviewState = models.Status
)

// StartRequest opens an interview. The owner comes from the client's identity.
type StartRequest struct {
	Kind     InterviewKind `json:"kind"`
	Settings StartSettings `json:"settings"`
}

// Turn is one candidate message. Leave QuestionIndex nil on the first turn.
type Turn struct {
	Answer            string `json:"answer"`
	QuestionIndex     *int   `json:"questionIndex,omitempty"`
	NextQuestionIndex *int   `json:"nextQuestionIndex,omitempty"`
	IsFirstQuestion   bool   `json:"isFirstQuestion"`
	IsLastQuestion    bool   `json:"isLastQuestion"`
	ForceNewQuestion  bool   `json:"forceNewQuestion"`
}

type listResponse struct {
	Interviews []Summary `json:"interviews"`
}
