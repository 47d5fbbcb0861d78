package decoder

import (
	"bytes"
	"fmt"
	"io"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Alias maps a key the model sometimes uses onto the key the schema expects.
// Both are gjson paths, so nested keys ("feedback.areas_for_improvement")
// work too.
type Alias struct {
	From string
	To   string
}

// Schema is a compiled JSON schema plus the key aliases applied before
// validation.
type Schema struct {
	name     string
	compiled *jsonschema.Schema
	aliases  []Alias
}

func (s *Schema) Name() string {
	return s.name
}

// Compile compiles schemaJSON under an inline URL derived from name. Remote
// references are refused.
func Compile(name, schemaJSON string, aliases ...Alias) (*Schema, error) {
	if !gjson.Valid(schemaJSON) {
		return nil, fmt.Errorf("schema %s: invalid JSON", name)
	}
	url := "inline://" + name
	compiler := jsonschema.NewCompiler()
	compiler.LoadURL = func(u string) (io.ReadCloser, error) {
		if u == url {
			return io.NopCloser(bytes.NewReader([]byte(schemaJSON))), nil
		}
		return nil, fmt.Errorf("unsupported schema ref: %s", u)
	}
	if err := compiler.AddResource(url, bytes.NewReader([]byte(schemaJSON))); err != nil {
		return nil, fmt.Errorf("schema %s: %w", name, err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", name, err)
	}
	return &Schema{name: name, compiled: compiled, aliases: aliases}, nil
}

func MustCompile(name, schemaJSON string, aliases ...Alias) *Schema {
	s, err := Compile(name, schemaJSON, aliases...)
	if err != nil {
		panic(err)
	}
	return s
}

// normalize renames aliased keys. A canonical key that is already present
// wins over its alias.
func (s *Schema) normalize(doc string) string {
	for _, a := range s.aliases {
		from := gjson.Get(doc, a.From)
		if !from.Exists() {
			continue
		}
		if !gjson.Get(doc, a.To).Exists() {
			if out, err := sjson.SetRaw(doc, a.To, from.Raw); err == nil {
				doc = out
			}
		}
		if out, err := sjson.Delete(doc, a.From); err == nil {
			doc = out
		}
	}
	return doc
}

const componentDef = `{"type": ["boolean", "null", "string"]}`

var (
	// FeedbackSchema is per-answer feedback.
	FeedbackSchema = MustCompile("feedback", `{
		"type": "object",
		"required": ["strengths", "improvements", "rating"],
		"properties": {
			"strengths": {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 1}},
			"improvements": {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 1}},
			"rating": {"type": ["number", "string"]},
			"star": {
				"type": ["object", "null"],
				"properties": {
					"situation": `+componentDef+`,
					"task": `+componentDef+`,
					"action": `+componentDef+`,
					"result": `+componentDef+`
				}
			}
		}
	}`,
		Alias{From: "areas_for_improvement", To: "improvements"},
		Alias{From: "areasForImprovement", To: "improvements"},
		Alias{From: "weaknesses", To: "improvements"},
		Alias{From: "score", To: "rating"},
		Alias{From: "STAR", To: "star"},
		Alias{From: "star_components", To: "star"},
		Alias{From: "starComponents", To: "star"},
	)

	// QuestionSchema is the reply to a turn: the next question and, when an
	// answer was submitted, feedback on it. Feedback is decoded separately
	// with FeedbackSchema so a malformed feedback object does not cost the
	// question.
	QuestionSchema = MustCompile("question", `{
		"type": "object",
		"required": ["question"],
		"properties": {
			"question": {"type": "string", "minLength": 1},
			"feedback": {}
		}
	}`,
		Alias{From: "nextQuestion", To: "question"},
		Alias{From: "next_question", To: "question"},
		Alias{From: "Question", To: "question"},
		Alias{From: "answerFeedback", To: "feedback"},
		Alias{From: "answer_feedback", To: "feedback"},
	)

	// ClosingSchema is the reply to the final answer: closing remarks plus
	// feedback on that answer.
	ClosingSchema = MustCompile("closing", `{
		"type": "object",
		"required": ["closing"],
		"properties": {
			"closing": {"type": "string", "minLength": 1},
			"feedback": {}
		}
	}`,
		Alias{From: "closingRemarks", To: "closing"},
		Alias{From: "closing_remarks", To: "closing"},
		Alias{From: "remarks", To: "closing"},
		Alias{From: "answerFeedback", To: "feedback"},
	)

	// ResultsSchema is the end-of-interview report.
	ResultsSchema = MustCompile("results", `{
		"type": "object",
		"required": ["overallScore"],
		"properties": {
			"overallScore": {"type": ["number", "string"]},
			"feedback": {"type": "string"},
			"skillScores": {"type": "object", "additionalProperties": {"type": ["number", "string"]}},
			"strengths": {"type": "array", "items": {"type": "string"}},
			"weaknesses": {"type": "array", "items": {"type": "string"}},
			"improvementTips": {"type": "array", "items": {"type": "string"}}
		}
	}`,
		Alias{From: "overall_score", To: "overallScore"},
		Alias{From: "skill_scores", To: "skillScores"},
		Alias{From: "skillsScore", To: "skillScores"},
		Alias{From: "skills_score", To: "skillScores"},
		Alias{From: "improvement_tips", To: "improvementTips"},
		Alias{From: "tips", To: "improvementTips"},
		Alias{From: "summary", To: "feedback"},
	)
)
