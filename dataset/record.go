package dataset

import (
	"encoding/json"
	"fmt"
)

// Span is an inclusive (start, end) token-offset pair locating an answer
// inside a single passage. It marshals to and from the two-element JSON
// array used by the on-disk record format.
type Span struct {
	Start int
	End   int
}

// Unresolved reports whether the span marks an answer that was never
// located in its passage. Either bound being -1 counts.
func (s Span) Unresolved() bool {
	return s.Start == -1 || s.End == -1
}

// MarshalJSON encodes the span as [start, end].
func (s Span) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{s.Start, s.End})
}

// UnmarshalJSON decodes a [start, end] JSON array.
func (s *Span) UnmarshalJSON(data []byte) error {
	var pair []int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("answer span must be a JSON array: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("answer span must have exactly 2 elements, got %d", len(pair))
	}
	s.Start, s.End = pair[0], pair[1]
	return nil
}

// Document is one candidate passage attached to a question record. The
// pos/keyword slices are per-token tag ids parallel to SegmentedPassage.
type Document struct {
	SegmentedPassage []string `json:"segmented_passage"`
	IsSelected       bool     `json:"is_selected"`
	PosPassage       []int    `json:"pos_passage"`
	KeywordPassage   []int    `json:"keyword_passage"`

	// PassageTokenIDs is attached by Dataset.ConvertToIDs; it is not part
	// of the raw input format.
	PassageTokenIDs []int `json:"passage_token_ids,omitempty"`
}

// Record is one question instance with its candidate documents and gold
// answer annotations. BestMatchDocIDs, BestMatchScores, AnswerLabels and
// FakeAnswers are mutually parallel: entry i of each describes the same
// gold answer.
type Record struct {
	SegmentedQuestion []string   `json:"segmented_question"`
	Documents         []Document `json:"documents"`
	PosQuestion       []int      `json:"pos_question"`
	KeywordQuestion   []int      `json:"keyword_question"`
	BestMatchDocIDs   []int      `json:"best_match_doc_ids"`
	BestMatchScores   []float64  `json:"best_match_scores"`
	AnswerLabels      []Span     `json:"answer_labels"`
	FakeAnswers       []string   `json:"fake_answers"`

	// QuestionTokenIDs is attached by Dataset.ConvertToIDs.
	QuestionTokenIDs []int `json:"question_token_ids,omitempty"`

	// ErrorInfo is set on records rejected by training-time filtering
	// before they are written to the badcase sink.
	ErrorInfo string `json:"error_info,omitempty"`
}
