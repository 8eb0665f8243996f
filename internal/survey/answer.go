// Package survey computes per-question summaries over a set of submissions:
// frequency/severity means for slider questions, option distributions for
// choice questions, and the priority ranking derived from both.
package survey

import (
	"strconv"
	"strings"

	"github.com/zorasurvey/surveyd/internal/model"
)

// MultiChoiceDelimiter joins the selections of a multiple-choice answer in
// the stored text response. Three pipes never occur in natural option text.
const MultiChoiceDelimiter = "|||"

// EncodeSelections serializes a multiple-choice selection set for storage.
func EncodeSelections(selected []string) string {
	return strings.Join(selected, MultiChoiceDelimiter)
}

// DecodeSelections splits a stored multiple-choice answer back into the
// individual selections, dropping blank fragments.
func DecodeSelections(text string) []string {
	var selections []string
	for _, s := range strings.Split(text, MultiChoiceDelimiter) {
		if strings.TrimSpace(s) != "" {
			selections = append(selections, s)
		}
	}
	return selections
}

// Answer is a response decoded against its problem's question type, so
// consumers switch on the variant instead of re-interpreting raw fields.
type Answer interface {
	isAnswer()
}

// SliderAnswer is a frequency/severity rating pair.
type SliderAnswer struct {
	Frequency int
	Severity  int
}

// ChoiceAnswer is one or more selected option labels.
type ChoiceAnswer struct {
	Selected []string
}

// LabeledSliderAnswer is a 1-based position on a labeled slider.
type LabeledSliderAnswer struct {
	Index int
}

func (SliderAnswer) isAnswer()        {}
func (ChoiceAnswer) isAnswer()        {}
func (LabeledSliderAnswer) isAnswer() {}

// Label resolves the selected option label, synthesizing a fallback when the
// index points outside the problem's options list.
func (a LabeledSliderAnswer) Label(p model.Problem) string {
	if a.Index >= 1 && a.Index <= len(p.Options) {
		return p.Options[a.Index-1]
	}
	return "Option " + strconv.Itoa(a.Index)
}

// DecodeAnswer interprets r according to p's question type. The second
// return is false when the response carries no usable value for that type.
func DecodeAnswer(p model.Problem, r model.Response) (Answer, bool) {
	switch p.QuestionType {
	case model.TypeSingleChoice:
		if r.TextResponse == "" {
			return nil, false
		}
		return ChoiceAnswer{Selected: []string{r.TextResponse}}, true
	case model.TypeMultipleChoice:
		selected := DecodeSelections(r.TextResponse)
		if len(selected) == 0 {
			return nil, false
		}
		return ChoiceAnswer{Selected: selected}, true
	case model.TypeSliderLabeled:
		if r.Frequency == nil {
			return nil, false
		}
		return LabeledSliderAnswer{Index: *r.Frequency}, true
	default:
		// Plain slider, including problems with no explicit type.
		if r.Frequency == nil || r.Severity == nil {
			return nil, false
		}
		return SliderAnswer{Frequency: *r.Frequency, Severity: *r.Severity}, true
	}
}
