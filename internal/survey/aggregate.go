package survey

import (
	"sort"

	"github.com/zorasurvey/surveyd/internal/model"
)

// Aggregator computes summaries for one resolved survey structure. Callers
// build it from an explicit SurveyView so the question catalog cannot shift
// under them mid-request.
type Aggregator struct {
	problems []model.Problem
	groups   map[int64]string
}

// New builds an aggregator over the view's problem catalog. Each problem's
// group is its section name.
func New(view model.SurveyView) *Aggregator {
	a := &Aggregator{groups: make(map[int64]string)}
	for _, sec := range view.Sections {
		for _, p := range sec.Problems {
			a.problems = append(a.problems, p)
			a.groups[p.ID] = sec.Name
		}
	}
	return a
}

// Points returns one aggregate point per slider question: the unweighted
// mean frequency (x) and severity (y) across every submission. A question
// with no responses becomes a neutral midpoint instead of a degenerate
// point.
func (a *Aggregator) Points(subs []model.Submission) []model.AggregatePoint {
	var points []model.AggregatePoint
	for _, p := range a.problems {
		if p.QuestionType.IsChoice() {
			continue
		}
		var freqSum, sevSum float64
		var n int
		for _, sub := range subs {
			for _, r := range sub.Responses {
				if r.ProblemID != p.ID {
					continue
				}
				ans, ok := DecodeAnswer(p, r)
				if !ok {
					continue
				}
				if sa, ok := ans.(SliderAnswer); ok {
					freqSum += float64(sa.Frequency)
					sevSum += float64(sa.Severity)
					n++
				}
			}
		}
		point := model.AggregatePoint{
			ID:    p.ID,
			X:     model.DefaultRating,
			Y:     model.DefaultRating,
			Group: a.groups[p.ID],
			Title: p.Title,
		}
		if n > 0 {
			point.X = freqSum / float64(n)
			point.Y = sevSum / float64(n)
		}
		points = append(points, point)
	}
	return points
}

// Distributions returns the option counts for every choice-style question.
// Single-choice answers count once, multiple-choice answers count each
// selection, and labeled sliders resolve the stored position to its label.
// Counts are sorted descending; ties keep first-seen order.
func (a *Aggregator) Distributions(subs []model.Submission) []model.ChoiceDistribution {
	var dists []model.ChoiceDistribution
	for _, p := range a.problems {
		if !p.QuestionType.IsChoice() {
			continue
		}

		counts := make(map[string]int)
		var order []string
		record := func(label string) {
			if _, seen := counts[label]; !seen {
				order = append(order, label)
			}
			counts[label]++
		}

		total := 0
		for _, sub := range subs {
			r, ok := firstResponse(sub, p.ID)
			if !ok {
				continue
			}
			ans, ok := DecodeAnswer(p, r)
			if !ok {
				continue
			}
			switch v := ans.(type) {
			case ChoiceAnswer:
				for _, sel := range v.Selected {
					record(sel)
				}
			case LabeledSliderAnswer:
				record(v.Label(p))
			}
			total++
		}
		if total == 0 {
			continue
		}

		dist := model.ChoiceDistribution{
			ProblemID:    p.ID,
			Title:        p.Title,
			QuestionType: p.QuestionType,
			Total:        total,
		}
		for _, label := range order {
			dist.Counts = append(dist.Counts, model.OptionCount{Option: label, Count: counts[label]})
		}
		sort.SliceStable(dist.Counts, func(i, j int) bool {
			return dist.Counts[i].Count > dist.Counts[j].Count
		})
		dists = append(dists, dist)
	}
	return dists
}

// TopProblems ranks slider questions by priority score (frequency mean x
// severity mean), highest first, and returns at most n entries. Questions
// nobody answered are left out rather than ranked on the default midpoint.
func (a *Aggregator) TopProblems(subs []model.Submission, n int) []model.ProblemRank {
	answered := make(map[int64]bool)
	for _, sub := range subs {
		for _, r := range sub.Responses {
			answered[r.ProblemID] = true
		}
	}

	var ranks []model.ProblemRank
	for _, point := range a.Points(subs) {
		if !answered[point.ID] {
			continue
		}
		ranks = append(ranks, model.ProblemRank{
			ID:           point.ID,
			Title:        point.Title,
			Section:      point.Group,
			AvgFrequency: point.X,
			AvgSeverity:  point.Y,
			Score:        point.Score(),
		})
	}
	sort.SliceStable(ranks, func(i, j int) bool {
		return ranks[i].Score > ranks[j].Score
	})
	if n > 0 && len(ranks) > n {
		ranks = ranks[:n]
	}
	return ranks
}

// firstResponse returns the submission's first response to the given
// problem. One respondent contributes at most one answer per question.
func firstResponse(sub model.Submission, problemID int64) (model.Response, bool) {
	for _, r := range sub.Responses {
		if r.ProblemID == problemID {
			return r, true
		}
	}
	return model.Response{}, false
}
