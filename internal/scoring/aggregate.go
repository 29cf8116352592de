package scoring

import "propops-service/internal/domain"

// DisplayScale is the scale the score tree reports on. Normalized [0,1]
// values are multiplied by it once, at the question level, so every average
// up the chain stays on the same scale.
const DisplayScale = 10.0

// SubcategoryScore is one subcategory's slice of the score tree. Average is
// nil when the subcategory has no answered questions; that is "no data", not
// zero, and the subcategory is excluded from the category average.
type SubcategoryScore struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Answered int      `json:"answered"`
	Average  *float64 `json:"average"`
}

// CategoryScore is one category's slice of the score tree. Average is nil
// when no subcategory has data; such categories are excluded from the
// weighted overall.
type CategoryScore struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Weight        float64            `json:"weight"`
	Average       *float64           `json:"average"`
	Subcategories []SubcategoryScore `json:"subcategories"`
}

// ScoreTree is the full roll-up for one submission, ready for rendering.
// Overall is on the 0..DisplayScale scale; OverallPercent is the same value
// on 0..100.
type ScoreTree struct {
	Overall        float64         `json:"overall"`
	OverallPercent float64         `json:"overallPercent"`
	Categories     []CategoryScore `json:"categories"`
}

// Score rolls a response set up through the template tree:
// question -> subcategory mean -> category mean -> weighted overall.
// It is a pure function of its inputs; response order does not matter and
// unanswered questions are skipped, never counted as zero.
func Score(tpl domain.SurveyTemplate, responses []domain.Response) ScoreTree {
	byQuestion := make(map[string]domain.Response, len(responses))
	for _, r := range responses {
		byQuestion[r.QuestionID] = r
	}

	tree := ScoreTree{Categories: make([]CategoryScore, 0, len(tpl.Categories))}
	var weightedSum, weightTotal float64

	for _, cat := range tpl.Categories {
		cs := CategoryScore{
			ID:            cat.ID,
			Name:          cat.Name,
			Weight:        cat.Weight,
			Subcategories: make([]SubcategoryScore, 0, len(cat.Subcategories)),
		}

		var subSum float64
		var subCount int
		for _, sub := range cat.Subcategories {
			ss := scoreSubcategory(sub, byQuestion)
			cs.Subcategories = append(cs.Subcategories, ss)
			if ss.Average != nil {
				subSum += *ss.Average
				subCount++
			}
		}

		// Subcategories are equally weighted; weight lives only at the
		// category level.
		if subCount > 0 {
			avg := subSum / float64(subCount)
			cs.Average = &avg
			weightedSum += avg * cat.Weight
			weightTotal += cat.Weight
		}
		tree.Categories = append(tree.Categories, cs)
	}

	if weightTotal > 0 {
		tree.Overall = weightedSum / weightTotal
	}
	tree.OverallPercent = tree.Overall / DisplayScale * 100
	return tree
}

func scoreSubcategory(sub domain.Subcategory, byQuestion map[string]domain.Response) SubcategoryScore {
	ss := SubcategoryScore{ID: sub.ID, Name: sub.Name}

	var sum float64
	for _, q := range sub.Questions {
		resp, ok := byQuestion[q.ID]
		if !ok {
			continue
		}
		sum += Normalize(resp.Score, q.ScaleMin, q.ScaleMax) * DisplayScale
		ss.Answered++
	}
	if ss.Answered > 0 {
		avg := sum / float64(ss.Answered)
		ss.Average = &avg
	}
	return ss
}
