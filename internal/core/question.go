package core

import "fmt"

// Question is a single configured question to answer against the document.
type Question struct {
	ID      string  `yaml:"id" validate:"required"`
	Section string  `yaml:"-"`
	Text    string  `yaml:"text" validate:"required"`
	Weight  float64 `yaml:"weight,omitempty" validate:"gte=0,lte=1"`
}

// QuestionSection groups questions under a named heading.
type QuestionSection struct {
	Name      string     `yaml:"name" validate:"required"`
	Questions []Question `yaml:"questions" validate:"required,min=1,dive"`
}

// QuestionSet is the full configured question catalogue for an analysis.
type QuestionSet struct {
	Name     string            `yaml:"name" validate:"required"`
	Sections []QuestionSection `yaml:"sections" validate:"required,min=1,dive"`
}

// All returns every question in section order, with Section populated.
func (qs *QuestionSet) All() []Question {
	var out []Question
	for _, s := range qs.Sections {
		for _, q := range s.Questions {
			q.Section = s.Name
			out = append(out, q)
		}
	}
	return out
}

// Len returns the total question count.
func (qs *QuestionSet) Len() int {
	n := 0
	for _, s := range qs.Sections {
		n += len(s.Questions)
	}
	return n
}

// ByID returns the question with the given id.
func (qs *QuestionSet) ByID(id string) (Question, bool) {
	for _, s := range qs.Sections {
		for _, q := range s.Questions {
			if q.ID == id {
				q.Section = s.Name
				return q, true
			}
		}
	}
	return Question{}, false
}

// Validate checks question set invariants beyond struct tags: ids must be
// unique across sections.
func (qs *QuestionSet) Validate() error {
	seen := make(map[string]string)
	for _, s := range qs.Sections {
		for _, q := range s.Questions {
			if prev, dup := seen[q.ID]; dup {
				return ErrValidation(CodeInvalidQuestionSet,
					fmt.Sprintf("duplicate question id %q in sections %q and %q", q.ID, prev, s.Name))
			}
			seen[q.ID] = s.Name
		}
	}
	return nil
}

// ExpertAssignment binds an expert role to the subset of questions it is
// responsible for. Computed once per session by the budget optimizer and
// reused for every window.
type ExpertAssignment struct {
	Expert      string
	QuestionIDs []string
}
