package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/docpanel-ai/docpanel/internal/core"
)

var questionValidator = validator.New(validator.WithRequiredStructEnabled())

// LoadQuestionSet reads and validates a question set YAML file.
//
// Expected shape:
//
//	name: due-diligence
//	sections:
//	  - name: Corporate
//	    questions:
//	      - id: corp-01
//	        text: What is the legal name of the company?
//	        weight: 0.8
func LoadQuestionSet(path string) (*core.QuestionSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.ErrValidation(core.CodeInvalidQuestionSet,
			fmt.Sprintf("reading question set %s", path)).WithCause(err)
	}
	return ParseQuestionSet(data)
}

// ParseQuestionSet parses and validates question set YAML content.
func ParseQuestionSet(data []byte) (*core.QuestionSet, error) {
	var qs core.QuestionSet
	if err := yaml.Unmarshal(data, &qs); err != nil {
		return nil, core.ErrValidation(core.CodeInvalidQuestionSet, "malformed question set yaml").WithCause(err)
	}

	if err := questionValidator.Struct(&qs); err != nil {
		return nil, core.ErrValidation(core.CodeInvalidQuestionSet, "question set failed validation").WithCause(err)
	}

	if err := qs.Validate(); err != nil {
		return nil, err
	}

	return &qs, nil
}
