package generator

import (
	"encoding/json"
	"fmt"
	"strings"
)

type GeneratedBatch struct {
	Questions []GeneratedQuestion `json:"questions"`
}

// GeneratedQuestion mirrors the catalog record layout minus the id, which is
// assigned when the draft is stored.
type GeneratedQuestion struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation"`
}

type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Errors, "; "))
}

// ParseResponse decodes and structurally validates the model's JSON output.
// Models occasionally wrap the payload in a markdown code fence; strip it
// before decoding.
func ParseResponse(responseBody string) (*GeneratedBatch, error) {
	cleaned := stripCodeFences(responseBody)

	var batch GeneratedBatch
	if err := json.Unmarshal([]byte(cleaned), &batch); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	if err := validateBatch(&batch); err != nil {
		return nil, err
	}

	return &batch, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimSpace(s)
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSpace(s)
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}

func validateBatch(batch *GeneratedBatch) error {
	var errs []string

	if len(batch.Questions) == 0 {
		return &ValidationError{Errors: []string{"no questions in batch"}}
	}

	for i, q := range batch.Questions {
		qNum := i + 1

		if strings.TrimSpace(q.Question) == "" {
			errs = append(errs, fmt.Sprintf("question %d: empty question text", qNum))
		}
		if strings.TrimSpace(q.Explanation) == "" {
			errs = append(errs, fmt.Sprintf("question %d: empty explanation", qNum))
		}
		if len(q.Options) < 4 || len(q.Options) > 5 {
			errs = append(errs, fmt.Sprintf("question %d: expected 4-5 options, got %d", qNum, len(q.Options)))
			continue
		}

		seen := make(map[string]bool, len(q.Options))
		answerFound := false
		for j, opt := range q.Options {
			if strings.TrimSpace(opt) == "" {
				errs = append(errs, fmt.Sprintf("question %d: option %d is empty", qNum, j+1))
			}
			if seen[opt] {
				errs = append(errs, fmt.Sprintf("question %d: duplicate option %q", qNum, opt))
			}
			seen[opt] = true
			if opt == q.Answer {
				answerFound = true
			}
		}
		if !answerFound {
			errs = append(errs, fmt.Sprintf("question %d: answer is not one of the options", qNum))
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}
