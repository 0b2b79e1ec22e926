package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

func validBatchJSON(count int) string {
	batch := GeneratedBatch{Questions: make([]GeneratedQuestion, count)}

	for i := 0; i < count; i++ {
		options := make([]string, 4)
		for j := range options {
			options[j] = fmt.Sprintf("Diagnosis %c for case %d", 'A'+j, i+1)
		}
		batch.Questions[i] = GeneratedQuestion{
			Question:    fmt.Sprintf("A 54-year-old patient presents with finding %d. Which of the following is the most likely diagnosis?", i+1),
			Options:     options,
			Answer:      options[1],
			Explanation: "Diagnosis B best fits the presentation described in the vignette.",
		}
	}

	data, _ := json.Marshal(batch)
	return string(data)
}

func validQuestion() GeneratedQuestion {
	return GeneratedQuestion{
		Question:    "A 61-year-old man presents with crushing substernal chest pain. Which of the following is the most likely diagnosis?",
		Options:     []string{"Acute pericarditis", "Myocardial infarction", "Costochondritis", "Pulmonary embolism"},
		Answer:      "Myocardial infarction",
		Explanation: "Crushing substernal pain in this demographic is infarction until proven otherwise.",
	}
}

func TestParseResponse_ValidJSON(t *testing.T) {
	input := validBatchJSON(6)

	batch, err := ParseResponse(input)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if len(batch.Questions) != 6 {
		t.Errorf("expected 6 questions, got %d", len(batch.Questions))
	}

	for i, q := range batch.Questions {
		if len(q.Options) != 4 {
			t.Errorf("question %d: expected 4 options, got %d", i+1, len(q.Options))
		}
		if q.Answer == "" {
			t.Errorf("question %d: empty answer", i+1)
		}
	}
}

func TestParseResponse_MarkdownFences(t *testing.T) {
	input := "```json\n" + validBatchJSON(3) + "\n```"

	batch, err := ParseResponse(input)
	if err != nil {
		t.Fatalf("expected no error with markdown fences, got: %v", err)
	}

	if len(batch.Questions) != 3 {
		t.Errorf("expected 3 questions, got %d", len(batch.Questions))
	}
}

func TestParseResponse_TooFewOptions(t *testing.T) {
	q := validQuestion()
	q.Options = q.Options[:3]
	q.Answer = q.Options[0]
	data, _ := json.Marshal(GeneratedBatch{Questions: []GeneratedQuestion{q}})

	_, err := ParseResponse(string(data))
	if err == nil {
		t.Fatal("expected validation error for too few options")
	}

	var ve *ValidationError
	if !isValidationError(err, &ve) {
		t.Fatalf("expected ValidationError, got: %T", err)
	}

	found := false
	for _, e := range ve.Errors {
		if strings.Contains(e, "expected 4-5 options") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected error about option count, got: %v", ve.Errors)
	}
}

func TestParseResponse_DuplicateOptions(t *testing.T) {
	q := validQuestion()
	q.Options[2] = q.Options[1]
	data, _ := json.Marshal(GeneratedBatch{Questions: []GeneratedQuestion{q}})

	_, err := ParseResponse(string(data))
	if err == nil {
		t.Fatal("expected validation error for duplicate options")
	}

	var ve *ValidationError
	if !isValidationError(err, &ve) {
		t.Fatalf("expected ValidationError, got: %T", err)
	}

	found := false
	for _, e := range ve.Errors {
		if strings.Contains(e, "duplicate option") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected error about duplicate option, got: %v", ve.Errors)
	}
}

func TestParseResponse_AnswerNotAnOption(t *testing.T) {
	q := validQuestion()
	q.Answer = "Aortic dissection"
	data, _ := json.Marshal(GeneratedBatch{Questions: []GeneratedQuestion{q}})

	_, err := ParseResponse(string(data))
	if err == nil {
		t.Fatal("expected validation error for answer not among options")
	}

	var ve *ValidationError
	if !isValidationError(err, &ve) {
		t.Fatalf("expected ValidationError, got: %T", err)
	}

	found := false
	for _, e := range ve.Errors {
		if strings.Contains(e, "answer is not one of the options") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected error about answer membership, got: %v", ve.Errors)
	}
}

func TestParseResponse_EmptyExplanation(t *testing.T) {
	q := validQuestion()
	q.Explanation = ""
	data, _ := json.Marshal(GeneratedBatch{Questions: []GeneratedQuestion{q}})

	_, err := ParseResponse(string(data))
	if err == nil {
		t.Fatal("expected validation error for empty explanation")
	}
}

func TestParseResponse_EmptyBatch(t *testing.T) {
	_, err := ParseResponse(`{"questions":[]}`)
	if err == nil {
		t.Fatal("expected validation error for empty batch")
	}

	var ve *ValidationError
	if !isValidationError(err, &ve) {
		t.Fatalf("expected ValidationError, got: %T", err)
	}
}

func TestParseResponse_MalformedJSON(t *testing.T) {
	_, err := ParseResponse("this is not json at all")
	if err == nil {
		t.Fatal("expected error for malformed JSON")
	}

	// Should NOT be a ValidationError — should be a parse error
	var ve *ValidationError
	if isValidationError(err, &ve) {
		t.Fatal("expected parse error, not ValidationError")
	}
}

func TestMockClientOutputParses(t *testing.T) {
	resp, err := NewMockClient().Generate(context.Background(), SystemPrompt(), BuildUserPrompt("Cardiovascular", 4))
	if err != nil {
		t.Fatalf("mock generate: %v", err)
	}

	batch, err := ParseResponse(resp.Content)
	if err != nil {
		t.Fatalf("mock output should validate, got: %v", err)
	}
	if len(batch.Questions) != 4 {
		t.Errorf("expected 4 mock questions, got %d", len(batch.Questions))
	}
}

// isValidationError checks if err is a *ValidationError via type assertion
func isValidationError(err error, target **ValidationError) bool {
	ve, ok := err.(*ValidationError)
	if ok && target != nil {
		*target = ve
	}
	return ok
}
