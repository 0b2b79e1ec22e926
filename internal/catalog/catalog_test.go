package catalog

import (
	"strings"
	"testing"

	"github.com/usmle-prep/backend/internal/models"
)

func validQuestion(id, system string) models.Question {
	return models.Question{
		ID:          id,
		System:      system,
		Question:    "Which vessel supplies the SA node?",
		Options:     []string{"RCA", "LAD", "LCX", "PDA"},
		Answer:      "RCA",
		Explanation: "The SA nodal artery arises from the RCA in most people.",
	}
}

func TestNewBuildsSystems(t *testing.T) {
	cat, err := New([]models.Question{
		validQuestion("q1", "Renal"),
		validQuestion("q2", "Cardio"),
		validQuestion("q3", "Cardio"),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	systems := cat.Systems()
	if len(systems) != 2 || systems[0] != "Cardio" || systems[1] != "Renal" {
		t.Errorf("Systems() = %v, want [Cardio Renal]", systems)
	}
	if cat.Len() != 3 {
		t.Errorf("Len() = %d, want 3", cat.Len())
	}

	if _, ok := cat.ByID("q2"); !ok {
		t.Error("ByID(q2) should find the question")
	}
	if _, ok := cat.ByID("missing"); ok {
		t.Error("ByID(missing) should not find anything")
	}
}

func TestNewRejectsDuplicateIDs(t *testing.T) {
	_, err := New([]models.Question{
		validQuestion("q1", "Cardio"),
		validQuestion("q1", "Renal"),
	})
	if err == nil {
		t.Fatal("expected error for duplicate ids")
	}
	if !strings.Contains(err.Error(), "duplicate question id") {
		t.Errorf("error = %v, want duplicate id message", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(q *models.Question)
		wantErr string
	}{
		{"valid", func(q *models.Question) {}, ""},
		{"missing id", func(q *models.Question) { q.ID = "" }, "missing id"},
		{"missing system", func(q *models.Question) { q.System = "" }, "missing system"},
		{"one option", func(q *models.Question) { q.Options = []string{"RCA"}; q.Answer = "RCA" }, "at least 2 options"},
		{"duplicate options", func(q *models.Question) { q.Options = []string{"RCA", "RCA"} }, "duplicate option"},
		{"answer not an option", func(q *models.Question) { q.Answer = "Aorta" }, "not among the options"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := validQuestion("q1", "Cardio")
			tt.mutate(&q)
			err := Validate(q)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestEmptyCatalog(t *testing.T) {
	cat, err := New(nil)
	if err != nil {
		t.Fatalf("New(nil) failed: %v", err)
	}
	if cat.Len() != 0 {
		t.Errorf("Len() = %d, want 0", cat.Len())
	}
	if len(cat.Systems()) != 0 {
		t.Errorf("Systems() = %v, want empty", cat.Systems())
	}
}
