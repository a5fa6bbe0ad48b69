package forms

import (
	"strings"
	"testing"

	"github.com/julianstephens/moldtrack/internal/evaluation"
	"github.com/julianstephens/moldtrack/internal/models"
)

func TestValidateRating(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"1", false},
		{"10", false},
		{" 7 ", false},
		{"0", true},
		{"11", true},
		{"seven", true},
		{"", true},
	}
	for _, tt := range tests {
		if err := ValidateRating(tt.in); (err != nil) != tt.wantErr {
			t.Errorf("ValidateRating(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
	}
}

func TestScores(t *testing.T) {
	fields := []*ScoreField{
		{Name: "Ali", Score: "8", Comment: " steady "},
		{Name: "Veli", Score: ""},
	}
	got, err := Scores(fields)
	if err != nil {
		t.Fatalf("Scores: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 score, got %d", len(got))
	}
	if got["Ali"].Score != 8 || got["Ali"].Comment != "steady" {
		t.Errorf("unexpected score for Ali: %+v", got["Ali"])
	}

	fields[1].Score = "12"
	if _, err := Scores(fields); err == nil || !strings.Contains(err.Error(), "Veli") {
		t.Errorf("expected error naming Veli, got %v", err)
	}
}

func TestNewScoreFieldsFollowContributors(t *testing.T) {
	rating := 9
	contributors := []evaluation.Contributor{
		{Name: "Ali", Operations: []evaluation.OperationSummary{
			{OperationID: "op-1", TaskName: "Cavity", Type: models.OpCNC, Status: models.StatusCompleted, SupervisorRating: &rating},
		}},
		{Name: "Veli"},
	}
	fields := NewScoreFields(contributors)
	if len(fields) != 2 || fields[0].Name != "Ali" || fields[1].Name != "Veli" {
		t.Fatalf("unexpected fields: %+v", fields)
	}
	if NewEvaluationForm(contributors, fields) == nil {
		t.Fatal("expected form")
	}

	desc := describeOperations(contributors[0].Operations)
	if !strings.Contains(desc, "Cavity") || !strings.Contains(desc, "supervisor 9/10") {
		t.Errorf("unexpected description %q", desc)
	}
}
