// Package forms holds the interactive prompts shown when a command needs input that was
// not passed as flags.
package forms

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/moldtrack/internal/constants"
	"github.com/julianstephens/moldtrack/internal/evaluation"
)

// ValidateRating accepts an integer rating inside the configured range.
func ValidateRating(s string) error {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("rating must be a whole number")
	}
	if i < constants.MinRating || i > constants.MaxRating {
		return fmt.Errorf("rating must be %d-%d", constants.MinRating, constants.MaxRating)
	}
	return nil
}

// NewCriticalAckForm asks the user to confirm they have read a critical task's note.
func NewCriticalAckForm(taskName, note string, ack *bool) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title(fmt.Sprintf("Task %q is critical", taskName)).
				Description(note),
			huh.NewConfirm().
				Title("I have read the note and want to continue").
				Affirmative("Continue").
				Negative("Cancel").
				Value(ack),
		),
	).WithTheme(huh.ThemeDracula())
}

// ConfirmCritical runs the acknowledgment prompt.
func ConfirmCritical(taskName, note string) (bool, error) {
	var ack bool
	if err := NewCriticalAckForm(taskName, note, &ack).Run(); err != nil {
		return false, err
	}
	return ack, nil
}

// ScoreField is the editable state for one contributor on the completion form.
type ScoreField struct {
	Name    string
	Score   string
	Comment string
}

// NewScoreFields prepares one empty field per contributor.
func NewScoreFields(contributors []evaluation.Contributor) []*ScoreField {
	fields := make([]*ScoreField, 0, len(contributors))
	for _, c := range contributors {
		fields = append(fields, &ScoreField{Name: c.Name})
	}
	return fields
}

// NewEvaluationForm builds one group per contributor listing their operations, with a
// required general score and an optional comment.
func NewEvaluationForm(contributors []evaluation.Contributor, fields []*ScoreField) *huh.Form {
	groups := make([]*huh.Group, 0, len(contributors))
	for i, c := range contributors {
		f := fields[i]
		groups = append(groups, huh.NewGroup(
			huh.NewNote().
				Title(c.Name).
				Description(describeOperations(c.Operations)),
			huh.NewInput().
				Title(fmt.Sprintf("General score (%d-%d)", constants.MinRating, constants.MaxRating)).
				Value(&f.Score).
				Validate(ValidateRating),
			huh.NewText().
				Title("Comment").
				Value(&f.Comment),
		))
	}
	return huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
}

// Scores converts completed fields into evaluation scores. Blank scores are left out.
func Scores(fields []*ScoreField) (map[string]evaluation.Score, error) {
	out := make(map[string]evaluation.Score, len(fields))
	for _, f := range fields {
		if strings.TrimSpace(f.Score) == "" {
			continue
		}
		if err := ValidateRating(f.Score); err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		score, _ := strconv.Atoi(strings.TrimSpace(f.Score))
		out[f.Name] = evaluation.Score{Score: score, Comment: strings.TrimSpace(f.Comment)}
	}
	return out, nil
}

func describeOperations(ops []evaluation.OperationSummary) string {
	var b strings.Builder
	for _, op := range ops {
		rating := "unrated"
		if op.SupervisorRating != nil {
			rating = fmt.Sprintf("supervisor %d/%d", *op.SupervisorRating, constants.MaxRating)
		}
		fmt.Fprintf(&b, "• %s %s (%s, %s)\n", op.TaskName, op.Type, op.Status, rating)
	}
	return strings.TrimRight(b.String(), "\n")
}

// ReviewFields is the editable state of a rating prompt.
type ReviewFields struct {
	Rating  string
	Comment string
}

// NewReviewForm asks for a rating and an optional comment.
func NewReviewForm(title string, f *ReviewFields) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title).
				Description(fmt.Sprintf("Rating %d-%d", constants.MinRating, constants.MaxRating)).
				Value(&f.Rating).
				Validate(ValidateRating),
			huh.NewText().
				Title("Comment").
				Value(&f.Comment),
		),
	).WithTheme(huh.ThemeDracula())
}
