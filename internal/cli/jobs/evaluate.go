package jobs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/julianstephens/moldtrack/internal/cli"
	"github.com/julianstephens/moldtrack/internal/cli/forms"
	apperr "github.com/julianstephens/moldtrack/internal/errors"
	"github.com/julianstephens/moldtrack/internal/evaluation"
)

// JobEvaluateCmd completes a job. Scores come from flags or, on a terminal with no --score
// flags, from an interactive form.
type JobEvaluateCmd struct {
	ID              string   `arg:"" help:"Job ID."`
	Score           []string `help:"General score as NAME=SCORE. Repeatable." sep:"none"`
	Comment         []string `help:"General comment as NAME=TEXT. Repeatable." sep:"none"`
	Override        []string `help:"Per-operation score as OPERATION_ID=SCORE. Repeatable." sep:"none"`
	OverrideComment []string `help:"Per-operation comment as OPERATION_ID=TEXT. Repeatable." sep:"none" name:"override-comment"`
}

func (c *JobEvaluateCmd) Run(ctx *cli.Context) error {
	actor, err := ctx.Actor()
	if err != nil {
		return err
	}

	in, err := c.input()
	if err != nil {
		return err
	}

	if len(in.Scores) == 0 && ctx.IsInteractive() {
		contributors, err := ctx.Service.Contributors(ctx.Ctx(), c.ID)
		if err != nil {
			return err
		}
		if len(contributors) > 0 {
			fields := forms.NewScoreFields(contributors)
			if err := forms.NewEvaluationForm(contributors, fields).Run(); err != nil {
				return err
			}
			if in.Scores, err = forms.Scores(fields); err != nil {
				return err
			}
		}
	}

	res, err := ctx.Service.EvaluateJob(ctx.Ctx(), actor, c.ID, in)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Job %q completed: %d contributors evaluated, %d operations rated\n",
		res.Job.Name, len(res.Evaluations), len(res.Updated))
	return nil
}

func (c *JobEvaluateCmd) input() (evaluation.Input, error) {
	in := evaluation.Input{
		Scores:    map[string]evaluation.Score{},
		Overrides: map[string]evaluation.Override{},
	}

	scores, err := parsePairs("score", c.Score)
	if err != nil {
		return in, err
	}
	for name, v := range scores {
		n, err := strconv.Atoi(v)
		if err != nil {
			return in, apperr.Invalid("score", "score for %s must be a number, got %q", name, v)
		}
		in.Scores[name] = evaluation.Score{Score: n}
	}

	comments, err := parsePairs("comment", c.Comment)
	if err != nil {
		return in, err
	}
	for name, text := range comments {
		s, ok := in.Scores[name]
		if !ok {
			return in, apperr.Invalid("comment", "comment for %s has no matching --score", name)
		}
		s.Comment = text
		in.Scores[name] = s
	}

	overrides, err := parsePairs("override", c.Override)
	if err != nil {
		return in, err
	}
	for id, v := range overrides {
		n, err := strconv.Atoi(v)
		if err != nil {
			return in, apperr.Invalid("override", "override for %s must be a number, got %q", id, v)
		}
		in.Overrides[id] = evaluation.Override{Score: &n}
	}

	overrideComments, err := parsePairs("override-comment", c.OverrideComment)
	if err != nil {
		return in, err
	}
	for id, text := range overrideComments {
		o := in.Overrides[id]
		text := text
		o.Comment = &text
		in.Overrides[id] = o
	}
	return in, nil
}

// parsePairs splits KEY=VALUE flags. Keys are trimmed; the value keeps inner whitespace.
func parsePairs(flag string, pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, apperr.Invalid(flag, "expected KEY=VALUE, got %q", p)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}
