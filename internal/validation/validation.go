package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/julianstephens/moldtrack/internal/constants"
	"github.com/julianstephens/moldtrack/internal/models"
)

// ConflictType represents the type of problem found in the stored graph
type ConflictType string

const (
	ConflictInvalidRecord        ConflictType = "invalid_record"
	ConflictMachineDoubleBooked  ConflictType = "machine_double_booked"
	ConflictUnknownMachine       ConflictType = "unknown_machine"
	ConflictUnknownPersonnel     ConflictType = "unknown_personnel"
	ConflictDuplicateJobName     ConflictType = "duplicate_job_name"
	ConflictDuplicateTaskSeq     ConflictType = "duplicate_task_seq"
	ConflictInconsistentProgress ConflictType = "inconsistent_progress"
	ConflictMissingAssignment    ConflictType = "missing_assignment"
)

// Conflict represents a single problem
type Conflict struct {
	Type        ConflictType
	Description string
	Items       []string // Names involved
	IDs         []string // Job/task/operation ids involved
}

// ValidationResult contains all detected conflicts
type ValidationResult struct {
	Conflicts []Conflict
}

// HasConflicts returns true if there are any conflicts
func (vr *ValidationResult) HasConflicts() bool {
	return len(vr.Conflicts) > 0
}

// FormatReport returns a human-readable report of all conflicts
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasConflicts() {
		return "No conflicts detected."
	}

	var b strings.Builder
	b.WriteString("Conflicts detected:\n")
	for _, c := range vr.Conflicts {
		fmt.Fprintf(&b, "- %s\n", c.Description)
	}
	return b.String()
}

func (vr *ValidationResult) add(t ConflictType, items, ids []string, format string, args ...interface{}) {
	vr.Conflicts = append(vr.Conflicts, Conflict{
		Type:        t,
		Description: fmt.Sprintf(format, args...),
		Items:       items,
		IDs:         ids,
	})
}

// Validator checks a stored job graph against the registry of machines and personnel
type Validator struct{}

// New creates a new Validator
func New() *Validator {
	return &Validator{}
}

// ValidateJobs checks every job, task and operation. machines and people may be nil, in
// which case references to them are not checked.
func (v *Validator) ValidateJobs(jobs []models.Job, machines []models.Machine, people []models.Personnel) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}

	knownMachines := make(map[string]bool, len(machines))
	for _, m := range machines {
		knownMachines[m.Name] = true
	}
	knownPeople := make(map[string]bool, len(people))
	for _, p := range people {
		knownPeople[p.Name] = true
	}

	jobNames := make(map[string][]string)
	holders := make(map[string][]string)

	for _, job := range jobs {
		if job.Name != "" {
			jobNames[job.Name] = append(jobNames[job.Name], job.ID)
		}
		if strings.TrimSpace(job.Name) == "" {
			result.add(ConflictInvalidRecord, nil, []string{job.ID}, "Job %s has no name", job.ID)
		}
		if _, err := models.ParseJobStatus(string(job.Status)); err != nil {
			result.add(ConflictInvalidRecord, []string{job.Name}, []string{job.ID}, "Job \"%s\": %v", job.Name, err)
		}
		for _, ev := range job.Evaluations {
			if !models.ValidRating(ev.GeneralScore) {
				result.add(ConflictInvalidRecord, []string{job.Name, ev.OperatorName}, []string{job.ID},
					"Job \"%s\" evaluation for %s has score %d outside %d-%d",
					job.Name, ev.OperatorName, ev.GeneralScore, constants.MinRating, constants.MaxRating)
			}
		}

		seqs := make(map[int][]string)
		for _, task := range job.Tasks {
			seqs[task.Seq] = append(seqs[task.Seq], task.ID)
			if task.IsCritical && strings.TrimSpace(task.CriticalNote) == "" {
				result.add(ConflictInvalidRecord, []string{job.Name, task.Name}, []string{task.ID},
					"Task \"%s\" of \"%s\" is critical without a note", task.Name, job.Name)
			}

			for _, op := range task.Operations {
				where := fmt.Sprintf("Operation %s (%s, task \"%s\" of \"%s\")", op.ID, op.Type, task.Name, job.Name)
				if err := op.Validate(); err != nil {
					result.add(ConflictInvalidRecord, []string{job.Name, task.Name}, []string{op.ID}, "%s: %v", where, err)
				}
				v.checkProgress(&result, where, op)
				v.checkReferences(&result, where, op, knownMachines, knownPeople, machines != nil, people != nil)
				if op.HoldsMachine() {
					holders[op.MachineName] = append(holders[op.MachineName], op.ID)
				}
			}
		}
		for seq, ids := range seqs {
			if len(ids) > 1 {
				result.add(ConflictDuplicateTaskSeq, []string{job.Name}, ids,
					"Job \"%s\" has %d tasks numbered %d", job.Name, len(ids), seq)
			}
		}
	}

	for name, ids := range jobNames {
		if len(ids) > 1 {
			result.add(ConflictDuplicateJobName, []string{name}, ids, "Duplicate job name: \"%s\" (IDs: %v)", name, ids)
		}
	}
	for machine, ids := range holders {
		if len(ids) > 1 {
			result.add(ConflictMachineDoubleBooked, []string{machine}, ids,
				"Machine %s is held by %d in-progress operations: %s", machine, len(ids), strings.Join(ids, ", "))
		}
	}

	sort.SliceStable(result.Conflicts, func(i, j int) bool {
		return result.Conflicts[i].Description < result.Conflicts[j].Description
	})
	return result
}

func (v *Validator) checkProgress(result *ValidationResult, where string, op models.Operation) {
	switch op.Status {
	case models.StatusWaitingSupervisorReview, models.StatusCompleted:
		if op.ProgressPercentage != constants.MaxProgress {
			result.add(ConflictInconsistentProgress, nil, []string{op.ID},
				"%s is %s at %d%%", where, op.Status, op.ProgressPercentage)
		}
		if op.FinishDate == nil {
			result.add(ConflictInconsistentProgress, nil, []string{op.ID}, "%s is %s without a finish date", where, op.Status)
		}
	case models.StatusNotStarted, models.StatusInProgress, models.StatusPaused:
		if op.ProgressPercentage == constants.MaxProgress {
			result.add(ConflictInconsistentProgress, nil, []string{op.ID},
				"%s is %s at 100%% without a machine operator review", where, op.Status)
		}
	}
	if op.Status == models.StatusInProgress || op.Status == models.StatusPaused {
		if op.MachineName == "" || op.MachineOperatorName == "" {
			result.add(ConflictMissingAssignment, nil, []string{op.ID}, "%s is %s without a machine and operator", where, op.Status)
		}
	}
}

func (v *Validator) checkReferences(result *ValidationResult, where string, op models.Operation, machines, people map[string]bool, checkMachines, checkPeople bool) {
	if checkMachines && op.MachineName != "" && !machines[op.MachineName] {
		result.add(ConflictUnknownMachine, []string{op.MachineName}, []string{op.ID},
			"%s uses unregistered machine %s", where, op.MachineName)
	}
	if !checkPeople {
		return
	}
	for _, name := range []string{op.AssignedOperator, op.MachineOperatorName} {
		if name != "" && !people[name] {
			result.add(ConflictUnknownPersonnel, []string{name}, []string{op.ID}, "%s names unregistered person %s", where, name)
		}
	}
}
