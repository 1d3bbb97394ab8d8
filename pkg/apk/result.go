package apk

import (
	"path/filepath"
	"strings"
	"time"
)

// Target is the archive being unpacked and the directory it unpacks into:
// the archive path with its extension stripped.
type Target struct {
	Archive string
	Root    string
}

// NewTarget derives the extraction root for archive.
func NewTarget(archive string) Target {
	return Target{
		Archive: archive,
		Root:    strings.TrimSuffix(archive, filepath.Ext(archive)),
	}
}

// Unpacked is apktool's output directory: resources, smali, apktool.yml.
func (t Target) Unpacked() string { return filepath.Join(t.Root, "unpacked") }

// Dex is where the bytecode container is extracted.
func (t Target) Dex() string { return filepath.Join(t.Root, "classes.dex") }

// Jar is dex2jar's output.
func (t Target) Jar() string { return filepath.Join(t.Root, "classes.jar") }

// Sources is the decompiler's output directory.
func (t Target) Sources() string { return filepath.Join(t.Root, "src") }

// Stage names a pipeline step.
type Stage string

const (
	StageResources Stage = "resources"
	StageDex       Stage = "dex"
	StageConvert   Stage = "convert"
	StageDecompile Stage = "decompile"
)

// Status is how a stage ended.
type Status int

const (
	StatusSucceeded Status = iota
	StatusFailed
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	}
	return "unknown"
}

// Outcome summarizes a pipeline run.
type Outcome int

const (
	OutcomeSucceeded Outcome = iota
	// OutcomeSoftFailed means only best-effort stages failed.
	OutcomeSoftFailed
	// OutcomeHardFailed means an essential stage failed.
	OutcomeHardFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeSoftFailed:
		return "soft-failed"
	case OutcomeHardFailed:
		return "hard-failed"
	}
	return "unknown"
}

// StageResult records one stage.
type StageResult struct {
	Stage     Stage
	Essential bool
	Status    Status
	Err       error
	Duration  time.Duration
}

// Result is the ordered record of an unpack run.
type Result struct {
	Target Target
	Stages []StageResult
}

// Outcome derives the overall outcome from the stage records.
func (r *Result) Outcome() Outcome {
	outcome := OutcomeSucceeded
	for _, s := range r.Stages {
		if s.Status != StatusFailed {
			continue
		}
		if s.Essential {
			return OutcomeHardFailed
		}
		outcome = OutcomeSoftFailed
	}
	return outcome
}

// Stage returns the record for stage.
func (r *Result) Stage(stage Stage) (StageResult, bool) {
	for _, s := range r.Stages {
		if s.Stage == stage {
			return s, true
		}
	}
	return StageResult{}, false
}

// Warnings returns the errors of failed non-essential stages.
func (r *Result) Warnings() []error {
	var errs []error
	for _, s := range r.Stages {
		if s.Status == StatusFailed && !s.Essential {
			errs = append(errs, s.Err)
		}
	}
	return errs
}

func (r *Result) record(stage Stage, essential bool, start time.Time, err error) {
	status := StatusSucceeded
	if err != nil {
		status = StatusFailed
	}
	r.Stages = append(r.Stages, StageResult{
		Stage:     stage,
		Essential: essential,
		Status:    status,
		Err:       err,
		Duration:  time.Since(start),
	})
}

func (r *Result) skip(stages ...Stage) {
	for _, stage := range stages {
		r.Stages = append(r.Stages, StageResult{Stage: stage, Status: StatusSkipped})
	}
}
