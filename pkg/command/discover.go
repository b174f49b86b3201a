package command

import (
	"context"
	"fmt"

	"github.com/odvcencio/shellpane/pkg/errors"
	"github.com/odvcencio/shellpane/pkg/logging"
)

// Status is the per-candidate result of discovery.
type Status string

const (
	StatusOK        Status = "OK"
	StatusError     Status = "ERROR"
	StatusSkipped   Status = "SKIPPED"
	StatusDuplicate Status = "DUPLICATE"
)

// Outcome records what happened to one candidate.
type Outcome struct {
	ID      string
	Catalog string
	Status  Status
	Err     error
}

// Report collects discovery outcomes for display and logging.
type Report struct {
	Namespace string
	Outcomes  []Outcome
	Warnings  []error
}

// Found returns the number of candidates the catalogs listed.
func (r *Report) Found() int {
	return len(r.Outcomes)
}

// Loaded returns the number of candidates that made it into the registry.
func (r *Report) Loaded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == StatusOK {
			n++
		}
	}
	return n
}

// Failed returns the outcomes with StatusError.
func (r *Report) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Status == StatusError {
			failed = append(failed, o)
		}
	}
	return failed
}

// Lines renders the startup banner printed above the first prompt.
func (r *Report) Lines() []string {
	lines := []string{"Loading commands..."}
	for _, w := range r.Warnings {
		source := ""
		var e *errors.Error
		if errors.As(w, &e) {
			if c, ok := e.Context["catalog"].(string); ok {
				source = " from " + c
			}
		}
		lines = append(lines, "  WARNING: there was an error while loading the commands"+source)
		if r.Loaded() == 0 {
			lines = append(lines, "           this console instance might be useless.")
		}
	}
	lines = append(lines, fmt.Sprintf("  Found %d commands...", r.Found()))
	for _, o := range r.Outcomes {
		lines = append(lines, fmt.Sprintf("  - %s [%s]", o.ID, o.Status))
	}
	return lines
}

// Discoverer populates a registry from an ordered list of catalogs.
type Discoverer struct {
	Catalogs []Catalog
	Logger   *logging.Logger
}

// Discover is shorthand for a Discoverer without logging.
func Discover(ctx context.Context, namespace string, catalogs ...Catalog) (*Registry, *Report) {
	d := &Discoverer{Catalogs: catalogs}
	return d.Run(ctx, namespace)
}

// Run lists every catalog under namespace, instantiates each candidate and
// keeps the ones that implement Command. Failures are recorded in the report
// and never abort discovery; the registry is always usable.
func (d *Discoverer) Run(ctx context.Context, namespace string) (*Registry, *Report) {
	reg := NewRegistry()
	report := &Report{Namespace: namespace}

	for _, cat := range d.Catalogs {
		if cat == nil {
			continue
		}
		ids, err := cat.List(ctx, namespace)
		if err != nil {
			werr := errors.Wrap(err, errors.ErrCodeDiscoveryBackend, "list namespace "+namespace).
				WithContext("catalog", cat.Name())
			report.Warnings = append(report.Warnings, werr)
			d.Logger.Warn(logging.CategoryDiscovery, "backend_error", werr.Reason(), map[string]any{
				"catalog":   cat.Name(),
				"namespace": namespace,
			})
			continue
		}

		for _, id := range ids {
			if ctx.Err() != nil {
				werr := errors.Wrap(ctx.Err(), errors.ErrCodeDiscoveryBackend, "discovery interrupted").
					WithContext("catalog", cat.Name())
				report.Warnings = append(report.Warnings, werr)
				return reg, report
			}
			outcome := d.candidate(ctx, reg, cat, id)
			report.Outcomes = append(report.Outcomes, outcome)
			recordCandidate(outcome.Status)
		}
	}

	d.Logger.Info(logging.CategoryDiscovery, "complete", namespace, map[string]any{
		"found":    report.Found(),
		"loaded":   report.Loaded(),
		"warnings": len(report.Warnings),
	})
	return reg, report
}

func (d *Discoverer) candidate(ctx context.Context, reg *Registry, cat Catalog, id string) Outcome {
	outcome := Outcome{ID: id, Catalog: cat.Name()}
	details := map[string]any{"id": id, "catalog": cat.Name()}

	v, err := safeLoad(ctx, cat, id)
	if err == nil && v == nil {
		err = fmt.Errorf("constructor returned nil")
	}
	if err != nil {
		outcome.Status = StatusError
		outcome.Err = errors.Wrap(err, errors.ErrCodePluginLoad, "load "+id).WithContext("catalog", cat.Name())
		details["error"] = err.Error()
		d.Logger.Error(logging.CategoryDiscovery, "plugin_load", id, details)
		return outcome
	}

	cmd, ok := v.(Command)
	if !ok {
		outcome.Status = StatusSkipped
		d.Logger.Debug(logging.CategoryDiscovery, "not_command", fmt.Sprintf("%s (%T)", id, v), details)
		return outcome
	}

	name := NameOf(id)
	if prev, exists := reg.Lookup(name); exists {
		outcome.Status = StatusDuplicate
		outcome.Err = fmt.Errorf("%s already provided by %s", name, prev.ID)
		d.Logger.Warn(logging.CategoryDiscovery, "duplicate", id, details)
		return outcome
	}

	if err := reg.Add(Entry{Name: name, ID: id, Source: cat.Name(), Command: cmd}); err != nil {
		outcome.Status = StatusError
		outcome.Err = errors.Wrap(err, errors.ErrCodePluginLoad, "register "+id)
		return outcome
	}
	outcome.Status = StatusOK
	d.Logger.Debug(logging.CategoryDiscovery, "registered", id, details)
	return outcome
}

// safeLoad isolates constructor panics to the candidate that raised them.
func safeLoad(ctx context.Context, cat Catalog, id string) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			v = nil
			err = fmt.Errorf("constructor panicked: %v", r)
		}
	}()
	return cat.Load(ctx, id)
}
