package gcode

import (
	"fluidnc/internal/job"
	"fluidnc/internal/params"
)

// jobParamResolver implements numeric.Resolver by routing numbered
// lookups to the persistent parameter store and named lookups to the
// active job frame's scope, matching the split between #nnn (persistent,
// cross-job) and #<name> (local, call-stack-scoped) address spaces.
type jobParamResolver struct {
	store *params.Store
	jobs  *job.Stack
}

func newResolver(store *params.Store, jobs *job.Stack) jobParamResolver {
	return jobParamResolver{store: store, jobs: jobs}
}

func (r jobParamResolver) GetNumbered(n int) float64 { return r.store.GetNumbered(n) }

func (r jobParamResolver) GetNamed(name string) (float64, bool) {
	return r.jobs.GetParam(name)
}
