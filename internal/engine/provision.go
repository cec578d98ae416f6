package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tindevelopers/gwinfra/internal/cloud"
	"github.com/tindevelopers/gwinfra/internal/logging"
	"github.com/tindevelopers/gwinfra/internal/model"
)

const defaultParallelism = 4

// ProgressEvent reports one resource reaching a milestone during a run.
type ProgressEvent struct {
	Ref      model.ResourceRef
	Status   string // "started", "created", "already-exists", "failed"
	Duration time.Duration
	Err      error
}

// ProgressCallback is called for each progress event if set.
type ProgressCallback func(event ProgressEvent)

// BlockedError marks a resource that was never attempted because a
// dependency failed.
type BlockedError struct {
	Dependency model.ResourceRef
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("blocked by failed dependency %s", e.Dependency)
}

// Provisioner converges a set of resource specs against a control plane:
// exists, create if absent, read back outputs. Conflicts on create count as
// already-exists, transient errors retry with backoff, and a failure blocks
// only the failed resource's dependents.
type Provisioner struct {
	plane cloud.ControlPlane

	// Parallelism bounds concurrent resource operations.
	Parallelism int
	// Retry applies to every control-plane call.
	Retry *RetryPolicy
	// OpTimeout bounds one resource's provisioning including retries.
	OpTimeout time.Duration
	// Callback receives progress events when set.
	Callback ProgressCallback
}

// NewProvisioner returns a provisioner with default concurrency and retry
// settings.
func NewProvisioner(plane cloud.ControlPlane) *Provisioner {
	return &Provisioner{
		plane:       plane,
		Parallelism: defaultParallelism,
		Retry:       DefaultRetryPolicy(),
		OpTimeout:   DefaultOpTimeout,
	}
}

// Run provisions every spec in dependency order, independent branches in
// parallel. It never aborts at the first failure: the returned ResultSet has
// one entry per spec in declaration order, and the returned error joins the
// individual failures. A graph-level configuration error (cycle, dangling
// ref) is returned before any control-plane call, with a nil ResultSet.
func (p *Provisioner) Run(ctx context.Context, specs []*model.ResourceSpec) (*model.ResultSet, error) {
	graph, err := BuildGraph(specs)
	if err != nil {
		return nil, err
	}

	specIndex := make(map[model.ResourceRef]*model.ResourceSpec, len(specs))
	for _, spec := range specs {
		specIndex[spec.Ref()] = spec
	}

	parallelism := p.Parallelism
	if parallelism <= 0 {
		parallelism = defaultParallelism
	}

	emit := func(event ProgressEvent) {
		if p.Callback != nil {
			p.Callback(event)
		}
	}

	// terminal tracks which refs reached a terminal status; the cond wakes
	// goroutines waiting on their dependencies.
	var (
		mu       sync.Mutex
		cond     = sync.NewCond(&mu)
		terminal = make(map[model.ResourceRef]model.Status, len(specs))
		outcomes = make(map[model.ResourceRef]*model.ProvisionResult, len(specs))
	)

	finish := func(res *model.ProvisionResult) {
		mu.Lock()
		outcomes[res.Ref] = res
		terminal[res.Ref] = res.Status
		mu.Unlock()
		cond.Broadcast()
	}

	sem := make(chan struct{}, parallelism)
	var wg sync.WaitGroup

	for _, ref := range graph.Order() {
		wg.Add(1)
		go func(ref model.ResourceRef) {
			defer wg.Done()
			spec := specIndex[ref]

			// Wait until every dependency reaches a terminal status. A
			// failed dependency means this resource is never attempted.
			mu.Lock()
			var blockedBy *model.ResourceRef
			for blockedBy == nil {
				allDone := true
				for _, dep := range graph.Dependencies(ref) {
					status, done := terminal[dep]
					if !done {
						allDone = false
						continue
					}
					if status == model.StatusFailed {
						d := dep
						blockedBy = &d
						break
					}
				}
				if blockedBy != nil || allDone {
					break
				}
				cond.Wait()
			}
			mu.Unlock()

			if blockedBy != nil {
				finish(&model.ProvisionResult{
					Ref:    ref,
					Status: model.StatusFailed,
					Err:    &BlockedError{Dependency: *blockedBy},
				})
				emit(ProgressEvent{Ref: ref, Status: "failed", Err: &BlockedError{Dependency: *blockedBy}})
				return
			}

			sem <- struct{}{}
			defer func() { <-sem }()

			// Cancellation stops new work from starting; operations already
			// past this point run to completion under the op timeout.
			if err := ctx.Err(); err != nil {
				cancelErr := fmt.Errorf("provisioning cancelled: %w", err)
				finish(&model.ProvisionResult{Ref: ref, Status: model.StatusFailed, Err: cancelErr})
				emit(ProgressEvent{Ref: ref, Status: "failed", Err: cancelErr})
				return
			}

			start := time.Now()
			emit(ProgressEvent{Ref: ref, Status: "started"})

			status, outputs, opErr := p.provisionOne(ctx, spec)
			res := &model.ProvisionResult{Ref: ref, Status: status, Outputs: outputs, Err: opErr}
			finish(res)
			emit(ProgressEvent{Ref: ref, Status: string(status), Duration: time.Since(start), Err: opErr})
		}(ref)
	}

	wg.Wait()

	// Report in declaration order regardless of completion order.
	results := model.NewResultSet()
	var errs []error
	for _, spec := range specs {
		res := outcomes[spec.Ref()]
		results.Add(res)
		if res.Status == model.StatusFailed && res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Ref, res.Err))
		}
	}
	if len(errs) > 0 {
		return results, fmt.Errorf("%d resource(s) failed: %w", len(errs), errors.Join(errs...))
	}
	return results, nil
}

// provisionOne converges a single resource and reads back its outputs.
func (p *Provisioner) provisionOne(ctx context.Context, spec *model.ResourceSpec) (model.Status, map[string]string, error) {
	ref := spec.Ref()
	logging.Debug("provisioning resource", "ref", ref.String(), "region", spec.Region)

	// WithoutCancel lets an in-flight operation finish after the run is
	// cancelled; the op timeout is the only bound past that point.
	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opTimeout())
	defer cancel()

	var exists bool
	err := RetryWithBackoff(opCtx, p.Retry, func() error {
		var checkErr error
		exists, checkErr = p.plane.Exists(opCtx, spec)
		return checkErr
	}, IsRetryable)
	if err != nil {
		return model.StatusFailed, nil, fmt.Errorf("existence check: %w", err)
	}

	status := model.StatusAlreadyExists
	if exists {
		logging.Debug("resource already exists", "ref", ref.String())
	} else {
		err = RetryWithBackoff(opCtx, p.Retry, func() error {
			return p.plane.Create(opCtx, spec)
		}, IsRetryable)
		switch {
		case err == nil:
			status = model.StatusCreated
		case cloud.IsConflict(err):
			// Lost a create race or the existence check read stale data;
			// either way the resource is there.
			logging.Debug("create conflict treated as already-exists", "ref", ref.String())
		default:
			return model.StatusFailed, nil, fmt.Errorf("create: %w", err)
		}
	}

	// Outputs always come from a fresh read-back, never from create inputs.
	var outputs map[string]string
	err = RetryWithBackoff(opCtx, p.Retry, func() error {
		var descErr error
		outputs, descErr = p.plane.Describe(opCtx, spec)
		return descErr
	}, IsRetryable)
	if err != nil {
		return model.StatusFailed, nil, fmt.Errorf("read-back: %w", err)
	}

	return status, outputs, nil
}

func (p *Provisioner) opTimeout() time.Duration {
	if p.OpTimeout > 0 {
		return p.OpTimeout
	}
	return DefaultOpTimeout
}
