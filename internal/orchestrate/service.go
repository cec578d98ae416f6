// Package orchestrate runs the full pipeline for one pushed branch: resolve
// the environment, provision the resource graph, materialize secrets, then
// ensure the environment's deploy trigger.
package orchestrate

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tindevelopers/gwinfra/internal/cloud"
	"github.com/tindevelopers/gwinfra/internal/engine"
	"github.com/tindevelopers/gwinfra/internal/logging"
	"github.com/tindevelopers/gwinfra/internal/model"
	"github.com/tindevelopers/gwinfra/internal/routing"
	"github.com/tindevelopers/gwinfra/internal/secrets"
	"github.com/tindevelopers/gwinfra/internal/trigger"
)

// Options tune a run. Zero values fall back to the engine defaults.
type Options struct {
	Parallelism int
	Retry       *engine.RetryPolicy
	OpTimeout   time.Duration
	LockDir     string
	Progress    engine.ProgressCallback
}

// Service wires one manifest to one backend bundle.
type Service struct {
	manifest *model.Manifest
	bundle   *cloud.Bundle
	opts     Options
}

func New(manifest *model.Manifest, bundle *cloud.Bundle, opts Options) *Service {
	return &Service{manifest: manifest, bundle: bundle, opts: opts}
}

// RunResult reports one orchestration run. When Skipped is set the branch
// matched no environment and nothing was touched. TriggerStatus stays empty
// when the trigger stage was not reached.
type RunResult struct {
	RunID       string
	Branch      string
	Environment string
	Skipped     bool

	Resources     *model.ResultSet
	Secrets       []secrets.Outcome
	TriggerName   string
	TriggerStatus model.Status
}

// Run executes the pipeline for branch. The returned error joins per-stage
// failures; a nil error means every resource, secret and the trigger
// converged. Configuration problems (ambiguous environment, graph errors)
// abort before any control-plane call.
func (s *Service) Run(ctx context.Context, branch string) (*RunResult, error) {
	result := &RunResult{
		RunID:  uuid.NewString(),
		Branch: branch,
	}

	profile, err := routing.Resolve(s.manifest, branch)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		logging.Info("no environment matches branch, nothing to do",
			"run_id", result.RunID, "branch", branch)
		result.Skipped = true
		return result, nil
	}
	result.Environment = profile.Name
	result.TriggerName = profile.Trigger.Name

	lock := newRunLock(s.opts.LockDir, s.manifest.Project)
	if err := lock.Acquire(); err != nil {
		return nil, err
	}
	defer lock.Release()

	logging.Info("starting run",
		"run_id", result.RunID,
		"branch", branch,
		"environment", profile.Name,
		"project", s.manifest.Project,
		"resources", len(s.manifest.Resources))

	results, provErr := s.provisioner().Run(ctx, s.manifest.Resources)
	if provErr != nil && results == nil {
		// Graph-level configuration error; nothing ran.
		return nil, provErr
	}
	result.Resources = results

	outcomes, secErr := s.materializer().Materialize(ctx, s.manifest.Secrets, results)
	result.Secrets = outcomes

	var trigErr error
	if provErr == nil && secErr == nil {
		result.TriggerStatus, trigErr = s.triggerManager().Ensure(ctx, triggerFor(profile))
	} else {
		// A trigger deploys on the next push; never point one at an
		// environment whose resources or secrets did not converge.
		logging.Warn("skipping trigger stage after failures",
			"run_id", result.RunID, "trigger", profile.Trigger.Name)
	}

	err = errors.Join(provErr, secErr, trigErr)
	if err == nil {
		logging.Info("run complete", "run_id", result.RunID, "environment", profile.Name)
	}
	return result, err
}

// DeleteTrigger removes a trigger by name, for the recreate flow after a
// build config path change.
func (s *Service) DeleteTrigger(ctx context.Context, name string) error {
	return s.triggerManager().Delete(ctx, name)
}

func (s *Service) provisioner() *engine.Provisioner {
	p := engine.NewProvisioner(s.bundle.ControlPlane)
	if s.opts.Parallelism > 0 {
		p.Parallelism = s.opts.Parallelism
	}
	if s.opts.Retry != nil {
		p.Retry = s.opts.Retry
	}
	if s.opts.OpTimeout > 0 {
		p.OpTimeout = s.opts.OpTimeout
	}
	p.Callback = s.opts.Progress
	return p
}

func (s *Service) materializer() *secrets.Materializer {
	m := secrets.NewMaterializer(s.bundle.SecretStore)
	if s.opts.Retry != nil {
		m.Retry = s.opts.Retry
	}
	return m
}

func (s *Service) triggerManager() *trigger.Manager {
	t := trigger.NewManager(s.bundle.TriggerService)
	if s.opts.Retry != nil {
		t.Retry = s.opts.Retry
	}
	return t
}

// triggerFor completes the profile's trigger with the substitutions the
// build config consumes. Declared substitutions win over computed ones.
func triggerFor(env *model.EnvironmentProfile) *model.TriggerSpec {
	spec := env.Trigger
	subs := map[string]string{
		"_SERVICE_NAME": env.Service,
		"_ENVIRONMENT":  env.Name,
	}
	if env.MemoryLimit != "" {
		subs["_MEMORY"] = env.MemoryLimit
	}
	if env.MaxInstances > 0 {
		subs["_MAX_INSTANCES"] = strconv.Itoa(env.MaxInstances)
	}
	for k, v := range spec.Substitutions {
		subs[k] = v
	}
	spec.Substitutions = subs
	return &spec
}
