package google

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/cloudbuild/v1"

	"github.com/tindevelopers/gwinfra/internal/cloud"
	"github.com/tindevelopers/gwinfra/internal/model"
)

// GetTrigger looks a trigger up by name. Cloud Build addresses triggers by
// generated ID, so lookups walk the list.
func (p *Provider) GetTrigger(ctx context.Context, name string) (*model.TriggerSpec, error) {
	trigger, err := p.findTrigger(ctx, name)
	if err != nil {
		return nil, err
	}
	return triggerSpecFromAPI(trigger), nil
}

func (p *Provider) CreateTrigger(ctx context.Context, spec *model.TriggerSpec) error {
	trigger := &cloudbuild.BuildTrigger{
		Name:          spec.Name,
		Description:   "deploy on push to " + spec.Branch,
		Filename:      spec.BuildConfigPath,
		Substitutions: spec.Substitutions,
		Github: &cloudbuild.GitHubEventsConfig{
			Owner: spec.RepoOwner,
			Name:  spec.RepoName,
			Push: &cloudbuild.PushFilter{
				Branch: anchorBranch(spec.Branch),
			},
		},
	}
	_, err := p.buildService.Projects.Triggers.Create(p.project, trigger).Context(ctx).Do()
	return wrapErr("create trigger "+spec.Name, err)
}

func (p *Provider) DeleteTrigger(ctx context.Context, name string) error {
	trigger, err := p.findTrigger(ctx, name)
	if err != nil {
		return err
	}
	_, err = p.buildService.Projects.Triggers.Delete(p.project, trigger.Id).Context(ctx).Do()
	return wrapErr("delete trigger "+name, err)
}

func (p *Provider) findTrigger(ctx context.Context, name string) (*cloudbuild.BuildTrigger, error) {
	op := "get trigger " + name
	var found *cloudbuild.BuildTrigger
	call := p.buildService.Projects.Triggers.List(p.project)
	err := call.Pages(ctx, func(resp *cloudbuild.ListBuildTriggersResponse) error {
		for _, t := range resp.Triggers {
			if t.Name == name {
				found = t
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapErr(op, err)
	}
	if found == nil {
		return nil, cloud.NewError(op, cloud.KindNotFound, fmt.Errorf("trigger %q not found", name))
	}
	return found, nil
}

// triggerSpecFromAPI maps a stored trigger back onto the declared shape.
func triggerSpecFromAPI(t *cloudbuild.BuildTrigger) *model.TriggerSpec {
	spec := &model.TriggerSpec{
		Name:            t.Name,
		BuildConfigPath: t.Filename,
		Substitutions:   t.Substitutions,
	}
	if t.Github != nil {
		spec.RepoOwner = t.Github.Owner
		spec.RepoName = t.Github.Name
		if t.Github.Push != nil {
			spec.Branch = unanchorBranch(t.Github.Push.Branch)
		}
	}
	return spec
}

// anchorBranch turns an exact branch name into the anchored pattern Cloud
// Build stores; unanchorBranch reverses it for drift comparison.
func anchorBranch(branch string) string {
	return "^" + branch + "$"
}

func unanchorBranch(pattern string) string {
	return strings.TrimSuffix(strings.TrimPrefix(pattern, "^"), "$")
}
