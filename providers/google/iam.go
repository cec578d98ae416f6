package google

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/iam/v1"

	"github.com/tindevelopers/gwinfra/internal/model"
)

func (p *Provider) serviceAccountEmail(spec *model.ResourceSpec) string {
	return fmt.Sprintf("%s@%s.iam.gserviceaccount.com", spec.Name, p.project)
}

func (p *Provider) serviceAccountResource(spec *model.ResourceSpec) string {
	return fmt.Sprintf("projects/%s/serviceAccounts/%s", p.project, p.serviceAccountEmail(spec))
}

func (p *Provider) serviceAccountExists(ctx context.Context, spec *model.ResourceSpec) (bool, error) {
	_, err := p.iamService.Projects.ServiceAccounts.Get(p.serviceAccountResource(spec)).Context(ctx).Do()
	return existsFromErr("get service account "+spec.Name, err)
}

func (p *Provider) createServiceAccount(ctx context.Context, spec *model.ResourceSpec) error {
	req := &iam.CreateServiceAccountRequest{
		AccountId: spec.Name,
		ServiceAccount: &iam.ServiceAccount{
			DisplayName: spec.Param("displayName", spec.Name),
		},
	}
	_, err := p.iamService.Projects.ServiceAccounts.Create("projects/"+p.project, req).Context(ctx).Do()
	return wrapErr("create service account "+spec.Name, err)
}

func (p *Provider) describeServiceAccount(ctx context.Context, spec *model.ResourceSpec) (map[string]string, error) {
	account, err := p.iamService.Projects.ServiceAccounts.Get(p.serviceAccountResource(spec)).Context(ctx).Do()
	if err != nil {
		return nil, wrapErr("describe service account "+spec.Name, err)
	}
	return map[string]string{
		"email":    account.Email,
		"uniqueId": account.UniqueId,
	}, nil
}

// listServiceAccounts returns account IDs (the local part of each email)
// so listings line up with spec names.
func (p *Provider) listServiceAccounts(ctx context.Context) ([]string, error) {
	var names []string
	call := p.iamService.Projects.ServiceAccounts.List("projects/" + p.project)
	err := call.Pages(ctx, func(resp *iam.ListServiceAccountsResponse) error {
		for _, account := range resp.Accounts {
			name, _, _ := strings.Cut(account.Email, "@")
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, wrapErr("list service accounts", err)
	}
	return names, nil
}
