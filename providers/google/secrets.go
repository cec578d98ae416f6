package google

import (
	"context"
	"fmt"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

func (p *Provider) secretName(name string) string {
	return fmt.Sprintf("projects/%s/secrets/%s", p.project, name)
}

func (p *Provider) SecretExists(ctx context.Context, name string) (bool, error) {
	_, err := p.secretClient.GetSecret(ctx, &secretmanagerpb.GetSecretRequest{
		Name: p.secretName(name),
	})
	return existsFromErr("get secret "+name, err)
}

// CreateSecret creates the container and adds the first version. A conflict
// on the container is returned classified so the caller can settle the
// secret without its value ever being rewritten.
func (p *Provider) CreateSecret(ctx context.Context, name, value string) error {
	secret, err := p.secretClient.CreateSecret(ctx, &secretmanagerpb.CreateSecretRequest{
		Parent:   "projects/" + p.project,
		SecretId: name,
		Secret: &secretmanagerpb.Secret{
			Replication: &secretmanagerpb.Replication{
				Replication: &secretmanagerpb.Replication_Automatic_{
					Automatic: &secretmanagerpb.Replication_Automatic{},
				},
			},
		},
	})
	if err != nil {
		return wrapErr("create secret "+name, err)
	}
	_, err = p.secretClient.AddSecretVersion(ctx, &secretmanagerpb.AddSecretVersionRequest{
		Parent:  secret.Name,
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(value)},
	})
	return wrapErr("add secret version "+name, err)
}
