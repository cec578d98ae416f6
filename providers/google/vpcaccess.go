package google

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"time"

	"google.golang.org/api/vpcaccess/v1"

	"github.com/tindevelopers/gwinfra/internal/cloud"
	"github.com/tindevelopers/gwinfra/internal/model"
)

func (p *Provider) connectorName(spec *model.ResourceSpec) string {
	return fmt.Sprintf("projects/%s/locations/%s/connectors/%s", p.project, p.location(spec), spec.Name)
}

func (p *Provider) connectorExists(ctx context.Context, spec *model.ResourceSpec) (bool, error) {
	_, err := p.vpcService.Projects.Locations.Connectors.Get(p.connectorName(spec)).Context(ctx).Do()
	return existsFromErr("get vpc connector "+spec.Name, err)
}

// createConnector provisions a Serverless VPC Access connector and waits for
// the operation; the connector is unusable until it reaches READY.
func (p *Provider) createConnector(ctx context.Context, spec *model.ResourceSpec) error {
	op := "create vpc connector " + spec.Name

	minInstances, err := intParam(spec, "minInstances", 2)
	if err != nil {
		return cloud.NewError(op, cloud.KindPermanent, err)
	}
	maxInstances, err := intParam(spec, "maxInstances", 10)
	if err != nil {
		return cloud.NewError(op, cloud.KindPermanent, err)
	}

	parent := fmt.Sprintf("projects/%s/locations/%s", p.project, p.location(spec))
	conn := &vpcaccess.Connector{
		Network:      spec.Param("network", "default"),
		IpCidrRange:  spec.Param("ipCidrRange", "10.8.0.0/28"),
		MinInstances: minInstances,
		MaxInstances: maxInstances,
	}

	created, err := p.vpcService.Projects.Locations.Connectors.Create(parent, conn).
		ConnectorId(spec.Name).Context(ctx).Do()
	if err != nil {
		return wrapErr(op, err)
	}
	return p.waitVPCOperation(ctx, op, created.Name)
}

func (p *Provider) describeConnector(ctx context.Context, spec *model.ResourceSpec) (map[string]string, error) {
	conn, err := p.vpcService.Projects.Locations.Connectors.Get(p.connectorName(spec)).Context(ctx).Do()
	if err != nil {
		return nil, wrapErr("describe vpc connector "+spec.Name, err)
	}
	return map[string]string{
		"network":      conn.Network,
		"ipCidrRange":  conn.IpCidrRange,
		"state":        conn.State,
		"minInstances": strconv.FormatInt(conn.MinInstances, 10),
		"maxInstances": strconv.FormatInt(conn.MaxInstances, 10),
	}, nil
}

func (p *Provider) listConnectors(ctx context.Context, region string) ([]string, error) {
	parent := fmt.Sprintf("projects/%s/locations/%s", p.project, region)
	resp, err := p.vpcService.Projects.Locations.Connectors.List(parent).Context(ctx).Do()
	if err != nil {
		return nil, wrapErr("list vpc connectors", err)
	}
	names := make([]string, 0, len(resp.Connectors))
	for _, conn := range resp.Connectors {
		names = append(names, path.Base(conn.Name))
	}
	return names, nil
}

// waitVPCOperation polls a Serverless VPC Access operation until it finishes.
func (p *Provider) waitVPCOperation(ctx context.Context, op, name string) error {
	for {
		cur, err := p.vpcService.Projects.Locations.Operations.Get(name).Context(ctx).Do()
		if err != nil {
			return wrapErr(op, err)
		}
		if cur.Done {
			if cur.Error != nil {
				return wrapErr(op, fmt.Errorf("operation failed: %s", cur.Error.Message))
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return wrapErr(op, ctx.Err())
		case <-time.After(pollInterval):
		}
	}
}
