package google

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/sqladmin/v1beta4"

	"github.com/tindevelopers/gwinfra/internal/model"
)

func (p *Provider) sqlInstanceExists(ctx context.Context, spec *model.ResourceSpec) (bool, error) {
	_, err := p.sqlService.Instances.Get(p.project, spec.Name).Context(ctx).Do()
	return existsFromErr("get cloudsql instance "+spec.Name, err)
}

// createSQLInstance brings up a private-IP Postgres instance, then ensures
// the application database and user on it. One generated password serves as
// instance root and application user password; it is kept in memory so the
// fresh-create read-back can surface it.
func (p *Provider) createSQLInstance(ctx context.Context, spec *model.ResourceSpec) error {
	op := "create cloudsql instance " + spec.Name

	password, err := generatePassword()
	if err != nil {
		return wrapErr(op, err)
	}

	inst := &sqladmin.DatabaseInstance{
		Name:            spec.Name,
		Region:          p.location(spec),
		DatabaseVersion: spec.Param("databaseVersion", "POSTGRES_15"),
		RootPassword:    password,
		Settings: &sqladmin.Settings{
			Tier:             spec.Param("tier", "db-custom-1-3840"),
			AvailabilityType: spec.Param("availabilityType", "ZONAL"),
			IpConfiguration: &sqladmin.IpConfiguration{
				Ipv4Enabled:     false,
				PrivateNetwork:  p.networkPath(spec),
				ForceSendFields: []string{"Ipv4Enabled"},
			},
		},
	}

	created, err := p.sqlService.Instances.Insert(p.project, inst).Context(ctx).Do()
	if err != nil {
		return wrapErr(op, err)
	}
	if err := p.waitSQLOperation(ctx, op, created.Name); err != nil {
		return err
	}

	if err := p.ensureSQLDatabase(ctx, spec); err != nil {
		return err
	}
	if err := p.ensureSQLUser(ctx, spec, password); err != nil {
		return err
	}

	p.mu.Lock()
	p.sqlPasswords[spec.Name] = password
	p.mu.Unlock()
	return nil
}

func (p *Provider) ensureSQLDatabase(ctx context.Context, spec *model.ResourceSpec) error {
	name := spec.Param("database", "gateway")
	op := fmt.Sprintf("create database %s on %s", name, spec.Name)
	created, err := p.sqlService.Databases.Insert(p.project, spec.Name, &sqladmin.Database{
		Name: name,
	}).Context(ctx).Do()
	if err != nil {
		return ignoreConflict(wrapErr(op, err))
	}
	return ignoreConflict(p.waitSQLOperation(ctx, op, created.Name))
}

func (p *Provider) ensureSQLUser(ctx context.Context, spec *model.ResourceSpec, password string) error {
	name := spec.Param("user", "gateway")
	op := fmt.Sprintf("create user %s on %s", name, spec.Name)
	created, err := p.sqlService.Users.Insert(p.project, spec.Name, &sqladmin.User{
		Name:     name,
		Password: password,
	}).Context(ctx).Do()
	if err != nil {
		return ignoreConflict(wrapErr(op, err))
	}
	return ignoreConflict(p.waitSQLOperation(ctx, op, created.Name))
}

func (p *Provider) describeSQLInstance(ctx context.Context, spec *model.ResourceSpec) (map[string]string, error) {
	inst, err := p.sqlService.Instances.Get(p.project, spec.Name).Context(ctx).Do()
	if err != nil {
		return nil, wrapErr("describe cloudsql instance "+spec.Name, err)
	}
	out := sqlOutputs(inst, spec)
	p.mu.Lock()
	if pw, ok := p.sqlPasswords[spec.Name]; ok {
		out["rootPassword"] = pw
	}
	p.mu.Unlock()
	return out, nil
}

func (p *Provider) listSQLInstances(ctx context.Context) ([]string, error) {
	resp, err := p.sqlService.Instances.List(p.project).Context(ctx).Do()
	if err != nil {
		return nil, wrapErr("list cloudsql instances", err)
	}
	names := make([]string, 0, len(resp.Items))
	for _, inst := range resp.Items {
		names = append(names, inst.Name)
	}
	return names, nil
}

// sqlOutputs flattens the read-back attributes later stages consume. The
// private address is preferred; an instance without one reports whatever
// address it has.
func sqlOutputs(inst *sqladmin.DatabaseInstance, spec *model.ResourceSpec) map[string]string {
	out := map[string]string{
		"connectionName": inst.ConnectionName,
		"port":           "5432",
		"database":       spec.Param("database", "gateway"),
		"user":           spec.Param("user", "gateway"),
	}
	for _, addr := range inst.IpAddresses {
		if addr.Type == "PRIVATE" {
			out["privateIp"] = addr.IpAddress
			break
		}
	}
	if _, ok := out["privateIp"]; !ok && len(inst.IpAddresses) > 0 {
		out["privateIp"] = inst.IpAddresses[0].IpAddress
	}
	return out
}

// waitSQLOperation polls a Cloud SQL admin operation until it finishes.
func (p *Provider) waitSQLOperation(ctx context.Context, op, name string) error {
	for {
		cur, err := p.sqlService.Operations.Get(p.project, name).Context(ctx).Do()
		if err != nil {
			return wrapErr(op, err)
		}
		if cur.Status == "DONE" {
			if cur.Error != nil && len(cur.Error.Errors) > 0 {
				e := cur.Error.Errors[0]
				return wrapErr(op, fmt.Errorf("operation failed: %s: %s", e.Code, e.Message))
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
