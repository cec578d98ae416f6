package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRef(t *testing.T) {
	tests := []struct {
		in      string
		want    ResourceRef
		wantErr bool
	}{
		{"cloudsql-instance/gateway-sql", ResourceRef{KindCloudSQLInstance, "gateway-sql"}, false},
		{"redis-instance/gateway-cache", ResourceRef{KindRedisInstance, "gateway-cache"}, false},
		{"no-slash", ResourceRef{}, true},
		{"/missing-kind", ResourceRef{}, true},
		{"pubsub-topic/", ResourceRef{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRef(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRefString(t *testing.T) {
	ref := ResourceRef{Kind: KindVPCConnector, Name: "gateway-connector"}
	assert.Equal(t, "vpc-connector/gateway-connector", ref.String())
}

func TestSecretSourceKind(t *testing.T) {
	tests := []struct {
		name    string
		spec    SecretSpec
		want    SourceKind
		wantErr bool
	}{
		{
			name: "generated",
			spec: SecretSpec{Name: "gateway-secret-key", Generated: true},
			want: SourceGenerated,
		},
		{
			name: "derived",
			spec: SecretSpec{
				Name:     "gateway-redis-url",
				Template: "redis://{host}:{port}",
				Inputs:   []ResourceRef{{KindRedisInstance, "gateway-cache"}},
			},
			want: SourceDerived,
		},
		{
			name: "literal",
			spec: SecretSpec{Name: "openai-api-key", Value: "sk-test"},
			want: SourceLiteral,
		},
		{
			name:    "no source",
			spec:    SecretSpec{Name: "empty"},
			wantErr: true,
		},
		{
			name:    "multiple sources",
			spec:    SecretSpec{Name: "both", Generated: true, Value: "x"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.spec.SourceKind()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResultSetOrderAndLookup(t *testing.T) {
	rs := NewResultSet()
	a := ResourceRef{KindVPCConnector, "gateway-connector"}
	b := ResourceRef{KindCloudSQLInstance, "gateway-sql"}

	rs.Add(&ProvisionResult{Ref: b, Status: StatusCreated})
	rs.Add(&ProvisionResult{Ref: a, Status: StatusFailed})

	all := rs.All()
	require.Len(t, all, 2)
	assert.Equal(t, b, all[0].Ref)
	assert.Equal(t, a, all[1].Ref)

	got, ok := rs.Get(a)
	require.True(t, ok)
	assert.Equal(t, StatusFailed, got.Status)

	failed := rs.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, a, failed[0].Ref)

	// Re-adding a ref replaces in place without duplicating order.
	rs.Add(&ProvisionResult{Ref: b, Status: StatusAlreadyExists})
	assert.Equal(t, 2, rs.Len())
	got, _ = rs.Get(b)
	assert.Equal(t, StatusAlreadyExists, got.Status)
}
