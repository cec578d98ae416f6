package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tindevelopers/gwinfra/internal/cloud"
	"github.com/tindevelopers/gwinfra/internal/model"
)

// fakePlane is a scripted control plane. It records every call and can be
// told to fail specific refs permanently or transiently.
type fakePlane struct {
	mu        sync.Mutex
	existing  map[model.ResourceRef]bool
	outputs   map[model.ResourceRef]map[string]string
	createErr map[model.ResourceRef]error
	// transient is a countdown of transient create failures per ref.
	transient   map[model.ResourceRef]int
	describeErr map[model.ResourceRef]error
	// staleExists makes the existence check report "absent" even when the
	// resource is present, simulating a stale read or a lost create race.
	staleExists map[model.ResourceRef]bool
	calls       []string
}

func newFakePlane() *fakePlane {
	return &fakePlane{
		existing:    make(map[model.ResourceRef]bool),
		outputs:     make(map[model.ResourceRef]map[string]string),
		createErr:   make(map[model.ResourceRef]error),
		transient:   make(map[model.ResourceRef]int),
		describeErr: make(map[model.ResourceRef]error),
		staleExists: make(map[model.ResourceRef]bool),
	}
}

func (f *fakePlane) record(op string, ref model.ResourceRef) {
	f.calls = append(f.calls, op+" "+ref.String())
}

func (f *fakePlane) Exists(ctx context.Context, spec *model.ResourceSpec) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("exists", spec.Ref())
	if f.staleExists[spec.Ref()] {
		return false, nil
	}
	return f.existing[spec.Ref()], nil
}

func (f *fakePlane) Create(ctx context.Context, spec *model.ResourceSpec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ref := spec.Ref()
	f.record("create", ref)
	if n := f.transient[ref]; n > 0 {
		f.transient[ref] = n - 1
		return cloud.NewError("create", cloud.KindTransient, errors.New("service unavailable"))
	}
	if err := f.createErr[ref]; err != nil {
		return err
	}
	if f.existing[ref] {
		return cloud.NewError("create", cloud.KindConflict, errors.New("resource already exists"))
	}
	f.existing[ref] = true
	return nil
}

func (f *fakePlane) Describe(ctx context.Context, spec *model.ResourceSpec) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ref := spec.Ref()
	f.record("describe", ref)
	if err := f.describeErr[ref]; err != nil {
		return nil, err
	}
	if !f.existing[ref] {
		return nil, cloud.NewError("describe", cloud.KindNotFound, errors.New("no such resource"))
	}
	if out, ok := f.outputs[ref]; ok {
		return out, nil
	}
	return map[string]string{"name": spec.Name}, nil
}

func (f *fakePlane) List(ctx context.Context, kind model.Kind, region string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for ref, ok := range f.existing {
		if ok && ref.Kind == kind {
			names = append(names, ref.Name)
		}
	}
	return names, nil
}

func (f *fakePlane) callCount(op string, ref model.ResourceRef) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op+" "+ref.String() {
			n++
		}
	}
	return n
}

func (f *fakePlane) callIndex(op string, ref model.ResourceRef) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.calls {
		if c == op+" "+ref.String() {
			return i
		}
	}
	return -1
}

func fastProvisioner(plane cloud.ControlPlane) *Provisioner {
	p := NewProvisioner(plane)
	p.Retry = &RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	p.OpTimeout = 5 * time.Second
	return p
}

func gatewaySpecs() []*model.ResourceSpec {
	net := model.ResourceRef{Kind: model.KindVPCConnector, Name: "gateway-connector"}
	return []*model.ResourceSpec{
		{Kind: net.Kind, Name: net.Name, Region: "us-central1"},
		{Kind: model.KindCloudSQLInstance, Name: "gateway-sql", Region: "us-central1",
			DependsOn: []model.ResourceRef{net}},
		{Kind: model.KindRedisInstance, Name: "gateway-cache", Region: "us-central1",
			DependsOn: []model.ResourceRef{net}},
		{Kind: model.KindPubSubTopic, Name: "gateway-usage-events"},
	}
}

func TestProvision_CreatesAll(t *testing.T) {
	plane := newFakePlane()
	p := fastProvisioner(plane)

	results, err := p.Run(context.Background(), gatewaySpecs())
	require.NoError(t, err)
	require.Equal(t, 4, results.Len())
	for _, res := range results.All() {
		assert.Equal(t, model.StatusCreated, res.Status, res.Ref.String())
		assert.NotEmpty(t, res.Outputs)
	}
}

func TestProvision_DependencyBeforeDependent(t *testing.T) {
	plane := newFakePlane()
	p := fastProvisioner(plane)

	_, err := p.Run(context.Background(), gatewaySpecs())
	require.NoError(t, err)

	net := model.ResourceRef{Kind: model.KindVPCConnector, Name: "gateway-connector"}
	sql := model.ResourceRef{Kind: model.KindCloudSQLInstance, Name: "gateway-sql"}
	cache := model.ResourceRef{Kind: model.KindRedisInstance, Name: "gateway-cache"}

	// The connector's create must land before either dependent's create.
	assert.Less(t, plane.callIndex("create", net), plane.callIndex("create", sql))
	assert.Less(t, plane.callIndex("create", net), plane.callIndex("create", cache))
}

func TestProvision_SecondRunIsIdempotent(t *testing.T) {
	plane := newFakePlane()
	p := fastProvisioner(plane)
	specs := gatewaySpecs()

	first, err := p.Run(context.Background(), specs)
	require.NoError(t, err)

	second, err := p.Run(context.Background(), specs)
	require.NoError(t, err)

	for _, res := range second.All() {
		assert.Equal(t, model.StatusAlreadyExists, res.Status, res.Ref.String())
		want, _ := first.Get(res.Ref)
		assert.Equal(t, want.Outputs, res.Outputs, "outputs must match across runs")
		// One create per ref total: the second run never mutated.
		assert.Equal(t, 1, plane.callCount("create", res.Ref))
	}
}

func TestProvision_CreateConflictIsAlreadyExists(t *testing.T) {
	ref := model.ResourceRef{Kind: model.KindPubSubTopic, Name: "gateway-usage-events"}
	plane := newFakePlane()
	// The existence check reads stale "absent", the create then conflicts:
	// a racing creator won. That is success, not failure.
	plane.existing[ref] = true
	plane.staleExists[ref] = true
	plane.outputs[ref] = map[string]string{"topic": ref.Name}
	p := fastProvisioner(plane)

	results, err := p.Run(context.Background(), []*model.ResourceSpec{{Kind: ref.Kind, Name: ref.Name}})
	require.NoError(t, err)

	res, ok := results.Get(ref)
	require.True(t, ok)
	assert.Equal(t, model.StatusAlreadyExists, res.Status)
	assert.Nil(t, res.Err)
	assert.Equal(t, 1, plane.callCount("create", ref))
}

func TestProvision_TransientErrorRetriesThenSucceeds(t *testing.T) {
	ref := model.ResourceRef{Kind: model.KindRedisInstance, Name: "gateway-cache"}
	plane := newFakePlane()
	plane.transient[ref] = 2
	p := fastProvisioner(plane)

	results, err := p.Run(context.Background(), []*model.ResourceSpec{{Kind: ref.Kind, Name: ref.Name}})
	require.NoError(t, err)

	res, _ := results.Get(ref)
	assert.Equal(t, model.StatusCreated, res.Status)
	assert.Equal(t, 3, plane.callCount("create", ref)) // 2 transient failures + 1 success
}

func TestProvision_PermanentFailureBlocksDependents(t *testing.T) {
	net := model.ResourceRef{Kind: model.KindVPCConnector, Name: "gateway-connector"}
	sql := model.ResourceRef{Kind: model.KindCloudSQLInstance, Name: "gateway-sql"}
	cache := model.ResourceRef{Kind: model.KindRedisInstance, Name: "gateway-cache"}
	topic := model.ResourceRef{Kind: model.KindPubSubTopic, Name: "gateway-usage-events"}

	specs := []*model.ResourceSpec{
		{Kind: net.Kind, Name: net.Name},
		{Kind: sql.Kind, Name: sql.Name, DependsOn: []model.ResourceRef{net}},
		{Kind: cache.Kind, Name: cache.Name, DependsOn: []model.ResourceRef{sql}},
		{Kind: topic.Kind, Name: topic.Name},
	}

	plane := newFakePlane()
	plane.createErr[net] = cloud.NewError("create", cloud.KindPermanent, errors.New("permission denied"))
	p := fastProvisioner(plane)

	results, err := p.Run(context.Background(), specs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 resource(s) failed")

	netRes, _ := results.Get(net)
	assert.Equal(t, model.StatusFailed, netRes.Status)

	// Direct and transitive dependents are blocked, never attempted.
	for _, ref := range []model.ResourceRef{sql, cache} {
		res, _ := results.Get(ref)
		assert.Equal(t, model.StatusFailed, res.Status, ref.String())
		var blocked *BlockedError
		require.ErrorAs(t, res.Err, &blocked, ref.String())
		assert.Equal(t, 0, plane.callCount("create", ref), ref.String())
	}
	res, _ := results.Get(sql)
	var blocked *BlockedError
	require.ErrorAs(t, res.Err, &blocked)
	assert.Equal(t, net, blocked.Dependency)

	// The independent branch still provisioned.
	topicRes, _ := results.Get(topic)
	assert.Equal(t, model.StatusCreated, topicRes.Status)
}

func TestProvision_CycleMakesNoCalls(t *testing.T) {
	refA := model.ResourceRef{Kind: model.KindPubSubTopic, Name: "a"}
	refB := model.ResourceRef{Kind: model.KindPubSubTopic, Name: "b"}
	specs := []*model.ResourceSpec{
		{Kind: refA.Kind, Name: refA.Name, DependsOn: []model.ResourceRef{refB}},
		{Kind: refB.Kind, Name: refB.Name, DependsOn: []model.ResourceRef{refA}},
	}

	plane := newFakePlane()
	p := fastProvisioner(plane)

	results, err := p.Run(context.Background(), specs)
	require.Error(t, err)
	assert.True(t, cloud.IsConfigError(err))
	assert.Nil(t, results)
	assert.Empty(t, plane.calls, "graph errors must precede any control-plane call")
}

func TestProvision_ReadBackFailureIsFailed(t *testing.T) {
	ref := model.ResourceRef{Kind: model.KindCloudSQLInstance, Name: "gateway-sql"}
	plane := newFakePlane()
	plane.describeErr[ref] = cloud.NewError("describe", cloud.KindPermanent, errors.New("backend error"))
	p := fastProvisioner(plane)

	results, err := p.Run(context.Background(), []*model.ResourceSpec{{Kind: ref.Kind, Name: ref.Name}})
	require.Error(t, err)

	res, _ := results.Get(ref)
	assert.Equal(t, model.StatusFailed, res.Status)
	assert.Contains(t, res.Err.Error(), "read-back")
}

func TestProvision_CancelledContextStartsNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	plane := newFakePlane()
	p := fastProvisioner(plane)

	results, err := p.Run(ctx, gatewaySpecs())
	require.Error(t, err)
	require.Equal(t, 4, results.Len())
	for _, res := range results.All() {
		assert.Equal(t, model.StatusFailed, res.Status)
	}
	for _, c := range plane.calls {
		assert.NotContains(t, c, "create", "no create may start after cancellation")
	}
}

func TestProvision_ResultsInDeclarationOrder(t *testing.T) {
	specs := gatewaySpecs()
	plane := newFakePlane()
	p := fastProvisioner(plane)

	results, err := p.Run(context.Background(), specs)
	require.NoError(t, err)

	all := results.All()
	require.Len(t, all, len(specs))
	for i, spec := range specs {
		assert.Equal(t, spec.Ref(), all[i].Ref)
	}
}

func TestProvision_ProgressEvents(t *testing.T) {
	ref := model.ResourceRef{Kind: model.KindPubSubTopic, Name: "gateway-usage-events"}
	plane := newFakePlane()
	p := fastProvisioner(plane)

	var mu sync.Mutex
	var events []ProgressEvent
	p.Callback = func(event ProgressEvent) {
		mu.Lock()
		events = append(events, event)
		mu.Unlock()
	}

	_, err := p.Run(context.Background(), []*model.ResourceSpec{{Kind: ref.Kind, Name: ref.Name}})
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, "started", events[0].Status)
	assert.Equal(t, string(model.StatusCreated), events[1].Status)
	assert.Equal(t, ref, events[1].Ref)
}

func TestProvision_IndependentBranchesBothComplete(t *testing.T) {
	// Two chains with no cross-edges; a failure in one leaves the other whole.
	aRoot := model.ResourceRef{Kind: model.KindVPCConnector, Name: "net-a"}
	aLeaf := model.ResourceRef{Kind: model.KindCloudSQLInstance, Name: "db-a"}
	bRoot := model.ResourceRef{Kind: model.KindVPCConnector, Name: "net-b"}
	bLeaf := model.ResourceRef{Kind: model.KindRedisInstance, Name: "cache-b"}

	specs := []*model.ResourceSpec{
		{Kind: aRoot.Kind, Name: aRoot.Name},
		{Kind: aLeaf.Kind, Name: aLeaf.Name, DependsOn: []model.ResourceRef{aRoot}},
		{Kind: bRoot.Kind, Name: bRoot.Name},
		{Kind: bLeaf.Kind, Name: bLeaf.Name, DependsOn: []model.ResourceRef{bRoot}},
	}

	plane := newFakePlane()
	plane.createErr[aRoot] = cloud.NewError("create", cloud.KindPermanent, errors.New("quota exceeded"))
	p := fastProvisioner(plane)
	p.Parallelism = 2

	results, err := p.Run(context.Background(), specs)
	require.Error(t, err)

	for _, ref := range []model.ResourceRef{bRoot, bLeaf} {
		res, _ := results.Get(ref)
		assert.Equal(t, model.StatusCreated, res.Status, fmt.Sprintf("%s should be untouched by the other branch", ref))
	}
	assert.Len(t, results.Failed(), 2)
}
