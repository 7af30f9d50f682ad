package admin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/frappy-project/frappy-core/logging"
)

type fakeSnapshot struct {
	desc    []byte
	healthy bool
	detail  map[string]any
}

func (f fakeSnapshot) DescriptiveJSON() []byte { return f.desc }
func (f fakeSnapshot) Health() (bool, map[string]any) {
	return f.healthy, f.detail
}

func TestDescribeReturnsDecodedDescriptiveJSON(t *testing.T) {
	snap := fakeSnapshot{desc: []byte(`{"equipment_id":"node1","modules":{"sensor1":{}}}`)}
	svc := NewService(snap, logging.Nop())

	out, err := svc.Describe(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)

	fields := out.AsMap()
	assert.Equal(t, "node1", fields["equipment_id"])
	assert.Contains(t, fields, "modules")
}

func TestHealthReportsHealthyAndDetail(t *testing.T) {
	snap := fakeSnapshot{healthy: true, detail: map[string]any{"connections": 3.0}}
	svc := NewService(snap, logging.Nop())

	out, err := svc.Health(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)

	fields := out.AsMap()
	assert.Equal(t, true, fields["healthy"])
	assert.Equal(t, 3.0, fields["connections"])
	assert.Contains(t, fields, "uptime_seconds")
}

func TestDescribeErrorsOnInvalidJSON(t *testing.T) {
	snap := fakeSnapshot{desc: []byte(`not json`)}
	svc := NewService(snap, logging.Nop())

	_, err := svc.Describe(context.Background(), &emptypb.Empty{})
	assert.Error(t, err)
}
