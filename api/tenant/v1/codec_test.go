package tenantv1

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJSONCodec(t *testing.T) {
	codec := JSONCodec{}
	require.Equal(t, "json", codec.Name())
	require.False(t, codec.IsBinary())

	data, err := codec.MarshalStable(&RouteDashboardRequest{Host: "grace.steeple.app", Admin: true})
	require.NoError(t, err)
	require.JSONEq(t, `{"host":"grace.steeple.app","admin":true}`, string(data))

	var req RouteDashboardRequest
	require.NoError(t, codec.Unmarshal(data, &req))
	require.Equal(t, "grace.steeple.app", req.Host)
	require.True(t, req.Admin)

	// an empty body decodes to the zero message
	var empty ResolveTenantRequest
	require.NoError(t, codec.Unmarshal(nil, &empty))
	require.Empty(t, empty.Host)

	require.Error(t, codec.Unmarshal([]byte("{"), &empty))
}
