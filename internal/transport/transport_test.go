package transport

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

func TestJSONCodecRoundTrips(t *testing.T) {
	c := jsonCodec{}
	req := &CheckRequest{SourcePath: "spec.csp", Assertions: []string{"deadlock_free"}, Workers: 4}
	data, err := c.Marshal(req)
	require.NoError(t, err)

	var got CheckRequest
	require.NoError(t, c.Unmarshal(data, &got))
	assert.Equal(t, *req, got)
	assert.Equal(t, "json", c.Name())
}

type fakeCheckService struct {
	lastReq *CheckRequest
}

func (f *fakeCheckService) Check(_ context.Context, req *CheckRequest) (*CheckResult, error) {
	f.lastReq = req
	return &CheckResult{Document: []byte(`{"status":"pass"}`)}, nil
}

func TestCheckServiceOverBufconn(t *testing.T) {
	lis := bufconn.Listen(1024 * 1024)
	t.Cleanup(func() { lis.Close() })

	srv := grpc.NewServer()
	fake := &fakeCheckService{}
	RegisterCheckServiceServer(srv, fake)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	dialer := func(context.Context, string) (net.Conn, error) { return lis.Dial() }
	conn, err := grpc.DialContext(context.Background(), "bufconn",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{})),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	client := NewCheckServiceClient(conn)
	res, err := client.Check(context.Background(), &CheckRequest{SourcePath: "spec.csp", Format: "json"})
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"status":"pass"}`), res.Document)
	assert.Equal(t, "spec.csp", fake.lastReq.SourcePath)
}
