package rpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/dmitrijs2005/scenesync/internal/scene"
)

type fakeServer struct {
	SceneStoreServer
	updated *UpdateSceneRequest
}

func (f *fakeServer) GetScene(_ context.Context, req *GetSceneRequest) (*SceneResponse, error) {
	if req.ID != 7 {
		return nil, status.Error(codes.NotFound, "scene not found")
	}
	return &SceneResponse{Scene: scene.Scene{
		ID:        7,
		Name:      "roadmap",
		OwnerID:   "alice",
		OriginTag: "dev-1",
		UpdatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Data: scene.Document{
			Elements: []scene.Element{{"id": "a", "type": "rectangle", "x": 1.5, "points": []any{[]any{0.0, 1.0}}}},
			AppState: scene.AppState{"theme": "dark"},
		},
	}}, nil
}

func (f *fakeServer) UpdateScene(_ context.Context, req *UpdateSceneRequest) (*SceneResponse, error) {
	f.updated = req
	return &SceneResponse{Scene: scene.Scene{ID: req.ID}}, nil
}

func (f *fakeServer) Ping(context.Context, *Empty) (*Empty, error) {
	return &Empty{}, nil
}

func startServer(t *testing.T, srv SceneStoreServer, opts ...grpc.ServerOption) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer(opts...)
	RegisterSceneStoreServer(s, srv)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestFullMethod(t *testing.T) {
	assert.Equal(t, "/scenesync.v1.SceneStore/Ping", FullMethod(MethodPing))
}

func TestInvoke_RoundTrip(t *testing.T) {
	conn := startServer(t, &fakeServer{})
	ctx := context.Background()

	resp, err := Invoke[SceneResponse](ctx, conn, MethodGetScene, &GetSceneRequest{ID: 7})
	require.NoError(t, err)

	got := resp.Scene
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, "dev-1", got.OriginTag)
	assert.True(t, got.UpdatedAt.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))
	assert.True(t, got.Data.Equal(scene.Document{
		Elements: []scene.Element{{"id": "a", "type": "rectangle", "x": 1.5, "points": []any{[]any{0.0, 1.0}}}},
		AppState: scene.AppState{"theme": "dark"},
	}))
}

func TestInvoke_StatusPassesThrough(t *testing.T) {
	conn := startServer(t, &fakeServer{})

	_, err := Invoke[SceneResponse](context.Background(), conn, MethodGetScene, &GetSceneRequest{ID: 1})
	require.Error(t, err)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestInvoke_PatchKeepsOnlySetFields(t *testing.T) {
	f := &fakeServer{}
	conn := startServer(t, f)

	_, err := Invoke[SceneResponse](context.Background(), conn, MethodUpdateScene, &UpdateSceneRequest{
		ID:    3,
		Patch: scene.ScenePatch{OriginTag: scene.Ref("dev-2")},
	})
	require.NoError(t, err)

	require.NotNil(t, f.updated)
	assert.Equal(t, int64(3), f.updated.ID)
	require.NotNil(t, f.updated.Patch.OriginTag)
	assert.Equal(t, "dev-2", *f.updated.Patch.OriginTag)
	assert.Nil(t, f.updated.Patch.Data)
	assert.Nil(t, f.updated.Patch.Name)
}

func TestServiceDesc_InterceptorSeesFullMethod(t *testing.T) {
	var seen string
	interceptor := func(ctx context.Context, req any, info *grpc.UnaryServerInfo, h grpc.UnaryHandler) (any, error) {
		seen = info.FullMethod
		_, typed := req.(*Empty)
		assert.True(t, typed)
		return h(ctx, req)
	}
	conn := startServer(t, &fakeServer{}, grpc.UnaryInterceptor(interceptor))

	_, err := Invoke[Empty](context.Background(), conn, MethodPing, &Empty{})
	require.NoError(t, err)
	assert.Equal(t, FullMethod(MethodPing), seen)
}

func TestEncodeDecode_ListWithNoScenes(t *testing.T) {
	s, err := Encode(&ListScenesResponse{})
	require.NoError(t, err)

	var out ListScenesResponse
	require.NoError(t, Decode(s, &out))
	assert.Empty(t, out.Scenes)
}
