// Package remote is the CLI side of the scene store: a gRPC client over the
// scenesync.v1.SceneStore contract that maps status codes to the sentinel
// errors in package common.
package remote

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/scenesync/internal/common"
	"github.com/dmitrijs2005/scenesync/internal/rpc"
	"github.com/dmitrijs2005/scenesync/internal/scene"
)

const defaultCallTimeout = 15 * time.Second

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	cc          grpc.ClientConnInterface
	accessToken string
	timeout     time.Duration
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if s.accessToken != "" {
		ctx = withAccessToken(ctx, s.accessToken)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

func NewGRPCClient(endpointURL, accessToken string) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, accessToken: accessToken, timeout: defaultCallTimeout}

	conn, err := grpc.NewClient(c.endpointURL,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor))
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.cc = conn
	return c, nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("rpc error: %w", err)
	}
	switch st.Code() {
	case codes.NotFound:
		return common.ErrNotFound
	case codes.AlreadyExists:
		return common.ErrDuplicateName
	case codes.PermissionDenied:
		return common.ErrNotOwner
	case codes.Unauthenticated:
		return common.ErrUnauthorized
	case codes.InvalidArgument:
		return common.ErrInvalidName
	case codes.Unavailable, codes.DeadlineExceeded:
		return common.ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}

func call[Resp any](s *GRPCClient, ctx context.Context, method string, req any) (*Resp, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := rpc.Invoke[Resp](ctx, s.cc, method, req)
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) Get(ctx context.Context, id int64) (*scene.Scene, error) {
	resp, err := call[rpc.SceneResponse](s, ctx, rpc.MethodGetScene, &rpc.GetSceneRequest{ID: id})
	if err != nil {
		return nil, err
	}
	return &resp.Scene, nil
}

func (s *GRPCClient) GetByName(ctx context.Context, name string) (*scene.Scene, error) {
	resp, err := call[rpc.SceneResponse](s, ctx, rpc.MethodGetSceneByName, &rpc.GetSceneByNameRequest{Name: name})
	if err != nil {
		return nil, err
	}
	return &resp.Scene, nil
}

func (s *GRPCClient) List(ctx context.Context) ([]scene.Scene, error) {
	resp, err := call[rpc.ListScenesResponse](s, ctx, rpc.MethodListScenes, &rpc.ListScenesRequest{})
	if err != nil {
		return nil, err
	}
	return resp.Scenes, nil
}

// Insert creates a scene owned by the caller.
func (s *GRPCClient) Insert(ctx context.Context, sc scene.Scene) (*scene.Scene, error) {
	resp, err := call[rpc.SceneResponse](s, ctx, rpc.MethodInsertScene, &rpc.InsertSceneRequest{
		Name:        sc.Name,
		Description: sc.Description,
		Published:   sc.Published,
		Data:        sc.Data,
	})
	if err != nil {
		return nil, err
	}
	return &resp.Scene, nil
}

// Update applies patch to a scene owned by the caller. The server scopes
// the write by id and the token's owner.
func (s *GRPCClient) Update(ctx context.Context, id int64, patch scene.ScenePatch) (*scene.Scene, error) {
	resp, err := call[rpc.SceneResponse](s, ctx, rpc.MethodUpdateScene, &rpc.UpdateSceneRequest{ID: id, Patch: patch})
	if err != nil {
		return nil, err
	}
	return &resp.Scene, nil
}

func (s *GRPCClient) Delete(ctx context.Context, id int64) error {
	_, err := call[rpc.Empty](s, ctx, rpc.MethodDeleteScene, &rpc.DeleteSceneRequest{ID: id})
	return err
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	_, err := call[rpc.Empty](s, ctx, rpc.MethodPing, &rpc.Empty{})
	return err
}
