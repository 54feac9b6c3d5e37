// Package grpc serves the scenesync.v1.SceneStore contract.
package grpc

import (
	"context"
	"net"

	"google.golang.org/grpc"

	"github.com/dmitrijs2005/scenesync/internal/logging"
	"github.com/dmitrijs2005/scenesync/internal/rpc"
	"github.com/dmitrijs2005/scenesync/internal/scene"
)

// SceneService is the business layer behind the handlers. caller is the
// owner id from the access token.
type SceneService interface {
	Get(ctx context.Context, caller string, id int64) (*scene.Scene, error)
	GetByName(ctx context.Context, caller, name string) (*scene.Scene, error)
	List(ctx context.Context, caller string) ([]*scene.Scene, error)
	Insert(ctx context.Context, caller string, s scene.Scene) (*scene.Scene, error)
	Update(ctx context.Context, caller string, id int64, patch scene.ScenePatch) (*scene.Scene, error)
	Delete(ctx context.Context, caller string, id int64) error
}

type GRPCServer struct {
	address   string
	scenes    SceneService
	logger    logging.Logger
	jwtSecret []byte
	metrics   *Metrics
}

var _ rpc.SceneStoreServer = (*GRPCServer)(nil)

func NewGRPCServer(a string, l logging.Logger, ss SceneService, secretKey string, m *Metrics) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		scenes:    ss,
		jwtSecret: []byte(secretKey),
		metrics:   m,
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.metricsInterceptor, s.accessTokenInterceptor))
	rpc.RegisterSceneStoreServer(srv, s)
	return srv
}

// Run serves until ctx is cancelled, then stops gracefully.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil {
		return err
	}
	return nil
}
