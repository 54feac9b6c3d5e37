package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/scenesync/internal/common"
	"github.com/dmitrijs2005/scenesync/internal/rpc"
	"github.com/dmitrijs2005/scenesync/internal/scene"
)

// toStatus maps service errors onto gRPC codes. Unknown errors are logged
// and hidden behind Internal.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrDuplicateName):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, common.ErrNotOwner):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, common.ErrInvalidName):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, err.Error())
	}
	s.logger.Error(ctx, "request failed", "error", err)
	return status.Error(codes.Internal, "internal error")
}

func (s *GRPCServer) caller(ctx context.Context) (string, error) {
	owner, ok := ownerIDFromContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing owner")
	}
	return owner, nil
}

func (s *GRPCServer) GetScene(ctx context.Context, req *rpc.GetSceneRequest) (*rpc.SceneResponse, error) {
	owner, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	sc, err := s.scenes.Get(ctx, owner, req.ID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.SceneResponse{Scene: *sc}, nil
}

func (s *GRPCServer) GetSceneByName(ctx context.Context, req *rpc.GetSceneByNameRequest) (*rpc.SceneResponse, error) {
	owner, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	sc, err := s.scenes.GetByName(ctx, owner, req.Name)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.SceneResponse{Scene: *sc}, nil
}

func (s *GRPCServer) ListScenes(ctx context.Context, _ *rpc.ListScenesRequest) (*rpc.ListScenesResponse, error) {
	owner, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.scenes.List(ctx, owner)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	out := make([]scene.Scene, 0, len(list))
	for _, sc := range list {
		out = append(out, *sc)
	}
	return &rpc.ListScenesResponse{Scenes: out}, nil
}

func (s *GRPCServer) InsertScene(ctx context.Context, req *rpc.InsertSceneRequest) (*rpc.SceneResponse, error) {
	owner, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	sc, err := s.scenes.Insert(ctx, owner, scene.Scene{
		Name:        req.Name,
		Description: req.Description,
		Published:   req.Published,
		Data:        req.Data,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	s.logger.Info(ctx, "scene created", "scene_id", sc.ID, "owner_id", owner)
	return &rpc.SceneResponse{Scene: *sc}, nil
}

func (s *GRPCServer) UpdateScene(ctx context.Context, req *rpc.UpdateSceneRequest) (*rpc.SceneResponse, error) {
	owner, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	sc, err := s.scenes.Update(ctx, owner, req.ID, req.Patch)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	if req.Patch.OriginTag != nil {
		s.logger.Debug(ctx, "scene pushed", "scene_id", sc.ID, "origin_tag", sc.OriginTag)
	}
	return &rpc.SceneResponse{Scene: *sc}, nil
}

func (s *GRPCServer) DeleteScene(ctx context.Context, req *rpc.DeleteSceneRequest) (*rpc.Empty, error) {
	owner, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.scenes.Delete(ctx, owner, req.ID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	s.logger.Info(ctx, "scene deleted", "scene_id", req.ID, "owner_id", owner)
	return &rpc.Empty{}, nil
}

func (s *GRPCServer) Ping(context.Context, *rpc.Empty) (*rpc.Empty, error) {
	return &rpc.Empty{}, nil
}
