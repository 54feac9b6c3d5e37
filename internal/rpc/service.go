// Package rpc declares the scenesync.v1.SceneStore gRPC contract shared by
// the CLI and the server.
//
// Messages travel as google.protobuf.Struct. The scene payload is schemaless
// JSON and Struct is its natural protobuf form, so the typed request and
// response structs below are converted through JSON on both ends and no
// generated code is needed.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "scenesync.v1.SceneStore"

const (
	MethodGetScene       = "GetScene"
	MethodGetSceneByName = "GetSceneByName"
	MethodListScenes     = "ListScenes"
	MethodInsertScene    = "InsertScene"
	MethodUpdateScene    = "UpdateScene"
	MethodDeleteScene    = "DeleteScene"
	MethodPing           = "Ping"
)

// FullMethod returns the gRPC method path, e.g. /scenesync.v1.SceneStore/Ping.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

type SceneStoreServer interface {
	GetScene(ctx context.Context, req *GetSceneRequest) (*SceneResponse, error)
	GetSceneByName(ctx context.Context, req *GetSceneByNameRequest) (*SceneResponse, error)
	ListScenes(ctx context.Context, req *ListScenesRequest) (*ListScenesResponse, error)
	InsertScene(ctx context.Context, req *InsertSceneRequest) (*SceneResponse, error)
	UpdateScene(ctx context.Context, req *UpdateSceneRequest) (*SceneResponse, error)
	DeleteScene(ctx context.Context, req *DeleteSceneRequest) (*Empty, error)
	Ping(ctx context.Context, req *Empty) (*Empty, error)
}

// unary adapts a typed server method to a grpc.MethodDesc.
func unary[Req, Resp any](name string, call func(SceneStoreServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			req := new(Req)
			if err := Decode(in, req); err != nil {
				return nil, status.Error(codes.InvalidArgument, err.Error())
			}

			handler := func(ctx context.Context, r any) (any, error) {
				resp, err := call(srv.(SceneStoreServer), ctx, r.(*Req))
				if err != nil {
					return nil, err
				}
				out, err := Encode(resp)
				if err != nil {
					return nil, status.Error(codes.Internal, err.Error())
				}
				return out, nil
			}

			if interceptor == nil {
				return handler(ctx, req)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			return interceptor(ctx, req, info, handler)
		},
	}
}

var SceneStoreServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SceneStoreServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodGetScene, SceneStoreServer.GetScene),
		unary(MethodGetSceneByName, SceneStoreServer.GetSceneByName),
		unary(MethodListScenes, SceneStoreServer.ListScenes),
		unary(MethodInsertScene, SceneStoreServer.InsertScene),
		unary(MethodUpdateScene, SceneStoreServer.UpdateScene),
		unary(MethodDeleteScene, SceneStoreServer.DeleteScene),
		unary(MethodPing, SceneStoreServer.Ping),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "scenesync/v1/scene_store.proto",
}

func RegisterSceneStoreServer(s grpc.ServiceRegistrar, srv SceneStoreServer) {
	s.RegisterService(&SceneStoreServiceDesc, srv)
}

// Invoke calls method on cc with req and decodes the reply into a new Resp.
func Invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, req any, opts ...grpc.CallOption) (*Resp, error) {
	in, err := Encode(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	resp := new(Resp)
	if err := Decode(out, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
