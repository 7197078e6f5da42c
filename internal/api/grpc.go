package api

import (
	"context"
	"encoding/json"

	"github.com/gin-gonic/gin/binding"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/victornm/jackpot/internal/errors"
)

// The game service carries the HTTP JSON documents in google.protobuf.Struct messages, so clients need no
// generated stubs.
const (
	GameServiceName = "jackpot.v1.GameService"

	methodDraw            = "/" + GameServiceName + "/Draw"
	methodSubmitScore     = "/" + GameServiceName + "/SubmitScore"
	methodListLeaderboard = "/" + GameServiceName + "/ListLeaderboard"
)

type GameServiceServer interface {
	GRPCDraw(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GRPCSubmitScore(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GRPCListLeaderboard(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var gameServiceDesc = grpc.ServiceDesc{
	ServiceName: GameServiceName,
	HandlerType: (*GameServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Draw", Handler: unaryHandler(methodDraw, GameServiceServer.GRPCDraw)},
		{MethodName: "SubmitScore", Handler: unaryHandler(methodSubmitScore, GameServiceServer.GRPCSubmitScore)},
		{MethodName: "ListLeaderboard", Handler: unaryHandler(methodListLeaderboard, GameServiceServer.GRPCListLeaderboard)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "jackpot/v1/game.proto",
}

func RegisterGameServiceServer(s grpc.ServiceRegistrar, srv GameServiceServer) {
	s.RegisterService(&gameServiceDesc, srv)
}

type unaryMethod func(GameServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// methodHandler has the signature of grpc.MethodDesc.Handler.
type methodHandler = func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error)

func unaryHandler(fullMethod string, m unaryMethod) methodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return m(srv.(GameServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return m(srv.(GameServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func (a *API) GRPCDraw(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req PlayRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, err
	}

	o, err := a.Draw(ctx, req)
	if err != nil {
		return nil, grpcError(err)
	}

	return encodeStruct(o)
}

func (a *API) GRPCSubmitScore(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req SubmitScoreRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, err
	}

	resp, err := a.SubmitScore(ctx, req)
	if err != nil {
		return nil, grpcError(err)
	}

	return encodeStruct(resp)
}

func (a *API) GRPCListLeaderboard(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ListLeaderboardRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, err
	}

	resp, err := a.ListLeaderboard(ctx, req)
	if err != nil {
		return nil, grpcError(err)
	}

	return encodeStruct(resp)
}

// GameServiceClient calls the game service of a remote server.
type GameServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewGameServiceClient(cc grpc.ClientConnInterface) *GameServiceClient {
	return &GameServiceClient{cc: cc}
}

func (c *GameServiceClient) Draw(ctx context.Context, req PlayRequest, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodDraw, req, opts...)
}

func (c *GameServiceClient) SubmitScore(ctx context.Context, req SubmitScoreRequest, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodSubmitScore, req, opts...)
}

func (c *GameServiceClient) ListLeaderboard(ctx context.Context, req ListLeaderboardRequest, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodListLeaderboard, req, opts...)
}

func (c *GameServiceClient) invoke(ctx context.Context, method string, req any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := encodeStruct(req)
	if err != nil {
		return nil, err
	}

	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func decodeStruct(in *structpb.Struct, v any) error {
	b, err := in.MarshalJSON()
	if err != nil {
		return errors.InvalidRequest("decode request: %v", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return errors.InvalidRequest("decode request: %v", err)
	}
	if err := binding.Validator.ValidateStruct(v); err != nil {
		return errors.InvalidRequest("invalid request: %v", err)
	}
	return nil
}

func encodeStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Internal(err)
	}

	out := new(structpb.Struct)
	if err := out.UnmarshalJSON(b); err != nil {
		return nil, errors.Internal(err)
	}

	return out, nil
}

// grpcError maps err to a status code, internal causes stay out of the status message.
func grpcError(err error) error {
	return errors.Convert(err)
}
