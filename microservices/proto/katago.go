// Package katago describes the engine service shared by the server in microservices/cmd/katago
// and its clients. Payloads are google.protobuf.Struct values carrying the JSON forms below.
package katago

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"goban/internal/domain/game"
	apperr "goban/internal/errors"
)

const (
	ServiceName = "goban.katago.KatagoService"

	SuggestMovesMethod  = "/goban.katago.KatagoService/SuggestMoves"
	EvaluateMethod      = "/goban.katago.KatagoService/Evaluate"
	StatusMethod        = "/goban.katago.KatagoService/Status"
	SetDifficultyMethod = "/goban.katago.KatagoService/SetDifficulty"
)

// AnalysisCall asks for a suggestion (N moves ahead) or an evaluation of Moves.
type AnalysisCall struct {
	BoardSize int         `json:"board_size"`
	Moves     []game.Move `json:"moves"`
	N         int         `json:"n,omitempty"`
}

type StatusCall struct {
	BoardSize int `json:"board_size"`
}

type StatusReply struct {
	Busy  bool `json:"busy"`
	Level int  `json:"level"`
}

type DifficultyCall struct {
	Level int `json:"level"`
}

// Encode converts v to a Struct through its JSON form.
func Encode(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("payload must be a JSON object: %w", err)
	}
	return structpb.NewStruct(fields)
}

// Decode fills dst from a Struct produced by Encode.
func Decode(s *structpb.Struct, dst any) error {
	data, err := json.Marshal(s.AsMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

var errorCodes = []struct {
	err  error
	code codes.Code
}{
	{apperr.ErrEngineBusy, codes.ResourceExhausted},
	{apperr.ErrEngineUnavailable, codes.Unavailable},
	{apperr.ErrEngineNotFound, codes.Unavailable},
	{apperr.ErrEngineConfigMissing, codes.Unavailable},
	{apperr.ErrEngineModelMissing, codes.Unavailable},
	{apperr.ErrEngineNotUsable, codes.FailedPrecondition},
	{apperr.ErrUnparseableMove, codes.DataLoss},
	{apperr.ErrDifficultyRange, codes.OutOfRange},
	{apperr.ErrBoardSize, codes.InvalidArgument},
}

// ToStatus turns an engine error into a gRPC status error.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return status.Error(e.code, err.Error())
		}
	}
	if errors.Is(err, context.Canceled) {
		return status.Error(codes.Canceled, err.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// FromStatus is the inverse of ToStatus: the error wraps the matching error kind.
func FromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	for _, e := range errorCodes {
		if st.Code() == e.code {
			return fmt.Errorf("%w: %s", e.err, st.Message())
		}
	}
	switch st.Code() {
	case codes.Canceled:
		return fmt.Errorf("%w: %s", context.Canceled, st.Message())
	case codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", context.DeadlineExceeded, st.Message())
	}
	return err
}

type KatagoServiceServer interface {
	SuggestMoves(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Status(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetDifficulty(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type UnimplementedKatagoServiceServer struct{}

func (UnimplementedKatagoServiceServer) SuggestMoves(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method SuggestMoves not implemented")
}

func (UnimplementedKatagoServiceServer) Evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Evaluate not implemented")
}

func (UnimplementedKatagoServiceServer) Status(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Status not implemented")
}

func (UnimplementedKatagoServiceServer) SetDifficulty(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method SetDifficulty not implemented")
}

func RegisterKatagoServiceServer(s grpc.ServiceRegistrar, srv KatagoServiceServer) {
	s.RegisterService(&KatagoService_ServiceDesc, srv)
}

func unaryHandler(method string, call func(KatagoServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(KatagoServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: method,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(KatagoServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var KatagoService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*KatagoServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "SuggestMoves",
			Handler:    unaryHandler(SuggestMovesMethod, KatagoServiceServer.SuggestMoves),
		},
		{
			MethodName: "Evaluate",
			Handler:    unaryHandler(EvaluateMethod, KatagoServiceServer.Evaluate),
		},
		{
			MethodName: "Status",
			Handler:    unaryHandler(StatusMethod, KatagoServiceServer.Status),
		},
		{
			MethodName: "SetDifficulty",
			Handler:    unaryHandler(SetDifficultyMethod, KatagoServiceServer.SetDifficulty),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "katago.proto",
}

type KatagoServiceClient interface {
	SuggestMoves(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Evaluate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Status(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	SetDifficulty(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type katagoServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewKatagoServiceClient(cc grpc.ClientConnInterface) KatagoServiceClient {
	return &katagoServiceClient{cc}
}

func (c *katagoServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *katagoServiceClient) SuggestMoves(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, SuggestMovesMethod, in, opts...)
}

func (c *katagoServiceClient) Evaluate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, EvaluateMethod, in, opts...)
}

func (c *katagoServiceClient) Status(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, StatusMethod, in, opts...)
}

func (c *katagoServiceClient) SetDifficulty(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, SetDifficultyMethod, in, opts...)
}
