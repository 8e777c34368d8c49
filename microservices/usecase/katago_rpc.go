package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"goban/internal/domain/game"
	katagoUC "goban/internal/usecase/katago"
	katagoRPC "goban/microservices/proto"
)

// KatagoUseCase serves the engine registry over gRPC.
type KatagoUseCase struct {
	log    *zap.SugaredLogger
	engine katagoUC.Analyzer
	katagoRPC.UnimplementedKatagoServiceServer
}

func NewKatagoUseCase(log *zap.SugaredLogger, engine katagoUC.Analyzer) *KatagoUseCase {
	return &KatagoUseCase{
		log:    log,
		engine: engine,
	}
}

func (k *KatagoUseCase) SuggestMoves(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	// Преобразуем RPC-структуру в доменную модель
	size, actions, n, err := decodeAnalysisCall(in)
	if err != nil {
		return nil, err
	}

	move, err := k.engine.SuggestMoves(ctx, size, actions, n)
	if err != nil {
		k.log.Warnw("suggest moves failed", "board_size", size, "error", err)
		return nil, katagoRPC.ToStatus(err)
	}
	return encodeReply(move)
}

func (k *KatagoUseCase) Evaluate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	size, actions, _, err := decodeAnalysisCall(in)
	if err != nil {
		return nil, err
	}

	eval, err := k.engine.Evaluate(ctx, size, actions)
	if err != nil {
		k.log.Warnw("evaluation failed", "board_size", size, "error", err)
		return nil, katagoRPC.ToStatus(err)
	}
	return encodeReply(eval)
}

func (k *KatagoUseCase) Status(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var call katagoRPC.StatusCall
	if err := katagoRPC.Decode(in, &call); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "bad status call: %v", err)
	}
	size, err := game.ParseBoardSize(call.BoardSize)
	if err != nil {
		return nil, katagoRPC.ToStatus(err)
	}

	level, err := k.engine.Difficulty(ctx)
	if err != nil {
		return nil, katagoRPC.ToStatus(err)
	}
	return encodeReply(katagoRPC.StatusReply{
		Busy:  k.engine.IsBusy(ctx, size),
		Level: level,
	})
}

func (k *KatagoUseCase) SetDifficulty(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var call katagoRPC.DifficultyCall
	if err := katagoRPC.Decode(in, &call); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "bad difficulty call: %v", err)
	}
	if err := k.engine.UpdateDifficulty(ctx, call.Level); err != nil {
		return nil, katagoRPC.ToStatus(err)
	}
	k.log.Infof("difficulty set to %d", call.Level)
	return encodeReply(call)
}

func decodeAnalysisCall(in *structpb.Struct) (game.BoardSize, []game.Action, int, error) {
	var call katagoRPC.AnalysisCall
	if err := katagoRPC.Decode(in, &call); err != nil {
		return 0, nil, 0, status.Errorf(codes.InvalidArgument, "bad analysis call: %v", err)
	}
	size, err := game.ParseBoardSize(call.BoardSize)
	if err != nil {
		return 0, nil, 0, katagoRPC.ToStatus(err)
	}
	actions, err := game.FromMoves(call.Moves)
	if err != nil {
		return 0, nil, 0, status.Errorf(codes.InvalidArgument, "bad moves: %v", err)
	}
	return size, actions, call.N, nil
}

func encodeReply(v any) (*structpb.Struct, error) {
	out, err := katagoRPC.Encode(v)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("failed to encode reply: %v", err))
	}
	return out, nil
}
