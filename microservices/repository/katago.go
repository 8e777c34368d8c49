package repository

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"goban/internal/domain"
	"goban/internal/domain/game"
	katagoRPC "goban/microservices/proto"
)

const statusTimeout = 2 * time.Second

// RemoteAnalyzer talks to the engine service started by microservices/cmd/katago.
type RemoteAnalyzer struct {
	log    *zap.SugaredLogger
	conn   *grpc.ClientConn
	client katagoRPC.KatagoServiceClient
}

// DialRemoteAnalyzer connects lazily; the first call reports an unreachable service.
func DialRemoteAnalyzer(addr string, log *zap.SugaredLogger, opts ...grpc.DialOption) (*RemoteAnalyzer, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine client for %s: %w", addr, err)
	}
	return &RemoteAnalyzer{
		log:    log,
		conn:   conn,
		client: katagoRPC.NewKatagoServiceClient(conn),
	}, nil
}

func (r *RemoteAnalyzer) SuggestMoves(ctx context.Context, size game.BoardSize, actions []game.Action, n int) (domain.EngineMove, error) {
	var move domain.EngineMove
	err := r.call(ctx, r.client.SuggestMoves, katagoRPC.AnalysisCall{
		BoardSize: int(size),
		Moves:     game.ToMoves(actions),
		N:         n,
	}, &move)
	return move, err
}

func (r *RemoteAnalyzer) Evaluate(ctx context.Context, size game.BoardSize, actions []game.Action) (domain.Evaluation, error) {
	var eval domain.Evaluation
	err := r.call(ctx, r.client.Evaluate, katagoRPC.AnalysisCall{
		BoardSize: int(size),
		Moves:     game.ToMoves(actions),
	}, &eval)
	return eval, err
}

// IsBusy reports false when the service cannot be asked.
func (r *RemoteAnalyzer) IsBusy(ctx context.Context, size game.BoardSize) bool {
	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()

	var reply katagoRPC.StatusReply
	if err := r.call(ctx, r.client.Status, katagoRPC.StatusCall{BoardSize: int(size)}, &reply); err != nil {
		r.log.Warnw("engine status unavailable", "error", err)
		return false
	}
	return reply.Busy
}

func (r *RemoteAnalyzer) UpdateDifficulty(ctx context.Context, level int) error {
	var reply katagoRPC.DifficultyCall
	return r.call(ctx, r.client.SetDifficulty, katagoRPC.DifficultyCall{Level: level}, &reply)
}

func (r *RemoteAnalyzer) Difficulty(ctx context.Context) (int, error) {
	var reply katagoRPC.StatusReply
	if err := r.call(ctx, r.client.Status, katagoRPC.StatusCall{BoardSize: int(game.Size19)}, &reply); err != nil {
		return 0, err
	}
	return reply.Level, nil
}

func (r *RemoteAnalyzer) Close() error {
	return r.conn.Close()
}

type method func(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)

func (r *RemoteAnalyzer) call(ctx context.Context, m method, in any, out any) error {
	payload, err := katagoRPC.Encode(in)
	if err != nil {
		return fmt.Errorf("failed to encode engine call: %w", err)
	}
	reply, err := m(ctx, payload)
	if err != nil {
		return katagoRPC.FromStatus(err)
	}
	if err := katagoRPC.Decode(reply, out); err != nil {
		return fmt.Errorf("failed to decode engine reply: %w", err)
	}
	return nil
}
