package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"goban/internal/domain/game"
	apperr "goban/internal/errors"
)

const (
	gameKeyPrefix   = "game:"
	gameTTL         = 24 * time.Hour
	gamesCollection = "games"
)

// GameLogRepository keeps the action log of live games in Redis.
type GameLogRepository struct {
	log   *zap.SugaredLogger
	redis *redis.Client
}

func NewGameLogRepository(log *zap.SugaredLogger, redis *redis.Client) *GameLogRepository {
	return &GameLogRepository{
		log:   log,
		redis: redis,
	}
}

func gameKey(id string) string {
	return gameKeyPrefix + id
}

func (g *GameLogRepository) SaveRecord(ctx context.Context, id string, rec game.Record) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	data, err := game.MarshalRecord(rec)
	if err != nil {
		return err
	}
	return g.redis.Set(ctx, gameKey(id), data, gameTTL).Err()
}

func (g *GameLogRepository) LoadRecord(ctx context.Context, id string) (game.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	data, err := g.redis.Get(ctx, gameKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return game.Record{}, fmt.Errorf("%w: %s", apperr.ErrGameNotFound, id)
	} else if err != nil {
		g.log.Errorw("failed to load game record", "game", id, "error", err)
		return game.Record{}, err
	}

	return game.UnmarshalRecord(data)
}

func (g *GameLogRepository) DeleteRecord(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return g.redis.Del(ctx, gameKey(id)).Err()
}

// ArchiveRepository stores finished games in MongoDB.
type ArchiveRepository struct {
	log   *zap.SugaredLogger
	mongo *mongo.Database
}

func NewArchiveRepository(log *zap.SugaredLogger, mongo *mongo.Database) *ArchiveRepository {
	return &ArchiveRepository{
		log:   log,
		mongo: mongo,
	}
}

// ArchiveGame upserts by game id, so archiving the same game twice keeps one document.
func (a *ArchiveRepository) ArchiveGame(ctx context.Context, id string, rec game.Record, captures map[game.Color]int) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	doc := game.ArchivedGame{
		GameID:        id,
		Record:        rec,
		CapturesBlack: captures[game.Black],
		CapturesWhite: captures[game.White],
		FinishedAt:    time.Now().UTC(),
	}

	collection := a.mongo.Collection(gamesCollection)
	filter := bson.M{"game_id": id}
	opts := options.Replace().SetUpsert(true)

	if _, err := collection.ReplaceOne(ctx, filter, doc, opts); err != nil {
		a.log.Errorf("failed to archive game %s: %v", id, err)
		return err
	}

	a.log.Infof("game %s archived, %d moves", id, len(rec.Moves))
	return nil
}

func (a *ArchiveRepository) GetArchivedGame(ctx context.Context, id string) (game.ArchivedGame, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	collection := a.mongo.Collection(gamesCollection)
	filter := bson.M{"game_id": id}

	var result game.ArchivedGame
	err := collection.FindOne(ctx, filter).Decode(&result)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return result, fmt.Errorf("%w: %s", apperr.ErrGameNotFound, id)
	} else if err != nil {
		a.log.Error(err)
		return result, err
	}

	return result, nil
}

// ListArchivedGames returns the most recently finished games first.
func (a *ArchiveRepository) ListArchivedGames(ctx context.Context, limit int64) ([]game.ArchivedGame, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	collection := a.mongo.Collection(gamesCollection)
	opts := options.Find().SetSort(bson.M{"finished_at": -1}).SetLimit(limit)

	cursor, err := collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		a.log.Error(err)
		return nil, err
	}
	defer cursor.Close(ctx)

	var result []game.ArchivedGame
	for cursor.Next(ctx) {
		var played game.ArchivedGame
		if err := cursor.Decode(&played); err != nil {
			a.log.Error(err)
			return result, err
		}
		result = append(result, played)
	}

	return result, cursor.Err()
}
