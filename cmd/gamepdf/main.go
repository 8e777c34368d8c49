package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"goban/internal/adapters"
	"goban/internal/bootstrap"
	"goban/internal/domain/game"
	"goban/internal/export"
	repo "goban/internal/repository"
)

func main() {
	logger := NewLogger()
	defer logger.Sync()

	app := &cli.App{
		Name:  "gamepdf",
		Usage: "render a finished game as a PDF sheet",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "mongo-uri",
				Usage:   "archive to read the game from",
				EnvVars: []string{"MONGO_URI"},
			},
			&cli.StringFlag{
				Name:  "game",
				Usage: "id of an archived game",
			},
			&cli.StringFlag{
				Name:  "record",
				Usage: "JSON file holding a game record instead of the archive",
			},
			&cli.Int64Flag{
				Name:  "list",
				Usage: "print the N most recently archived games instead of rendering one",
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "output file",
				Value: "game.pdf",
			},
		},
		Action: func(c *cli.Context) error {
			if n := c.Int64("list"); n > 0 {
				return listGames(c, logger, n)
			}
			title, rec, err := loadRecord(c, logger)
			if err != nil {
				return err
			}
			if err := writePDF(c.String("out"), title, rec); err != nil {
				return err
			}
			fmt.Println("✅ PDF создан:", c.String("out"))
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Println("Ошибка:", err)
		os.Exit(1)
	}
}

func NewLogger() *zap.SugaredLogger {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	return logger.Sugar()
}

func loadRecord(c *cli.Context, log *zap.SugaredLogger) (string, game.Record, error) {
	if path := c.String("record"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", game.Record{}, err
		}
		rec, err := game.UnmarshalRecord(data)
		return path, rec, err
	}

	id := c.String("game")
	if id == "" {
		return "", game.Record{}, fmt.Errorf("either --record or --game is required")
	}

	ctx := context.Background()
	archive, closeArchive, err := openArchive(ctx, c, log)
	if err != nil {
		return "", game.Record{}, err
	}
	defer closeArchive()

	archived, err := archive.GetArchivedGame(ctx, id)
	if err != nil {
		return "", game.Record{}, err
	}
	return export.Title(archived), archived.Record, nil
}

func listGames(c *cli.Context, log *zap.SugaredLogger, n int64) error {
	ctx := context.Background()
	archive, closeArchive, err := openArchive(ctx, c, log)
	if err != nil {
		return err
	}
	defer closeArchive()

	games, err := archive.ListArchivedGames(ctx, n)
	if err != nil {
		return err
	}
	for _, g := range games {
		fmt.Println(export.Summary(g))
	}
	return nil
}

func openArchive(ctx context.Context, c *cli.Context, log *zap.SugaredLogger) (*repo.ArchiveRepository, func(), error) {
	uri := c.String("mongo-uri")
	if uri == "" {
		return nil, nil, fmt.Errorf("--mongo-uri is required to read the archive")
	}
	mongoAdapter := adapters.NewAdapterMongo(&bootstrap.Config{MongoUri: uri}, log)
	if err := mongoAdapter.Init(ctx); err != nil {
		return nil, nil, err
	}
	closeArchive := func() { _ = mongoAdapter.Close(ctx) }
	return repo.NewArchiveRepository(log, mongoAdapter.Database), closeArchive, nil
}

func writePDF(path, title string, rec game.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.Render(f, title, rec); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
