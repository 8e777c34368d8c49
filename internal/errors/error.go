package errors

import "errors"

var (
	ErrBoardCorrupt        = errors.New("board state corrupt: action log is inconsistent with the board")
	ErrUnparseableMove     = errors.New("engine move cannot be parsed")
	ErrEngineNotFound      = errors.New("engine executable not found")
	ErrEngineConfigMissing = errors.New("engine config file not found")
	ErrEngineModelMissing  = errors.New("engine model file not found")
	ErrEngineBusy          = errors.New("engine is busy")
	ErrEngineNotUsable     = errors.New("engine response is not usable")
	ErrEngineUnavailable   = errors.New("engine is unavailable")
	ErrRepetition          = errors.New("move repeats the previous position (ko), play elsewhere first")
	ErrDifficultyRange     = errors.New("difficulty level out of range, accepted range is 1-5")
	ErrBoardSize           = errors.New("board size must be one of 9, 13, 19")
	ErrGameNotFound        = errors.New("game not found")
	ErrGameEnded           = errors.New("game is over")
)
