package domain

import "goban/internal/domain/game"

// EngineMove is a move suggested by the engine. Stone is meaningless when Pass is set.
type EngineMove struct {
	Color game.Color `json:"color"`
	Pass  bool       `json:"pass"`
	Stone game.Stone `json:"stone"`
}

// Evaluation is the engine's estimate of a position, Ownership indexed [x][y].
type Evaluation struct {
	ScoreLead float64     `json:"score_lead"`
	Ownership [][]float64 `json:"ownership"`
}

// @name Setting
// Setting is one row of the engine difficulty table.
type Setting struct {
	MaxVisits             int     `json:"maxVisits" mapstructure:"maxVisits"`
	RootPolicyTemperature float64 `json:"rootPolicyTemperature" mapstructure:"rootPolicyTemperature"`
	RootFpuReductionMax   float64 `json:"rootFpuReductionMax" mapstructure:"rootFpuReductionMax"`
}
