package game

import "time"

// @name ArchivedGame
// ArchivedGame is a finished game as kept in the archive.
type ArchivedGame struct {
	GameID        string    `json:"game_id" bson:"game_id"`
	Record        Record    `json:"record" bson:"record"`
	CapturesBlack int       `json:"captures_black" bson:"captures_black"`
	CapturesWhite int       `json:"captures_white" bson:"captures_white"`
	FinishedAt    time.Time `json:"finished_at" bson:"finished_at"`
}
