package domain

// AnalysisRequest is one query line of the KataGo analysis protocol.
type AnalysisRequest struct {
	ID                    string      `json:"id"`
	Moves                 [][2]string `json:"moves"` // [["B","D4"], ["W","pass"], ...]
	Rules                 string      `json:"rules"`
	Komi                  float64     `json:"komi"`
	BoardXSize            int         `json:"boardXSize"`
	BoardYSize            int         `json:"boardYSize"`
	MaxVisits             int         `json:"maxVisits"`
	RootPolicyTemperature float64     `json:"rootPolicyTemperature"`
	RootFpuReductionMax   float64     `json:"rootFpuReductionMax"`
	IncludeOwnership      bool        `json:"includeOwnership,omitempty"`
}

// Ответ KataGo с анализом позиции.
// Поля, обязательные для разбора, сделаны указателями, чтобы отличать отсутствие от нуля.
type AnalysisResponse struct {
	ID             string     `json:"id"`
	TurnNumber     int        `json:"turnNumber"`
	IsDuringSearch bool       `json:"isDuringSearch"`
	RootInfo       *RootInfo  `json:"rootInfo"`
	MoveInfos      []MoveInfo `json:"moveInfos"`
	Ownership      []float64  `json:"ownership"`
	Error          string     `json:"error,omitempty"`
	Warning        string     `json:"warning,omitempty"`
}

// Информация о корневой позиции (общая информация)
type RootInfo struct {
	CurrentPlayer *string  `json:"currentPlayer"` // "W" или "B"
	Winrate       float64  `json:"winrate"`
	ScoreLead     *float64 `json:"scoreLead"`
	ScoreSelfplay float64  `json:"scoreSelfplay"`
	ScoreStdev    float64  `json:"scoreStdev"`
	Utility       float64  `json:"utility"`
	Visits        int      `json:"visits"`
}

// Информация о возможных ходах (вариантах)
type MoveInfo struct {
	Move      string   `json:"move"`
	Winrate   float64  `json:"winrate"`
	Visits    int      `json:"visits"`
	ScoreLead float64  `json:"scoreLead"`
	PV        []string `json:"pv"` // Principal Variation (последовательность ходов)
}
