package katago

import (
	"fmt"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"goban/internal/domain"
	apperr "goban/internal/errors"
)

const (
	// Level 1 is the strongest configuration, level 5 the weakest.
	MinLevel     = 1
	MaxLevel     = 5
	DefaultLevel = MaxLevel
)

// settingsFile is looked up in the XDG config dirs when no explicit path is configured.
const settingsFile = "goban/katago_settings.json"

var defaultLevels = map[int]domain.Setting{
	1: {MaxVisits: 800, RootPolicyTemperature: 0.3, RootFpuReductionMax: 0.5},
	2: {MaxVisits: 400, RootPolicyTemperature: 0.45, RootFpuReductionMax: 0.3},
	3: {MaxVisits: 150, RootPolicyTemperature: 0.6, RootFpuReductionMax: 0.25},
	4: {MaxVisits: 60, RootPolicyTemperature: 0.9, RootFpuReductionMax: 0.1},
	5: {MaxVisits: 20, RootPolicyTemperature: 1.4, RootFpuReductionMax: 0.0},
}

var defaultEvaluation = domain.Setting{MaxVisits: 800, RootPolicyTemperature: 0.3, RootFpuReductionMax: 0.5}

// Settings is the difficulty table plus the parameters of evaluation queries.
type Settings struct {
	levels     map[int]domain.Setting
	evaluation domain.Setting
}

func DefaultSettings() *Settings {
	levels := make(map[int]domain.Setting, len(defaultLevels))
	for lvl, s := range defaultLevels {
		levels[lvl] = s
	}
	return &Settings{levels: levels, evaluation: defaultEvaluation}
}

// Level returns the parameters of a difficulty level; out of range levels get the default one.
func (s *Settings) Level(level int) domain.Setting {
	if setting, ok := s.levels[level]; ok {
		return setting
	}
	return s.levels[DefaultLevel]
}

func (s *Settings) Evaluation() domain.Setting {
	return s.evaluation
}

func ValidateLevel(level int) error {
	if level < MinLevel || level > MaxLevel {
		return fmt.Errorf("%w: %d, accepted range %d-%d", apperr.ErrDifficultyRange, level, MinLevel, MaxLevel)
	}
	return nil
}

// LoadSettings reads a JSON file of the form
//
//	{"levels": {"LEVEL_1": {"maxVisits": 800, ...}, ...}, "evaluation": {...}}
//
// Entries and fields absent from the file keep their defaults. When path is empty the file
// is searched in the XDG config dirs. A missing or broken file yields the defaults.
func LoadSettings(log *zap.SugaredLogger, path string) *Settings {
	settings := DefaultSettings()

	if path == "" {
		found, err := xdg.SearchConfigFile(settingsFile)
		if err != nil {
			log.Infow("engine settings file not found, using default difficulty table", "file", settingsFile)
			return settings
		}
		path = found
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		log.Warnw("failed to read engine settings, loading default settings", "path", path, "error", err)
		return settings
	}

	for lvl := MinLevel; lvl <= MaxLevel; lvl++ {
		key := fmt.Sprintf("levels.LEVEL_%d", lvl)
		if !v.IsSet(key) {
			continue
		}
		setting := settings.levels[lvl]
		if err := v.UnmarshalKey(key, &setting); err != nil {
			log.Warnw("failed to parse engine settings, loading default settings", "path", path, "key", key, "error", err)
			return DefaultSettings()
		}
		settings.levels[lvl] = setting
	}

	if v.IsSet("evaluation") {
		setting := settings.evaluation
		if err := v.UnmarshalKey("evaluation", &setting); err != nil {
			log.Warnw("failed to parse engine settings, loading default settings", "path", path, "key", "evaluation", "error", err)
			return DefaultSettings()
		}
		settings.evaluation = setting
	}

	log.Infof("engine settings loaded from %s", path)
	return settings
}
