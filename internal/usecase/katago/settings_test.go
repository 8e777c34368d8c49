package katago

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"goban/internal/domain"
)

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	return path
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	tests := []struct {
		level int
		want  domain.Setting
	}{
		{level: 5, want: domain.Setting{MaxVisits: 20, RootPolicyTemperature: 1.4, RootFpuReductionMax: 0.0}},
		{level: 4, want: domain.Setting{MaxVisits: 60, RootPolicyTemperature: 0.9, RootFpuReductionMax: 0.1}},
		{level: 3, want: domain.Setting{MaxVisits: 150, RootPolicyTemperature: 0.6, RootFpuReductionMax: 0.25}},
		{level: 2, want: domain.Setting{MaxVisits: 400, RootPolicyTemperature: 0.45, RootFpuReductionMax: 0.3}},
		{level: 1, want: domain.Setting{MaxVisits: 800, RootPolicyTemperature: 0.3, RootFpuReductionMax: 0.5}},
		{level: 9, want: domain.Setting{MaxVisits: 20, RootPolicyTemperature: 1.4, RootFpuReductionMax: 0.0}},
	}
	for _, test := range tests {
		if got := s.Level(test.level); got != test.want {
			t.Fatalf("level %d: expected %+v, got %+v", test.level, test.want, got)
		}
	}
	if got := s.Evaluation(); got != defaultEvaluation {
		t.Fatalf("unexpected evaluation setting %+v", got)
	}
}

func TestLoadSettings(t *testing.T) {
	path := writeSettings(t, `{
		"levels": {
			"LEVEL_1": {"maxVisits": 1600, "rootPolicyTemperature": 0.2, "rootFpuReductionMax": 0.6},
			"LEVEL_4": {"maxVisits": 90}
		},
		"evaluation": {"maxVisits": 400}
	}`)

	s := LoadSettings(zap.NewNop().Sugar(), path)

	if got := s.Level(1); got != (domain.Setting{MaxVisits: 1600, RootPolicyTemperature: 0.2, RootFpuReductionMax: 0.6}) {
		t.Fatalf("level 1 not overridden: %+v", got)
	}
	if got := s.Level(4); got != (domain.Setting{MaxVisits: 90, RootPolicyTemperature: 0.9, RootFpuReductionMax: 0.1}) {
		t.Fatalf("missing fields must keep defaults: %+v", got)
	}
	if got := s.Level(3); got != defaultLevels[3] {
		t.Fatalf("absent level must keep defaults: %+v", got)
	}
	if got := s.Evaluation(); got.MaxVisits != 400 || got.RootPolicyTemperature != 0.3 {
		t.Fatalf("unexpected evaluation setting %+v", got)
	}
}

func TestLoadSettingsFallsBack(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{name: "missing file", path: filepath.Join(t.TempDir(), "absent.json")},
		{name: "broken json", path: writeSettings(t, `{"levels": `)},
		{name: "wrong type", path: writeSettings(t, `{"levels": {"LEVEL_2": {"maxVisits": "many"}}}`)},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s := LoadSettings(zap.NewNop().Sugar(), test.path)
			for lvl := MinLevel; lvl <= MaxLevel; lvl++ {
				if s.Level(lvl) != defaultLevels[lvl] {
					t.Fatalf("level %d must fall back to defaults, got %+v", lvl, s.Level(lvl))
				}
			}
		})
	}
}
