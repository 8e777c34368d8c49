package bootstrap

import (
	"github.com/spf13/viper"
)

type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`
	GrpcPort   string `mapstructure:"GRPC_PORT"`

	KatagoPath         string  `mapstructure:"KATAGO_PATH"`
	KatagoConfigPath   string  `mapstructure:"KATAGO_CONFIG_PATH"`
	KatagoModelPath    string  `mapstructure:"KATAGO_MODEL_PATH"`
	KatagoSettingsPath string  `mapstructure:"KATAGO_SETTINGS_PATH"`
	EngineEnabled      bool    `mapstructure:"ENGINE_ENABLED"`
	EngineRemoteAddr   string  `mapstructure:"ENGINE_REMOTE_ADDR"`
	BoardSize          int     `mapstructure:"BOARD_SIZE"`
	Komi               float64 `mapstructure:"KOMI"`
	Rules              string  `mapstructure:"RULES"`

	RedisUrl    string `mapstructure:"REDIS_URL"`
	MongoUri    string `mapstructure:"MONGO_URI"`
	IsLocalCors bool   `mapstructure:"LOCAL_CORS"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("GRPC_PORT", "50051")
	v.SetDefault("KATAGO_PATH", "katago")
	v.SetDefault("ENGINE_ENABLED", true)
	v.SetDefault("BOARD_SIZE", 19)
	v.SetDefault("KOMI", 6.5)
	v.SetDefault("RULES", "japanese")
}

// Setup reads cfgPath; environment variables override the file.
func Setup(cfgPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(cfgPath)
	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		return nil, err
	}

	var cfg Config

	err = v.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
