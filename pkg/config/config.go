package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	CORS     CORSConfig
	Log      LogConfig
	Cache    CacheConfig
	Solver   SolverConfig
	Results  ResultsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	Enabled      bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	Enabled  bool
}

// AuthConfig guards mutating endpoints with bearer tokens.
type AuthConfig struct {
	Enabled    bool
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CacheConfig tunes the shared result cache.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// SolverConfig carries annealing defaults; zero values defer to the engine's
// built-in defaults.
type SolverConfig struct {
	InitialTemperature float64
	MinTemperature     float64
	CoolingRate        float64
	MaxIterations      int
	ReheatAfter        int
	ReheatFactor       float64
	MaxReheats         int
	Chains             int
	Seed               int64

	HardWeight          float64
	PreferredTimeWeight float64
	PreferredRoomWeight float64
	TransitWeight       float64
	CompactnessWeight   float64
	PrayerWeight        float64
	EveningWeight       float64
	LabWeight           float64
}

// ResultsConfig controls how long generated timetables stay retrievable.
type ResultsConfig struct {
	TTL time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		Enabled:      v.GetBool("ENABLE_DATABASE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
		Enabled:  v.GetBool("ENABLE_REDIS"),
	}

	cfg.Auth = AuthConfig{
		Enabled:    v.GetBool("ENABLE_AUTH"),
		Secret:     v.GetString("AUTH_SECRET"),
		Expiration: parseDuration(v.GetString("AUTH_TOKEN_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_CACHE"),
		TTL:     parseDuration(v.GetString("CACHE_TTL"), 30*time.Minute),
	}

	cfg.Solver = SolverConfig{
		InitialTemperature: v.GetFloat64("SOLVER_INITIAL_TEMPERATURE"),
		MinTemperature:     v.GetFloat64("SOLVER_MIN_TEMPERATURE"),
		CoolingRate:        v.GetFloat64("SOLVER_COOLING_RATE"),
		MaxIterations:      v.GetInt("SOLVER_MAX_ITERATIONS"),
		ReheatAfter:        v.GetInt("SOLVER_REHEAT_AFTER"),
		ReheatFactor:       v.GetFloat64("SOLVER_REHEAT_FACTOR"),
		MaxReheats:         v.GetInt("SOLVER_MAX_REHEATS"),
		Chains:             v.GetInt("SOLVER_CHAINS"),
		Seed:               v.GetInt64("SOLVER_SEED"),

		HardWeight:          v.GetFloat64("SOLVER_HARD_WEIGHT"),
		PreferredTimeWeight: v.GetFloat64("SOLVER_PREFERRED_TIME_WEIGHT"),
		PreferredRoomWeight: v.GetFloat64("SOLVER_PREFERRED_ROOM_WEIGHT"),
		TransitWeight:       v.GetFloat64("SOLVER_TRANSIT_WEIGHT"),
		CompactnessWeight:   v.GetFloat64("SOLVER_COMPACTNESS_WEIGHT"),
		PrayerWeight:        v.GetFloat64("SOLVER_PRAYER_WEIGHT"),
		EveningWeight:       v.GetFloat64("SOLVER_EVENING_WEIGHT"),
		LabWeight:           v.GetFloat64("SOLVER_LAB_WEIGHT"),
	}

	cfg.Results = ResultsConfig{
		TTL: parseDuration(v.GetString("RESULTS_TTL"), time.Hour),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("ENABLE_DATABASE", false)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "campus_timetable")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ENABLE_AUTH", false)
	v.SetDefault("AUTH_SECRET", "dev_secret")
	v.SetDefault("AUTH_TOKEN_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("CACHE_TTL", "30m")

	v.SetDefault("SOLVER_INITIAL_TEMPERATURE", 0)
	v.SetDefault("SOLVER_MIN_TEMPERATURE", 0)
	v.SetDefault("SOLVER_COOLING_RATE", 0)
	v.SetDefault("SOLVER_MAX_ITERATIONS", 0)
	v.SetDefault("SOLVER_REHEAT_AFTER", 0)
	v.SetDefault("SOLVER_REHEAT_FACTOR", 0)
	v.SetDefault("SOLVER_MAX_REHEATS", 0)
	v.SetDefault("SOLVER_CHAINS", 0)
	v.SetDefault("SOLVER_SEED", 0)
	v.SetDefault("SOLVER_HARD_WEIGHT", 0)
	v.SetDefault("SOLVER_PREFERRED_TIME_WEIGHT", 0)
	v.SetDefault("SOLVER_PREFERRED_ROOM_WEIGHT", 0)
	v.SetDefault("SOLVER_TRANSIT_WEIGHT", 0)
	v.SetDefault("SOLVER_COMPACTNESS_WEIGHT", 0)
	v.SetDefault("SOLVER_PRAYER_WEIGHT", 0)
	v.SetDefault("SOLVER_EVENING_WEIGHT", 0)
	v.SetDefault("SOLVER_LAB_WEIGHT", 0)

	v.SetDefault("RESULTS_TTL", "1h")
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}
