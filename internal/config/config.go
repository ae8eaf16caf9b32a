package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPath  = ".env"
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

type Config struct {
	Env     string
	Server  Server
	Storage Storage
	Journal Journal
	Auth    Auth
}

type Server struct {
	RunAddress      string
	JSONBufferSize  int
	CORSOrigins     []string
	RateLimitRPM    int
	ShutdownTimeout time.Duration
}

type Storage struct {
	DataDir    string
	HeaderFile string
	CardsFile  string
	MaxCards   uint16
}

type Journal struct {
	// Path of the sqlite database; empty disables the journal.
	Path string
}

type Auth struct {
	// TokenHash is a bcrypt hash of the API bearer token; empty disables auth.
	TokenHash string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", EnvLocal)
	v.SetDefault("run_address", ":8080")
	v.SetDefault("data_dir", "./spiffs")
	v.SetDefault("max_cards", 200)
	v.SetDefault("header_file", "rfid_database.bin")
	v.SetDefault("cards_file", "rfid_cards.bin")
	v.SetDefault("json_buffer_size", 8192)
	v.SetDefault("journal_path", "./spiffs/journal.db")
	v.SetDefault("api_token_hash", "")
	v.SetDefault("cors_origins", "")
	v.SetDefault("rate_limit_rpm", 120)
	v.SetDefault("shutdown_timeout_seconds", 5)
}

// Load reads the optional .env file, then an optional config file, then the environment.
// Environment variables win over the file.
func Load(file string) (*Config, error) {
	if err := godotenv.Load(envPath); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	v := viper.New()
	setDefaults(v)
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	maxCards := v.GetInt("max_cards")
	if maxCards <= 0 || maxCards > 0xFFFF {
		return nil, fmt.Errorf("max_cards %d out of range 1..65535", maxCards)
	}
	bufSize := v.GetInt("json_buffer_size")
	if bufSize <= 0 {
		return nil, fmt.Errorf("json_buffer_size must be positive, got %d", bufSize)
	}

	env := v.GetString("app_env")
	switch env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		return nil, fmt.Errorf("unknown app_env %q", env)
	}

	config := Config{
		Env: env,
		Server: Server{
			RunAddress:      v.GetString("run_address"),
			JSONBufferSize:  bufSize,
			CORSOrigins:     splitList(v.GetString("cors_origins")),
			RateLimitRPM:    v.GetInt("rate_limit_rpm"),
			ShutdownTimeout: time.Duration(v.GetInt("shutdown_timeout_seconds")) * time.Second,
		},
		Storage: Storage{
			DataDir:    v.GetString("data_dir"),
			HeaderFile: v.GetString("header_file"),
			CardsFile:  v.GetString("cards_file"),
			MaxCards:   uint16(maxCards),
		},
		Journal: Journal{Path: v.GetString("journal_path")},
		Auth:    Auth{TokenHash: v.GetString("api_token_hash")},
	}

	return &config, nil
}

func MustLoad() *Config {
	cfg, err := Load("")
	if err != nil {
		log.Fatalln(err)
	}
	return cfg
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
