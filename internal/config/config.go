package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	Story   StoryConfig
	Session SessionConfig
	Voting  VotingConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	VideosDir          string
}

type StoryConfig struct {
	ConfigPath string
}

type SessionConfig struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

type VotingConfig struct {
	ResultsDelay  time.Duration
	PlaybackDelay time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			VideosDir:          getEnv("VIDEOS_DIR", "./public/videos"),
		},
		Story: StoryConfig{
			ConfigPath: getEnv("STORY_CONFIG_PATH", "story-config.json"),
		},
		Session: SessionConfig{
			TTL:             getEnvAsDuration("SESSION_TTL", 2*time.Hour),
			CleanupInterval: getEnvAsDuration("SESSION_CLEANUP_INTERVAL", 10*time.Minute),
		},
		Voting: VotingConfig{
			ResultsDelay:  getEnvAsDuration("VOTING_RESULTS_DELAY", 3*time.Second),
			PlaybackDelay: getEnvAsDuration("VOTING_PLAYBACK_DELAY", 30*time.Second),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
