package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	ServerPort string
	JWTSecret  string
	Timezone   string

	BackupEnabled bool
	BackupTime    string
	BackupDir     string
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("⚠️  No .env file found, using system environment variables")
	}

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "planner_user"),
		DBPassword: getEnv("DB_PASSWORD", "planner_pass"),
		DBName:     getEnv("DB_NAME", "planner_db"),
		ServerPort: getEnv("SERVER_PORT", "8080"),
		JWTSecret:  getEnv("JWT_SECRET", "supersecretkey"),
		Timezone:   getEnv("TIMEZONE", "Asia/Tokyo"),

		BackupEnabled: getEnv("BACKUP_ENABLED", "false") == "true",
		BackupTime:    getEnv("BACKUP_TIME", "03:00"),
		BackupDir:     getEnv("BACKUP_DIR", "backups"),
	}
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
