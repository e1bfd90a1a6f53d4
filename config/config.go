package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config stores the application configuration. It is built once at startup
// and passed to components at construction; nothing reads the environment
// after Load returns.
type Config struct {
	ListenAddr string
	FFmpegPath string

	StorageDir string // Base directory for all persisted assets
	UploadDir  string // Per-asset bundles for uploaded videos: StorageDir/uploads
	OwnerDir   string // Bundle for the built-in sample stream: StorageDir/owner

	GridWidth      int   // Character columns of rendered frames
	ColoredFrames  bool  // Wrap glyphs in truecolor escapes
	MaxUploadBytes int64 // Upload size cap

	AllowedExtensions []string // Accepted upload extensions, lowercase, no dot

	LogLevel      string
	LogOutputPath string

	// Optional Redis-backed job store. When disabled the registry keeps
	// job state in memory.
	RedisEnabled  bool
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	JobTTLHours   int
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	storageBase := getEnv("STORAGE_DIR", "storage")

	return &Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
		FFmpegPath: getEnv("FFMPEG_PATH", "ffmpeg"),

		StorageDir: storageBase,
		UploadDir:  filepath.Join(storageBase, "uploads"),
		OwnerDir:   filepath.Join(storageBase, "owner"),

		GridWidth:      getEnvInt("GRID_WIDTH", 80),
		ColoredFrames:  getEnvBool("COLORED_FRAMES", false),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_MB", 200)) << 20,

		AllowedExtensions: splitList(getEnv("ALLOWED_EXTENSIONS", "mp4,mov,mkv,webm,avi")),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogOutputPath: getEnv("LOG_OUTPUT_PATH", ""),

		RedisEnabled:  getEnvBool("REDIS_ENABLED", false),
		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		JobTTLHours:   getEnvInt("JOB_TTL_HOURS", 24),
	}
}

// ExtensionAllowed reports whether the given filename carries one of the
// configured upload extensions.
func (c *Config) ExtensionAllowed(filename string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return false
	}
	for _, allowed := range c.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
