package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port        string
	MusicDir    string
	Bitrate     string
	StationName string
	MaxClients  int
	SampleRate  string
	Channels    string
	WebDir      string
	DJUsername  string
	DJPassword  string
	JWTSecret   string
	Timezone    string

	// Data/cache/media layout.
	DataDir     string
	CacheDir    string
	MediaDir    string
	FallbackDir string
	CookiesPath string

	// Engine tuning.
	MinQueueSize  int
	MaxCacheBytes int64

	// Icecast upstream.
	IcecastHost        string
	IcecastPort        int
	IcecastPassword    string
	IcecastMount       string
	IcecastName        string
	IcecastDescription string
	IcecastGenre       string
	IcecastBitrate     int
}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "5000"),
		MusicDir:    getEnv("MUSIC_DIR", "./music"),
		Bitrate:     getEnv("BITRATE", "128k"),
		StationName: getEnv("STATION_NAME", "MRadio"),
		MaxClients:  getEnvAsInt("MAX_CLIENTS", 100),
		SampleRate:  getEnv("SAMPLE_RATE", "44100"),
		Channels:    getEnv("CHANNELS", "2"),
		WebDir:      getEnv("WEB_DIR", "./web/dist"),
		DJUsername:  getEnv("DJ_USERNAME", "dj"),
		DJPassword:  getEnv("DJ_PASSWORD", "change-me"),
		JWTSecret:   getEnv("JWT_SECRET", "change-me-in-production-please"),
		Timezone:    getEnv("TIMEZONE", ""),

		DataDir:     getEnv("DATA_DIR", "./data"),
		CacheDir:    getEnv("CACHE_DIR", "./cache"),
		MediaDir:    getEnv("MEDIA_DIR", "./media"),
		FallbackDir: getEnv("FALLBACK_DIR", "./media/fallback"),
		CookiesPath: getEnv("COOKIES_PATH", "./config/cookies.txt"),

		MinQueueSize:  getEnvAsInt("MIN_QUEUE_SIZE", 2),
		MaxCacheBytes: int64(getEnvAsInt("MAX_CACHE_BYTES", 1<<30)),

		IcecastHost:        getEnv("ICECAST_HOST", "localhost"),
		IcecastPort:        getEnvAsInt("ICECAST_PORT", 8000),
		IcecastPassword:    getEnv("ICECAST_PASSWORD", ""),
		IcecastMount:       getEnv("ICECAST_MOUNT", "/radio.mp3"),
		IcecastName:        getEnv("ICECAST_NAME", "MRadio"),
		IcecastDescription: getEnv("ICECAST_DESCRIPTION", "A continuous internet radio stream"),
		IcecastGenre:       getEnv("ICECAST_GENRE", "Various"),
		IcecastBitrate:     getEnvAsInt("ICECAST_BITRATE", 128),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultVal int) int {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultVal
}
