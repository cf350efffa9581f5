package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/rawblock/captcha-engine/internal/api"
	"github.com/rawblock/captcha-engine/internal/db"
	"github.com/rawblock/captcha-engine/internal/pow"
	"github.com/rawblock/captcha-engine/internal/puzzle"
	"github.com/rawblock/captcha-engine/internal/risk"
	"github.com/rawblock/captcha-engine/internal/session"
	"github.com/rawblock/captcha-engine/internal/video"
)

// purgeInterval is how often the in-memory session stores sweep expired
// entries.
const purgeInterval = time.Minute

func main() {
	log.Println("Starting captcha engine...")

	// ─── Environment Variables ───────────────────────────────────────────
	// POW_SECRET_KEY is the only security-sensitive value; it is required
	// in release mode and falls back to a dev placeholder otherwise. All
	// settings are read from the process environment.
	// ──────────────────────────────────────────────────────────────────────

	powSecret := os.Getenv("POW_SECRET_KEY")
	if powSecret == "" {
		if os.Getenv("GIN_MODE") == "release" {
			log.Fatal("FATAL: POW_SECRET_KEY is required when GIN_MODE=release")
		}
		log.Println("WARNING: POW_SECRET_KEY not set — using a dev-only placeholder secret")
		powSecret = "dev-only-insecure-pow-secret"
	}
	powSvc := pow.NewService(powSecret)

	thresholds := risk.Thresholds{
		LowScore:         70,
		MediumScore:      40,
		LowDifficulty:    envInt("POW_DIFFICULTY_LOW", 15),
		MediumDifficulty: envInt("POW_DIFFICULTY_MEDIUM", 19),
		HighDifficulty:   envInt("POW_DIFFICULTY_HIGH", 22),
	}

	imageDir := os.Getenv("CAPTCHA_IMAGE_DIR")
	if imageDir == "" {
		log.Println("CAPTCHA_IMAGE_DIR not set — image mode will use the placeholder gradient image")
	}
	videoDir := os.Getenv("CAPTCHA_VIDEO_PATH")
	if videoDir == "" {
		log.Println("CAPTCHA_VIDEO_PATH not set — video mode is disabled")
	}

	images, videos := setupSessionStores()

	wsHub := api.NewHub()
	go wsHub.Run()

	r := api.SetupRouter(powSvc, images, videos, wsHub, imageDir, videoDir, thresholds)

	port := getEnvOrDefault("PORT", "5339")
	log.Printf("Engine running on :%s\n", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupSessionStores wires the image/video session backends: in-memory by
// default, or a Postgres-backed TypedStore when DATABASE_URL is set.
func setupSessionStores() (images, videos session.Store) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return session.NewMemoryStore(purgeInterval), session.NewMemoryStore(purgeInterval)
	}

	dbConn, err := db.Connect(dbURL)
	if err != nil {
		log.Printf("Warning: failed to connect to PostgreSQL, falling back to in-memory sessions: %v", err)
		return session.NewMemoryStore(purgeInterval), session.NewMemoryStore(purgeInterval)
	}

	if err := dbConn.InitSchema(); err != nil {
		log.Printf("Warning: DB schema init failed: %v", err)
	}

	log.Println("Durable Postgres-backed session store enabled")
	go purgeExpiredLoop(dbConn)

	images = session.NewTypedStore(dbConn, func() any { return &puzzle.Challenge{} })
	videos = session.NewTypedStore(dbConn, func() any { return &video.Challenge{} })
	return images, videos
}

// purgeExpiredLoop sweeps stale rows out of the shared captcha_sessions
// table, mirroring session.MemoryStore's own background purge loop.
func purgeExpiredLoop(dbConn *db.PostgresStore) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for range ticker.C {
		n, err := dbConn.PurgeExpired(context.Background())
		if err != nil {
			log.Printf("[db] purge failed: %v", err)
			continue
		}
		if n > 0 {
			log.Printf("[db] purged %d expired session(s)", n)
		}
	}
}

// getEnvOrDefault returns the env var value or a safe default for non-secret settings.
func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// envInt parses an integer env var, falling back to def on absence or
// parse failure.
func envInt(key string, def int) int {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		log.Printf("WARNING: invalid %s=%q, using default %d", key, val, def)
		return def
	}
	return n
}
