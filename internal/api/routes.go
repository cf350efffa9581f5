package api

import (
	"log"
	mrand "math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rawblock/captcha-engine/internal/pow"
	"github.com/rawblock/captcha-engine/internal/puzzle"
	"github.com/rawblock/captcha-engine/internal/risk"
	"github.com/rawblock/captcha-engine/internal/session"
	"github.com/rawblock/captcha-engine/internal/verify"
	"github.com/rawblock/captcha-engine/internal/video"
	"github.com/rawblock/captcha-engine/pkg/models"
)

// sessionTTL bounds how long an issued challenge stays redeemable.
const sessionTTL = 10 * time.Minute

// videoFrameRate is the default playback pacing for directory-sourced clips
// when none is otherwise configured.
const videoFrameRate = 30

// APIHandler holds every subsystem a captcha endpoint needs.
type APIHandler struct {
	pow        *pow.Service
	images     session.Store
	videos     session.Store
	verifier   *verify.Coordinator
	streams    *streamRegistry
	wsHub      *Hub
	imageDir   string
	videoDir   string
	thresholds risk.Thresholds
}

// SetupRouter wires the gin router for the captcha engine. Per spec.md §6
// all five endpoints are public — there is no bearer-auth concept in this
// domain, unlike the teacher's protected /api/v1 group — so the CORS
// middleware and rate limiter apply globally instead of being split across
// public/protected groups.
func SetupRouter(powSvc *pow.Service, images, videos session.Store, wsHub *Hub, imageDir, videoDir string, thresholds risk.Thresholds) *gin.Engine {
	r := gin.Default()

	// Enable CORS — configurable via ALLOWED_ORIGINS env var
	// Production: ALLOWED_ORIGINS=https://example.com,https://www.example.com
	// Development: ALLOWED_ORIGINS=http://localhost:3000 (or leave empty for *)
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Rate-limit every endpoint to 60 req/min per IP (burst=10) — challenge
	// issuance and verification are both cheap enough to allow a generous
	// budget while still bounding abuse from a single source.
	r.Use(NewRateLimiter(60, 10).Middleware())

	handler := &APIHandler{
		pow:        powSvc,
		images:     images,
		videos:     videos,
		verifier:   verify.New(powSvc, images, videos),
		streams:    newStreamRegistry(),
		wsHub:      wsHub,
		imageDir:   imageDir,
		videoDir:   videoDir,
		thresholds: thresholds,
	}

	r.GET("/health", handler.handleHealth)
	r.GET("/stream", wsHub.Subscribe)
	r.GET("/generate-captcha", handler.handleGenerateCaptcha)
	r.POST("/pow-challenge", handler.handlePowChallenge)
	r.POST("/verify-captcha", handler.handleVerifyCaptcha)
	r.GET("/video-captcha-stream/:id", handler.handleVideoStream)
	r.POST("/video-captcha-slider", handler.handleVideoSlider)

	return r
}

// handleHealth reports engine status and capability flags for service
// discovery.
func (h *APIHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "operational",
		"engine": "captcha-engine",
		"capabilities": gin.H{
			"image_mode": true,
			"video_mode": h.videoDir != "",
		},
	})
}

// handleGenerateCaptcha issues a new challenge. GET /generate-captcha?mode=image|video
func (h *APIHandler) handleGenerateCaptcha(c *gin.Context) {
	mode := c.DefaultQuery("mode", "image")
	rng := newRand()

	switch mode {
	case "video":
		h.generateVideoCaptcha(c, rng)
	case "image":
		h.generateImageCaptcha(c, rng)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": verify.ErrUnknownMode.Error()})
	}
}

func (h *APIHandler) generateImageCaptcha(c *gin.Context, rng *mrand.Rand) {
	imagePath := pickImage(h.imageDir, rng)

	captchaID, resp, challenge, err := puzzle.Generate(imagePath, rng)
	if err != nil {
		log.Printf("[puzzle] generate failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate image challenge"})
		return
	}

	h.images.Put(captchaID, challenge, sessionTTL)
	h.wsHub.BroadcastEvent("challenge_issued", gin.H{"captcha_id": captchaID, "mode": "image"})
	c.JSON(http.StatusOK, resp)
}

func (h *APIHandler) generateVideoCaptcha(c *gin.Context, rng *mrand.Rand) {
	if h.videoDir == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": verify.ErrAssetMissing.Error()})
		return
	}

	source, err := video.NewDirFrameSource(h.videoDir, videoFrameRate)
	if err != nil {
		log.Printf("[video] opening frame source: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "video asset unavailable"})
		return
	}

	width, height := source.Dimensions()
	challenge := video.NewChallenge(rng, width, height)
	captchaID := uuid.New().String()

	h.videos.Put(captchaID, challenge, sessionTTL)
	h.streams.put(captchaID, video.NewStreamer(source, challenge))
	h.wsHub.BroadcastEvent("challenge_issued", gin.H{"captcha_id": captchaID, "mode": "video"})

	c.JSON(http.StatusOK, models.VideoChallengeResponse{
		CaptchaID:   captchaID,
		Mode:        "video",
		StreamURL:   "/video-captcha-stream/" + captchaID,
		Width:       width,
		Height:      height,
		SliderMin:   0,
		SliderMax:   1000,
		SliderStart: 0,
	})
}

// pickImage selects a random image file from dir. Returns "" (placeholder
// image) if dir is unset or has no usable images.
func pickImage(dir string, rng *mrand.Rand) string {
	if dir == "" {
		return ""
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var candidates []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".jpg" || ext == ".jpeg" || ext == ".png" {
			candidates = append(candidates, filepath.Join(dir, e.Name()))
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	return candidates[rng.Intn(len(candidates))]
}

// handlePowChallenge issues an HMAC-signed PoW challenge sized by the risk
// score of any telemetry the client has collected so far.
func (h *APIHandler) handlePowChallenge(c *gin.Context) {
	var req models.TelemetryInput
	// Telemetry is optional; a malformed body just means no telemetry.
	_ = c.ShouldBindJSON(&req)

	analysis := risk.Analyze(risk.Session{
		Fingerprint: req.Fingerprint,
		Trajectory:  risk.ParseTrajectory(req.Trajectory),
		Behavior:    risk.ParseBehavior(req.Behavior),
	})
	level, difficulty := risk.DifficultyFor(analysis.ConfidenceScore, h.thresholds)

	salt, ts, sig, err := h.pow.Issue(difficulty)
	if err != nil {
		log.Printf("[pow] issue failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue PoW challenge"})
		return
	}

	c.JSON(http.StatusOK, models.PowChallenge{
		Salt:       salt,
		Difficulty: difficulty,
		Timestamp:  ts,
		Signature:  sig,
		RiskLevel:  level,
	})
}

// handleVerifyCaptcha runs the full PoW + puzzle/slider + risk pipeline.
func (h *APIHandler) handleVerifyCaptcha(c *gin.Context) {
	var req models.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	resp := h.verifier.Verify(req)
	event := gin.H{
		"captcha_id": req.CaptchaID,
		"mode":       req.Mode,
		"success":    resp.Success,
	}
	if resp.Analysis != nil {
		event["flags"] = resp.Analysis.Flags
	}
	h.wsHub.BroadcastEvent("verification", event)

	if resp.Success {
		h.streams.delete(req.CaptchaID)
	}
	c.JSON(http.StatusOK, resp)
}

// handleVideoStream serves the MJPEG multipart stream for a live video
// challenge. The stream terminates when the client disconnects, the
// challenge session is consumed (verified or expired), or an unrecoverable
// write error occurs.
func (h *APIHandler) handleVideoStream(c *gin.Context) {
	id := c.Param("id")

	streamer, ok := h.streams.get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": verify.ErrUnknownSession.Error()})
		return
	}

	c.Writer.Header().Set("Content-Type", video.ContentType())
	c.Writer.Header().Set("Cache-Control", "no-store")
	c.Writer.WriteHeader(http.StatusOK)

	isLive := func() bool {
		_, ok := h.videos.Peek(id)
		return ok
	}

	if err := streamer.Stream(c.Request.Context(), c.Writer, isLive); err != nil {
		log.Printf("[video] stream %s ended: %v", id, err)
	}
	h.streams.delete(id)
}

// handleVideoSlider applies a live slider-position update to a video
// challenge's mutable state. It does not consume the session — the
// challenge stays live until verified or its TTL expires.
func (h *APIHandler) handleVideoSlider(c *gin.Context) {
	var req models.SliderUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SliderValue == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "captcha_id and slider_value are required"})
		return
	}

	raw, ok := h.videos.Peek(req.CaptchaID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": verify.ErrUnknownSession.Error()})
		return
	}
	challenge, ok := raw.(*video.Challenge)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": verify.ErrUnknownSession.Error()})
		return
	}

	v := *req.SliderValue
	if v < 0 {
		v = 0
	}
	if v > 1000 {
		v = 1000
	}
	challenge.CurrentSlider = v

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
