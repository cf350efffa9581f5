// Package verify implements the verification coordinator: it composes PoW
// validation, puzzle/slider correctness, and behavioural risk scoring into
// the single pass/fail decision returned from POST /verify-captcha.
package verify

import (
	"math"

	"github.com/rawblock/captcha-engine/internal/pow"
	"github.com/rawblock/captcha-engine/internal/puzzle"
	"github.com/rawblock/captcha-engine/internal/risk"
	"github.com/rawblock/captcha-engine/internal/session"
	"github.com/rawblock/captcha-engine/internal/video"
	"github.com/rawblock/captcha-engine/pkg/models"
)

// imageTolerance is the maximum allowed distance between the submitted
// slider value and the solved keyframe, on the puzzle's 0-100 scale.
const imageTolerance = 3

// videoTolerance is the maximum allowed distance between the submitted
// slider fraction and the challenge's secret target, on a 0-1 scale.
const videoTolerance = 0.03

// Coordinator holds every subsystem the verification pipeline depends on.
// Unlike /pow-challenge, verification never issues a new PoW challenge, so
// it has no use for risk.Thresholds' score-to-difficulty mapping — only
// internal/api's handler needs that, via its own configured thresholds.
type Coordinator struct {
	Pow           *pow.Service
	ImageSessions session.Store
	VideoSessions session.Store
}

// New builds a Coordinator wired to the given subsystems.
func New(powSvc *pow.Service, imageSessions, videoSessions session.Store) *Coordinator {
	return &Coordinator{
		Pow:           powSvc,
		ImageSessions: imageSessions,
		VideoSessions: videoSessions,
	}
}

// Verify runs the full §4.7 pipeline: request shape, then PoW (cheapest
// rejection signal), then mode-specific puzzle/slider correctness plus risk.
func (c *Coordinator) Verify(req models.VerifyRequest) models.VerifyResponse {
	if req.CaptchaID == "" || req.SliderValue == nil {
		return models.VerifyResponse{Success: false, Error: ErrMissingFields.Error()}
	}

	if req.PowSalt == "" || req.PowNonce == "" || req.PowDiff == nil || req.PowTs == nil || req.PowSig == "" {
		return models.VerifyResponse{Success: false, Error: ErrMissingPow.Error()}
	}

	if err := c.Pow.Verify(req.PowSalt, *req.PowDiff, *req.PowTs, req.PowSig, req.PowNonce); err != nil {
		return models.VerifyResponse{Success: false, Error: err.Error()}
	}

	switch req.Mode {
	case "video":
		return c.verifyVideo(req)
	default:
		return c.verifyImage(req)
	}
}

func (c *Coordinator) verifyImage(req models.VerifyRequest) models.VerifyResponse {
	raw, ok := c.ImageSessions.Take(req.CaptchaID)
	if !ok {
		return models.VerifyResponse{Success: false, Error: ErrUnknownSession.Error()}
	}
	challenge, ok := raw.(*puzzle.Challenge)
	if !ok {
		return models.VerifyResponse{Success: false, Error: ErrUnknownSession.Error()}
	}

	puzzleSolved := math.Abs(*req.SliderValue-float64(challenge.SolvedValue)) <= imageTolerance

	analysis := c.analyze(req)

	success := puzzleSolved && !analysis.IsBot
	return models.VerifyResponse{Success: success, Analysis: &analysis}
}

func (c *Coordinator) verifyVideo(req models.VerifyRequest) models.VerifyResponse {
	raw, ok := c.VideoSessions.Peek(req.CaptchaID)
	if !ok {
		return models.VerifyResponse{Success: false, Error: ErrUnknownSession.Error()}
	}
	challenge, ok := raw.(*video.Challenge)
	if !ok {
		return models.VerifyResponse{Success: false, Error: ErrUnknownSession.Error()}
	}

	submitted := clamp(*req.SliderValue/1000, 0, 1)
	sliderOK := math.Abs(challenge.SecretTarget-submitted) <= videoTolerance

	analysis := c.analyze(req)

	success := sliderOK && !analysis.IsBot
	if success {
		c.VideoSessions.Delete(req.CaptchaID)
	}
	return models.VerifyResponse{Success: success, Analysis: &analysis}
}

func (c *Coordinator) analyze(req models.VerifyRequest) models.RiskAnalysis {
	s := risk.Session{
		Fingerprint: req.Fingerprint,
		Trajectory:  risk.ParseTrajectory(req.Trajectory),
		Behavior:    risk.ParseBehavior(req.Behavior),
	}
	return risk.Analyze(s)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
