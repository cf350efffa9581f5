package video

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"io"
	"log"
	"sync/atomic"
	"time"
)

const frameBoundary = "frame"

// jpegQuality matches the reference generator's cv2.IMWRITE_JPEG_QUALITY.
const jpegQuality = 70

// Streamer renders and multiplexes MJPEG frames for one video challenge
// session. Its running state is tracked atomically, in the same shape as
// the teacher's block scanner: an atomic.Bool guarding single-flight start,
// a goroutine driven by ctx.Done() for cancellation.
type Streamer struct {
	source    FrameSource
	challenge *Challenge

	isRunning    atomic.Bool
	framesServed atomic.Int64
}

// NewStreamer pairs a frame source with a challenge's compositing state.
func NewStreamer(source FrameSource, challenge *Challenge) *Streamer {
	return &Streamer{source: source, challenge: challenge}
}

// FramesServed reports how many frames this streamer has emitted so far.
func (s *Streamer) FramesServed() int64 {
	return s.framesServed.Load()
}

// Stream writes the MJPEG multipart stream to w until ctx is cancelled, the
// caller (gone writer) errors, or the challenge is withdrawn via isLive
// returning false. Only one Stream call runs at a time per Streamer.
func (s *Streamer) Stream(ctx context.Context, w io.Writer, isLive func() bool) error {
	if !s.isRunning.CompareAndSwap(false, true) {
		return fmt.Errorf("video: stream already running for this challenge")
	}
	defer s.isRunning.Store(false)

	delay := time.Duration(s.source.FrameDelayMillis()) * time.Millisecond
	ticker := time.NewTicker(delay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if isLive != nil && !isLive() {
				return nil
			}

			frame, err := s.source.Next()
			if err != nil {
				log.Printf("[video] frame source error: %v", err)
				continue
			}

			composed := Render(frame, s.challenge)

			buf := new(bytes.Buffer)
			if err := jpeg.Encode(buf, composed, &jpeg.Options{Quality: jpegQuality}); err != nil {
				log.Printf("[video] jpeg encode error: %v", err)
				continue
			}

			if err := writeFrame(w, buf.Bytes()); err != nil {
				return err
			}
			s.framesServed.Add(1)
		}
	}
}

func writeFrame(w io.Writer, jpegBytes []byte) error {
	header := fmt.Sprintf("--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", frameBoundary, len(jpegBytes))
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	if _, err := w.Write(jpegBytes); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}

// ContentType is the multipart MJPEG content type clients expect.
func ContentType() string {
	return "multipart/x-mixed-replace; boundary=" + frameBoundary
}
