// Package video builds and streams the video-mode captcha: a looping clip
// with a "receptacle" patch cut from the frame and a matching floating
// overlay the player must slide into place.
package video

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
)

// FrameSource yields successive RGBA frames of a looping clip. No ecosystem
// Go video-decode library is available, so the default implementation reads
// a directory of pre-extracted frame images rather than decoding a
// container/codec itself.
type FrameSource interface {
	// Next returns the next frame, looping back to the start once exhausted.
	Next() (*image.RGBA, error)
	// Dimensions reports the fixed width/height of every frame.
	Dimensions() (width, height int)
	// FrameDelayMillis is the inter-frame delay implied by the source's
	// native frame rate.
	FrameDelayMillis() int64
}

// DirFrameSource reads frames in filename order from a directory of JPEG or
// PNG images, looping indefinitely.
type DirFrameSource struct {
	paths   []string
	idx     int
	width   int
	height  int
	delayMs int64
}

// NewDirFrameSource scans dir for image files and opens the first frame to
// determine dimensions. fps controls the playback pacing; 0 defaults to 30.
func NewDirFrameSource(dir string, fps float64) (*DirFrameSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("video: reading frame directory %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext == ".jpg" || ext == ".jpeg" || ext == ".png" {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return nil, fmt.Errorf("video: no frame images found in %s", dir)
	}

	if fps <= 0 {
		fps = 30
	}

	src := &DirFrameSource{paths: paths, delayMs: int64(1000 / fps)}
	first, err := src.decode(paths[0])
	if err != nil {
		return nil, err
	}
	b := first.Bounds()
	src.width, src.height = b.Dx(), b.Dy()
	return src, nil
}

func (s *DirFrameSource) decode(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("video: opening frame %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("video: decoding frame %s: %w", path, err)
	}

	rgba, ok := img.(*image.RGBA)
	if ok {
		return rgba, nil
	}
	dst := image.NewRGBA(img.Bounds())
	for y := dst.Bounds().Min.Y; y < dst.Bounds().Max.Y; y++ {
		for x := dst.Bounds().Min.X; x < dst.Bounds().Max.X; x++ {
			dst.Set(x, y, img.At(x, y))
		}
	}
	return dst, nil
}

func (s *DirFrameSource) Next() (*image.RGBA, error) {
	path := s.paths[s.idx]
	s.idx = (s.idx + 1) % len(s.paths)
	return s.decode(path)
}

func (s *DirFrameSource) Dimensions() (int, int) {
	return s.width, s.height
}

func (s *DirFrameSource) FrameDelayMillis() int64 {
	return s.delayMs
}
