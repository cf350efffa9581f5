package puzzle

import (
	"fmt"
	"math/rand"
	"strconv"

	"github.com/google/uuid"

	"github.com/rawblock/captcha-engine/pkg/models"
)

// Challenge is the server-side record of an issued image-mode captcha: the
// one fact needed to verify a later slider submission.
type Challenge struct {
	SolvedValue int
}

// Generate builds a full image-mode captcha challenge from the photo at
// imagePath (or a placeholder if empty), returning both the client-facing
// payload and the server-side record to store under the returned ID.
func Generate(imagePath string, rng *rand.Rand) (string, *models.ImageChallengeResponse, *Challenge, error) {
	canvas, err := LoadAndNormalize(imagePath)
	if err != nil {
		return "", nil, nil, fmt.Errorf("puzzle: normalizing source image: %w", err)
	}

	pieces := Slice(canvas, rng)

	positions := GenerateKeyframePositions(rng)
	solved := ChooseSolvedPosition(rng, positions)

	piecesPayload := make(map[string]models.PieceMetadata, len(pieces))
	for _, p := range pieces {
		data, err := EncodePNGBase64(p.Image)
		if err != nil {
			return "", nil, nil, fmt.Errorf("puzzle: encoding piece %s: %w", p.ID, err)
		}
		b := p.Image.Bounds()
		piecesPayload[p.ID] = models.PieceMetadata{
			Data: data,
			W:    b.Dx(),
			H:    b.Dy(),
			OX:   p.OffsetX,
			OY:   p.OffsetY,
		}
	}

	keyframes := make(map[string][]models.KeyframePlacement, len(positions))
	for _, kf := range positions {
		key := strconv.Itoa(kf)
		if kf == solved {
			placements := make([]models.KeyframePlacement, len(pieces))
			for i, p := range pieces {
				placements[i] = models.KeyframePlacement{PieceID: p.ID, X: p.OffsetX, Y: p.OffsetY}
			}
			keyframes[key] = placements
			continue
		}

		slots := GridPositions(rng)
		placements := make([]models.KeyframePlacement, len(pieces))
		for i, p := range pieces {
			placements[i] = models.KeyframePlacement{PieceID: p.ID, X: slots[i][0], Y: slots[i][1]}
		}
		keyframes[key] = placements
	}

	captchaID := uuid.New().String()
	resp := &models.ImageChallengeResponse{
		CaptchaID: captchaID,
		Mode:      "image",
		Pieces:    piecesPayload,
		Keyframes: keyframes,
	}

	return captchaID, resp, &Challenge{SolvedValue: solved}, nil
}
