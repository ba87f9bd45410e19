package matching

import (
	"errors"
	"math"

	"github.com/spigell/match-engine/internal/domain"
	"github.com/spigell/match-engine/internal/utils"
)

// ErrInvalidEmbedding is returned for vectors that cannot be compared.
var ErrInvalidEmbedding = errors.New("invalid embedding")

// Similarity returns the cosine similarity of a and b rescaled to [0,1].
func Similarity(a, b domain.Embedding) (float64, error) {
	if !a.Valid() || !b.Valid() || len(a) != len(b) {
		return 0, ErrInvalidEmbedding
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0, ErrInvalidEmbedding
	}

	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return utils.Clamp01((cos + 1) / 2), nil
}
