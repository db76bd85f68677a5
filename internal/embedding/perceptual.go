package embedding

import (
	"context"
	"fmt"

	"github.com/corona10/goimagehash"

	"github.com/joeypohie/photorank/internal/imgutil"
)

// PerceptualDim is the length of a perceptual embedding: three 64-bit hashes.
const PerceptualDim = 3 * 64

// PerceptualProvider builds embeddings from perceptual hashes, so it works
// without an embedding server. Each hash bit becomes +1 or -1; the cosine
// distance of two such vectors is 2*hamming/PerceptualDim.
type PerceptualProvider struct{}

// NewPerceptualProvider creates a hash-based provider.
func NewPerceptualProvider() *PerceptualProvider {
	return &PerceptualProvider{}
}

// Name implements Provider.
func (p *PerceptualProvider) Name() string {
	return "phash"
}

// Embed implements Provider.
func (p *PerceptualProvider) Embed(ctx context.Context, imageData []byte) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, _, err := imgutil.Decode(imageData)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}

	pHash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return nil, fmt.Errorf("%w: perception hash: %w", ErrExtractionFailed, err)
	}
	dHash, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return nil, fmt.Errorf("%w: difference hash: %w", ErrExtractionFailed, err)
	}
	aHash, err := goimagehash.AverageHash(img)
	if err != nil {
		return nil, fmt.Errorf("%w: average hash: %w", ErrExtractionFailed, err)
	}

	vec := make([]float32, 0, PerceptualDim)
	for _, h := range []*goimagehash.ImageHash{pHash, dHash, aHash} {
		vec = appendBits(vec, h.GetHash())
	}
	return vec, nil
}

// appendBits appends the 64 bits of h as +1/-1, most significant bit first.
func appendBits(vec []float32, h uint64) []float32 {
	for i := 63; i >= 0; i-- {
		if h&(1<<uint(i)) != 0 {
			vec = append(vec, 1)
		} else {
			vec = append(vec, -1)
		}
	}
	return vec
}
