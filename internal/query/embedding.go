package query

import (
	"encoding/base64"
	"encoding/binary"
	"math"

	"github.com/kdsearch/coderetriever/pkg/models"
)

// maxQueryEmbeddingDims bounds the wire-supplied vector per spec §6.
const maxQueryEmbeddingDims = 4096

// decodeQueryEmbedding decodes the base64 little-endian float32 array
// wire format, spec §6. A nil request is not an error: it means the
// caller supplied no vector at all, which the profile handles as a plain
// fallback rather than an error path. A malformed one reports its error
// code so the caller can set metadata.errorCode.
func decodeQueryEmbedding(qe *models.QueryEmbedding) ([]float32, string) {
	if qe == nil || qe.Base64 == "" {
		return nil, ""
	}

	raw, err := base64.StdEncoding.DecodeString(qe.Base64)
	if err != nil {
		return nil, ErrInvalidQueryEmbedding
	}
	if len(raw)%4 != 0 {
		return nil, ErrInvalidQueryEmbedding
	}

	dims := len(raw) / 4
	if dims <= 0 || dims > maxQueryEmbeddingDims {
		return nil, ErrInvalidQueryEmbeddingDims
	}
	if qe.Dims > 0 && qe.Dims != dims {
		return nil, ErrInvalidQueryEmbeddingDims
	}

	vec := make([]float32, dims)
	for i := 0; i < dims; i++ {
		bits := binary.LittleEndian.Uint32(raw[i*4 : i*4+4])
		vec[i] = math.Float32frombits(bits)
	}
	return vec, ""
}
