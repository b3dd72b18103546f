package archive

import (
	// Register the hash functions behind digest.Canonical and digest.SHA512.
	_ "crypto/sha256"
	_ "crypto/sha512"
	"encoding/base64"
	"encoding/hex"

	"github.com/opencontainers/go-digest"
)

// Sum describes the compressed bytes of a written archive.
type Sum struct {
	// Size is the compressed length in bytes.
	Size int64
	// Digest is the canonical (sha256) content digest.
	Digest digest.Digest
	// Integrity is the subresource integrity string, "sha512-<base64>".
	Integrity string
}

// summer hashes everything written to it.
type summer struct {
	n         int64
	canonical digest.Digester
	sha512    digest.Digester
}

func newSummer() *summer {
	return &summer{
		canonical: digest.Canonical.Digester(),
		sha512:    digest.SHA512.Digester(),
	}
}

func (s *summer) Write(p []byte) (int, error) {
	s.canonical.Hash().Write(p)
	s.sha512.Hash().Write(p)
	s.n += int64(len(p))
	return len(p), nil
}

func (s *summer) Sum() Sum {
	return Sum{
		Size:      s.n,
		Digest:    s.canonical.Digest(),
		Integrity: Integrity(s.sha512.Digest()),
	}
}

// Integrity formats a sha512 digest as a subresource integrity string.
// It returns "" for any other algorithm or a malformed digest.
func Integrity(d digest.Digest) string {
	if d.Validate() != nil || d.Algorithm() != digest.SHA512 {
		return ""
	}
	raw, err := hex.DecodeString(d.Encoded())
	if err != nil {
		return ""
	}
	return "sha512-" + base64.StdEncoding.EncodeToString(raw)
}
