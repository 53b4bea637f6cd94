package cache

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
)

// HashAlgorithm selects the digest used to derive cache keys.
type HashAlgorithm uint8

const (
	MD5 HashAlgorithm = iota
	SHA1
	SHA256
)

func (h HashAlgorithm) String() string {
	switch h {
	case MD5:
		return "md5"
	case SHA1:
		return "sha1"
	case SHA256:
		return "sha256"
	default:
		return fmt.Sprintf("HashAlgorithm(%d)", uint8(h))
	}
}

// ParseHashAlgorithm accepts the names returned by String. The empty string
// selects MD5.
func ParseHashAlgorithm(s string) (HashAlgorithm, error) {
	switch s {
	case "", "md5":
		return MD5, nil
	case "sha1":
		return SHA1, nil
	case "sha256":
		return SHA256, nil
	default:
		return 0, fmt.Errorf("unknown hash algorithm %q", s)
	}
}

func (h HashAlgorithm) new() hash.Hash {
	switch h {
	case MD5:
		return md5.New()
	case SHA1:
		return sha1.New()
	case SHA256:
		return sha256.New()
	default:
		panic(fmt.Sprintf("cache: unknown hash algorithm %d", uint8(h)))
	}
}

// Key returns the lowercase hex digest of source+suffix.
func (h HashAlgorithm) Key(source, suffix string) string {
	d := h.new()
	d.Write([]byte(source))
	d.Write([]byte(suffix))
	return hex.EncodeToString(d.Sum(nil))
}
