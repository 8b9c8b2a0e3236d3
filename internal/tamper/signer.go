package tamper

import (
	"crypto/subtle"
	"encoding/binary"
	"errors"

	"golang.org/x/crypto/blake2b"

	"trialgate/internal/trial/models"
)

// MinKeyLength is the shortest accepted record signing key.
const MinKeyLength = 32

// Signer computes keyed MACs over the immutable fields of an ActiveTrial.
type Signer struct {
	key []byte
}

// NewSigner returns a Signer using key. blake2b accepts keys of up to 64 bytes.
func NewSigner(key []byte) (*Signer, error) {
	if len(key) < MinKeyLength {
		return nil, errors.New("record signing key must be at least 32 bytes")
	}
	if len(key) > blake2b.Size {
		return nil, errors.New("record signing key must be at most 64 bytes")
	}
	return &Signer{key: append([]byte(nil), key...)}, nil
}

// Sign returns the MAC over (user, join, hours, end).
func (s *Signer) Sign(t *models.ActiveTrial) []byte {
	h, err := blake2b.New256(s.key)
	if err != nil {
		// key length is checked in NewSigner
		panic(err)
	}
	var buf [32]byte
	binary.BigEndian.PutUint64(buf[0:8], uint64(t.UserID))
	binary.BigEndian.PutUint64(buf[8:16], uint64(t.JoinTime.UnixMicro()))
	binary.BigEndian.PutUint64(buf[16:24], uint64(t.TotalHours))
	binary.BigEndian.PutUint64(buf[24:32], uint64(t.TrialEndAt.UnixMicro()))
	h.Write(buf[:])
	return h.Sum(nil)
}

// Verify reports whether the record carries a valid MAC.
func (s *Signer) Verify(t *models.ActiveTrial) bool {
	if len(t.Signature) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(s.Sign(t), t.Signature) == 1
}
