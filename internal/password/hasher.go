package password

import (
	"fmt"

	"github.com/dtroode/account-server/internal/model"
)

const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2ID = "argon2id"
)

// Settings selects the algorithm used for new password hashes.
type Settings struct {
	Algorithm  string
	BcryptCost int
	Argon2     Argon2Params
}

var _ model.PasswordHasher = (*Hasher)(nil)

// Hasher hashes with the configured algorithm and verifies hashes of either
// algorithm, so switching algorithms keeps existing users able to log in.
type Hasher struct {
	useArgon2 bool
	bcrypt    *Bcrypt
	argon2    *Argon2
}

// New builds a Hasher from settings.
func New(s Settings) (*Hasher, error) {
	argon, err := NewArgon2(s.Argon2)
	if err != nil {
		return nil, err
	}

	h := &Hasher{
		bcrypt: NewBcrypt(s.BcryptCost),
		argon2: argon,
	}

	switch s.Algorithm {
	case AlgorithmBcrypt, "":
	case AlgorithmArgon2ID:
		h.useArgon2 = true
	default:
		return nil, fmt.Errorf("unknown password algorithm %q", s.Algorithm)
	}

	return h, nil
}

func (h *Hasher) Hash(password string) ([]byte, error) {
	if h.useArgon2 {
		return h.argon2.Hash(password)
	}
	return h.bcrypt.Hash(password)
}

func (h *Hasher) Compare(hash []byte, password string) (bool, error) {
	if isArgon2(hash) {
		return h.argon2.Compare(hash, password)
	}
	return h.bcrypt.Compare(hash, password)
}
