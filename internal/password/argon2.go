package password

import (
	"bytes"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/dtroode/account-server/internal/model"
)

const (
	argon2ID       = "argon2id"
	argon2Prefix   = "$" + argon2ID + "$"
	minMemoryKB    = 8 * 1024
	argon2SaltLen  = 16
	argon2KeyLen   = 32
	phcFieldsCount = 6
)

var errInvalidPHC = errors.New("invalid argon2id hash")

var _ model.PasswordHasher = (*Argon2)(nil)

// Argon2Params are the argon2id cost parameters used for new hashes.
type Argon2Params struct {
	MemoryKB    uint32
	Time        uint32
	Parallelism uint8
}

// Argon2 hashes passwords with argon2id and encodes them in PHC string format.
type Argon2 struct {
	params Argon2Params
}

// NewArgon2 validates params and returns a hasher.
func NewArgon2(params Argon2Params) (*Argon2, error) {
	if params.MemoryKB < minMemoryKB {
		return nil, fmt.Errorf("argon2 memory must be >= %d KB", minMemoryKB)
	}
	if params.Time < 1 {
		return nil, errors.New("argon2 time must be >= 1")
	}
	if params.Parallelism < 1 {
		return nil, errors.New("argon2 parallelism must be >= 1")
	}
	return &Argon2{params: params}, nil
}

func (a *Argon2) Hash(password string) ([]byte, error) {
	salt := make([]byte, argon2SaltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, a.params.Time, a.params.MemoryKB, a.params.Parallelism, argon2KeyLen)

	return []byte(fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2ID,
		argon2.Version,
		a.params.MemoryKB,
		a.params.Time,
		a.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)), nil
}

// Compare recomputes the key with the parameters stored in hash.
func (a *Argon2) Compare(hash []byte, password string) (bool, error) {
	params, salt, key, err := parsePHC(string(hash))
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), salt, params.Time, params.MemoryKB, params.Parallelism, uint32(len(key)))
	return subtle.ConstantTimeCompare(computed, key) == 1, nil
}

func isArgon2(hash []byte) bool {
	return bytes.HasPrefix(hash, []byte(argon2Prefix))
}

func parsePHC(encoded string) (Argon2Params, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != phcFieldsCount || parts[0] != "" || parts[1] != argon2ID {
		return Argon2Params{}, nil, nil, errInvalidPHC
	}
	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return Argon2Params{}, nil, nil, fmt.Errorf("%w: unsupported version", errInvalidPHC)
	}

	var params Argon2Params
	for _, pair := range strings.Split(parts[3], ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return Argon2Params{}, nil, nil, fmt.Errorf("%w: bad parameter %q", errInvalidPHC, pair)
		}
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil || n == 0 {
			return Argon2Params{}, nil, nil, fmt.Errorf("%w: bad parameter %q", errInvalidPHC, pair)
		}
		switch k {
		case "m":
			params.MemoryKB = uint32(n)
		case "t":
			params.Time = uint32(n)
		case "p":
			if n > 255 {
				return Argon2Params{}, nil, nil, fmt.Errorf("%w: bad parameter %q", errInvalidPHC, pair)
			}
			params.Parallelism = uint8(n)
		default:
			return Argon2Params{}, nil, nil, fmt.Errorf("%w: unknown parameter %q", errInvalidPHC, k)
		}
	}
	if params.MemoryKB == 0 || params.Time == 0 || params.Parallelism == 0 {
		return Argon2Params{}, nil, nil, fmt.Errorf("%w: missing parameters", errInvalidPHC)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return Argon2Params{}, nil, nil, fmt.Errorf("%w: bad salt", errInvalidPHC)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return Argon2Params{}, nil, nil, fmt.Errorf("%w: bad key", errInvalidPHC)
	}

	return params, salt, key, nil
}
