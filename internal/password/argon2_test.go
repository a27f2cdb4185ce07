package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testArgon2Params = Argon2Params{MemoryKB: 8 * 1024, Time: 1, Parallelism: 1}

func TestArgon2_HashAndCompare(t *testing.T) {
	h, err := NewArgon2(testArgon2Params)
	require.NoError(t, err)

	hash, err := h.Hash("secret1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(hash), "$argon2id$v=19$m=8192,t=1,p=1$"))

	ok, err := h.Compare(hash, "secret1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Compare(hash, "secret2")
	require.NoError(t, err)
	assert.False(t, ok)

	other, err := h.Hash("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other)
}

func TestNewArgon2_InvalidParams(t *testing.T) {
	for name, p := range map[string]Argon2Params{
		"low memory":      {MemoryKB: 1024, Time: 1, Parallelism: 1},
		"zero time":       {MemoryKB: 8192, Time: 0, Parallelism: 1},
		"zero threads":    {MemoryKB: 8192, Time: 1, Parallelism: 0},
		"all zero values": {},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewArgon2(p)
			assert.Error(t, err)
		})
	}
}

func TestArgon2_CorruptHash(t *testing.T) {
	h, err := NewArgon2(testArgon2Params)
	require.NoError(t, err)

	for _, hash := range []string{
		"$argon2id$v=19$m=8192,t=1$c2FsdA$a2V5",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$a2V5",
		"$argon2id$v=19$m=8192,t=1,x=1$c2FsdA$a2V5",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdA$a2V5",
	} {
		ok, err := h.Compare([]byte(hash), "secret1")
		assert.Error(t, err, hash)
		assert.ErrorIs(t, err, errInvalidPHC, hash)
		assert.False(t, ok)
	}
}

func TestHasher_VerifiesBothAlgorithms(t *testing.T) {
	bc, err := New(Settings{Algorithm: AlgorithmBcrypt, BcryptCost: bcrypt.MinCost, Argon2: testArgon2Params})
	require.NoError(t, err)
	ar, err := New(Settings{Algorithm: AlgorithmArgon2ID, BcryptCost: bcrypt.MinCost, Argon2: testArgon2Params})
	require.NoError(t, err)

	bcHash, err := bc.Hash("pw1")
	require.NoError(t, err)
	arHash, err := ar.Hash("pw1")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(bcHash), "$2a$"))
	assert.True(t, isArgon2(arHash))

	for _, h := range []*Hasher{bc, ar} {
		for _, hash := range [][]byte{bcHash, arHash} {
			ok, err := h.Compare(hash, "pw1")
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = h.Compare(hash, "pw2")
			require.NoError(t, err)
			assert.False(t, ok)
		}
	}
}

func TestNew_UnknownAlgorithm(t *testing.T) {
	_, err := New(Settings{Algorithm: "md5", Argon2: testArgon2Params})
	assert.Error(t, err)
}
