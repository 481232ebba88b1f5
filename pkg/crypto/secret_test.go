package crypto

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashAndCheckSecret(t *testing.T) {
	hash, err := HashSecret("pk_test_0123abcd")
	assert.NoError(t, err)
	assert.NotEmpty(t, hash)

	assert.True(t, CheckSecret("pk_test_0123abcd", hash))
	assert.False(t, CheckSecret("pk_test_other", hash))
	assert.False(t, CheckSecret("pk_test_0123abcd", "not-a-hash"))
}

func TestGenerateRandomToken(t *testing.T) {
	token, err := GenerateRandomToken(16)
	assert.NoError(t, err)
	assert.Len(t, token, 32)

	other, err := GenerateRandomToken(16)
	assert.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestHashSecretAndGenerateRandomToken_ErrorBranches(t *testing.T) {
	origBcrypt := bcryptGenerateFromPassword
	origRandRead := randomRead
	t.Cleanup(func() {
		bcryptGenerateFromPassword = origBcrypt
		randomRead = origRandRead
	})

	bcryptGenerateFromPassword = func([]byte, int) ([]byte, error) {
		return nil, errors.New("bcrypt failed")
	}
	_, err := HashSecret("pk_test_0123abcd")
	assert.Error(t, err)

	bcryptGenerateFromPassword = origBcrypt
	randomRead = func([]byte) (int, error) {
		return 0, errors.New("rand failed")
	}
	_, err = GenerateRandomToken(16)
	assert.Error(t, err)
}
