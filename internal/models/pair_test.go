package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-sync-service/internal/apperrors"
)

func TestPairKeySymmetric(t *testing.T) {
	ab, err := PairKey("alice", "bob")
	require.NoError(t, err)
	ba, err := PairKey("bob", "alice")
	require.NoError(t, err)

	assert.Equal(t, "alice~bob", ab)
	assert.Equal(t, ab, ba)
}

func TestPairKeyRejectsSelfPair(t *testing.T) {
	_, err := PairKey("alice", "alice")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalid))
}

func TestPairKeyRejectsBadUsernames(t *testing.T) {
	_, err := PairKey("", "bob")
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalid))

	_, err = PairKey("al~ce", "bob")
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalid))
}
