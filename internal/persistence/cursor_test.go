package persistence

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/domain"
)

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2025, time.October, 27, 20, 0, 0, 123456789, time.FixedZone("CET", 3600))
	token := EncodeCursor(&domain.Cursor{At: at, ID: "workout-9"})

	decoded, err := DecodeCursor(token)
	require.NoError(t, err)
	require.True(t, decoded.At.Equal(at))
	require.Equal(t, "workout-9", decoded.ID)
}

func TestCursorEmpty(t *testing.T) {
	require.Empty(t, EncodeCursor(nil))

	decoded, err := DecodeCursor("  ")
	require.NoError(t, err)
	require.Nil(t, decoded)
}

func TestCursorRejectsGarbage(t *testing.T) {
	for _, token := range []string{
		"%%%",
		base64.URLEncoding.EncodeToString([]byte("no-separator")),
		base64.URLEncoding.EncodeToString([]byte("yesterday|id")),
		base64.URLEncoding.EncodeToString([]byte("2025-10-27T20:00:00Z|")),
	} {
		_, err := DecodeCursor(token)
		require.ErrorIs(t, err, ErrInvalidCursor, token)
	}
}
