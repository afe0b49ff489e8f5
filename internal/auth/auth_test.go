package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-commerce-api/internal/apperr"
)

func TestTokens_IssueVerify(t *testing.T) {
	tok := NewTokens("s3cret", time.Hour)
	id := Identity{UserID: "u-1", Email: "a@b.c", Name: "Ana", Surname: "Diaz"}

	raw, err := tok.Issue(id)
	require.NoError(t, err)

	got, err := tok.Verify("Bearer " + raw)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	got, err = tok.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, id.UserID, got.UserID)
}

func TestTokens_Rejects(t *testing.T) {
	tok := NewTokens("s3cret", time.Hour)
	raw, err := tok.Issue(Identity{UserID: "u-1"})
	require.NoError(t, err)

	other := NewTokens("different", time.Hour)
	_, err = other.Verify(raw)
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))

	_, err = tok.Verify("")
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))

	_, err = tok.Verify("not-a-jwt")
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))
}

func TestTokens_Expired(t *testing.T) {
	tok := NewTokens("s3cret", time.Minute)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tok.now = func() time.Time { return base }
	raw, err := tok.Issue(Identity{UserID: "u-1"})
	require.NoError(t, err)

	tok.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, err = tok.Verify(raw)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))
	assert.Contains(t, err.Error(), "token expired")
}

func TestFromContext(t *testing.T) {
	_, err := FromContext(context.Background())
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))

	ctx := WithIdentity(context.Background(), Identity{UserID: "u-9"})
	id, err := FromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u-9", id.UserID)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)

	ok, err := CheckPassword(hash, "hunter2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckPassword(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPassword_TooLong(t *testing.T) {
	long := strings.Repeat("a", MaxPasswordBytes+8)
	_, err := HashPassword(long)
	assert.True(t, apperr.Is(err, apperr.KindInvalid))

	hash, err := HashPassword(strings.Repeat("a", MaxPasswordBytes))
	require.NoError(t, err)
	ok, err := CheckPassword(hash, long)
	require.NoError(t, err)
	assert.False(t, ok)
}

type record struct {
	id    string
	owner string
}

func TestOwned(t *testing.T) {
	ctx := context.Background()
	load := func(r record, err error) func(context.Context) (record, error) {
		return func(context.Context) (record, error) { return r, err }
	}
	owner := func(r record) string { return r.owner }

	got, err := Owned(ctx, "seller-a", load(record{id: "c1", owner: "seller-a"}, nil), owner)
	require.NoError(t, err)
	assert.Equal(t, "c1", got.id)

	_, err = Owned(ctx, "seller-b", load(record{id: "c1", owner: "seller-a"}, nil), owner)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = Owned(ctx, "seller-a", load(record{}, apperr.NotFound("client not found")), owner)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = Owned(ctx, "", load(record{id: "c1", owner: ""}, nil), owner)
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))

	boom := errors.New("db down")
	_, err = Owned(ctx, "seller-a", load(record{}, boom), owner)
	assert.ErrorIs(t, err, boom)
}
