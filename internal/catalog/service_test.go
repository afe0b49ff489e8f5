package catalog_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-commerce-api/internal/apperr"
	"github.com/ariefcatur/go-commerce-api/internal/catalog"
	"github.com/ariefcatur/go-commerce-api/internal/memstore"
)

func newService() *catalog.Service {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	return &catalog.Service{
		Repo: memstore.New(),
		Now: func() time.Time {
			n++
			return base.Add(time.Duration(n) * time.Second)
		},
	}
}

func TestService_CRUD(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	p, err := svc.Create(ctx, catalog.Input{Name: "  Laptop ", Existence: 3, Price: decimal.RequireFromString("999.90")})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Laptop", p.Name)

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Existence, got.Existence)

	upd, err := svc.Update(ctx, p.ID, catalog.Input{Name: "Laptop Pro", Existence: 7, Price: decimal.NewFromInt(1200)})
	require.NoError(t, err)
	assert.Equal(t, "Laptop Pro", upd.Name)
	assert.Equal(t, p.CreatedAt, upd.CreatedAt)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.Delete(ctx, p.ID))
	_, err = svc.Get(ctx, p.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.True(t, apperr.Is(svc.Delete(ctx, p.ID), apperr.KindNotFound))
}

func TestService_Validation(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	cases := []catalog.Input{
		{Name: " ", Existence: 1},
		{Name: "x", Existence: -1},
		{Name: "x", Existence: 1, Price: decimal.NewFromInt(-5)},
	}
	for _, in := range cases {
		_, err := svc.Create(ctx, in)
		assert.True(t, apperr.Is(err, apperr.KindInvalid), "%+v", in)
	}

	_, err := svc.Update(ctx, "missing", catalog.Input{Name: "x"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestService_Search(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		_, err := svc.Create(ctx, catalog.Input{Name: fmt.Sprintf("Cable %02d", i), Existence: 1})
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, catalog.Input{Name: "Monitor", Existence: 1})
	require.NoError(t, err)

	found, err := svc.Search(ctx, "CABLE")
	require.NoError(t, err)
	require.Len(t, found, 10)
	assert.Equal(t, "Cable 00", found[0].Name)

	found, err = svc.Search(ctx, "nitor")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	_, err = svc.Search(ctx, "  ")
	assert.True(t, apperr.Is(err, apperr.KindInvalid))
}
