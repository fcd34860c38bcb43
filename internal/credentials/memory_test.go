package credentials

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/UpmaxAutomation/coldforge-sub007/internal/registrar"
	id "github.com/UpmaxAutomation/coldforge-sub007/pkg/domain"
	"github.com/UpmaxAutomation/coldforge-sub007/pkg/platform/sentinel"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	orgID := id.OrganizationID(uuid.New())

	_, err := store.Get(ctx, orgID, registrar.TypePorkbun)
	require.ErrorIs(t, err, sentinel.ErrNoCredentials)

	require.NoError(t, store.Put(ctx, orgID, registrar.Credentials{
		Type:      registrar.TypePorkbun,
		APIKey:    "pk-key",
		APISecret: "pk-secret",
	}))

	creds, err := store.Get(ctx, orgID, registrar.TypePorkbun)
	require.NoError(t, err)
	require.Equal(t, "pk-key", creds.APIKey)

	// Put for the same type replaces the stored set.
	require.NoError(t, store.Put(ctx, orgID, registrar.Credentials{
		Type:   registrar.TypePorkbun,
		APIKey: "rotated",
	}))
	creds, err = store.Get(ctx, orgID, registrar.TypePorkbun)
	require.NoError(t, err)
	require.Equal(t, "rotated", creds.APIKey)
}

func TestMemoryStoreListsByTypeOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	orgID := id.OrganizationID(uuid.New())

	require.NoError(t, store.Put(ctx, orgID, registrar.Credentials{Type: registrar.TypePorkbun, APIKey: "p"}))
	require.NoError(t, store.Put(ctx, orgID, registrar.Credentials{Type: registrar.TypeCloudflare, APIKey: "c"}))
	require.NoError(t, store.Put(ctx, orgID, registrar.Credentials{Type: registrar.TypeNamecheap, APIKey: "n"}))

	all, err := store.List(ctx, orgID)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, registrar.TypeCloudflare, all[0].Type)
	require.Equal(t, registrar.TypeNamecheap, all[1].Type)
	require.Equal(t, registrar.TypePorkbun, all[2].Type)

	other, err := store.List(ctx, id.OrganizationID(uuid.New()))
	require.NoError(t, err)
	require.Empty(t, other)
}

func TestMemoryStoreScopesByOrganization(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	first := id.OrganizationID(uuid.New())
	second := id.OrganizationID(uuid.New())

	require.NoError(t, store.Put(ctx, first, registrar.Credentials{Type: registrar.TypeCloudflare, APIKey: "a"}))

	_, err := store.Get(ctx, second, registrar.TypeCloudflare)
	require.ErrorIs(t, err, sentinel.ErrNoCredentials)
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	orgID := id.OrganizationID(uuid.New())

	require.NoError(t, store.Put(ctx, orgID, registrar.Credentials{Type: registrar.TypeNamecheap, APIKey: "n"}))
	require.NoError(t, store.Delete(ctx, orgID, registrar.TypeNamecheap))

	_, err := store.Get(ctx, orgID, registrar.TypeNamecheap)
	require.ErrorIs(t, err, sentinel.ErrNoCredentials)

	// Deleting an absent set is a no-op.
	require.NoError(t, store.Delete(ctx, orgID, registrar.TypeNamecheap))
}
