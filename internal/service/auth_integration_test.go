//go:build integration

package service

import (
	"context"
	"testing"

	"github.com/cadenlabs/brandgov/internal/domain"
	"github.com/cadenlabs/brandgov/internal/repository"
	"github.com/cadenlabs/brandgov/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_Integration_CreatePrincipal(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	principalRepo := repository.NewPrincipalRepository(pool)
	keyRepo := repository.NewAPIKeyRepository(pool)

	service := NewAuthService(principalRepo, keyRepo, &DefaultUUIDGenerator{})

	principal, err := service.CreatePrincipal(ctx, "Casey@Acme.Test", domain.RoleCreator)
	require.NoError(t, err)
	assert.NotEmpty(t, principal.ID)
	assert.Equal(t, "casey@acme.test", principal.Email)

	retrieved, err := principalRepo.GetByID(ctx, principal.ID)
	require.NoError(t, err)
	assert.Equal(t, principal.ID, retrieved.ID)
	assert.Equal(t, domain.RoleCreator, retrieved.Role)

	_, err = service.CreatePrincipal(ctx, "casey@acme.test", domain.RoleApproverA)
	assert.ErrorIs(t, err, domain.ErrPrincipalAlreadyExists)
}

func TestAuthService_Integration_APIKeyFlow(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	principalRepo := repository.NewPrincipalRepository(pool)
	keyRepo := repository.NewAPIKeyRepository(pool)

	service := NewAuthService(principalRepo, keyRepo, &DefaultUUIDGenerator{})

	principal, err := service.CreatePrincipal(ctx, "avery@acme.test", domain.RoleApproverA)
	require.NoError(t, err)

	token, err := service.CreateAPIKey(ctx, principal.ID, "laptop")
	require.NoError(t, err)
	assert.True(t, IsValidAPIToken(token))

	authed, err := service.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, principal.ID, authed.ID)
	assert.Equal(t, domain.RoleApproverA, authed.Role)

	keys, err := service.ListAPIKeys(ctx, principal.ID)
	require.NoError(t, err)
	require.Len(t, keys, 1)

	require.NoError(t, service.RevokeAPIKey(ctx, keys[0].ID))

	_, err = service.Authenticate(ctx, token)
	assert.ErrorIs(t, err, domain.ErrAPIKeyRevoked)
}
