//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/cadenlabs/brandgov/internal/domain"
	"github.com/cadenlabs/brandgov/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPrincipal(ctx context.Context, t *testing.T, repo *PrincipalRepository, email string, role domain.Role) *domain.Principal {
	t.Helper()
	p := domain.NewPrincipal(uuid.NewString(), email, role, time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, repo.Create(ctx, p))
	return p
}

func TestPrincipalRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewPrincipalRepository(pool)

	p := seedPrincipal(ctx, t, repo, "casey@acme.test", domain.RoleCreator)

	retrieved, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, retrieved.ID)
	assert.Equal(t, "casey@acme.test", retrieved.Email)
	assert.Equal(t, domain.RoleCreator, retrieved.Role)
}

func TestPrincipalRepository_GetByEmail(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewPrincipalRepository(pool)

	p := seedPrincipal(ctx, t, repo, "avery@acme.test", domain.RoleApproverA)

	retrieved, err := repo.GetByEmail(ctx, "avery@acme.test")
	require.NoError(t, err)
	assert.Equal(t, p.ID, retrieved.ID)

	_, err = repo.GetByEmail(ctx, "nobody@acme.test")
	assert.ErrorIs(t, err, domain.ErrPrincipalNotFound)
}

func TestPrincipalRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewPrincipalRepository(pool)

	_, err := repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrPrincipalNotFound)
}

func TestPrincipalRepository_Create_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewPrincipalRepository(pool)

	seedPrincipal(ctx, t, repo, "casey@acme.test", domain.RoleCreator)

	dup := domain.NewPrincipal(uuid.NewString(), "casey@acme.test", domain.RoleApproverB, time.Now().UTC().Truncate(time.Microsecond))
	err := repo.Create(ctx, dup)
	assert.Error(t, err)
}

func TestPrincipalRepository_List(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewPrincipalRepository(pool)

	first := domain.NewPrincipal(uuid.NewString(), "casey@acme.test", domain.RoleCreator,
		time.Now().UTC().Add(-time.Minute).Truncate(time.Microsecond))
	require.NoError(t, repo.Create(ctx, first))
	second := seedPrincipal(ctx, t, repo, "avery@acme.test", domain.RoleApproverB)

	principals, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, principals, 2)
	assert.Equal(t, first.ID, principals[0].ID)
	assert.Equal(t, second.ID, principals[1].ID)
}
