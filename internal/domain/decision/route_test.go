package decision

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plugwarden/plugwarden/internal/domain/capability"
	"github.com/plugwarden/plugwarden/internal/infrastructure/persistence/memory"
)

func TestRouteChecker_NotDeclared(t *testing.T) {
	checker := NewRouteChecker(memory.NewCapabilityRepository())

	res := checker.Check(context.Background(), "test-plugin",
		capability.RouteRequest{RouteID: "admin.export"}, nil)

	assert.False(t, res.Allowed)
	assert.Equal(t, capability.ReasonRouteNotDeclared, res.Reason)
}

func TestRouteChecker_PendingDenied(t *testing.T) {
	repo := memory.NewCapabilityRepository()
	ctx := context.Background()
	_, _, err := repo.DeclareRoute(ctx, "test-plugin", "admin.export", capability.AssignmentMeta{})
	require.NoError(t, err)

	checker := NewRouteChecker(repo)
	res := checker.Check(ctx, "test-plugin", capability.RouteRequest{RouteID: "admin.export"}, nil)

	assert.False(t, res.Allowed)
	assert.Equal(t, capability.ReasonRouteNotApproved, res.Reason)
	assert.Equal(t, capability.RoutePending, res.Context["status"])
}

func TestRouteChecker_Approved(t *testing.T) {
	repo := memory.NewCapabilityRepository()
	ctx := context.Background()
	approval, _, err := repo.DeclareRoute(ctx, "test-plugin", "admin.export", capability.AssignmentMeta{})
	require.NoError(t, err)
	require.NoError(t, repo.SetRouteStatus("test-plugin", "admin.export", capability.RouteApproved, ""))

	checker := NewRouteChecker(repo)
	res := checker.Check(ctx, "test-plugin", capability.RouteRequest{RouteID: "admin.export"}, nil)

	assert.True(t, res.Allowed)
	require.NotNil(t, res.Matched)
	assert.Equal(t, approval.ID, res.Matched.ID)
}

func TestRouteChecker_GuardLock(t *testing.T) {
	repo := memory.NewCapabilityRepository()
	ctx := context.Background()
	_, _, err := repo.DeclareRoute(ctx, "test-plugin", "admin.export", capability.AssignmentMeta{})
	require.NoError(t, err)
	require.NoError(t, repo.SetRouteStatus("test-plugin", "admin.export", capability.RouteApproved, "admin"))

	checker := NewRouteChecker(repo)

	res := checker.Check(ctx, "test-plugin", capability.RouteRequest{RouteID: "admin.export", Guard: "admin"}, nil)
	assert.True(t, res.Allowed)

	res = checker.Check(ctx, "test-plugin", capability.RouteRequest{RouteID: "admin.export", Guard: "web"}, nil)
	assert.False(t, res.Allowed)
	assert.Equal(t, capability.ReasonGuardMismatch, res.Reason)

	// No guard at all does not satisfy a locked approval either.
	res = checker.Check(ctx, "test-plugin", capability.RouteRequest{RouteID: "admin.export"}, nil)
	assert.False(t, res.Allowed)
	assert.Equal(t, capability.ReasonGuardMismatch, res.Reason)
}

func TestRouteChecker_RevokedDenied(t *testing.T) {
	repo := memory.NewCapabilityRepository()
	ctx := context.Background()
	_, _, err := repo.DeclareRoute(ctx, "test-plugin", "admin.export", capability.AssignmentMeta{})
	require.NoError(t, err)
	require.NoError(t, repo.SetRouteStatus("test-plugin", "admin.export", capability.RouteRevoked, ""))

	checker := NewRouteChecker(repo)
	res := checker.Check(ctx, "test-plugin", capability.RouteRequest{RouteID: "admin.export"}, nil)

	assert.False(t, res.Allowed)
	assert.Equal(t, capability.ReasonRouteNotApproved, res.Reason)
	assert.Equal(t, capability.RouteRevoked, res.Context["status"])
}
