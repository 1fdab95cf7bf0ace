// Package tests contains test cases for models, repositories and business flows to avoid circular imports
package tests

import (
	"testing"

	"github.com/propertyshodh/lead-pipeline/app/dto"
	"github.com/propertyshodh/lead-pipeline/authz"
	businessflow "github.com/propertyshodh/lead-pipeline/business_flow"
	"github.com/propertyshodh/lead-pipeline/repository"
	testingutil "github.com/propertyshodh/lead-pipeline/testing"
	"github.com/propertyshodh/lead-pipeline/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAccountFlow(t *testing.T, testDB *testingutil.TestDB) businessflow.AdminAccountFlow {
	t.Helper()
	return businessflow.NewAdminAccountFlow(
		repository.NewAdminRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		testDB.DB,
	)
}

func TestAdminAccountFlow_CreateAdmin(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB) {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newAccountFlow(t, testDB)
		ctx := testingutil.CreateTestContext()

		operator, err := fixtures.CreateTestAdmin(string(authz.RoleAdmin))
		require.NoError(t, err)
		superadmin, err := fixtures.CreateTestAdmin(string(authz.RoleSuperAdmin))
		require.NoError(t, err)
		root, err := fixtures.CreateTestAdmin(string(authz.RoleSuperSuperAdmin))
		require.NoError(t, err)

		newReq := func(username, role string) *dto.CreateAdminRequest {
			return &dto.CreateAdminRequest{
				Username: username,
				Password: "StrongPass123!",
				Role:     role,
			}
		}

		t.Run("PlainOperatorCreatesNobody", func(t *testing.T) {
			_, err := flow.CreateAdmin(ctx, actorFor(operator), newReq("blocked_peer", string(authz.RoleAdmin)), nil)
			assert.True(t, businessflow.IsRoleNotCreatable(err))
		})

		t.Run("SuperadminCreatesOperator", func(t *testing.T) {
			resp, err := flow.CreateAdmin(ctx, actorFor(superadmin), newReq("fresh_operator", string(authz.RoleAdmin)), nil)
			require.NoError(t, err)
			assert.Equal(t, string(authz.RoleAdmin), resp.Admin.Role)
			require.NotNil(t, resp.Admin.IsActive)
			assert.True(t, *resp.Admin.IsActive)
		})

		t.Run("SuperadminCannotCreatePeer", func(t *testing.T) {
			_, err := flow.CreateAdmin(ctx, actorFor(superadmin), newReq("blocked_superadmin", string(authz.RoleSuperAdmin)), nil)
			assert.True(t, businessflow.IsRoleNotCreatable(err))
		})

		t.Run("RootCreatesOwnTier", func(t *testing.T) {
			resp, err := flow.CreateAdmin(ctx, actorFor(root), newReq("second_root", string(authz.RoleSuperSuperAdmin)), nil)
			require.NoError(t, err)
			assert.Equal(t, string(authz.RoleSuperSuperAdmin), resp.Admin.Role)
		})

		t.Run("DuplicateUsername", func(t *testing.T) {
			_, err := flow.CreateAdmin(ctx, actorFor(root), newReq("dup_operator", string(authz.RoleAdmin)), nil)
			require.NoError(t, err)
			_, err = flow.CreateAdmin(ctx, actorFor(root), newReq("dup_operator", string(authz.RoleAdmin)), nil)
			assert.True(t, businessflow.IsUsernameTaken(err))
		})

		t.Run("UnknownRole", func(t *testing.T) {
			_, err := flow.CreateAdmin(ctx, actorFor(root), newReq("odd_role", "moderator"), nil)
			assert.True(t, businessflow.IsInvalidRole(err))
		})
	})
}

func TestAdminAccountFlow_UpdateAdmin(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB) {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newAccountFlow(t, testDB)
		ctx := testingutil.CreateTestContext()

		superadmin, err := fixtures.CreateTestAdmin(string(authz.RoleSuperAdmin))
		require.NoError(t, err)
		root, err := fixtures.CreateTestAdmin(string(authz.RoleSuperSuperAdmin))
		require.NoError(t, err)

		t.Run("PhoneUpdate", func(t *testing.T) {
			target, err := fixtures.CreateTestAdmin(string(authz.RoleAdmin))
			require.NoError(t, err)

			updated, err := flow.UpdateAdmin(ctx, actorFor(superadmin), target.ID, &dto.UpdateAdminRequest{
				Phone: utils.ToPtr("+919800000042"),
			}, nil)
			require.NoError(t, err)
			require.NotNil(t, updated.Phone)
			assert.Equal(t, "+919800000042", *updated.Phone)
		})

		t.Run("PromotionNeedsCreatableRole", func(t *testing.T) {
			target, err := fixtures.CreateTestAdmin(string(authz.RoleAdmin))
			require.NoError(t, err)

			_, err = flow.UpdateAdmin(ctx, actorFor(superadmin), target.ID, &dto.UpdateAdminRequest{
				Role: utils.ToPtr(string(authz.RoleSuperAdmin)),
			}, nil)
			assert.True(t, businessflow.IsRoleNotCreatable(err))

			updated, err := flow.UpdateAdmin(ctx, actorFor(root), target.ID, &dto.UpdateAdminRequest{
				Role: utils.ToPtr(string(authz.RoleSuperAdmin)),
			}, nil)
			require.NoError(t, err)
			assert.Equal(t, string(authz.RoleSuperAdmin), updated.Role)
		})

		t.Run("SuperadminCannotTouchPeer", func(t *testing.T) {
			peer, err := fixtures.CreateTestAdmin(string(authz.RoleSuperAdmin))
			require.NoError(t, err)

			_, err = flow.UpdateAdmin(ctx, actorFor(superadmin), peer.ID, &dto.UpdateAdminRequest{
				IsActive: utils.ToPtr(false),
			}, nil)
			assert.True(t, businessflow.IsRoleNotManageable(err))
		})

		t.Run("SelfDeactivationBlocked", func(t *testing.T) {
			_, err := flow.UpdateAdmin(ctx, actorFor(root), root.ID, &dto.UpdateAdminRequest{
				IsActive: utils.ToPtr(false),
			}, nil)
			assert.True(t, businessflow.IsCannotModifySelf(err))
		})

		t.Run("MissingAccount", func(t *testing.T) {
			_, err := flow.UpdateAdmin(ctx, actorFor(root), 999999, &dto.UpdateAdminRequest{
				IsActive: utils.ToPtr(false),
			}, nil)
			assert.True(t, businessflow.IsAdminNotFound(err))
		})
	})
}

func TestAdminAccountFlow_DeactivateAdmin(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB) {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newAccountFlow(t, testDB)
		ctx := testingutil.CreateTestContext()

		superadmin, err := fixtures.CreateTestAdmin(string(authz.RoleSuperAdmin))
		require.NoError(t, err)

		t.Run("DisablesManagedAccount", func(t *testing.T) {
			target, err := fixtures.CreateTestAdmin(string(authz.RoleAdmin))
			require.NoError(t, err)

			require.NoError(t, flow.DeactivateAdmin(ctx, actorFor(superadmin), target.ID, nil))

			stored, err := repository.NewAdminRepository(testDB.DB).ByID(ctx, target.ID)
			require.NoError(t, err)
			require.NotNil(t, stored.IsActive)
			assert.False(t, *stored.IsActive)
		})

		t.Run("PeerTierDenied", func(t *testing.T) {
			peer, err := fixtures.CreateTestAdmin(string(authz.RoleSuperAdmin))
			require.NoError(t, err)

			err = flow.DeactivateAdmin(ctx, actorFor(superadmin), peer.ID, nil)
			assert.True(t, businessflow.IsRoleNotManageable(err))
		})

		t.Run("SelfDenied", func(t *testing.T) {
			err := flow.DeactivateAdmin(ctx, actorFor(superadmin), superadmin.ID, nil)
			assert.True(t, businessflow.IsCannotModifySelf(err))
		})
	})
}

func TestAdminAccountFlow_ListAdmins(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB) {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newAccountFlow(t, testDB)
		ctx := testingutil.CreateTestContext()

		operator, err := fixtures.CreateTestAdmin(string(authz.RoleAdmin))
		require.NoError(t, err)
		superadmin, err := fixtures.CreateTestAdmin(string(authz.RoleSuperAdmin))
		require.NoError(t, err)
		_, err = fixtures.CreateTestAdmin(string(authz.RoleSuperSuperAdmin))
		require.NoError(t, err)

		t.Run("OperatorSeesOwnTierOnly", func(t *testing.T) {
			resp, err := flow.ListAdmins(ctx, actorFor(operator), nil)
			require.NoError(t, err)
			require.NotEmpty(t, resp.Admins)
			for _, a := range resp.Admins {
				assert.Equal(t, string(authz.RoleAdmin), a.Role)
			}
		})

		t.Run("SuperadminSeesDownAndAcross", func(t *testing.T) {
			resp, err := flow.ListAdmins(ctx, actorFor(superadmin), nil)
			require.NoError(t, err)
			for _, a := range resp.Admins {
				assert.NotEqual(t, string(authz.RoleSuperSuperAdmin), a.Role)
			}
		})

		t.Run("HigherTierFilterDenied", func(t *testing.T) {
			_, err := flow.ListAdmins(ctx, actorFor(operator), &dto.ListAdminsRequest{
				Role: utils.ToPtr(string(authz.RoleSuperAdmin)),
			})
			assert.Error(t, err)
		})

		t.Run("RoleFilter", func(t *testing.T) {
			resp, err := flow.ListAdmins(ctx, actorFor(superadmin), &dto.ListAdminsRequest{
				Role: utils.ToPtr(string(authz.RoleAdmin)),
			})
			require.NoError(t, err)
			for _, a := range resp.Admins {
				assert.Equal(t, string(authz.RoleAdmin), a.Role)
			}
		})
	})
}
