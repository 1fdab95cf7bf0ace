// Package tests contains test cases for models, repositories and business flows to avoid circular imports
package tests

import (
	"testing"
	"time"

	"github.com/propertyshodh/lead-pipeline/app/dto"
	"github.com/propertyshodh/lead-pipeline/app/services"
	"github.com/propertyshodh/lead-pipeline/authz"
	businessflow "github.com/propertyshodh/lead-pipeline/business_flow"
	"github.com/propertyshodh/lead-pipeline/repository"
	testingutil "github.com/propertyshodh/lead-pipeline/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthFlow(t *testing.T, testDB *testingutil.TestDB) (businessflow.AdminAuthFlow, services.TokenService) {
	t.Helper()

	tokenService, err := services.NewTokenService(
		time.Hour, 24*time.Hour,
		"lead-pipeline-test", "lead-pipeline-test",
		false, "", "", "test-secret-key-for-unit-tests-only",
	)
	require.NoError(t, err)

	flow := businessflow.NewAdminAuthFlow(
		repository.NewAdminRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		tokenService,
	)
	return flow, tokenService
}

func TestAdminAuthFlow_Login(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB) {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow, tokenService := newAuthFlow(t, testDB)
		ctx := testingutil.CreateTestContext()

		admin, err := fixtures.CreateTestAdmin(string(authz.RoleSuperAdmin))
		require.NoError(t, err)

		t.Run("Success", func(t *testing.T) {
			resp, err := flow.Login(ctx, &dto.AdminLoginRequest{
				Username: admin.Username,
				Password: "TestPass123!",
			}, nil)
			require.NoError(t, err)
			assert.Equal(t, admin.Username, resp.Admin.Username)
			assert.Equal(t, "Bearer", resp.Session.TokenType)
			require.NotEmpty(t, resp.Session.AccessToken)

			// Claims carry the stored role
			claims, err := tokenService.ValidateAdminToken(resp.Session.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, admin.ID, claims.AdminID)
			assert.Equal(t, string(authz.RoleSuperAdmin), claims.Role)

			// LastLoginAt is stamped
			stored, err := repository.NewAdminRepository(testDB.DB).ByID(ctx, admin.ID)
			require.NoError(t, err)
			assert.NotNil(t, stored.LastLoginAt)
		})

		t.Run("UnknownUsername", func(t *testing.T) {
			_, err := flow.Login(ctx, &dto.AdminLoginRequest{
				Username: "nobody_here",
				Password: "TestPass123!",
			}, nil)
			assert.True(t, businessflow.IsAdminNotFound(err))
		})

		t.Run("WrongPassword", func(t *testing.T) {
			_, err := flow.Login(ctx, &dto.AdminLoginRequest{
				Username: admin.Username,
				Password: "not-the-password",
			}, nil)
			assert.True(t, businessflow.IsIncorrectPassword(err))
		})

		t.Run("InactiveAccount", func(t *testing.T) {
			dormant, err := fixtures.CreateTestAdmin(string(authz.RoleAdmin))
			require.NoError(t, err)
			require.NoError(t, testDB.DB.Model(dormant).Update("is_active", false).Error)

			_, err = flow.Login(ctx, &dto.AdminLoginRequest{
				Username: dormant.Username,
				Password: "TestPass123!",
			}, nil)
			assert.True(t, businessflow.IsAccountInactive(err))
		})
	})
}

func TestAdminAuthFlow_RefreshAndLogout(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB) {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow, tokenService := newAuthFlow(t, testDB)
		ctx := testingutil.CreateTestContext()

		admin, err := fixtures.CreateTestAdmin(string(authz.RoleAdmin))
		require.NoError(t, err)

		resp, err := flow.Login(ctx, &dto.AdminLoginRequest{
			Username: admin.Username,
			Password: "TestPass123!",
		}, nil)
		require.NoError(t, err)

		t.Run("RefreshRoundTrip", func(t *testing.T) {
			session, err := flow.Refresh(ctx, resp.Session.RefreshToken)
			require.NoError(t, err)
			require.NotEmpty(t, session.AccessToken)

			claims, err := tokenService.ValidateAdminToken(session.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, admin.ID, claims.AdminID)
		})

		t.Run("AccessTokenIsNotARefreshToken", func(t *testing.T) {
			_, err := flow.Refresh(ctx, resp.Session.AccessToken)
			assert.Error(t, err)
		})

		t.Run("LogoutRevokesToken", func(t *testing.T) {
			actor := businessflow.Actor{ID: admin.ID, Role: authz.RoleAdmin}
			require.NoError(t, flow.Logout(ctx, actor, resp.Session.AccessToken, nil))

			_, err := tokenService.ValidateAdminToken(resp.Session.AccessToken)
			assert.Error(t, err)
		})
	})
}
