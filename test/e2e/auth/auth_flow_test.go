package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edustack/auth/pkg/authclient"
)

// TestRegisterLoginRefreshLifecycle walks the primary token lifecycle:
// a new account registers, logs in, rotates its refresh token and then
// proves the rotated-away token is dead.
func TestRegisterLoginRefreshLifecycle(t *testing.T) {
	client := setupAuthContainer(t)
	ctx := t.Context()

	username := uniqueName("alice")
	email := username + "@example.com"
	password := "correct horse battery"

	reg, err := client.Register(ctx, authclient.RegisterRequest{
		Username:  username,
		Email:     email,
		Password:  password,
		FirstName: "Alice",
		LastName:  "Example",
	})
	require.NoError(t, err)
	require.NotEmpty(t, reg.AccessToken)
	require.NotEmpty(t, reg.RefreshToken)
	assert.Equal(t, "Bearer", reg.TokenType)
	assert.Equal(t, username, reg.Username)

	login, err := client.Login(ctx, username, password)
	require.NoError(t, err)
	require.NotEmpty(t, login.RefreshToken)
	assert.Equal(t, reg.UserID, login.UserID)

	// Email works as the identifier too.
	_, err = client.Login(ctx, email, password)
	require.NoError(t, err)

	rotated, err := client.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, rotated.RefreshToken)
	assert.NotEqual(t, login.RefreshToken, rotated.RefreshToken)

	// Reusing the rotated-away token must fail.
	_, err = client.Refresh(ctx, login.RefreshToken)
	require.Error(t, err)
	assert.True(t, authclient.IsCode(err, "token_revoked"), "got %v", err)

	// The replacement still works.
	_, err = client.Refresh(ctx, rotated.RefreshToken)
	require.NoError(t, err)
}

func TestLoginFailures(t *testing.T) {
	client := setupAuthContainer(t)
	ctx := t.Context()

	username := uniqueName("bob")
	_, err := client.Register(ctx, authclient.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)

	_, err = client.Login(ctx, username, "wrong password!")
	assert.True(t, authclient.IsCode(err, "invalid_credentials"), "got %v", err)

	_, err = client.Login(ctx, uniqueName("ghost"), "whatever password")
	assert.True(t, authclient.IsCode(err, "invalid_credentials"), "got %v", err)
}

func TestDuplicateRegistration(t *testing.T) {
	client := setupAuthContainer(t)
	ctx := t.Context()

	username := uniqueName("carol")
	req := authclient.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "correct horse battery",
	}

	_, err := client.Register(ctx, req)
	require.NoError(t, err)

	_, err = client.Register(ctx, req)
	assert.True(t, authclient.IsCode(err, "user_already_exists"), "got %v", err)
}

func TestLogoutRevokesToken(t *testing.T) {
	client := setupAuthContainer(t)
	ctx := t.Context()

	username := uniqueName("dave")
	reg, err := client.Register(ctx, authclient.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)

	require.NoError(t, client.Logout(ctx, reg.RefreshToken))

	_, err = client.Refresh(ctx, reg.RefreshToken)
	assert.True(t, authclient.IsCode(err, "token_revoked"), "got %v", err)
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	client := setupAuthContainer(t)
	ctx := t.Context()

	username := uniqueName("erin")
	password := "correct horse battery"
	reg, err := client.Register(ctx, authclient.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: password,
	})
	require.NoError(t, err)

	newPassword := "a whole new password"
	require.NoError(t, client.ChangePassword(ctx, reg.AccessToken, password, newPassword))

	// The pre-change session is revoked.
	_, err = client.Refresh(ctx, reg.RefreshToken)
	assert.True(t, authclient.IsCode(err, "token_revoked"), "got %v", err)

	// Old password is dead, new one works.
	_, err = client.Login(ctx, username, password)
	assert.True(t, authclient.IsCode(err, "invalid_credentials"), "got %v", err)

	_, err = client.Login(ctx, username, newPassword)
	require.NoError(t, err)
}

func TestForgotPasswordAlwaysAccepts(t *testing.T) {
	client := setupAuthContainer(t)
	ctx := t.Context()

	// Unknown address: still a 202.
	require.NoError(t, client.ForgotPassword(ctx, uniqueName("ghost")+"@example.com"))

	username := uniqueName("frank")
	_, err := client.Register(ctx, authclient.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)

	require.NoError(t, client.ForgotPassword(ctx, username+"@example.com"))
}

func TestInternalUserLookup(t *testing.T) {
	client := setupAuthContainer(t)
	ctx := t.Context()

	username := uniqueName("grace")
	reg, err := client.Register(ctx, authclient.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)

	// Wrong key is rejected.
	_, err = client.Internal("wrong-key").GetUser(ctx, reg.UserID)
	require.Error(t, err)

	internal := client.Internal(testAPIKey)

	user, err := internal.GetUser(ctx, reg.UserID)
	require.NoError(t, err)
	assert.Equal(t, username, user.Username)
	assert.True(t, user.Enabled)

	user, err = internal.GetUserByUsername(ctx, username)
	require.NoError(t, err)
	assert.Equal(t, reg.UserID, user.ID)

	// Disabling kills login and existing sessions.
	require.NoError(t, internal.SetUserEnabled(ctx, reg.UserID, false))

	_, err = client.Login(ctx, username, "correct horse battery")
	assert.True(t, authclient.IsCode(err, "account_disabled"), "got %v", err)

	_, err = client.Refresh(ctx, reg.RefreshToken)
	assert.True(t, authclient.IsCode(err, "token_revoked"), "got %v", err)
}

func TestRateLimitEngages(t *testing.T) {
	client := setupAuthContainerWithDefaultRateLimits(t)
	ctx := t.Context()

	// The strict profile allows a small burst; hammering login must
	// eventually yield a throttled error rather than invalid_credentials.
	var limited bool
	for i := 0; i < 20; i++ {
		_, err := client.Login(ctx, "nobody", "wrong password!")
		require.Error(t, err)
		if apiErr, ok := err.(*authclient.APIError); ok && apiErr.StatusCode == 429 {
			limited = true
			break
		}
	}
	assert.True(t, limited, "expected a 429 before 20 attempts")
}
