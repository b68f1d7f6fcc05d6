package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/International-Combat-Archery-Alliance/line-registration/line"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLoginExchanger struct {
	ExchangeFunc func(ctx context.Context, code string) (line.Profile, error)
}

func (m *mockLoginExchanger) Exchange(ctx context.Context, code string) (line.Profile, error) {
	return m.ExchangeFunc(ctx, code)
}

type mockProfileFetcher struct {
	GetProfileFunc func(ctx context.Context, userID string) (line.Profile, error)
}

func (m *mockProfileFetcher) GetProfile(ctx context.Context, userID string) (line.Profile, error) {
	return m.GetProfileFunc(ctx, userID)
}

func failIfCalledLogin(t *testing.T) *mockLoginExchanger {
	return &mockLoginExchanger{
		ExchangeFunc: func(ctx context.Context, code string) (line.Profile, error) {
			t.Fatal("login exchange should not be called")
			return line.Profile{}, nil
		},
	}
}

func failIfCalledProfiles(t *testing.T) *mockProfileFetcher {
	return &mockProfileFetcher{
		GetProfileFunc: func(ctx context.Context, userID string) (line.Profile, error) {
			t.Fatal("profile lookup should not be called")
			return line.Profile{}, nil
		},
	}
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("no signals is anonymous", func(t *testing.T) {
		r := NewResolver(failIfCalledLogin(t), failIfCalledProfiles(t))

		user, err := r.Resolve(ctx)
		assert.NoError(t, err)
		assert.True(t, user.IsAnonymous())
	})

	t.Run("login code is exchanged for a profile", func(t *testing.T) {
		r := NewResolver(&mockLoginExchanger{
			ExchangeFunc: func(ctx context.Context, code string) (line.Profile, error) {
				assert.Equal(t, "code-1", code)
				return line.Profile{UserID: "U1", DisplayName: "Taro", PictureURL: "https://example.com/a.png"}, nil
			},
		}, failIfCalledProfiles(t))

		user, err := r.Resolve(ctx, LoginCodeSignal{Code: "code-1", State: "s"})
		require.NoError(t, err)
		assert.Equal(t, ExternalUser{UserID: "U1", DisplayName: "Taro", PictureURL: "https://example.com/a.png"}, user)
	})

	t.Run("missing login code degrades to anonymous", func(t *testing.T) {
		r := NewResolver(failIfCalledLogin(t), failIfCalledProfiles(t))

		user, err := r.Resolve(ctx, LoginCodeSignal{})
		assert.True(t, user.IsAnonymous())
		var idErr *Error
		require.ErrorAs(t, err, &idErr)
		assert.Equal(t, REASON_MISSING_CODE, idErr.Reason)
	})

	t.Run("token exchange failure degrades to anonymous", func(t *testing.T) {
		r := NewResolver(&mockLoginExchanger{
			ExchangeFunc: func(ctx context.Context, code string) (line.Profile, error) {
				return line.Profile{}, line.NewTokenExchangeFailedError("no token", nil)
			},
		}, nil)

		user, err := r.Resolve(ctx, LoginCodeSignal{Code: "bad"})
		assert.Equal(t, Anonymous, user)
		var idErr *Error
		require.ErrorAs(t, err, &idErr)
		assert.Equal(t, REASON_TOKEN_EXCHANGE_FAILED, idErr.Reason)
	})

	t.Run("profile failure after login degrades to anonymous", func(t *testing.T) {
		r := NewResolver(&mockLoginExchanger{
			ExchangeFunc: func(ctx context.Context, code string) (line.Profile, error) {
				return line.Profile{}, line.NewProfileFetchFailedError("profile broke", nil)
			},
		}, nil)

		user, err := r.Resolve(ctx, LoginCodeSignal{Code: "code"})
		assert.True(t, user.IsAnonymous())
		var idErr *Error
		require.ErrorAs(t, err, &idErr)
		assert.Equal(t, REASON_PROFILE_FETCH_FAILED, idErr.Reason)
	})

	t.Run("deep link is filled in from the bot profile", func(t *testing.T) {
		r := NewResolver(failIfCalledLogin(t), &mockProfileFetcher{
			GetProfileFunc: func(ctx context.Context, userID string) (line.Profile, error) {
				assert.Equal(t, "U2", userID)
				return line.Profile{UserID: "U2", DisplayName: "Hanako"}, nil
			},
		})

		user, err := r.Resolve(ctx, DeepLinkSignal{UserID: "U2"})
		require.NoError(t, err)
		assert.Equal(t, ExternalUser{UserID: "U2", DisplayName: "Hanako"}, user)
	})

	t.Run("deep link lookup failure keeps the id", func(t *testing.T) {
		r := NewResolver(failIfCalledLogin(t), &mockProfileFetcher{
			GetProfileFunc: func(ctx context.Context, userID string) (line.Profile, error) {
				return line.Profile{}, errors.New("timeout")
			},
		})

		user, err := r.Resolve(ctx, DeepLinkSignal{UserID: "U2"})
		assert.Equal(t, ExternalUser{UserID: "U2"}, user)
		assert.False(t, user.IsAnonymous())
		var idErr *Error
		require.ErrorAs(t, err, &idErr)
		assert.Equal(t, REASON_PROFILE_FETCH_FAILED, idErr.Reason)
	})

	t.Run("sdk profile is trusted", func(t *testing.T) {
		r := NewResolver(failIfCalledLogin(t), failIfCalledProfiles(t))
		sdkUser := ExternalUser{UserID: "U3", DisplayName: "Jiro"}

		user, err := r.Resolve(ctx, SDKProfileSignal{User: sdkUser})
		require.NoError(t, err)
		assert.Equal(t, sdkUser, user)
	})

	t.Run("login result beats deep link and sdk", func(t *testing.T) {
		r := NewResolver(failIfCalledLogin(t), failIfCalledProfiles(t))
		loginUser := ExternalUser{UserID: "U-login", DisplayName: "Login"}

		user, err := r.Resolve(ctx,
			SDKProfileSignal{User: ExternalUser{UserID: "U-sdk"}},
			DeepLinkSignal{UserID: "U-deep"},
			LoginResultSignal{User: loginUser},
		)
		require.NoError(t, err)
		assert.Equal(t, loginUser, user)
	})

	t.Run("deep link beats sdk", func(t *testing.T) {
		r := NewResolver(failIfCalledLogin(t), &mockProfileFetcher{
			GetProfileFunc: func(ctx context.Context, userID string) (line.Profile, error) {
				return line.Profile{UserID: userID, DisplayName: "Deep"}, nil
			},
		})

		user, err := r.Resolve(ctx,
			SDKProfileSignal{User: ExternalUser{UserID: "U-sdk"}},
			DeepLinkSignal{UserID: "U-deep"},
		)
		require.NoError(t, err)
		assert.Equal(t, "U-deep", user.UserID)
	})

	t.Run("empty deep link does not shadow sdk profile", func(t *testing.T) {
		r := NewResolver(failIfCalledLogin(t), failIfCalledProfiles(t))

		user, err := r.Resolve(ctx,
			DeepLinkSignal{},
			SDKProfileSignal{User: ExternalUser{UserID: "U-sdk"}},
		)
		require.NoError(t, err)
		assert.Equal(t, "U-sdk", user.UserID)
	})
}

func TestSignalKindString(t *testing.T) {
	assert.Equal(t, "LOGIN_CODE", LOGIN_CODE.String())
	assert.Equal(t, "DEEP_LINK", DEEP_LINK.String())
	assert.Equal(t, "SignalKind(9)", SignalKind(9).String())
}
