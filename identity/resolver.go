package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/International-Combat-Archery-Alliance/line-registration/line"
)

type LoginExchanger interface {
	Exchange(ctx context.Context, code string) (line.Profile, error)
}

type ProfileFetcher interface {
	GetProfile(ctx context.Context, userID string) (line.Profile, error)
}

type Resolver struct {
	login    LoginExchanger
	profiles ProfileFetcher
}

func NewResolver(login LoginExchanger, profiles ProfileFetcher) *Resolver {
	return &Resolver{
		login:    login,
		profiles: profiles,
	}
}

// Resolve turns the strongest of the given signals into an ExternalUser.
// Errors are never fatal to the caller: a failed login yields Anonymous and a
// failed deep link lookup yields a user carrying only the ID. The returned
// user is always safe to use alongside a non-nil error.
func (r *Resolver) Resolve(ctx context.Context, signals ...Signal) (ExternalUser, error) {
	signal, ok := Strongest(signals...)
	if !ok {
		return Anonymous, nil
	}

	switch s := signal.(type) {
	case LoginCodeSignal:
		return r.resolveLoginCode(ctx, s)
	case LoginResultSignal:
		return s.User, nil
	case DeepLinkSignal:
		return r.resolveDeepLink(ctx, s)
	case SDKProfileSignal:
		return s.User, nil
	default:
		return Anonymous, nil
	}
}

func (r *Resolver) resolveLoginCode(ctx context.Context, s LoginCodeSignal) (ExternalUser, error) {
	if s.Code == "" {
		return Anonymous, NewMissingCodeError("Login redirect did not include an authorization code")
	}

	if r.login == nil {
		return Anonymous, NewTokenExchangeFailedError("LINE Login is not configured", nil)
	}

	profile, err := r.login.Exchange(ctx, s.Code)
	if err != nil {
		var lineErr *line.Error
		if errors.As(err, &lineErr) && lineErr.Reason == line.REASON_PROFILE_FETCH_FAILED {
			return Anonymous, NewProfileFetchFailedError("Failed to fetch profile after login", err)
		}
		return Anonymous, NewTokenExchangeFailedError("Failed to exchange login code", err)
	}

	return fromProfile(profile), nil
}

func (r *Resolver) resolveDeepLink(ctx context.Context, s DeepLinkSignal) (ExternalUser, error) {
	partial := ExternalUser{UserID: s.UserID}
	if r.profiles == nil {
		return partial, nil
	}

	profile, err := r.profiles.GetProfile(ctx, s.UserID)
	if err != nil {
		return partial, NewProfileFetchFailedError(fmt.Sprintf("Failed to fetch profile for user %q", s.UserID), err)
	}

	user := fromProfile(profile)
	user.UserID = s.UserID
	return user, nil
}

func fromProfile(p line.Profile) ExternalUser {
	return ExternalUser{
		UserID:      p.UserID,
		DisplayName: p.DisplayName,
		PictureURL:  p.PictureURL,
	}
}
