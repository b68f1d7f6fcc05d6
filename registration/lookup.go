package registration

import (
	"context"
	"fmt"
)

// CheckExisting returns the summary of the registration held by
// externalUserID. An empty ID never matches anything.
func CheckExisting(ctx context.Context, externalUserID string, repo Repository) (Summary, error) {
	if externalUserID == "" {
		return Summary{}, NewRegistrationDoesNotExistsError("No external user ID given", nil)
	}

	reg, err := repo.GetRegistrationByExternalUserID(ctx, externalUserID)
	if err != nil {
		if IsReason(err, REASON_REGISTRATION_DOES_NOT_EXIST) {
			return Summary{}, err
		}
		return Summary{}, NewFailedToFetchError(fmt.Sprintf("Failed to look up registration for external user %q", externalUserID), err)
	}

	return reg.Summary(), nil
}

// ListAll pages through every registration, newest first.
func ListAll(ctx context.Context, repo Repository, pageSize int32) ([]Registration, error) {
	var all []Registration
	var cursor *string
	for {
		resp, err := repo.GetAllRegistrations(ctx, pageSize, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, resp.Data...)
		if !resp.HasNextPage || resp.Cursor == nil {
			return all, nil
		}
		cursor = resp.Cursor
	}
}
