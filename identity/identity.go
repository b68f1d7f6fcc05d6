package identity

// ExternalUser is a LINE user as far as this service knows them. The zero
// value is the anonymous user.
type ExternalUser struct {
	UserID      string
	DisplayName string
	PictureURL  string
}

var Anonymous = ExternalUser{}

func (u ExternalUser) IsAnonymous() bool {
	return u.UserID == ""
}
