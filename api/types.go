package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime/types"
)

type ErrorCode string

const (
	InputValidationError ErrorCode = "InputValidationError"
	AuthError            ErrorCode = "AuthError"
	InternalError        ErrorCode = "InternalError"
	EmptyBody            ErrorCode = "EmptyBody"
	InvalidBody          ErrorCode = "InvalidBody"
	NotFound             ErrorCode = "NotFound"
	LimitOutOfBounds     ErrorCode = "LimitOutOfBounds"
	InvalidCursor        ErrorCode = "InvalidCursor"
	MissingSignature     ErrorCode = "MissingSignature"
	InvalidSignature     ErrorCode = "InvalidSignature"
	UpstreamError        ErrorCode = "UpstreamError"
)

type Error struct {
	Message string       `json:"message"`
	Code    ErrorCode    `json:"code"`
	Fields  []FieldError `json:"fields,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type RegisterRequest struct {
	NameKanji           string  `json:"nameKanji"`
	NameKatakana        string  `json:"nameKatakana"`
	PhoneNumber         string  `json:"phoneNumber"`
	CompanyName         string  `json:"companyName"`
	Email               string  `json:"email"`
	BirthDate           string  `json:"birthDate"`
	ExternalUserId      *string `json:"externalUserId,omitempty"`
	ExternalDisplayName *string `json:"externalDisplayName,omitempty"`
	ExternalAvatarUrl   *string `json:"externalAvatarUrl,omitempty"`
}

type RegisterResponse struct {
	Message  string    `json:"message"`
	Id       uuid.UUID `json:"id"`
	IsUpdate bool      `json:"isUpdate"`
}

type CheckRegistrationRequest struct {
	ExternalUserId *string `json:"externalUserId,omitempty"`
}

type CheckRegistrationResponse struct {
	Registered   bool                 `json:"registered"`
	Registration *RegistrationSummary `json:"registration,omitempty"`
}

type RegistrationSummary struct {
	NameKanji string      `json:"nameKanji"`
	Email     types.Email `json:"email"`
	CreatedAt time.Time   `json:"createdAt"`
}

type GetUserInfoRequest struct {
	UserId *string `json:"userId,omitempty"`
}

type UserInfo struct {
	UserId      string  `json:"userId"`
	DisplayName string  `json:"displayName,omitempty"`
	PictureUrl  *string `json:"pictureUrl,omitempty"`
}

type ResolveIdentityResponse struct {
	User       *UserInfo `json:"user,omitempty"`
	Anonymous  bool      `json:"anonymous"`
	CleanQuery string    `json:"cleanQuery"`
	Error      *string   `json:"error,omitempty"`
}

type AdminLoginRequest struct {
	GoogleJWT string `json:"googleJWT"`
}

type AdminRegistration struct {
	Id                  uuid.UUID   `json:"id"`
	NameKanji           string      `json:"nameKanji"`
	NameKatakana        string      `json:"nameKatakana"`
	PhoneNumber         string      `json:"phoneNumber"`
	CompanyName         string      `json:"companyName"`
	Email               types.Email `json:"email"`
	BirthDate           types.Date  `json:"birthDate"`
	ExternalUserId      *string     `json:"externalUserId,omitempty"`
	ExternalDisplayName *string     `json:"externalDisplayName,omitempty"`
	ExternalAvatarUrl   *string     `json:"externalAvatarUrl,omitempty"`
	CreatedAt           time.Time   `json:"createdAt"`
	UpdatedAt           time.Time   `json:"updatedAt"`
}

type AdminRegistrationsResponse struct {
	Data        []AdminRegistration `json:"data"`
	Cursor      *string             `json:"cursor,omitempty"`
	HasNextPage bool                `json:"hasNextPage"`
}

type RichMenuRequest struct {
	RichMenuId string `json:"richMenuId"`
}

type RichMenuResponse struct {
	RichMenuId string `json:"richMenuId"`
}
