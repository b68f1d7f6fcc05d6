package registration

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const BirthDateLayout = "2006-01-02"

// Length caps in characters. The kanji name is echoed back in bot messages,
// which LINE limits to 160 characters.
const (
	maxNameLength    = 50
	maxPhoneLength   = 20
	maxCompanyLength = 100
	maxEmailLength   = 254
)

var (
	katakanaPattern = regexp.MustCompile(`^[ァ-ヶー\s]+$`)
	phonePattern    = regexp.MustCompile(`^[0-9+\-()]+$`)
)

// FormData is a raw form submission, before any validation.
type FormData struct {
	NameKanji    string
	NameKatakana string
	PhoneNumber  string
	CompanyName  string
	Email        string
	BirthDate    string
}

// ValidatedForm holds normalised form values that passed validation.
type ValidatedForm struct {
	NameKanji    string
	NameKatakana string
	PhoneNumber  string
	CompanyName  string
	Email        string
	BirthDate    time.Time
}

type FieldError struct {
	Field   string
	Message string
}

type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return fmt.Sprintf("invalid fields: %s", strings.Join(names, ", "))
}

func (e *ValidationError) add(field string, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// Validate checks every field and reports all failures at once. Katakana,
// phone and email values are NFKC normalised first, so half-width katakana
// and full-width digits are accepted and stored in their canonical form.
func (f FormData) Validate(now time.Time) (ValidatedForm, error) {
	verr := &ValidationError{}

	nameKanji := strings.TrimSpace(f.NameKanji)
	if nameKanji == "" {
		verr.add("nameKanji", "お名前（漢字）を入力してください")
	} else if tooLong(nameKanji, maxNameLength) {
		verr.add("nameKanji", fmt.Sprintf("お名前（漢字）は%d文字以内で入力してください", maxNameLength))
	}

	nameKatakana := normalize(f.NameKatakana)
	if nameKatakana == "" {
		verr.add("nameKatakana", "オナマエ（カタカナ）を入力してください")
	} else if tooLong(nameKatakana, maxNameLength) {
		verr.add("nameKatakana", fmt.Sprintf("オナマエ（カタカナ）は%d文字以内で入力してください", maxNameLength))
	} else if !katakanaPattern.MatchString(nameKatakana) {
		verr.add("nameKatakana", "カタカナで入力してください")
	}

	phoneNumber := normalize(f.PhoneNumber)
	if phoneNumber == "" {
		verr.add("phoneNumber", "電話番号を入力してください")
	} else if tooLong(phoneNumber, maxPhoneLength) {
		verr.add("phoneNumber", fmt.Sprintf("電話番号は%d文字以内で入力してください", maxPhoneLength))
	} else if !phonePattern.MatchString(phoneNumber) {
		verr.add("phoneNumber", "正しい電話番号を入力してください")
	}

	companyName := strings.TrimSpace(f.CompanyName)
	if companyName == "" {
		verr.add("companyName", "会社名・屋号を入力してください")
	} else if tooLong(companyName, maxCompanyLength) {
		verr.add("companyName", fmt.Sprintf("会社名・屋号は%d文字以内で入力してください", maxCompanyLength))
	}

	email := normalize(f.Email)
	if email == "" {
		verr.add("email", "メールアドレスを入力してください")
	} else if tooLong(email, maxEmailLength) {
		verr.add("email", fmt.Sprintf("メールアドレスは%d文字以内で入力してください", maxEmailLength))
	} else if !isBareAddress(email) {
		verr.add("email", "正しいメールアドレスを入力してください")
	}

	var birthDate time.Time
	rawBirthDate := strings.TrimSpace(f.BirthDate)
	if rawBirthDate == "" {
		verr.add("birthDate", "生年月日を選択してください")
	} else {
		parsed, err := time.Parse(BirthDateLayout, rawBirthDate)
		if err != nil {
			verr.add("birthDate", "正しい生年月日を入力してください")
		} else if parsed.After(now) {
			verr.add("birthDate", "生年月日に未来の日付は指定できません")
		} else {
			birthDate = parsed
		}
	}

	if len(verr.Fields) > 0 {
		return ValidatedForm{}, NewInvalidFormError(verr)
	}

	return ValidatedForm{
		NameKanji:    nameKanji,
		NameKatakana: nameKatakana,
		PhoneNumber:  phoneNumber,
		CompanyName:  companyName,
		Email:        email,
		BirthDate:    birthDate,
	}, nil
}

func tooLong(s string, limit int) bool {
	return utf8.RuneCountInString(s) > limit
}

func normalize(s string) string {
	return strings.TrimSpace(norm.NFKC.String(s))
}

// isBareAddress accepts "user@example.com" but not "Name <user@example.com>".
func isBareAddress(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	return addr.Address == s && strings.Contains(addr.Address[strings.LastIndex(addr.Address, "@"):], ".")
}
