package api

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/International-Combat-Archery-Alliance/line-registration/line"
	"github.com/International-Combat-Archery-Alliance/line-registration/ptr"
	"github.com/International-Combat-Archery-Alliance/line-registration/registration"
	"github.com/International-Combat-Archery-Alliance/line-registration/slices"
	"github.com/oapi-codegen/runtime/types"
)

const (
	defaultAdminPageSize = 50
	maxAdminPageSize     = 100

	exportPageSize       = 100
	exportDateTimeLayout = "2006/01/02 15:04:05"
)

var exportHeader = []string{
	"登録ID",
	"お名前（漢字）",
	"オナマエ（カタカナ）",
	"電話番号",
	"会社名・屋号",
	"メールアドレス",
	"生年月日",
	"LINEユーザーID",
	"LINE表示名",
	"登録日時",
}

func (a *API) GetAdminRegistrations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := a.adminLogger(ctx)
	q := r.URL.Query()

	limit := defaultAdminPageSize
	if rawLimit := q.Get("limit"); rawLimit != "" {
		userLimit, err := strconv.Atoi(rawLimit)
		if err != nil || userLimit < 1 || userLimit > maxAdminPageSize {
			a.writeError(w, r, http.StatusBadRequest, LimitOutOfBounds, fmt.Sprintf("Limit must be between 1 and %d", maxAdminPageSize))
			return
		}
		limit = userLimit
	}

	var cursor *string
	if rawCursor := q.Get("cursor"); rawCursor != "" {
		cursor = &rawCursor
	}

	result, err := a.db.GetAllRegistrations(ctx, int32(limit), cursor)
	if err != nil {
		logger.Error("Failed to get registrations from the DB", "error", err)

		var regErr *registration.Error
		if errors.As(err, &regErr) {
			switch regErr.Reason {
			case registration.REASON_INVALID_CURSOR:
				a.writeError(w, r, http.StatusBadRequest, InvalidCursor, "Passed in cursor is invalid")
				return
			}
		}
		a.writeError(w, r, http.StatusInternalServerError, InternalError, "Internal server error")
		return
	}

	a.writeJSON(w, r, http.StatusOK, AdminRegistrationsResponse{
		Data:        slices.Map(result.Data, registrationToAdminRegistration),
		Cursor:      result.Cursor,
		HasNextPage: result.HasNextPage,
	})
}

func registrationToAdminRegistration(reg registration.Registration) AdminRegistration {
	return AdminRegistration{
		Id:                  reg.ID,
		NameKanji:           reg.NameKanji,
		NameKatakana:        reg.NameKatakana,
		PhoneNumber:         reg.PhoneNumber,
		CompanyName:         reg.CompanyName,
		Email:               types.Email(reg.Email),
		BirthDate:           types.Date{Time: reg.BirthDate},
		ExternalUserId:      ptr.StringOrNil(reg.ExternalUserID),
		ExternalDisplayName: ptr.StringOrNil(reg.ExternalDisplayName),
		ExternalAvatarUrl:   ptr.StringOrNil(reg.ExternalAvatarURL),
		CreatedAt:           reg.CreatedAt,
		UpdatedAt:           reg.UpdatedAt,
	}
}

func (a *API) GetAdminRegistrationsExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := a.adminLogger(ctx)

	regs, err := registration.ListAll(ctx, a.db, exportPageSize)
	if err != nil {
		logger.Error("Failed to load registrations for export", "error", err)
		a.writeError(w, r, http.StatusInternalServerError, InternalError, "Internal server error")
		return
	}

	loc := a.settings.DisplayLocation
	filename := fmt.Sprintf("line_registrations_%s.csv", time.Now().In(loc).Format(time.DateOnly))

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)

	// BOM so spreadsheet apps pick up UTF-8.
	_, err = w.Write([]byte("\ufeff"))
	if err != nil {
		logger.Error("Failed to write export", "error", err)
		return
	}

	cw := csv.NewWriter(w)
	rows := append([][]string{exportHeader}, slices.Map(regs, func(reg registration.Registration) []string {
		return registrationToCSVRow(reg, loc)
	})...)
	err = cw.WriteAll(rows)
	if err != nil {
		logger.Error("Failed to write export", "error", err)
		return
	}

	logger.Info("Exported registrations", "count", len(regs))
}

func registrationToCSVRow(reg registration.Registration, loc *time.Location) []string {
	return []string{
		reg.ID.String(),
		reg.NameKanji,
		reg.NameKatakana,
		reg.PhoneNumber,
		reg.CompanyName,
		reg.Email,
		reg.BirthDate.Format(registration.BirthDateLayout),
		reg.ExternalUserID,
		reg.ExternalDisplayName,
		reg.CreatedAt.In(loc).Format(exportDateTimeLayout),
	}
}

func (a *API) PostRichMenuCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := a.adminLogger(ctx)

	id, err := a.richMenus.CreateRichMenu(ctx, line.RegistrationRichMenu())
	if err != nil {
		logger.Error("Failed to create rich menu", "error", err)
		a.writeError(w, r, http.StatusBadGateway, UpstreamError, "Failed to create rich menu")
		return
	}

	logger.Info("Created rich menu", "richMenuId", id)
	a.writeJSON(w, r, http.StatusOK, RichMenuResponse{RichMenuId: id})
}

func (a *API) PostRichMenuSet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := a.adminLogger(ctx)

	var body RichMenuRequest
	err := decodeBody(w, r, &body)
	if err != nil {
		a.writeDecodeError(w, r, err)
		return
	}
	if body.RichMenuId == "" {
		a.writeError(w, r, http.StatusBadRequest, InputValidationError, "richMenuId is required")
		return
	}

	err = a.richMenus.SetDefaultRichMenu(ctx, body.RichMenuId)
	if err != nil {
		logger.Error("Failed to set default rich menu", "error", err, "richMenuId", body.RichMenuId)
		a.writeError(w, r, http.StatusBadGateway, UpstreamError, "Failed to set default rich menu")
		return
	}

	logger.Info("Set default rich menu", "richMenuId", body.RichMenuId)
	a.writeJSON(w, r, http.StatusOK, RichMenuResponse{RichMenuId: body.RichMenuId})
}
