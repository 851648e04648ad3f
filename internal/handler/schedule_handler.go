package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/tallyapp/tally-backend/internal/domain"
	"github.com/tallyapp/tally-backend/internal/middleware"
	"github.com/tallyapp/tally-backend/internal/recurrence"
	"github.com/tallyapp/tally-backend/internal/service"
)

// DefaultDueHorizon is how far ahead the due listing looks when the caller
// does not say.
const DefaultDueHorizon = 7 * 24 * time.Hour

// ScheduleHandler handles scheduled transaction HTTP requests
type ScheduleHandler struct {
	scheduleService *service.ScheduleService
}

// NewScheduleHandler creates a new ScheduleHandler
func NewScheduleHandler(scheduleService *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleService: scheduleService}
}

// ScheduleRequest represents the create/update schedule request body
type ScheduleRequest struct {
	Name            string   `json:"name"`
	Type            string   `json:"type"`
	Amount          string   `json:"amount"`
	FromAccountID   *int32   `json:"fromAccountId,omitempty"`
	ToAccountID     *int32   `json:"toAccountId,omitempty"`
	CategoryID      *int32   `json:"categoryId,omitempty"`
	Payee           *string  `json:"payee,omitempty"`
	Memo            *string  `json:"memo,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	Asset           *string  `json:"asset,omitempty"`
	Units           *string  `json:"units,omitempty"`
	NextOccurrence  string   `json:"nextOccurrence"`
	Pattern         string   `json:"pattern"`
	RecurrenceValue int32    `json:"recurrenceValue,omitempty"`
	Enabled         *bool    `json:"enabled,omitempty"`
}

func (r ScheduleRequest) toInput() (service.ScheduleInput, []ValidationError) {
	var errs []ValidationError

	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		errs = append(errs, ValidationError{Field: "amount", Message: "Must be a valid decimal number"})
	}

	var units *decimal.Decimal
	if r.Units != nil {
		u, err := decimal.NewFromString(*r.Units)
		if err != nil {
			errs = append(errs, ValidationError{Field: "units", Message: "Must be a valid decimal number"})
		} else {
			units = &u
		}
	}

	nextOccurrence, err := time.Parse(time.RFC3339, r.NextOccurrence)
	if err != nil {
		nextOccurrence, err = time.Parse("2006-01-02", r.NextOccurrence)
	}
	if err != nil {
		errs = append(errs, ValidationError{Field: "nextOccurrence", Message: "Must be an RFC 3339 timestamp or YYYY-MM-DD date"})
	}

	if len(errs) > 0 {
		return service.ScheduleInput{}, errs
	}

	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}

	return service.ScheduleInput{
		Name:            r.Name,
		Type:            domain.TransactionType(r.Type),
		Amount:          amount,
		FromAccountID:   r.FromAccountID,
		ToAccountID:     r.ToAccountID,
		CategoryID:      r.CategoryID,
		Payee:           r.Payee,
		Memo:            r.Memo,
		Tags:            r.Tags,
		Asset:           r.Asset,
		Units:           units,
		NextOccurrence:  nextOccurrence,
		Pattern:         recurrence.Pattern(r.Pattern),
		RecurrenceValue: r.RecurrenceValue,
		Enabled:         enabled,
	}, nil
}

// CreateSchedule handles POST /api/v1/schedules
func (h *ScheduleHandler) CreateSchedule(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	var req ScheduleRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	input, errs := req.toInput()
	if errs != nil {
		return NewValidationError(c, "Validation failed", errs)
	}

	schedule, err := h.scheduleService.CreateSchedule(workspaceID, input)
	if err != nil {
		return scheduleError(c, err, workspaceID, 0, "create")
	}

	log.Info().Int32("workspace_id", workspaceID).Int32("schedule_id", schedule.ID).Str("pattern", string(schedule.Pattern)).Msg("Schedule created")
	return c.JSON(http.StatusCreated, schedule)
}

// GetSchedules handles GET /api/v1/schedules
func (h *ScheduleHandler) GetSchedules(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	var enabledOnly *bool
	if v := c.QueryParam("enabled"); v != "" {
		parsed := v == "true"
		enabledOnly = &parsed
	}

	schedules, err := h.scheduleService.ListSchedules(workspaceID, enabledOnly)
	if err != nil {
		log.Error().Err(err).Int32("workspace_id", workspaceID).Msg("Failed to get schedules")
		return NewInternalError(c, "Failed to get schedules")
	}
	return c.JSON(http.StatusOK, schedules)
}

// GetDueSchedules handles GET /api/v1/schedules/due
func (h *ScheduleHandler) GetDueSchedules(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	horizon := DefaultDueHorizon
	if v := c.QueryParam("days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days < 0 {
			return NewValidationError(c, "Invalid days", nil)
		}
		horizon = time.Duration(days) * 24 * time.Hour
	}

	due, err := h.scheduleService.ListDue(workspaceID, horizon)
	if err != nil {
		log.Error().Err(err).Int32("workspace_id", workspaceID).Msg("Failed to get due schedules")
		return NewInternalError(c, "Failed to get due schedules")
	}
	return c.JSON(http.StatusOK, due)
}

// GetSchedule handles GET /api/v1/schedules/:id
func (h *ScheduleHandler) GetSchedule(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, err := parseIDParam(c)
	if err != nil {
		return NewValidationError(c, "Invalid schedule ID", nil)
	}

	schedule, err := h.scheduleService.GetScheduleByID(workspaceID, id)
	if err != nil {
		if errors.Is(err, domain.ErrScheduleNotFound) {
			return NewNotFoundError(c, "Schedule not found")
		}
		log.Error().Err(err).Int32("workspace_id", workspaceID).Int32("schedule_id", id).Msg("Failed to get schedule")
		return NewInternalError(c, "Failed to get schedule")
	}
	return c.JSON(http.StatusOK, schedule)
}

// UpdateSchedule handles PUT /api/v1/schedules/:id
func (h *ScheduleHandler) UpdateSchedule(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, err := parseIDParam(c)
	if err != nil {
		return NewValidationError(c, "Invalid schedule ID", nil)
	}

	var req ScheduleRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	input, errs := req.toInput()
	if errs != nil {
		return NewValidationError(c, "Validation failed", errs)
	}

	schedule, err := h.scheduleService.UpdateSchedule(workspaceID, id, input)
	if err != nil {
		return scheduleError(c, err, workspaceID, id, "update")
	}
	return c.JSON(http.StatusOK, schedule)
}

// DeleteSchedule handles DELETE /api/v1/schedules/:id
func (h *ScheduleHandler) DeleteSchedule(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, err := parseIDParam(c)
	if err != nil {
		return NewValidationError(c, "Invalid schedule ID", nil)
	}

	if err := h.scheduleService.DeleteSchedule(workspaceID, id); err != nil {
		if errors.Is(err, domain.ErrScheduleNotFound) {
			return NewNotFoundError(c, "Schedule not found")
		}
		log.Error().Err(err).Int32("workspace_id", workspaceID).Int32("schedule_id", id).Msg("Failed to delete schedule")
		return NewInternalError(c, "Failed to delete schedule")
	}
	return c.NoContent(http.StatusNoContent)
}

// PostSchedule handles POST /api/v1/schedules/:id/post
func (h *ScheduleHandler) PostSchedule(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, err := parseIDParam(c)
	if err != nil {
		return NewValidationError(c, "Invalid schedule ID", nil)
	}

	tx, err := h.scheduleService.Post(workspaceID, id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrScheduleNotFound):
			return NewNotFoundError(c, "Schedule not found")
		case errors.Is(err, domain.ErrStaleAccountReference):
			return NewConflictError(c, "Schedule references an account that no longer exists")
		}
		log.Error().Err(err).Int32("workspace_id", workspaceID).Int32("schedule_id", id).Msg("Failed to post schedule")
		return NewInternalError(c, "Failed to post schedule")
	}

	log.Info().Int32("workspace_id", workspaceID).Int32("schedule_id", id).Int32("transaction_id", tx.ID).Msg("Schedule posted")
	return c.JSON(http.StatusCreated, tx)
}

// SkipSchedule handles POST /api/v1/schedules/:id/skip
func (h *ScheduleHandler) SkipSchedule(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, err := parseIDParam(c)
	if err != nil {
		return NewValidationError(c, "Invalid schedule ID", nil)
	}

	schedule, err := h.scheduleService.Skip(workspaceID, id)
	if err != nil {
		if errors.Is(err, domain.ErrScheduleNotFound) {
			return NewNotFoundError(c, "Schedule not found")
		}
		log.Error().Err(err).Int32("workspace_id", workspaceID).Int32("schedule_id", id).Msg("Failed to skip schedule")
		return NewInternalError(c, "Failed to skip schedule")
	}

	log.Info().Int32("workspace_id", workspaceID).Int32("schedule_id", id).Time("next_occurrence", schedule.NextOccurrence).Msg("Schedule skipped")
	return c.JSON(http.StatusOK, schedule)
}

func scheduleError(c echo.Context, err error, workspaceID, id int32, op string) error {
	switch {
	case errors.Is(err, domain.ErrScheduleNotFound):
		return NewNotFoundError(c, "Schedule not found")
	case errors.Is(err, domain.ErrNameRequired):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "name", Message: "Name is required"},
		})
	case errors.Is(err, domain.ErrNameTooLong):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "name", Message: "Name must be 255 characters or less"},
		})
	case errors.Is(err, domain.ErrInvalidAmount):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "amount", Message: "Amount must not be negative"},
		})
	case errors.Is(err, domain.ErrInvalidTransactionType):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "type", Message: "Type must be one of: income, expense, transfer"},
		})
	case errors.Is(err, domain.ErrInvalidPattern):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "pattern", Message: "Unknown recurrence pattern"},
		})
	case errors.Is(err, domain.ErrAccountNotFound):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "accountId", Message: "Referenced account does not exist"},
		})
	}
	log.Error().Err(err).Int32("workspace_id", workspaceID).Int32("schedule_id", id).Msgf("Failed to %s schedule", op)
	return NewInternalError(c, "Failed to "+op+" schedule")
}
