package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/tallyapp/tally-backend/internal/domain"
	"github.com/tallyapp/tally-backend/internal/middleware"
	"github.com/tallyapp/tally-backend/internal/service"
)

// TransactionHandler handles transaction-related HTTP requests
type TransactionHandler struct {
	transactionService *service.TransactionService
	receiptService     *service.ReceiptService
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(transactionService *service.TransactionService, receiptService *service.ReceiptService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		receiptService:     receiptService,
	}
}

// TransactionRequest represents the create/update transaction request body
type TransactionRequest struct {
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
	TransactionDate *string  `json:"transactionDate,omitempty"`
}

func (r TransactionRequest) toInput() (service.TransactionInput, []ValidationError) {
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

	var transactionDate *time.Time
	if r.TransactionDate != nil {
		parsed, err := time.Parse(time.RFC3339, *r.TransactionDate)
		if err != nil {
			parsed, err = time.Parse("2006-01-02", *r.TransactionDate)
		}
		if err != nil {
			errs = append(errs, ValidationError{Field: "transactionDate", Message: "Must be an RFC 3339 timestamp or YYYY-MM-DD date"})
		} else {
			transactionDate = &parsed
		}
	}

	if len(errs) > 0 {
		return service.TransactionInput{}, errs
	}

	return service.TransactionInput{
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
		TransactionDate: transactionDate,
	}, nil
}

// CreateTransaction handles POST /api/v1/transactions
func (h *TransactionHandler) CreateTransaction(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	var req TransactionRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	input, errs := req.toInput()
	if errs != nil {
		return NewValidationError(c, "Validation failed", errs)
	}

	tx, err := h.transactionService.CreateTransaction(workspaceID, input)
	if err != nil {
		return transactionError(c, err, workspaceID, 0, "create")
	}

	log.Info().Int32("workspace_id", workspaceID).Int32("transaction_id", tx.ID).Str("type", string(tx.Type)).Msg("Transaction created")
	return c.JSON(http.StatusCreated, tx)
}

// GetTransactions handles GET /api/v1/transactions
func (h *TransactionHandler) GetTransactions(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	filters := &domain.TransactionFilters{}

	if v := c.QueryParam("accountId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return NewValidationError(c, "Invalid accountId", nil)
		}
		accountID := int32(id)
		filters.AccountID = &accountID
	}
	if v := c.QueryParam("startDate"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return NewValidationError(c, "Invalid startDate", nil)
		}
		filters.StartDate = &parsed
	}
	if v := c.QueryParam("endDate"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return NewValidationError(c, "Invalid endDate", nil)
		}
		filters.EndDate = &parsed
	}
	if v := c.QueryParam("type"); v != "" {
		txType := domain.TransactionType(v)
		if !domain.ValidTransactionTypes[txType] {
			return NewValidationError(c, "Invalid type", nil)
		}
		filters.Type = &txType
	}
	if v := c.QueryParam("page"); v != "" {
		page, err := strconv.ParseInt(v, 10, 32)
		if err != nil || page < 1 {
			return NewValidationError(c, "Invalid page", nil)
		}
		filters.Page = int32(page)
	}
	if v := c.QueryParam("pageSize"); v != "" {
		pageSize, err := strconv.ParseInt(v, 10, 32)
		if err != nil || pageSize < 1 {
			return NewValidationError(c, "Invalid pageSize", nil)
		}
		filters.PageSize = int32(pageSize)
	}

	result, err := h.transactionService.GetTransactions(workspaceID, filters)
	if err != nil {
		log.Error().Err(err).Int32("workspace_id", workspaceID).Msg("Failed to get transactions")
		return NewInternalError(c, "Failed to get transactions")
	}
	return c.JSON(http.StatusOK, result)
}

// GetTransaction handles GET /api/v1/transactions/:id
func (h *TransactionHandler) GetTransaction(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, err := parseIDParam(c)
	if err != nil {
		return NewValidationError(c, "Invalid transaction ID", nil)
	}

	tx, err := h.transactionService.GetTransactionByID(workspaceID, id)
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			return NewNotFoundError(c, "Transaction not found")
		}
		log.Error().Err(err).Int32("workspace_id", workspaceID).Int32("transaction_id", id).Msg("Failed to get transaction")
		return NewInternalError(c, "Failed to get transaction")
	}
	return c.JSON(http.StatusOK, tx)
}

// UpdateTransaction handles PUT /api/v1/transactions/:id
func (h *TransactionHandler) UpdateTransaction(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, err := parseIDParam(c)
	if err != nil {
		return NewValidationError(c, "Invalid transaction ID", nil)
	}

	var req TransactionRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	input, errs := req.toInput()
	if errs != nil {
		return NewValidationError(c, "Validation failed", errs)
	}

	tx, err := h.transactionService.UpdateTransaction(workspaceID, id, input)
	if err != nil {
		return transactionError(c, err, workspaceID, id, "update")
	}
	return c.JSON(http.StatusOK, tx)
}

// DeleteTransaction handles DELETE /api/v1/transactions/:id
func (h *TransactionHandler) DeleteTransaction(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, err := parseIDParam(c)
	if err != nil {
		return NewValidationError(c, "Invalid transaction ID", nil)
	}

	if err := h.transactionService.DeleteTransaction(workspaceID, id); err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			return NewNotFoundError(c, "Transaction not found")
		}
		log.Error().Err(err).Int32("workspace_id", workspaceID).Int32("transaction_id", id).Msg("Failed to delete transaction")
		return NewInternalError(c, "Failed to delete transaction")
	}

	log.Info().Int32("workspace_id", workspaceID).Int32("transaction_id", id).Msg("Transaction deleted")
	return c.NoContent(http.StatusNoContent)
}

// UploadReceipt handles POST /api/v1/transactions/:id/receipt
func (h *TransactionHandler) UploadReceipt(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, err := parseIDParam(c)
	if err != nil {
		return NewValidationError(c, "Invalid transaction ID", nil)
	}

	file, err := c.FormFile("receipt")
	if err != nil {
		return NewValidationError(c, "Missing receipt file", nil)
	}

	src, err := file.Open()
	if err != nil {
		return NewValidationError(c, "Could not read receipt file", nil)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, service.MaxReceiptSize+1))
	if err != nil {
		return NewValidationError(c, "Could not read receipt file", nil)
	}

	if err := h.receiptService.Attach(c.Request().Context(), workspaceID, id, data, file.Filename); err != nil {
		switch {
		case errors.Is(err, domain.ErrTransactionNotFound):
			return NewNotFoundError(c, "Transaction not found")
		case errors.Is(err, service.ErrReceiptTooLarge),
			errors.Is(err, service.ErrReceiptInvalidFormat),
			errors.Is(err, service.ErrReceiptTooSmall),
			errors.Is(err, service.ErrReceiptInvalidData):
			return NewValidationError(c, err.Error(), nil)
		case errors.Is(err, service.ErrReceiptsNotConfigured):
			return NewConflictError(c, "Receipt storage is not configured")
		}
		log.Error().Err(err).Int32("workspace_id", workspaceID).Int32("transaction_id", id).Msg("Failed to upload receipt")
		return NewInternalError(c, "Failed to upload receipt")
	}

	log.Info().Int32("workspace_id", workspaceID).Int32("transaction_id", id).Msg("Receipt attached")
	return c.NoContent(http.StatusNoContent)
}

// GetReceipt handles GET /api/v1/transactions/:id/receipt
func (h *TransactionHandler) GetReceipt(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, err := parseIDParam(c)
	if err != nil {
		return NewValidationError(c, "Invalid transaction ID", nil)
	}

	urls, err := h.receiptService.URLs(c.Request().Context(), workspaceID, id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTransactionNotFound):
			return NewNotFoundError(c, "Transaction not found")
		case errors.Is(err, service.ErrTransactionHasNoReceipt):
			return NewNotFoundError(c, "Transaction has no receipt")
		case errors.Is(err, service.ErrReceiptsNotConfigured):
			return NewConflictError(c, "Receipt storage is not configured")
		}
		log.Error().Err(err).Int32("workspace_id", workspaceID).Int32("transaction_id", id).Msg("Failed to get receipt")
		return NewInternalError(c, "Failed to get receipt")
	}
	return c.JSON(http.StatusOK, urls)
}

// DeleteReceipt handles DELETE /api/v1/transactions/:id/receipt
func (h *TransactionHandler) DeleteReceipt(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, err := parseIDParam(c)
	if err != nil {
		return NewValidationError(c, "Invalid transaction ID", nil)
	}

	if err := h.receiptService.Remove(c.Request().Context(), workspaceID, id); err != nil {
		switch {
		case errors.Is(err, domain.ErrTransactionNotFound):
			return NewNotFoundError(c, "Transaction not found")
		case errors.Is(err, service.ErrReceiptsNotConfigured):
			return NewConflictError(c, "Receipt storage is not configured")
		}
		log.Error().Err(err).Int32("workspace_id", workspaceID).Int32("transaction_id", id).Msg("Failed to delete receipt")
		return NewInternalError(c, "Failed to delete receipt")
	}
	return c.NoContent(http.StatusNoContent)
}

func transactionError(c echo.Context, err error, workspaceID, id int32, op string) error {
	switch {
	case errors.Is(err, domain.ErrTransactionNotFound):
		return NewNotFoundError(c, "Transaction not found")
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
	case errors.Is(err, domain.ErrSameAccountTransfer):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "toAccountId", Message: "Transfer accounts must differ"},
		})
	case errors.Is(err, domain.ErrMemoTooLong):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "memo", Message: "Memo must be 1000 characters or less"},
		})
	case errors.Is(err, domain.ErrAccountNotFound):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "accountId", Message: "Referenced account does not exist"},
		})
	}
	log.Error().Err(err).Int32("workspace_id", workspaceID).Int32("transaction_id", id).Msgf("Failed to %s transaction", op)
	return NewInternalError(c, "Failed to "+op+" transaction")
}
