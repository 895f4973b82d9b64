package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"finansije/internal/core"
	applog "finansije/internal/log"
	"finansije/internal/services"
	"finansije/internal/store"
)

const dateTimeLayout = "2006-01-02T15:04:05.000Z07:00"

type transactionJSON struct {
	ID          string        `json:"_id"`
	Type        string        `json:"type"`
	Amount      json.Number   `json:"amount"`
	Currency    core.Currency `json:"currency"`
	Description string        `json:"description"`
	Date        string        `json:"date"`
}

func toTransactionJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:          t.ID,
		Type:        string(t.Type),
		Amount:      json.Number(t.Amount.String()),
		Currency:    t.Currency,
		Description: t.Description,
		Date:        t.Date.UTC().Format(dateTimeLayout),
	}
}

func toTransactionsJSON(ts []core.Transaction) []transactionJSON {
	out := make([]transactionJSON, 0, len(ts))
	for _, t := range ts {
		out = append(out, toTransactionJSON(t))
	}
	return out
}

type listResponse struct {
	Transactions      []transactionJSON `json:"transactions"`
	CurrentPage       int               `json:"currentPage"`
	TotalPages        int               `json:"totalPages"`
	TotalTransactions int               `json:"totalTransactions"`
	SearchQuery       string            `json:"searchQuery"`
	SortBy            string            `json:"sortBy"`
	SortOrder         core.SortOrder    `json:"sortOrder"`
}

type summaryResponse struct {
	Income       *core.Bucket      `json:"income"`
	Expense      *core.Bucket      `json:"expense"`
	Transactions []transactionJSON `json:"transactions"`
}

type messageResponse struct {
	Msg string `json:"msg"`
}

// createRequest accepts amount either as a JSON number or a string.
type createRequest struct {
	Type        string          `json:"type"`
	Amount      json.RawMessage `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
}

func (c createRequest) input() services.CreateInput {
	return services.CreateInput{
		Type:        c.Type,
		Amount:      core.AmountText(c.Amount),
		Currency:    c.Currency,
		Description: c.Description,
		Date:        c.Date,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Msg: msg})
}

var validationErrors = []error{
	core.ErrInvalidType,
	core.ErrInvalidCurrency,
	core.ErrInvalidAmount,
	core.ErrDescriptionTooLong,
	services.ErrInvalidDate,
}

func isValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// writeServiceError maps service errors to statuses. Anything unexpected is
// logged and answered with a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Transakcija nije pronađena")
	case errors.Is(err, core.ErrInvalidMonthOrYear):
		writeError(w, http.StatusBadRequest, err.Error())
	case isValidationError(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case r.Context().Err() != nil && errors.Is(err, r.Context().Err()):
		// Client went away; nothing useful to send.
		w.WriteHeader(http.StatusServiceUnavailable)
	default:
		applog.LogError(r.Context(), "Request failed", err, applog.ComponentHTTP, op)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
