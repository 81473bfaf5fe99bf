package expenses

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/smartexpense/smartexpense/internal/platform/httpx"
	"github.com/smartexpense/smartexpense/internal/receipts"
	"github.com/smartexpense/smartexpense/internal/shared"
)

// Upload rejection messages.
const (
	MsgFileTooLarge    = "File too large. Maximum size is 10MB."
	MsgInvalidFileType = "Invalid file type. Please upload an image."
)

// multipartOverhead leaves room for form fields next to a maximum size file.
const multipartOverhead = 1 << 20

// Handler exposes expense endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// MountRoutes registers the expense routes. Callers are expected to install
// authentication on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.handleCreate)
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)
	r.Put("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleDelete)
}

// handleCreate answers 201 Created with the stored expense.
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}

	fields, upload, status, msg := h.readCreateRequest(w, r)
	if status != 0 {
		httpx.Error(w, status, msg)
		return
	}

	expense, err := h.service.Create(r.Context(), identity.UserID, fields, upload)
	if err != nil {
		h.respondError(w, "create expense", err, "")
		return
	}
	httpx.JSON(w, http.StatusCreated, expense)
}

// readCreateRequest extracts create fields and an optional receipt. A
// non-zero status means the request was rejected before any work was done.
func (h *Handler) readCreateRequest(w http.ResponseWriter, r *http.Request) (CreateFields, *receipts.Upload, int, string) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch {
	case mediaType == "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, MaxReceiptBytes+multipartOverhead)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			if httpx.IsBodyTooLarge(err) {
				return CreateFields{}, nil, http.StatusBadRequest, MsgFileTooLarge
			}
			return CreateFields{}, nil, http.StatusBadRequest, "Invalid multipart body"
		}
		defer func() {
			_ = r.MultipartForm.RemoveAll()
		}()
		fields := formFields(r.PostFormValue)
		upload, status, msg := readReceipt(r)
		return fields, upload, status, msg

	case mediaType == "application/json":
		var body map[string]json.RawMessage
		if err := httpx.DecodeJSON(r, &body); err != nil {
			if httpx.IsBodyTooLarge(err) {
				return CreateFields{}, nil, http.StatusRequestEntityTooLarge, "Request body too large"
			}
			return CreateFields{}, nil, http.StatusBadRequest, "Invalid request body"
		}
		return formFields(func(key string) string { return jsonString(body[key]) }), nil, 0, ""

	default:
		if err := r.ParseForm(); err != nil {
			if httpx.IsBodyTooLarge(err) {
				return CreateFields{}, nil, http.StatusRequestEntityTooLarge, "Request body too large"
			}
			return CreateFields{}, nil, http.StatusBadRequest, "Invalid request body"
		}
		return formFields(r.PostFormValue), nil, 0, ""
	}
}

func formFields(get func(string) string) CreateFields {
	return CreateFields{
		Amount:      get("amount"),
		Category:    get("category"),
		Description: get("description"),
		Merchant:    get("merchant"),
		Date:        get("date"),
		Currency:    get("currency"),
	}
}

func readReceipt(r *http.Request) (*receipts.Upload, int, string) {
	file, header, err := r.FormFile("receipt")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, 0, ""
	}
	if err != nil {
		return nil, http.StatusBadRequest, "Invalid receipt upload"
	}
	defer func() {
		_ = file.Close()
	}()

	if header.Size > MaxReceiptBytes {
		return nil, http.StatusBadRequest, MsgFileTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(file, MaxReceiptBytes+1))
	if err != nil {
		return nil, http.StatusBadRequest, "Invalid receipt upload"
	}
	if len(data) > MaxReceiptBytes {
		return nil, http.StatusBadRequest, MsgFileTooLarge
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return nil, http.StatusBadRequest, MsgInvalidFileType
	}
	return &receipts.Upload{Filename: header.Filename, ContentType: contentType, Data: data}, 0, ""
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	list, err := h.service.List(r.Context(), identity.UserID)
	if err != nil {
		h.respondError(w, "list expenses", err, "")
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	identity, id, ok := h.target(w, r)
	if !ok {
		return
	}
	expense, err := h.service.Get(r.Context(), identity.UserID, id)
	if err != nil {
		h.respondError(w, "get expense", err, "access")
		return
	}
	httpx.JSON(w, http.StatusOK, expense)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	identity, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var body map[string]json.RawMessage
	if err := httpx.DecodeJSON(r, &body); err != nil {
		if httpx.IsBodyTooLarge(err) {
			httpx.Error(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		httpx.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	input, err := decodeUpdate(body)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	expense, err := h.service.Update(r.Context(), identity.UserID, id, input)
	if err != nil {
		h.respondError(w, "update expense", err, "update")
		return
	}
	httpx.JSON(w, http.StatusOK, expense)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	identity, id, ok := h.target(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), identity.UserID, id); err != nil {
		h.respondError(w, "delete expense", err, "delete")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{
		"message": "Expense deleted successfully",
		"id":      id.String(),
	})
}

// target resolves the caller and the {id} path parameter. Malformed ids are
// reported as missing expenses.
func (h *Handler) target(w http.ResponseWriter, r *http.Request) (shared.Identity, uuid.UUID, bool) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return shared.Identity{}, uuid.Nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, http.StatusNotFound, "Expense not found")
		return shared.Identity{}, uuid.Nil, false
	}
	return identity, id, true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error, verb string) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Error(w, http.StatusNotFound, "Expense not found")
	case errors.Is(err, shared.ErrForbidden):
		httpx.Error(w, http.StatusForbidden, "Not authorized to "+verb+" this expense")
	case errors.Is(err, shared.ErrValidation):
		httpx.RespondError(w, err)
	default:
		h.logger.Error(op+" failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

// decodeUpdate builds an UpdateInput. category, date and currency apply only
// when non-empty; description and merchant apply whenever present.
func decodeUpdate(body map[string]json.RawMessage) (UpdateInput, error) {
	var input UpdateInput
	verr := &shared.ValidationError{}

	if raw, ok := body["amount"]; ok && !isNull(raw) {
		amount, valid := jsonNumber(raw)
		switch {
		case !valid || math.IsNaN(amount) || math.IsInf(amount, 0):
			verr.Add("amount", "must be a number")
		case amount < 0:
			verr.Add("amount", "must not be negative")
		default:
			input.Amount = &amount
		}
	}
	if v := jsonString(body["category"]); strings.TrimSpace(v) != "" {
		input.Category = &v
	}
	if raw, ok := body["description"]; ok {
		v := jsonString(raw)
		if len([]rune(v)) > MaxDescriptionLength {
			verr.Add("description", "must be at most 500 characters")
		}
		input.Description = &v
	}
	if raw, ok := body["merchant"]; ok {
		v := jsonString(raw)
		input.Merchant = &v
	}
	if v := jsonString(body["date"]); strings.TrimSpace(v) != "" {
		d, valid := ParseDate(v)
		if !valid {
			verr.Add("date", "must be an ISO 8601 date")
		} else {
			input.Date = &d
		}
	}
	if v := jsonString(body["currency"]); strings.TrimSpace(v) != "" {
		code, valid := NormalizeCurrency(v)
		if !valid {
			verr.Add("currency", "must be an ISO 4217 currency code")
		} else {
			input.Currency = &code
		}
	}
	if err := verr.OrNil(); err != nil {
		return UpdateInput{}, err
	}
	return input, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// jsonString reads a JSON string or number as text. Anything else is empty.
func jsonString(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// jsonNumber accepts a JSON number or a numeric string.
func jsonNumber(raw json.RawMessage) (float64, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
