package expenses

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartexpense/smartexpense/internal/shared"
)

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func newTestRouter(t *testing.T, parser ReceiptParser, owner uuid.UUID) (http.Handler, *memoryRepo) {
	t.Helper()
	svc, repo, _ := newTestService(parser)
	handler := NewHandler(svc, nil)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := shared.ContextWithIdentity(req.Context(), shared.Identity{UserID: owner})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Route("/api/expenses", handler.MountRoutes)
	return r, repo
}

type filePart struct {
	name        string
	contentType string
	data        []byte
}

func multipartRequest(t *testing.T, fields map[string]string, file *filePart) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if file != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="receipt"; filename="`+file.name+`"`)
		if file.contentType != "" {
			header.Set("Content-Type", file.contentType)
		}
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(file.data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/expenses", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateFoodExample(t *testing.T) {
	owner := uuid.New()
	router, repo := newTestRouter(t, nil, owner)

	req := multipartRequest(t, map[string]string{
		"amount":      "499",
		"category":    "Food",
		"description": "Dinner",
		"date":        "2025-01-05",
		"user":        uuid.NewString(),
	}, nil)
	rec := serve(router, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 499.0, got["amount"])
	assert.Equal(t, "Food", got["category"])
	assert.Equal(t, "Dinner", got["description"])
	assert.Equal(t, "INR", got["currency"])
	assert.Equal(t, "", got["merchant"])
	assert.Equal(t, owner.String(), got["user"])
	assert.Nil(t, got["receiptUrl"])
	assert.Equal(t, "2025-01-05T00:00:00Z", got["date"])
	assert.Len(t, repo.items, 1)
}

func TestCreateAcceptsJSON(t *testing.T) {
	owner := uuid.New()
	router, repo := newTestRouter(t, nil, owner)

	req := httptest.NewRequest(http.MethodPost, "/api/expenses", strings.NewReader(`{"amount":12.5,"category":"Travel","currency":"usd"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(router, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, repo.items, 1)
	for _, e := range repo.items {
		assert.Equal(t, 12.5, e.Amount)
		assert.Equal(t, "USD", e.Currency)
		assert.Equal(t, owner, e.UserID)
	}
}

func TestCreateIgnoresQueryParameters(t *testing.T) {
	router, repo := newTestRouter(t, nil, uuid.New())

	req := multipartRequest(t, map[string]string{"amount": "20"}, nil)
	req.URL.RawQuery = "category=FromQuery&merchant=Injected"
	rec := serve(router, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, repo.items, 1)
	for _, e := range repo.items {
		assert.Equal(t, DefaultCategory, e.Category)
		assert.Empty(t, e.Merchant)
	}
}

func TestCreateRejectsOutOfRangeAmount(t *testing.T) {
	router, repo := newTestRouter(t, nil, uuid.New())

	rec := serve(router, multipartRequest(t, map[string]string{"amount": "1e400", "category": "Food"}, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "amount")
	assert.Empty(t, repo.items)
}

func TestCreateRejectsOversizedReceipt(t *testing.T) {
	parser := &stubParser{ok: true}
	router, repo := newTestRouter(t, parser, uuid.New())

	data := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, MaxReceiptBytes)...)
	req := multipartRequest(t, map[string]string{"amount": "10"}, &filePart{name: "big.png", contentType: "image/png", data: data})
	rec := serve(router, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), MsgFileTooLarge)
	assert.Empty(t, repo.items)
	assert.Zero(t, parser.calls)
}

func TestCreateRejectsWayOversizedBody(t *testing.T) {
	parser := &stubParser{ok: true}
	router, repo := newTestRouter(t, parser, uuid.New())

	data := bytes.Repeat([]byte{1}, MaxReceiptBytes+2*multipartOverhead)
	req := multipartRequest(t, nil, &filePart{name: "huge.jpg", contentType: "image/jpeg", data: data})
	rec := serve(router, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), MsgFileTooLarge)
	assert.Empty(t, repo.items)
	assert.Zero(t, parser.calls)
}

func TestCreateRejectsNonImage(t *testing.T) {
	parser := &stubParser{ok: true}
	router, repo := newTestRouter(t, parser, uuid.New())

	cases := map[string]filePart{
		"declared pdf":  {name: "r.pdf", contentType: "application/pdf", data: []byte("%PDF-1.4")},
		"sniffed text":  {name: "r.bin", data: []byte("just some text")},
		"declared text": {name: "r.txt", contentType: "text/plain", data: pngHeader},
	}
	for name, file := range cases {
		t.Run(name, func(t *testing.T) {
			file := file
			rec := serve(router, multipartRequest(t, map[string]string{"amount": "5"}, &file))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), MsgInvalidFileType)
		})
	}
	assert.Empty(t, repo.items)
	assert.Zero(t, parser.calls)
}

func TestCreateWithReceiptCallsParser(t *testing.T) {
	parser := &stubParser{ok: true}
	router, repo := newTestRouter(t, parser, uuid.New())

	rec := serve(router, multipartRequest(t, map[string]string{"amount": "7"}, &filePart{name: "r.png", data: pngHeader}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 1, parser.calls)
	assert.Len(t, repo.items, 1)
}

func TestUpdateAndDeleteHTTP(t *testing.T) {
	owner := uuid.New()
	router, repo := newTestRouter(t, nil, owner)
	rec := serve(router, multipartRequest(t, map[string]string{"amount": "10", "category": "Food", "merchant": "Cafe"}, nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created Expense
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	path := "/api/expenses/" + created.ID.String()

	put := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return serve(router, req)
	}

	rec = put(`{"amount":"20","category":"","merchant":"","date":"2025-02-02"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stored := repo.items[created.ID]
	assert.Equal(t, 20.0, stored.Amount)
	assert.Equal(t, "Food", stored.Category)
	assert.Equal(t, "", stored.Merchant)
	assert.Equal(t, 2, stored.Date.Day())

	for _, body := range []string{`{"amount":"NaN"}`, `{"amount":-1}`, `{"amount":"abc"}`} {
		rec = put(body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Equal(t, 20.0, repo.items[created.ID].Amount)

	rec = serve(router, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(router, httptest.NewRequest(http.MethodDelete, path, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var deleted map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &deleted))
	assert.Equal(t, "Expense deleted successfully", deleted["message"])
	assert.Equal(t, created.ID.String(), deleted["id"])

	rec = serve(router, httptest.NewRequest(http.MethodDelete, path, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestForeignAndMalformedIDs(t *testing.T) {
	owner := uuid.New()
	router, repo := newTestRouter(t, nil, owner)
	foreign := Expense{ID: uuid.New(), UserID: uuid.New(), Amount: 5, Category: "Food"}
	repo.items[foreign.ID] = foreign

	req := httptest.NewRequest(http.MethodPut, "/api/expenses/"+foreign.ID.String(), strings.NewReader(`{"amount":1}`))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(router, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Not authorized to update this expense")
	assert.Equal(t, 5.0, repo.items[foreign.ID].Amount)

	rec = serve(router, httptest.NewRequest(http.MethodDelete, "/api/expenses/"+foreign.ID.String(), nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, repo.items, foreign.ID)

	rec = serve(router, httptest.NewRequest(http.MethodDelete, "/api/expenses/not-a-uuid", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Expense not found")
}

func TestListHTTPEmptyIsArray(t *testing.T) {
	router, _ := newTestRouter(t, nil, uuid.New())
	rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/expenses", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
