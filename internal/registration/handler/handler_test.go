package handler

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/initdata"
	"rollcall/internal/platform/middleware"
	"rollcall/internal/registration/adapters"
	"rollcall/internal/registration/service"
	"rollcall/internal/registration/store"
	"rollcall/pkg/testutil"
)

const testBotToken = "7000000000:AAH-test-bot-token"

func newRouter(t *testing.T, cfg service.Config) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	verifier := adapters.NewInitDataVerifier(initdata.NewVerifier(testBotToken))
	svc := service.New(store.NewInMemoryRecordStore(), verifier, cfg, service.WithLogger(logger))

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RequestTime, middleware.Recoverer(logger))
	New(svc, logger).Register(r)
	return r
}

// signedProof builds a launch payload signed with the test bot token.
func signedProof(t *testing.T, userJSON string) string {
	t.Helper()

	fields := map[string]string{
		"auth_date": "1756339200",
		"user":      userJSON,
	}
	lines := make([]string, 0, len(fields))
	for k, v := range fields {
		lines = append(lines, k+"="+v)
	}
	sort.Strings(lines)

	keyMAC := hmac.New(sha256.New, []byte(testBotToken))
	keyMAC.Write([]byte("WebAppData"))
	mac := hmac.New(sha256.New, keyMAC.Sum(nil))
	mac.Write([]byte(strings.Join(lines, "\n")))

	values := url.Values{}
	for k, v := range fields {
		values.Set(k, v)
	}
	values.Set("hash", hex.EncodeToString(mac.Sum(nil)))
	return values.Encode()
}

type submitResponse struct {
	Success bool  `json:"success"`
	ID      int64 `json:"id"`
}

type recordResponse struct {
	ID        int64  `json:"id"`
	FullName  string `json:"fullName"`
	Phone     string `json:"phone"`
	CreatedBy string `json:"createdBy"`
	Option    string `json:"option"`
}

func TestSubmitWithoutProofStoresUnverified(t *testing.T) {
	router := newRouter(t, service.Config{AllowUpdate: true})

	rec := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/records", map[string]string{
		"fullName": "Jean Paul Dupont",
		"phone":    "034 00 00 00",
		"option":   "Informatique",
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := testutil.UnmarshalResponse[submitResponse](t, rec)
	assert.True(t, resp.Success)
	require.NotZero(t, resp.ID)

	got := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/records/1", nil))
	require.Equal(t, http.StatusOK, got.Code)
	stored := testutil.UnmarshalResponse[recordResponse](t, got)
	assert.Equal(t, "unverified", stored.CreatedBy)
	assert.Equal(t, "Informatique", stored.Option)
}

func TestSubmitWithValidProofStampsPrincipal(t *testing.T) {
	router := newRouter(t, service.Config{})

	req := testutil.NewJSONRequest(t, http.MethodPost, "/records", map[string]string{"fullName": "Jean"})
	req.Header.Set("X-Auth-Proof", signedProof(t, `{"id":42,"first_name":"Jean","last_name":"Dupont"}`))
	rec := testutil.DoRequest(router, req)
	require.Equal(t, http.StatusOK, rec.Code)

	got := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/records/1", nil))
	stored := testutil.UnmarshalResponse[recordResponse](t, got)
	assert.Equal(t, "42", stored.CreatedBy)
}

func TestSubmitMissingFullName(t *testing.T) {
	router := newRouter(t, service.Config{})

	rec := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/records", map[string]string{"phone": "034"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitStrictModeRejectsBadProof(t *testing.T) {
	router := newRouter(t, service.Config{StrictAuth: true})

	req := testutil.NewJSONRequest(t, http.MethodPost, "/records", map[string]string{"fullName": "Jean"})
	req.Header.Set("X-Auth-Proof", "hash=deadbeef&auth_date=1")
	rec := testutil.DoRequest(router, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListWithSubstringFilter(t *testing.T) {
	router := newRouter(t, service.Config{})
	for _, name := range []string{"Jean Paul Dupont", "Marie Rasoa"} {
		rec := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/records", map[string]string{"fullName": name}))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/records?q=dupont", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	records := testutil.UnmarshalResponse[[]recordResponse](t, rec)
	require.Len(t, *records, 1)
	assert.Equal(t, "Jean Paul Dupont", (*records)[0].FullName)

	rec = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/records", nil))
	records = testutil.UnmarshalResponse[[]recordResponse](t, rec)
	assert.Len(t, *records, 2)
}

func TestGetUnknownRecord(t *testing.T) {
	router := newRouter(t, service.Config{})

	rec := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/records/99", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/records/abc", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdatePreservesCreationMetadata(t *testing.T) {
	router := newRouter(t, service.Config{AllowUpdate: true})

	req := testutil.NewJSONRequest(t, http.MethodPost, "/records", map[string]string{"fullName": "Jean"})
	req.Header.Set("X-Auth-Proof", signedProof(t, `{"id":42,"first_name":"Jean"}`))
	require.Equal(t, http.StatusOK, testutil.DoRequest(router, req).Code)

	rec := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPut, "/records/1", map[string]any{
		"fullName":  "Jean Paul",
		"createdBy": "attacker",
		"id":        999,
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	updated := testutil.UnmarshalResponse[recordResponse](t, rec)
	assert.Equal(t, int64(1), updated.ID)
	assert.Equal(t, "Jean Paul", updated.FullName)
	assert.Equal(t, "42", updated.CreatedBy)
}

func TestUpdateUnknownRecord(t *testing.T) {
	router := newRouter(t, service.Config{AllowUpdate: true})

	rec := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPut, "/records/99", map[string]string{"fullName": "X"}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateDisabled(t *testing.T) {
	router := newRouter(t, service.Config{AllowUpdate: false})

	rec := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/records", map[string]string{"fullName": "Jean"}))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPut, "/records/1", map[string]string{"fullName": "X"}))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeleteIsIdempotent(t *testing.T) {
	router := newRouter(t, service.Config{})

	rec := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/records", map[string]string{"fullName": "Jean"}))
	require.Equal(t, http.StatusOK, rec.Code)

	for i := 0; i < 2; i++ {
		rec = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodDelete, "/records/1", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		resp := testutil.UnmarshalResponse[map[string]bool](t, rec)
		assert.True(t, (*resp)["success"])
	}

	got := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/records/1", nil))
	assert.Equal(t, http.StatusNotFound, got.Code)
}

func TestCheckDuplicates(t *testing.T) {
	router := newRouter(t, service.Config{})

	rec := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/records", map[string]string{
		"fullName": "Jean Paul Dupont",
		"phone":    "034 00 00 00",
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	type dupResponse struct {
		Found      bool             `json:"found"`
		Candidates []recordResponse `json:"candidates"`
	}

	rec = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/records/check-duplicates", map[string]string{"phone": "0340000000"}))
	require.Equal(t, http.StatusOK, rec.Code)
	dup := testutil.UnmarshalResponse[dupResponse](t, rec)
	assert.True(t, dup.Found)
	require.Len(t, dup.Candidates, 1)

	rec = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/records/check-duplicates", map[string]string{"fullName": "Marie"}))
	dup = testutil.UnmarshalResponse[dupResponse](t, rec)
	assert.False(t, dup.Found)
	assert.NotNil(t, dup.Candidates)
	assert.Empty(t, dup.Candidates)
}
