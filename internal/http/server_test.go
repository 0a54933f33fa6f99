package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"garage/internal/auth"
	"garage/internal/services"
	"garage/internal/storage/memory"
	"garage/internal/uploads"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store := memory.NewStore()
	hash, err := auth.HashPassword("admin")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if _, err := store.EnsureUser(context.Background(), "admin", hash); err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}

	uploadStore, err := uploads.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	tokens, err := auth.NewTokenIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	srv := NewServer(":0", store, services.NewRecordService(store, nil), uploadStore, tokens)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return ts
}

func login(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	resp := doJSON(t, ts, http.MethodPost, "/api/auth/login", "",
		`{"username":"admin","password":"admin"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if body.TokenType != "bearer" || body.AccessToken == "" {
		t.Fatalf("unexpected login response: %+v", body)
	}
	return body.AccessToken
}

func doJSON(t *testing.T, ts *httptest.Server, method, path, token, body string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func errorMessage(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	decodeBody(t, resp, &body)
	return body.Error
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ts := newTestServer(t)

	for _, body := range []string{
		`{"username":"admin","password":"wrong"}`,
		`{"username":"ghost","password":"admin"}`,
	} {
		resp := doJSON(t, ts, http.MethodPost, "/api/auth/login", "", body)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("status = %d for %s", resp.StatusCode, body)
		}
		if msg := errorMessage(t, resp); msg != "incorrect username or password" {
			t.Fatalf("unexpected error message: %q", msg)
		}
	}
}

func TestAuthGate(t *testing.T) {
	ts := newTestServer(t)

	resp := doJSON(t, ts, http.MethodGet, "/api/vehicles", "", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status without token = %d", resp.StatusCode)
	}
	if msg := errorMessage(t, resp); msg != "not authenticated" {
		t.Fatalf("unexpected message: %q", msg)
	}

	resp = doJSON(t, ts, http.MethodGet, "/api/vehicles", "garbage.token.here", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status with bad token = %d", resp.StatusCode)
	}
	if msg := errorMessage(t, resp); msg != "invalid or expired token" {
		t.Fatalf("unexpected message: %q", msg)
	}
}

func TestAuthMe(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts)

	resp := doJSON(t, ts, http.MethodGet, "/api/auth/me", token, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me status = %d", resp.StatusCode)
	}
	var body struct {
		Username string `json:"username"`
	}
	decodeBody(t, resp, &body)
	if body.Username != "admin" {
		t.Fatalf("unexpected username: %q", body.Username)
	}
}

func TestVehicleCRUDOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts)

	resp := doJSON(t, ts, http.MethodPost, "/api/vehicles", token,
		`{"make":"Subaru","model":"WRX","year":2021,"nickname":"rally"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var created struct {
		ID       int64  `json:"id"`
		Nickname string `json:"nickname"`
	}
	decodeBody(t, resp, &created)
	if created.ID == 0 || created.Nickname != "rally" {
		t.Fatalf("unexpected create response: %+v", created)
	}

	resp = doJSON(t, ts, http.MethodPatch, fmt.Sprintf("/api/vehicles/%d", created.ID), token,
		`{"nickname":"daily"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch status = %d", resp.StatusCode)
	}
	var patched struct {
		Nickname string `json:"nickname"`
		Make     string `json:"make"`
	}
	decodeBody(t, resp, &patched)
	if patched.Nickname != "daily" || patched.Make != "Subaru" {
		t.Fatalf("patch merge wrong: %+v", patched)
	}

	resp = doJSON(t, ts, http.MethodDelete, fmt.Sprintf("/api/vehicles/%d", created.ID), token, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, ts, http.MethodGet, fmt.Sprintf("/api/vehicles/%d", created.ID), token, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestVehicleValidationErrors(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts)

	resp := doJSON(t, ts, http.MethodPost, "/api/vehicles", token,
		`{"model":"WRX","year":2021}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("missing make status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, ts, http.MethodPost, "/api/vehicles", token, `{not json`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("bad json status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func createVehicle(t *testing.T, ts *httptest.Server, token, body string) int64 {
	t.Helper()
	resp := doJSON(t, ts, http.MethodPost, "/api/vehicles", token, body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create vehicle status = %d", resp.StatusCode)
	}
	var created struct {
		ID int64 `json:"id"`
	}
	decodeBody(t, resp, &created)
	return created.ID
}

func TestMaintenanceOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts)
	vid := createVehicle(t, ts, token, `{"make":"Honda","model":"Civic","year":2020}`)

	base := fmt.Sprintf("/api/vehicles/%d/maintenance", vid)

	resp := doJSON(t, ts, http.MethodPost, base, token,
		`{"type":"oil change","date":"2024-05-01","cost":89.99,"shop_name":"Quick Lube"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create maintenance status = %d", resp.StatusCode)
	}
	var created struct {
		ID   int64    `json:"id"`
		Date string   `json:"date"`
		Cost *float64 `json:"cost"`
	}
	decodeBody(t, resp, &created)
	if created.Date != "2024-05-01" {
		t.Fatalf("unexpected date: %s", created.Date)
	}
	if created.Cost == nil || *created.Cost != 89.99 {
		t.Fatalf("unexpected cost: %v", created.Cost)
	}

	// datetime input is truncated to its date
	resp = doJSON(t, ts, http.MethodPost, base, token,
		`{"type":"inspection","date":"2024-06-15T23:59"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create with datetime status = %d", resp.StatusCode)
	}
	var second struct {
		ID   int64  `json:"id"`
		Date string `json:"date"`
	}
	decodeBody(t, resp, &second)
	if second.Date != "2024-06-15" {
		t.Fatalf("datetime not truncated: %s", second.Date)
	}

	// list is ordered date desc
	resp = doJSON(t, ts, http.MethodGet, base, token, "")
	var list []struct {
		Date string `json:"date"`
	}
	decodeBody(t, resp, &list)
	if len(list) != 2 || list[0].Date != "2024-06-15" {
		t.Fatalf("unexpected list: %+v", list)
	}

	// record under the wrong vehicle is 404
	other := createVehicle(t, ts, token, `{"make":"Mazda","model":"3","year":2019}`)
	resp = doJSON(t, ts, http.MethodGet,
		fmt.Sprintf("/api/vehicles/%d/maintenance/%d", other, created.ID), token, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("cross-vehicle get status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, ts, http.MethodPost, base, token, `{"date":"2024-01-01"}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("missing type status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, ts, http.MethodPost, base, token, `{"type":"oil","date":"not-a-date"}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("bad date status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestModsOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts)
	vid := createVehicle(t, ts, token, `{"make":"VW","model":"GTI","year":2022}`)
	base := fmt.Sprintf("/api/vehicles/%d/mods", vid)

	resp := doJSON(t, ts, http.MethodPost, base, token,
		`{"name":"intake","date":"2024-04-01","cost":349.0,"parts_list":"filter, piping"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create mod status = %d", resp.StatusCode)
	}
	var created struct {
		ID int64 `json:"id"`
	}
	decodeBody(t, resp, &created)

	resp = doJSON(t, ts, http.MethodPatch, fmt.Sprintf("%s/%d", base, created.ID), token,
		`{"description":"cold air intake"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch mod status = %d", resp.StatusCode)
	}
	var patched struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	decodeBody(t, resp, &patched)
	if patched.Name != "intake" || patched.Description != "cold air intake" {
		t.Fatalf("patch merge wrong: %+v", patched)
	}

	resp = doJSON(t, ts, http.MethodDelete, fmt.Sprintf("%s/%d", base, created.ID), token, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete mod status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func uploadFile(t *testing.T, ts *httptest.Server, token, path, filename, contentType string, data []byte) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(map[string][]string)
	hdr["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="file"; filename=%q`, filename)}
	hdr["Content-Type"] = []string{contentType}
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	mw.Close()

	req, err := http.NewRequest(http.MethodPost, ts.URL+path, &buf)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("do upload: %v", err)
	}
	return resp
}

func TestVehiclePhotoUpload(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts)
	vid := createVehicle(t, ts, token, `{"make":"BMW","model":"330i","year":2020}`)

	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	resp := uploadFile(t, ts, token, fmt.Sprintf("/api/vehicles/%d/photo", vid),
		"car.png", "image/png", pngBuf.Bytes())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}
	var updated struct {
		PhotoPath string `json:"photo_path"`
	}
	decodeBody(t, resp, &updated)
	if !strings.HasPrefix(updated.PhotoPath, "/uploads/vehicles/") {
		t.Fatalf("unexpected photo path: %s", updated.PhotoPath)
	}

	// the saved file is served back
	resp, err := ts.Client().Get(ts.URL + updated.PhotoPath)
	if err != nil {
		t.Fatalf("get photo: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("serve photo status = %d", resp.StatusCode)
	}

	// text declared as png is rejected
	resp = uploadFile(t, ts, token, fmt.Sprintf("/api/vehicles/%d/photo", vid),
		"notes.txt", "image/png", []byte("just text"))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad content status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	// unknown vehicle is 404
	resp = uploadFile(t, ts, token, "/api/vehicles/999/photo",
		"car.png", "image/png", pngBuf.Bytes())
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing vehicle status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestReceiptUpload(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts)
	vid := createVehicle(t, ts, token, `{"make":"Ford","model":"F-150","year":2018}`)

	resp := doJSON(t, ts, http.MethodPost, fmt.Sprintf("/api/vehicles/%d/maintenance", vid), token,
		`{"type":"transmission service","date":"2024-02-02","cost":450}`)
	var m struct {
		ID int64 `json:"id"`
	}
	decodeBody(t, resp, &m)

	resp = uploadFile(t, ts, token,
		fmt.Sprintf("/api/vehicles/%d/maintenance/%d/receipt", vid, m.ID),
		"receipt.pdf", "application/pdf", []byte("%PDF-1.4\n1 0 obj\n"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("receipt upload status = %d", resp.StatusCode)
	}
	var updated struct {
		ReceiptPath string `json:"receipt_path"`
	}
	decodeBody(t, resp, &updated)
	if !strings.HasPrefix(updated.ReceiptPath, "/uploads/receipts/") {
		t.Fatalf("unexpected receipt path: %s", updated.ReceiptPath)
	}
}
