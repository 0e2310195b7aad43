package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goldenaeroindia-ctrl/erp-fleet-management/internal/config"
	"github.com/goldenaeroindia-ctrl/erp-fleet-management/internal/database"
	"github.com/goldenaeroindia-ctrl/erp-fleet-management/internal/excel"
	"github.com/goldenaeroindia-ctrl/erp-fleet-management/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	database.DB = db

	return NewRouter(&config.Config{SessionSecret: "test-secret", ServerPort: "0"})
}

// client carries the session cookie between requests, like a browser.
type client struct {
	t       *testing.T
	r       *gin.Engine
	cookies []*http.Cookie
}

func (c *client) request(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}

	w := httptest.NewRecorder()
	c.r.ServeHTTP(w, req)

	if set := w.Result().Cookies(); len(set) > 0 {
		c.cookies = set
	}
	return w
}

func (c *client) json(method, path string, payload any) *httptest.ResponseRecorder {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(c.t, err)
		body = bytes.NewReader(b)
	}
	return c.request(method, path, body, "application/json")
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	return m
}

func signupManager(t *testing.T, r *gin.Engine, name, email string) *client {
	t.Helper()
	c := &client{t: t, r: r}
	w := c.json(http.MethodPost, "/api/auth/signup", gin.H{
		"name": name, "email": email, "password": "Secret123!",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotEmpty(t, c.cookies)
	return c
}

func loginAdmin(t *testing.T, r *gin.Engine) *client {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("Admin123!"), bcrypt.MinCost)
	require.NoError(t, err)
	admin := models.User{
		Name: "Fleet Admin", Email: "admin@fleet.local",
		PasswordHash: string(hash), Role: models.RoleAdmin,
	}
	require.NoError(t, database.DB.Create(&admin).Error)

	c := &client{t: t, r: r}
	w := c.json(http.MethodPost, "/api/auth/login", gin.H{
		"email": "admin@fleet.local", "password": "Admin123!",
	})
	require.Equal(t, http.StatusOK, w.Code)
	return c
}

func createVehicleSheet(t *testing.T, c *client) uint {
	t.Helper()
	w := c.json(http.MethodPost, "/api/excel/create", gin.H{"template": "vehicle"})
	require.Equal(t, http.StatusOK, w.Code)
	file := decode(t, w)["file"].(map[string]any)
	return uint(file["id"].(float64))
}

func TestHealth(t *testing.T) {
	r := setupRouter(t)
	c := &client{t: t, r: r}
	w := c.request(http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestSignupAndMe(t *testing.T) {
	r := setupRouter(t)
	c := signupManager(t, r, "Ann", "ann@fleet.local")

	w := c.request(http.MethodGet, "/api/auth/me", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	user := decode(t, w)["user"].(map[string]any)
	assert.Equal(t, "ann@fleet.local", user["email"])
	assert.Equal(t, "MANAGER", user["role"])
}

func TestSignupMissingFields(t *testing.T) {
	r := setupRouter(t)
	c := &client{t: t, r: r}

	w := c.json(http.MethodPost, "/api/auth/signup", gin.H{"email": "x@fleet.local"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "All fields are required", decode(t, w)["message"])
}

func TestSignupDuplicateEmail(t *testing.T) {
	r := setupRouter(t)
	signupManager(t, r, "Ann", "ann@fleet.local")

	c := &client{t: t, r: r}
	w := c.json(http.MethodPost, "/api/auth/signup", gin.H{
		"name": "Other Ann", "email": "Ann@Fleet.Local", "password": "pw123456",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Email already registered", decode(t, w)["message"])
}

func TestLoginInvalidCredentials(t *testing.T) {
	r := setupRouter(t)
	signupManager(t, r, "Ann", "ann@fleet.local")

	c := &client{t: t, r: r}
	w := c.json(http.MethodPost, "/api/auth/login", gin.H{
		"email": "ann@fleet.local", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = c.json(http.MethodPost, "/api/auth/login", gin.H{
		"email": "nobody@fleet.local", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid credentials", decode(t, w)["message"])
}

func TestLogoutEndsSession(t *testing.T) {
	r := setupRouter(t)
	c := signupManager(t, r, "Ann", "ann@fleet.local")

	w := c.json(http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = c.request(http.MethodGet, "/api/auth/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUnauthenticatedRequests(t *testing.T) {
	r := setupRouter(t)
	c := &client{t: t, r: r}

	for _, probe := range []struct{ method, path string }{
		{http.MethodGet, "/api/excel"},
		{http.MethodPost, "/api/excel/create"},
		{http.MethodGet, "/api/excel/1"},
		{http.MethodDelete, "/api/excel/1"},
		{http.MethodGet, "/api/users"},
		{http.MethodGet, "/api/auth/me"},
	} {
		w := c.json(probe.method, probe.path, gin.H{})
		assert.Equalf(t, http.StatusUnauthorized, w.Code, "%s %s", probe.method, probe.path)
	}
}

func TestRoleGates(t *testing.T) {
	r := setupRouter(t)
	manager := signupManager(t, r, "Ann", "ann@fleet.local")
	admin := loginAdmin(t, r)

	// creation endpoints are manager-only
	w := admin.json(http.MethodPost, "/api/excel/create", gin.H{"template": "vehicle"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Manager access required", decode(t, w)["message"])

	w = admin.json(http.MethodGet, "/api/excel", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// fleet-wide listing and the user directory are admin-only
	w = manager.request(http.MethodGet, "/api/excel/admin", nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Admin access required", decode(t, w)["message"])

	w = manager.request(http.MethodGet, "/api/users", nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreateSheetFromTemplate(t *testing.T) {
	r := setupRouter(t)
	c := signupManager(t, r, "Ann", "ann@fleet.local")

	w := c.json(http.MethodPost, "/api/excel/create", gin.H{"template": "vehicle"})
	require.Equal(t, http.StatusOK, w.Code)

	file := decode(t, w)["file"].(map[string]any)
	assert.Equal(t, "Vehicle Register", file["name"])
	assert.Equal(t, float64(0), file["rowCount"])
	assert.Len(t, file["headers"].([]any), 7)
}

func TestCreateSheetEmptyHeaders(t *testing.T) {
	r := setupRouter(t)
	c := signupManager(t, r, "Ann", "ann@fleet.local")

	w := c.json(http.MethodPost, "/api/excel/create", gin.H{"headers": []string{"", "  "}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "At least one header is required", decode(t, w)["message"])
}

func TestInvalidFileID(t *testing.T) {
	r := setupRouter(t)
	c := signupManager(t, r, "Ann", "ann@fleet.local")

	w := c.request(http.MethodGet, "/api/excel/not-a-number", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid file ID", decode(t, w)["message"])
}

// A manager probing another manager's sheet gets 404, never 403: the
// response must not confirm that the sheet exists.
func TestCrossManagerAccessIsNotFound(t *testing.T) {
	r := setupRouter(t)
	owner := signupManager(t, r, "Ann", "ann@fleet.local")
	other := signupManager(t, r, "Ben", "ben@fleet.local")

	id := createVehicleSheet(t, owner)
	path := fmt.Sprintf("/api/excel/%d", id)

	w := other.request(http.MethodGet, path, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = other.json(http.MethodPut, path, gin.H{"name": "hijack"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = other.request(http.MethodGet, path+"/download", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// The ownership rules are asymmetric on purpose: an admin may read and
// update any sheet, but delete and duplicate are reserved for the literal
// owner, and the admin gets the same 404 as a stranger.
func TestAdminOwnershipAsymmetry(t *testing.T) {
	r := setupRouter(t)
	owner := signupManager(t, r, "Ann", "ann@fleet.local")
	admin := loginAdmin(t, r)

	id := createVehicleSheet(t, owner)
	path := fmt.Sprintf("/api/excel/%d", id)

	w := admin.request(http.MethodGet, path, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = admin.json(http.MethodPut, path, gin.H{"name": "Reviewed Register"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = admin.request(http.MethodDelete, path, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = admin.json(http.MethodPost, path+"/duplicate", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// the sheet is still there for its owner, renamed by the admin
	w = owner.request(http.MethodGet, path, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	file := decode(t, w)["file"].(map[string]any)
	assert.Equal(t, "Reviewed Register", file["name"])
}

func multipartFile(t *testing.T, filename string, data []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestUploadSheet(t *testing.T) {
	r := setupRouter(t)
	c := signupManager(t, r, "Ann", "ann@fleet.local")

	data, err := excel.Encode([][]string{
		{"Name", "Age"},
		{"Ann", "30"},
		{"Ben", "25"},
	})
	require.NoError(t, err)

	body, contentType := multipartFile(t, "crew roster.xlsx", data)
	w := c.request(http.MethodPost, "/api/excel/upload", body, contentType)
	require.Equal(t, http.StatusOK, w.Code)

	file := decode(t, w)["file"].(map[string]any)
	assert.Equal(t, "crew roster", file["name"])
	assert.Equal(t, float64(2), file["rowCount"])

	id := uint(file["id"].(float64))
	w = c.request(http.MethodGet, fmt.Sprintf("/api/excel/%d", id), nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	full := decode(t, w)["file"].(map[string]any)
	rows := full["rows"].([]any)
	require.Len(t, rows, 2)
	assert.Equal(t, map[string]any{"Name": "Ann", "Age": "30"}, rows[0])
	assert.Equal(t, map[string]any{"Name": "Ben", "Age": "25"}, rows[1])
}

func TestUploadRejectsWrongExtension(t *testing.T) {
	r := setupRouter(t)
	c := signupManager(t, r, "Ann", "ann@fleet.local")

	body, contentType := multipartFile(t, "notes.csv", []byte("a,b\n1,2"))
	w := c.request(http.MethodPost, "/api/excel/upload", body, contentType)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Only .xlsx and .xls files are allowed", decode(t, w)["message"])
}

func TestUploadMissingFile(t *testing.T) {
	r := setupRouter(t)
	c := signupManager(t, r, "Ann", "ann@fleet.local")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.Close())

	w := c.request(http.MethodPost, "/api/excel/upload", &buf, mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No file provided", decode(t, w)["message"])
}

func TestUploadEmptySheet(t *testing.T) {
	r := setupRouter(t)
	c := signupManager(t, r, "Ann", "ann@fleet.local")

	data, err := excel.Encode(nil)
	require.NoError(t, err)

	body, contentType := multipartFile(t, "blank.xlsx", data)
	w := c.request(http.MethodPost, "/api/excel/upload", body, contentType)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Excel file is empty", decode(t, w)["message"])
}

func TestDownloadSheet(t *testing.T) {
	r := setupRouter(t)
	c := signupManager(t, r, "Ann", "ann@fleet.local")

	w := c.json(http.MethodPost, "/api/excel/create", gin.H{
		"name":    "Q3 fleet / north",
		"headers": []string{"Unit", "Driver"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	id := uint(decode(t, w)["file"].(map[string]any)["id"].(float64))

	w = c.request(http.MethodGet, fmt.Sprintf("/api/excel/%d/download", id), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t,
		`attachment; filename="Q3_fleet___north.xlsx"`,
		w.Header().Get("Content-Disposition"))

	grid, err := excel.Decode(w.Body.Bytes())
	require.NoError(t, err)
	require.Len(t, grid, 1)
	assert.Equal(t, []string{"Unit", "Driver"}, grid[0])
}

func TestDuplicateAndDeleteByOwner(t *testing.T) {
	r := setupRouter(t)
	c := signupManager(t, r, "Ann", "ann@fleet.local")

	id := createVehicleSheet(t, c)

	w := c.json(http.MethodPost, fmt.Sprintf("/api/excel/%d/duplicate", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	dup := decode(t, w)["file"].(map[string]any)
	assert.Equal(t, "Vehicle Register (Copy)", dup["name"])

	w = c.request(http.MethodDelete, fmt.Sprintf("/api/excel/%d", id), nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = c.request(http.MethodGet, fmt.Sprintf("/api/excel/%d", id), nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	// the copy is untouched by deleting the original
	w = c.request(http.MethodGet, fmt.Sprintf("/api/excel/%v", dup["id"]), nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpdateValidation(t *testing.T) {
	r := setupRouter(t)
	c := signupManager(t, r, "Ann", "ann@fleet.local")
	id := createVehicleSheet(t, c)
	path := fmt.Sprintf("/api/excel/%d", id)

	w := c.json(http.MethodPut, path, gin.H{"headers": "not-an-array"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Headers must be an array", decode(t, w)["message"])

	w = c.json(http.MethodPut, path, gin.H{"rows": 42})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Rows must be an array", decode(t, w)["message"])
}

func TestCellOperations(t *testing.T) {
	r := setupRouter(t)
	c := signupManager(t, r, "Ann", "ann@fleet.local")

	w := c.json(http.MethodPost, "/api/excel/create", gin.H{"headers": []string{"Unit", "Driver"}})
	require.Equal(t, http.StatusOK, w.Code)
	id := uint(decode(t, w)["file"].(map[string]any)["id"].(float64))
	base := fmt.Sprintf("/api/excel/%d", id)

	w = c.json(http.MethodPost, base+"/rows", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = c.json(http.MethodPost, base+"/columns", nil)
	require.Equal(t, http.StatusOK, w.Code)
	file := decode(t, w)["file"].(map[string]any)
	assert.Equal(t, []any{"Unit", "Driver", "Column 3"}, file["headers"])

	w = c.json(http.MethodPost, base+"/headers/rename", gin.H{"old": "Unit", "new": "Plate"})
	require.Equal(t, http.StatusOK, w.Code)
	file = decode(t, w)["file"].(map[string]any)
	assert.Equal(t, []any{"Plate", "Driver", "Column 3"}, file["headers"])

	w = c.json(http.MethodDelete, base+"/columns", gin.H{"label": "Column 3"})
	require.Equal(t, http.StatusOK, w.Code)
	file = decode(t, w)["file"].(map[string]any)
	assert.Equal(t, []any{"Plate", "Driver"}, file["headers"])

	w = c.request(http.MethodDelete, base+"/rows/0", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	file = decode(t, w)["file"].(map[string]any)
	assert.Empty(t, file["rows"])
}

func TestAdminListsSheetsWithOwners(t *testing.T) {
	r := setupRouter(t)
	owner := signupManager(t, r, "Ann", "ann@fleet.local")
	admin := loginAdmin(t, r)

	createVehicleSheet(t, owner)

	w := admin.request(http.MethodGet, "/api/excel/admin", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	files := decode(t, w)["files"].([]any)
	require.Len(t, files, 1)
	got := files[0].(map[string]any)
	assert.Equal(t, "Vehicle Register", got["name"])
	assert.Equal(t, "ann@fleet.local", got["owner"].(map[string]any)["email"])
}

func TestAdminUserManagement(t *testing.T) {
	r := setupRouter(t)
	manager := signupManager(t, r, "Ann", "ann@fleet.local")
	admin := loginAdmin(t, r)

	createVehicleSheet(t, manager)

	w := admin.json(http.MethodPost, "/api/users/create", gin.H{
		"name": "Ben", "email": "ben@fleet.local", "password": "Secret123!", "role": "MANAGER",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "MANAGER created", decode(t, w)["message"])

	w = admin.json(http.MethodPost, "/api/users/create", gin.H{
		"name": "Eve", "email": "eve@fleet.local", "password": "Secret123!", "role": "SUPERUSER",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Role must be ADMIN or MANAGER", decode(t, w)["message"])

	w = admin.json(http.MethodPost, "/api/users/create", gin.H{
		"name": "Ann Again", "email": "ann@fleet.local", "password": "Secret123!", "role": "MANAGER",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = admin.request(http.MethodGet, "/api/users", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	users := decode(t, w)["users"].([]any)
	require.Len(t, users, 3)

	counts := map[string]float64{}
	for _, raw := range users {
		u := raw.(map[string]any)
		counts[u["email"].(string)] = u["fileCount"].(float64)
	}
	assert.Equal(t, float64(1), counts["ann@fleet.local"])
	assert.Equal(t, float64(0), counts["admin@fleet.local"])
}
