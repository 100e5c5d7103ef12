package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/membership/backend/internal/config"
	"github.com/membership/backend/internal/database"
	"github.com/membership/backend/internal/handlers"
	"github.com/membership/backend/internal/middleware"
	"github.com/membership/backend/internal/models"
	"github.com/membership/backend/internal/notify"
	"github.com/membership/backend/internal/router"
	"github.com/membership/backend/internal/services"
	"github.com/membership/backend/pkg/logger"
	"github.com/membership/backend/pkg/utils"
	"gorm.io/gorm"
)

type testEnv struct {
	app       *fiber.App
	db        *gorm.DB
	transport *fakeTransport
}

var testSetupOnce sync.Once

// fakeTransport records outgoing mail instead of dialling SMTP.
type fakeTransport struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (f *fakeTransport) Send(_ context.Context, msg notify.Message) (notify.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
	return notify.Receipt{MessageID: uuid.NewString(), Accepted: msg.To, SentAt: time.Now()}, nil
}

func (f *fakeTransport) waitForMessages(t *testing.T, n int) []notify.Message {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		f.mu.Lock()
		got := append([]notify.Message(nil), f.messages...)
		f.mu.Unlock()
		if len(got) >= n {
			return got
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected %d emails, got %d", n, len(got))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		logger.Init()
		utils.ConfigureJWT("test-secret", 24)
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), database.GormConfig())
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	auditService := services.NewAuditService(db, nil, 100)
	transport := &fakeTransport{}
	mailer := notify.NewMailer(config.EmailConfig{
		DefaultFrom: "no-reply@membership.test",
		Timeout:     time.Second,
	}, transport)
	notifier := services.NewSignupNotifier(mailer, 2*time.Second)

	app := fiber.New()
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	router.Mount(app, router.Routes(router.Dependencies{
		Auth:         handlers.NewAuthHandler(db, auditService),
		Branches:     handlers.NewBranchesHandler(db),
		Members:      handlers.NewMembersHandler(db, auditService, notifier),
		Groups:       handlers.NewGroupsHandler(db, auditService),
		GroupMembers: handlers.NewGroupMembersHandler(db, auditService),
		Audit:        handlers.NewAuditHandler(db),
		Middleware:   middleware.NewAuthMiddleware(db),
	}))

	return &testEnv{app: app, db: db, transport: transport}
}

func createTestBranch(t *testing.T, db *gorm.DB, name string, contact *string) *models.Branch {
	t.Helper()
	branch := &models.Branch{Name: name, Contact: contact}
	if err := db.Create(branch).Error; err != nil {
		t.Fatalf("failed creating test branch: %v", err)
	}
	return branch
}

func createTestAdmin(t *testing.T, db *gorm.DB, email, password string, role models.AdminRole, branchID *uuid.UUID) (*models.Admin, string) {
	t.Helper()

	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}

	admin := &models.Admin{
		Email:        email,
		PasswordHash: hash,
		Name:         "Test Admin",
		Role:         role,
		BranchID:     branchID,
	}
	if err := db.Create(admin).Error; err != nil {
		t.Fatalf("failed creating test admin: %v", err)
	}

	token, err := utils.GenerateToken(admin)
	if err != nil {
		t.Fatalf("failed generating auth token: %v", err)
	}

	return admin, token
}

// createBranchWithAdmin mirrors the usual fixture: one branch and an admin
// scoped to it.
func createBranchWithAdmin(t *testing.T, db *gorm.DB) (*models.Branch, string) {
	t.Helper()
	branch := createTestBranch(t, db, "Melbourne", nil)
	_, token := createTestAdmin(t, db, "branch-admin@test.com", "password123", models.AdminRoleBranch, &branch.ID)
	return branch, token
}

func createTestMember(t *testing.T, db *gorm.DB, branchID uuid.UUID, first, last, email string) *models.Member {
	t.Helper()
	member := &models.Member{BranchID: branchID, FirstName: first, LastName: last, Email: email}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("failed creating test member: %v", err)
	}
	return member
}

func createTestGroup(t *testing.T, db *gorm.DB, branchID uuid.UUID, name string) *models.Group {
	t.Helper()
	group := &models.Group{BranchID: branchID, Name: name, Description: "created in test"}
	if err := db.Create(group).Error; err != nil {
		t.Fatalf("failed creating test group: %v", err)
	}
	return group
}

func authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestHeaders := map[string]string{}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	if payload != nil {
		requestHeaders["Content-Type"] = "application/json"
	}

	return performRequest(t, app, method, path, body, requestHeaders)
}

func readBody(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}
	return raw
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	raw := readBody(t, resp)

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}

	return payload
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

func assertError(t *testing.T, body map[string]any, expected string) {
	t.Helper()
	if got, _ := body["error"].(string); got != expected {
		t.Fatalf("expected error %q, got %q", expected, got)
	}
}

func memberIDsFrom(t *testing.T, body map[string]any) []string {
	t.Helper()
	raw, ok := body["members"].([]any)
	if !ok {
		t.Fatalf("expected members array, got %T", body["members"])
	}
	ids := make([]string, 0, len(raw))
	for _, entry := range raw {
		ids = append(ids, entry.(map[string]any)["id"].(string))
	}
	return ids
}

func countMemberships(t *testing.T, db *gorm.DB, groupID uuid.UUID) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&models.GroupMembership{}).Where("group_id = ?", groupID).Count(&count).Error; err != nil {
		t.Fatalf("failed counting memberships: %v", err)
	}
	return count
}

func waitForAuditAction(t *testing.T, db *gorm.DB, action string) models.AuditLog {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		var row models.AuditLog
		err := db.Where("action = ?", action).First(&row).Error
		if err == nil {
			return row
		}
		if time.Now().After(deadline) {
			t.Fatalf("audit row %q never appeared: %v", action, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
