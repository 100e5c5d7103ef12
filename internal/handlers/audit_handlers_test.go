package handlers_test

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/membership/backend/internal/models"
)

func TestAuditExportEndpoint(t *testing.T) {
	env := setupTestEnv(t)
	branch, token := createBranchWithAdmin(t, env.db)
	other := createTestBranch(t, env.db, "Sydney", nil)

	for _, entry := range []models.AuditLog{
		{BranchID: &branch.ID, Action: "group.create", ResourceType: "group", Details: map[string]any{"name": "Volunteers"}, IPAddress: "127.0.0.1", CreatedAt: time.Now().UTC()},
		{BranchID: &other.ID, Action: "group.delete", ResourceType: "group", IPAddress: "127.0.0.1", CreatedAt: time.Now().UTC()},
	} {
		entry := entry
		if err := env.db.Create(&entry).Error; err != nil {
			t.Fatalf("failed creating audit log fixture: %v", err)
		}
	}
	path := fmt.Sprintf("/branches/%s/audit-log", branch.ID)

	t.Run("json export is scoped to the branch", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, path+"?format=json", nil, authHeaders(token))
		assertStatus(t, resp, http.StatusOK)

		entries, ok := decodeJSONMap(t, resp)["entries"].([]any)
		if !ok || len(entries) != 1 {
			t.Fatalf("expected one entry for this branch, got %v", entries)
		}
		if entries[0].(map[string]any)["action"] != "group.create" {
			t.Fatalf("unexpected entry %v", entries[0])
		}
	})

	t.Run("csv export", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, path, nil, authHeaders(token))
		assertStatus(t, resp, http.StatusOK)
		if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
			t.Fatalf("expected text/csv, got %q", ct)
		}

		lines := strings.Split(strings.TrimSpace(string(readBody(t, resp))), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected header plus one row, got %q", lines)
		}
		if !strings.Contains(lines[1], "name=Volunteers") {
			t.Fatalf("expected details column, got %q", lines[1])
		}
	})

	t.Run("rejects unknown format", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, path+"?format=xml", nil, authHeaders(token))
		assertStatus(t, resp, http.StatusBadRequest)
		assertError(t, decodeJSONMap(t, resp), "format must be csv or json")
	})
}
