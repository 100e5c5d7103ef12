package handlers_test

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/membership/backend/internal/models"
	"github.com/membership/backend/internal/notify"
)

func TestHealthEndpoint(t *testing.T) {
	env := setupTestEnv(t)

	resp := performRequest(t, env.app, http.MethodGet, "/health", nil, nil)
	assertStatus(t, resp, http.StatusOK)
	if got := decodeJSONMap(t, resp)["status"]; got != "ok" {
		t.Fatalf("expected status ok, got %v", got)
	}
}

func TestLogin(t *testing.T) {
	env := setupTestEnv(t)
	branch := createTestBranch(t, env.db, "Melbourne", nil)
	admin, _ := createTestAdmin(t, env.db, "organiser@test.com", "password123", models.AdminRoleBranch, &branch.ID)

	t.Run("returns a token usable on branch routes", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/auth/login", map[string]any{
			"email":    " Organiser@Test.com ",
			"password": "password123",
		}, nil)
		assertStatus(t, resp, http.StatusOK)

		body := decodeJSONMap(t, resp)
		token, _ := body["token"].(string)
		if token == "" {
			t.Fatalf("expected token, got %+v", body)
		}
		if body["admin"].(map[string]any)["id"] != admin.ID.String() {
			t.Fatalf("expected admin in response, got %+v", body["admin"])
		}
		if _, leaked := body["admin"].(map[string]any)["passwordHash"]; leaked {
			t.Fatal("password hash must not be serialised")
		}

		resp = performRequest(t, env.app, http.MethodGet, fmt.Sprintf("/branches/%s/groups", branch.ID), nil, authHeaders(token))
		assertStatus(t, resp, http.StatusOK)

		resp = performRequest(t, env.app, http.MethodGet, "/auth/me", nil, authHeaders(token))
		assertStatus(t, resp, http.StatusOK)
	})

	t.Run("wrong password", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/auth/login", map[string]any{
			"email":    "organiser@test.com",
			"password": "nope",
		}, nil)
		assertStatus(t, resp, http.StatusUnauthorized)
		assertError(t, decodeJSONMap(t, resp), "invalid credentials")
	})

	t.Run("unknown email", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/auth/login", map[string]any{
			"email":    "nobody@test.com",
			"password": "password123",
		}, nil)
		assertStatus(t, resp, http.StatusUnauthorized)
	})

	t.Run("missing fields", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/auth/login", map[string]any{}, nil)
		assertStatus(t, resp, http.StatusBadRequest)
	})
}

func TestListBranchesIsPublic(t *testing.T) {
	env := setupTestEnv(t)
	createTestBranch(t, env.db, "Sydney", nil)
	createTestBranch(t, env.db, "Adelaide", nil)

	resp := performRequest(t, env.app, http.MethodGet, "/branches", nil, nil)
	assertStatus(t, resp, http.StatusOK)

	branches, ok := decodeJSONMap(t, resp)["branches"].([]any)
	if !ok || len(branches) != 2 {
		t.Fatalf("expected 2 branches, got %v", branches)
	}
	first := branches[0].(map[string]any)
	if first["name"] != "Adelaide" {
		t.Fatalf("expected branches ordered by name, got %v", branches)
	}
	if _, hasContact := first["contact"]; hasContact {
		t.Fatal("branch summary should not expose the contact address")
	}
}

func TestListBranchMembers(t *testing.T) {
	env := setupTestEnv(t)
	branch, token := createBranchWithAdmin(t, env.db)
	createTestMember(t, env.db, branch.ID, "Alan", "Turing", "alan@example.com")
	createTestMember(t, env.db, branch.ID, "Ada", "Lovelace", "ada@example.com")
	createTestMember(t, env.db, branch.ID, "Augusta", "Lovelace", "augusta@example.com")

	other := createTestBranch(t, env.db, "Sydney", nil)
	createTestMember(t, env.db, other.ID, "Grace", "Hopper", "grace@example.com")

	resp := performRequest(t, env.app, http.MethodGet, fmt.Sprintf("/branches/%s/members", branch.ID), nil, authHeaders(token))
	assertStatus(t, resp, http.StatusOK)

	members := decodeJSONMap(t, resp)["members"].([]any)
	if len(members) != 3 {
		t.Fatalf("expected only this branch's members, got %d", len(members))
	}
	var order []string
	for _, m := range members {
		order = append(order, m.(map[string]any)["firstName"].(string))
	}
	if strings.Join(order, ",") != "Ada,Augusta,Alan" {
		t.Fatalf("expected last-name then first-name order, got %v", order)
	}

	resp = performRequest(t, env.app, http.MethodGet, fmt.Sprintf("/branches/%s/members", other.ID), nil, authHeaders(token))
	assertStatus(t, resp, http.StatusForbidden)
}

func signupPayload(overrides map[string]any) map[string]any {
	payload := map[string]any{
		"firstName":          "Sherlock",
		"lastName":           "Holmes",
		"email":              "sherlock@example.com",
		"primaryPhoneNumber": "0396291234",
		"additionalInfo":     "Happy to hand out flyers",
	}
	for k, v := range overrides {
		payload[k] = v
	}
	return payload
}

func TestSignup(t *testing.T) {
	env := setupTestEnv(t)
	contact := "organiser@branch.test"
	branch := createTestBranch(t, env.db, "Melbourne", &contact)

	t.Run("single branch needs no branch id", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/signup", signupPayload(nil), nil)
		assertStatus(t, resp, http.StatusOK)

		body := decodeJSONMap(t, resp)
		if body["branchId"] != branch.ID.String() {
			t.Fatalf("expected member in the only branch, got %v", body["branchId"])
		}

		sent := env.transport.waitForMessages(t, 2)
		byRecipient := map[string]notify.Message{}
		for _, msg := range sent {
			byRecipient[msg.To[0]] = msg
		}

		welcome, ok := byRecipient["sherlock@example.com"]
		if !ok || welcome.ContentType != notify.ContentPlain {
			t.Fatalf("expected plain-text welcome to the member, got %+v", sent)
		}
		notice, ok := byRecipient[contact]
		if !ok || notice.ContentType != notify.ContentHTML {
			t.Fatalf("expected html notice to the branch contact, got %+v", sent)
		}
		if notice.ReplyTo != "sherlock@example.com" {
			t.Fatalf("expected notice reply-to the member, got %q", notice.ReplyTo)
		}
		waitForAuditAction(t, env.db, "member.signup")
	})

	t.Run("duplicate email in branch conflicts", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/signup", signupPayload(map[string]any{
			"email": "SHERLOCK@example.com",
		}), nil)
		assertStatus(t, resp, http.StatusConflict)
	})

	t.Run("display name form is the same address", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/signup", signupPayload(map[string]any{
			"email": "Sherlock Holmes <Sherlock@Example.com>",
		}), nil)
		assertStatus(t, resp, http.StatusConflict)

		var count int64
		env.db.Model(&models.Member{}).Where("branch_id = ?", branch.ID).Count(&count)
		if count != 1 {
			t.Fatalf("expected a single stored member, got %d", count)
		}
	})

	t.Run("stores the bare address", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/signup", signupPayload(map[string]any{
			"email": "Mrs Hudson <Hudson@Example.com>",
		}), nil)
		assertStatus(t, resp, http.StatusOK)
		if got := decodeJSONMap(t, resp)["email"]; got != "hudson@example.com" {
			t.Fatalf("expected normalised email, got %v", got)
		}
	})

	t.Run("invalid email", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/signup", signupPayload(map[string]any{"email": "not an email"}), nil)
		assertStatus(t, resp, http.StatusBadRequest)
		assertError(t, decodeJSONMap(t, resp), "invalid email")
	})

	t.Run("missing names", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/signup", signupPayload(map[string]any{"lastName": " "}), nil)
		assertStatus(t, resp, http.StatusBadRequest)
	})

	t.Run("malformed branch id", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/signup", signupPayload(map[string]any{
			"email":    "watson@example.com",
			"branchId": "whatevs",
		}), nil)
		assertStatus(t, resp, http.StatusBadRequest)
	})

	t.Run("branch id required once there are several branches", func(t *testing.T) {
		second := createTestBranch(t, env.db, "Sydney", nil)

		resp := performJSONRequest(t, env.app, http.MethodPost, "/signup", signupPayload(map[string]any{
			"email": "watson@example.com",
		}), nil)
		assertStatus(t, resp, http.StatusBadRequest)
		assertError(t, decodeJSONMap(t, resp), "branchId is required")

		resp = performJSONRequest(t, env.app, http.MethodPost, "/signup", signupPayload(map[string]any{
			"email":    "sherlock@example.com",
			"branchId": second.ID.String(),
		}), nil)
		assertStatus(t, resp, http.StatusOK)
	})
}
