package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/julienschmidt/httprouter"
	apiContext "suitehub/internal/api/context"
	"suitehub/internal/engine/access"
	"suitehub/internal/platform/auth"
	"suitehub/internal/platform/database/dbtest"
	"suitehub/internal/platform/models"
	"suitehub/internal/platform/repositories"
)

func newTeamMiddleware(db *sql.DB) *TeamMiddleware {
	return NewTeamMiddleware(
		repositories.NewTeamRepository(db),
		repositories.NewMemberRepository(db),
		repositories.NewSubscriptionRepository(db),
		repositories.NewInvoiceRepository(db),
	)
}

func withClaims(req *http.Request, email string) *http.Request {
	ctx := context.WithValue(req.Context(), apiContext.Claims, &auth.Claims{UserID: "acct_1", Email: email})
	return req.WithContext(ctx)
}

func TestTeamMiddleware(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	now := time.Now().Unix()

	if err := repositories.NewTeamRepository(db).Create(ctx, &models.Team{ID: "team_123", Name: "Acme", Owner: "owner@acme.io", Verified: true, Status: "active", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("seed team: %v", err)
	}
	if err := repositories.NewMemberRepository(db).Upsert(ctx, &models.TeamMember{ID: "mem_1", TeamID: "team_123", Email: "ann@acme.io", Role: "admin", Status: models.MemberStatusActive}); err != nil {
		t.Fatalf("seed member: %v", err)
	}

	middleware := newTeamMiddleware(db)

	t.Run("Member Resolves", func(t *testing.T) {
		req := withClaims(httptest.NewRequest("GET", "/?team_id=team_123", nil), "Ann@acme.io")

		rr := httptest.NewRecorder()
		handler := middleware.Resolve(QueryTeam)(func(w http.ResponseWriter, r *http.Request) {
			tc := TeamFrom(r.Context())
			if tc.Team.ID != "team_123" {
				t.Errorf("Expected team_123, got %s", tc.Team.ID)
			}
			if !tc.Evaluator.Can(access.SubscribeApps) {
				t.Error("Expected billing admin of a verified team to subscribe")
			}
			if tc.Evaluator.Can(access.ManageMembers) {
				t.Error("Expected billing admin not to manage members")
			}
			w.WriteHeader(http.StatusOK)
		})

		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
		}
	})

	t.Run("Owner Resolves Without Member Row", func(t *testing.T) {
		req := withClaims(httptest.NewRequest("GET", "/?team_id=team_123", nil), "owner@acme.io")

		rr := httptest.NewRecorder()
		middleware.Resolve(QueryTeam)(func(w http.ResponseWriter, r *http.Request) {
			if !TeamFrom(r.Context()).Evaluator.HasRole("owner") {
				t.Error("Expected owner role")
			}
		}).ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
		}
	})

	t.Run("Stranger Forbidden", func(t *testing.T) {
		req := withClaims(httptest.NewRequest("GET", "/?team_id=team_123", nil), "mallory@evil.io")

		rr := httptest.NewRecorder()
		middleware.Resolve(QueryTeam)(func(w http.ResponseWriter, r *http.Request) {
			t.Error("Handler should not be called")
		}).ServeHTTP(rr, req)

		if rr.Code != http.StatusForbidden {
			t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusForbidden)
		}
	})

	t.Run("Missing Team ID", func(t *testing.T) {
		req := withClaims(httptest.NewRequest("GET", "/", nil), "owner@acme.io")

		rr := httptest.NewRecorder()
		middleware.Resolve(QueryTeam)(func(w http.ResponseWriter, r *http.Request) {
			t.Error("Handler should not be called")
		}).ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusBadRequest)
		}
	})

	t.Run("Subscription Not Found", func(t *testing.T) {
		req := withClaims(httptest.NewRequest("GET", "/", nil), "owner@acme.io")
		req = req.WithContext(context.WithValue(req.Context(), apiContext.Params, httprouter.Params{{Key: "id", Value: "sub_missing"}}))

		rr := httptest.NewRecorder()
		middleware.Subscription("id")(func(w http.ResponseWriter, r *http.Request) {
			t.Error("Handler should not be called")
		}).ServeHTTP(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusNotFound)
		}
	})
}

func TestTeamMiddleware_TeamNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM teams WHERE id = ?").
		WithArgs("team_999").
		WillReturnError(sql.ErrNoRows)

	req := withClaims(httptest.NewRequest("GET", "/?team_id=team_999", nil), "owner@acme.io")
	rr := httptest.NewRecorder()
	newTeamMiddleware(db).Resolve(QueryTeam)(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not be called")
	}).ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusNotFound)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestTeamMiddleware_MalformedBody(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	req := withClaims(httptest.NewRequest("POST", "/", stringsReader(`{"team_id":`)), "owner@acme.io")
	rr := httptest.NewRecorder()
	newTeamMiddleware(db).Resolve(BodyTeam)(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not be called")
	}).ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusBadRequest)
	}
	if !strings.Contains(rr.Body.String(), "Invalid request body") {
		t.Errorf("unexpected body: %s", rr.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestBodyTeamKeepsBody(t *testing.T) {
	req := httptest.NewRequest("POST", "/", stringsReader(`{"team_id":"team_1","app_code":"crm"}`))
	id, err := BodyTeam(req)
	if err != nil || id != "team_1" {
		t.Fatalf("BodyTeam() = %q, %v", id, err)
	}

	var body struct {
		AppCode string `json:"app_code"`
	}
	if err := decodeJSON(req, &body); err != nil || body.AppCode != "crm" {
		t.Errorf("body not preserved: %+v %v", body, err)
	}
}
