package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/automate-app/automate_be/internal/middleware"
	"github.com/automate-app/automate_be/internal/models"
	"github.com/automate-app/automate_be/internal/services/advisor"
	"github.com/automate-app/automate_be/internal/services/rating"
	"github.com/automate-app/automate_be/internal/utils"
)

const testJWTSecret = "test-secret"

type testEnv struct {
	app *fiber.App
	db  *gorm.DB
}

// newTestEnv wires the route table the way cmd/api does, against an
// in-memory database and without redis or the external oracle.
func newTestEnv(t *testing.T, adv *advisor.AdvisorService) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.UserProfile{},
		&models.MechanicProfile{},
		&models.ServiceType{},
		&models.ServiceRequest{},
		&models.Review{},
	))

	requestH := NewServiceRequestHandler(db, adv, nil)
	reviewH := NewReviewHandler(db, rating.NewRatingService(db))
	mechanicH := NewMechanicProfileHandler(db, "")
	profileH := NewUserProfileHandler(db)
	typeH := NewServiceTypeHandler(db)
	assistH := NewAssistHandler(adv)
	adminH := NewAdminHandler(db)

	app := fiber.New()
	api := app.Group("/api")

	api.Get("/service-types", typeH.List)
	api.Get("/mechanics", mechanicH.ListPublic)
	api.Get("/mechanics/:id", mechanicH.GetPublic)

	protected := api.Group("/",
		middleware.JWTFromCookie(testJWTSecret),
		middleware.AttachJWTLocals(),
	)

	protected.Get("/service-requests", requestH.List)
	protected.Get("/service-requests/:id", requestH.Get)
	protected.Post("/service-requests", middleware.RequireRoles("client", "admin"), requestH.Create)
	protected.Put("/service-requests/:id", requestH.Update)
	protected.Delete("/service-requests/:id", requestH.Delete)
	protected.Patch("/service-requests/:id/accept", middleware.RequireRoles("mechanic", "admin"), requestH.Accept)
	protected.Patch("/service-requests/:id/complete", middleware.RequireRoles("mechanic", "admin"), requestH.Complete)
	protected.Patch("/service-requests/:id/reject", middleware.RequireRoles("mechanic", "admin"), requestH.Reject)

	protected.Get("/reviews", reviewH.List)
	protected.Get("/reviews/:id", reviewH.Get)
	protected.Post("/reviews", middleware.RequireRoles("client"), reviewH.Create)
	protected.Put("/reviews/:id", reviewH.Update)
	protected.Delete("/reviews/:id", reviewH.Delete)

	protected.Get("/profile", profileH.Get)
	protected.Post("/profile", profileH.Create)
	protected.Put("/profile", profileH.Update)

	protected.Get("/mechanic/profile/me", middleware.RequireRoles("mechanic", "admin"), mechanicH.MyProfile)
	protected.Post("/mechanic/profile", middleware.RequireRoles("mechanic", "admin"), mechanicH.Create)
	protected.Put("/mechanic/profile", middleware.RequireRoles("mechanic", "admin"), mechanicH.Update)

	protected.Post("/assist", assistH.Chat)

	admin := protected.Group("/admin", middleware.RequireRoles("admin"))
	admin.Get("/users", adminH.ListUsers)
	admin.Patch("/users/:id/role", adminH.ChangeRole)
	admin.Post("/service-types", typeH.Create)
	admin.Put("/service-types/:id", typeH.Update)
	admin.Delete("/service-types/:id", typeH.Delete)
	admin.Patch("/mechanics/:id/verify", mechanicH.Verify)
	admin.Delete("/mechanics/:id", mechanicH.Delete)

	return &testEnv{app: app, db: db}
}

func (e *testEnv) user(t *testing.T, role models.Role) *models.User {
	t.Helper()
	u := &models.User{
		Name:     "u-" + uuid.NewString()[:8],
		Email:    uuid.NewString() + "@test.local",
		Password: "x",
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, e.db.Create(u).Error)
	return u
}

func (e *testEnv) serviceType(t *testing.T, name string) *models.ServiceType {
	t.Helper()
	st := &models.ServiceType{Name: name}
	require.NoError(t, e.db.Create(st).Error)
	return st
}

// do issues an authenticated JSON request. A nil user sends no cookie.
func (e *testEnv) do(t *testing.T, u *models.User, method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if u != nil {
		token, err := utils.SignJWT(testJWTSecret, u.ID.String(), string(u.Role), 60)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: "am_token", Value: token})
	}

	resp, err := e.app.Test(req, int(5*time.Second/time.Millisecond))
	require.NoError(t, err)

	var out map[string]interface{}
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &out)
	return resp, out
}

// failingAdvisor points at a server that always errors, for testing
// that oracle failures never block the write path.
func failingAdvisor(t *testing.T) *advisor.AdvisorService {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":{"message":"backend down"}}`))
	}))
	t.Cleanup(srv.Close)

	return &advisor.AdvisorService{
		Client:  &http.Client{Timeout: 2 * time.Second},
		APIKey:  "k",
		Model:   "m",
		BaseURL: srv.URL,
	}
}

func triageAdvisor(t *testing.T) *advisor.AdvisorService {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"candidates": []map[string]interface{}{
				{"content": map[string]interface{}{
					"parts": []map[string]string{
						{"text": `{"serviceType":"Towing","possibleReasons":["engine seizure"],"urgency":"High","recommendTowing":true}`},
					},
				}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)

	return &advisor.AdvisorService{
		Client:  &http.Client{Timeout: 2 * time.Second},
		APIKey:  "k",
		Model:   "m",
		BaseURL: srv.URL,
	}
}
