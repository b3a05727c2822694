package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/automate-app/automate_be/internal/models"
)

func TestMechanicProfileCRUD(t *testing.T) {
	env := newTestEnv(t, nil)

	mech := env.user(t, models.RoleMechanic)
	client := env.user(t, models.RoleClient)

	// clients never reach the mechanic profile surface
	resp, _ := env.do(t, client, "POST", "/api/mechanic/profile", fiber.Map{"garage_name": "Nope"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// garage name is mandatory
	resp, body := env.do(t, mech, "POST", "/api/mechanic/profile", fiber.Map{"specialization": "brakes"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["errors"].(map[string]interface{}), "garage_name")

	resp, body = env.do(t, mech, "POST", "/api/mechanic/profile", fiber.Map{
		"garage_name":    "Axle & Sons",
		"specialization": "suspension",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := body["data"].(map[string]interface{})
	assert.EqualValues(t, 0, data["average_rating"])
	assert.EqualValues(t, 0, data["total_reviews"])

	// one profile per user
	resp, _ = env.do(t, mech, "POST", "/api/mechanic/profile", fiber.Map{"garage_name": "Second"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// the aggregate survives edits
	require.NoError(t, env.db.Model(&models.MechanicProfile{}).
		Where("user_id = ?", mech.ID).
		Updates(map[string]interface{}{"average_rating": 4.5, "total_reviews": 2}).Error)

	resp, body = env.do(t, mech, "PUT", "/api/mechanic/profile", fiber.Map{
		"garage_name":    "Axle & Sons Auto",
		"specialization": "suspension, brakes",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data = body["data"].(map[string]interface{})
	assert.Equal(t, "Axle & Sons Auto", data["garage_name"])
	assert.EqualValues(t, 4.5, data["average_rating"])
	assert.EqualValues(t, 2, data["total_reviews"])

	resp, _ = env.do(t, mech, "GET", "/api/mechanic/profile/me", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMechanicDirectoryVerifiedFilter(t *testing.T) {
	env := newTestEnv(t, nil)

	verified := env.user(t, models.RoleMechanic)
	hidden := env.user(t, models.RoleMechanic)

	require.NoError(t, env.db.Create(&models.MechanicProfile{
		UserID: verified.ID, GarageName: "Trusted Motors", IsVerifiedByAdmin: true, AverageRating: 4.8,
	}).Error)
	require.NoError(t, env.db.Create(&models.MechanicProfile{
		UserID: hidden.ID, GarageName: "New Kid Garage",
	}).Error)

	// default: verified only, no auth needed
	_, body := env.do(t, nil, "GET", "/api/mechanics", nil)
	data := body["data"].([]interface{})
	require.Len(t, data, 1)
	assert.Equal(t, "Trusted Motors", data[0].(map[string]interface{})["garage_name"])

	// ?verified=false opens the full directory
	_, body = env.do(t, nil, "GET", "/api/mechanics?verified=false", nil)
	assert.Len(t, body["data"], 2)

	// search
	_, body = env.do(t, nil, "GET", "/api/mechanics?verified=false&q=new+kid", nil)
	data = body["data"].([]interface{})
	require.Len(t, data, 1)
	assert.Equal(t, "New Kid Garage", data[0].(map[string]interface{})["garage_name"])
}

func TestMechanicDirectorySort(t *testing.T) {
	env := newTestEnv(t, nil)

	for i, rating := range []float64{3.1, 4.9, 2.0} {
		m := env.user(t, models.RoleMechanic)
		require.NoError(t, env.db.Create(&models.MechanicProfile{
			UserID:            m.ID,
			GarageName:        fmt.Sprintf("Garage %d", i),
			AverageRating:     rating,
			IsVerifiedByAdmin: true,
		}).Error)
	}

	ratings := func(body map[string]interface{}) []float64 {
		var out []float64
		for _, item := range body["data"].([]interface{}) {
			out = append(out, item.(map[string]interface{})["average_rating"].(float64))
		}
		return out
	}

	_, body := env.do(t, nil, "GET", "/api/mechanics", nil)
	assert.Equal(t, []float64{4.9, 3.1, 2.0}, ratings(body))

	_, body = env.do(t, nil, "GET", "/api/mechanics?sort=rating_asc", nil)
	assert.Equal(t, []float64{2.0, 3.1, 4.9}, ratings(body))
}

func TestMechanicVerifyAdminOnly(t *testing.T) {
	env := newTestEnv(t, nil)

	mech := env.user(t, models.RoleMechanic)
	admin := env.user(t, models.RoleAdmin)

	mp := models.MechanicProfile{UserID: mech.ID, GarageName: "Pending Garage"}
	require.NoError(t, env.db.Create(&mp).Error)

	// mechanics cannot verify themselves
	resp, _ := env.do(t, mech, "PATCH", fmt.Sprintf("/api/admin/mechanics/%d/verify", mp.ID), fiber.Map{"verify": true})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := env.do(t, admin, "PATCH", fmt.Sprintf("/api/admin/mechanics/%d/verify", mp.ID), fiber.Map{"verify": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["data"].(map[string]interface{})["verified"])

	resp, _ = env.do(t, admin, "PATCH", "/api/admin/mechanics/999/verify", fiber.Map{"verify": true})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
