package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/automate-app/automate_be/internal/models"
)

func TestRequestFilter(t *testing.T) {
	db := openTestDB(t)

	client := makeUser(t, db, models.RoleClient)
	admin := Viewer{ID: makeUser(t, db, models.RoleAdmin).ID, Role: models.RoleAdmin}

	battery := models.ServiceType{Name: "Battery Jumpstart"}
	towing := models.ServiceType{Name: "Towing"}
	require.NoError(t, db.Create(&battery).Error)
	require.NoError(t, db.Create(&towing).Error)

	r1 := models.ServiceRequest{
		ClientID:           client.ID,
		ServiceTypeID:      battery.ID,
		ProblemDescription: "Dead battery, lights were left on",
		LocationAddress:    "Main St 12",
		Status:             models.StatusPending,
	}
	r2 := models.ServiceRequest{
		ClientID:           client.ID,
		ServiceTypeID:      towing.ID,
		ProblemDescription: "Transmission gave out",
		LocationAddress:    "Highway 4 exit 9",
		Status:             models.StatusCompleted,
	}
	require.NoError(t, db.Create(&r1).Error)
	require.NoError(t, db.Create(&r2).Error)

	find := func(f RequestFilter) []uint {
		var reqs []models.ServiceRequest
		q := ServiceRequests(db.Model(&models.ServiceRequest{}), admin)
		require.NoError(t, f.Apply(q).Find(&reqs).Error)
		ids := make([]uint, 0, len(reqs))
		for _, r := range reqs {
			ids = append(ids, r.ID)
		}
		return ids
	}

	// search matches description case-insensitively
	assert.Equal(t, []uint{r1.ID}, find(RequestFilter{Search: "BATTERY"}))

	// search matches the address too
	assert.Equal(t, []uint{r2.ID}, find(RequestFilter{Search: "highway"}))

	// search matches the participant's email
	assert.ElementsMatch(t, []uint{r1.ID, r2.ID}, find(RequestFilter{Search: client.Email}))

	// type and status narrow the set
	assert.Equal(t, []uint{r2.ID}, find(RequestFilter{ServiceTypeID: towing.ID}))
	assert.Equal(t, []uint{r1.ID}, find(RequestFilter{Status: models.StatusPending}))

	// no match
	assert.Empty(t, find(RequestFilter{Search: "flux capacitor"}))

	// sort by type name ascending puts Battery before Towing
	assert.Equal(t, []uint{r1.ID, r2.ID}, find(RequestFilter{Sort: "type"}))
	assert.Equal(t, []uint{r2.ID, r1.ID}, find(RequestFilter{Sort: "type_desc"}))
}
