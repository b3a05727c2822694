package scope

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/automate-app/automate_be/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
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
	return db
}

func makeUser(t *testing.T, db *gorm.DB, role models.Role) *models.User {
	t.Helper()
	u := &models.User{
		Name:     "u-" + uuid.NewString()[:8],
		Email:    uuid.NewString() + "@test.local",
		Password: "x",
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func makeRequest(t *testing.T, db *gorm.DB, client *models.User, mechanic *models.User, status models.ServiceStatus) *models.ServiceRequest {
	t.Helper()

	st := models.ServiceType{Name: "Towing " + uuid.NewString()[:8]}
	require.NoError(t, db.Create(&st).Error)

	sr := &models.ServiceRequest{
		ClientID:           client.ID,
		ServiceTypeID:      st.ID,
		ProblemDescription: "engine will not start",
		LocationAddress:    "somewhere on I-80",
		Status:             status,
	}
	if mechanic != nil {
		sr.MechanicID = &mechanic.ID
	}
	require.NoError(t, db.Create(sr).Error)
	return sr
}

func TestServiceRequestsVisibility(t *testing.T) {
	db := openTestDB(t)

	clientA := makeUser(t, db, models.RoleClient)
	clientB := makeUser(t, db, models.RoleClient)
	mech1 := makeUser(t, db, models.RoleMechanic)
	mech2 := makeUser(t, db, models.RoleMechanic)
	admin := makeUser(t, db, models.RoleAdmin)

	pending := makeRequest(t, db, clientA, nil, models.StatusPending)
	assigned := makeRequest(t, db, clientB, mech1, models.StatusAccepted)

	list := func(v Viewer) []uint {
		var reqs []models.ServiceRequest
		require.NoError(t, ServiceRequests(db.Model(&models.ServiceRequest{}), v).Find(&reqs).Error)
		ids := make([]uint, 0, len(reqs))
		for _, r := range reqs {
			ids = append(ids, r.ID)
		}
		return ids
	}

	// admin sees everything
	assert.ElementsMatch(t, []uint{pending.ID, assigned.ID}, list(Viewer{ID: admin.ID, Role: models.RoleAdmin}))

	// every mechanic sees the unassigned pool
	assert.Contains(t, list(Viewer{ID: mech1.ID, Role: models.RoleMechanic}), pending.ID)
	assert.Contains(t, list(Viewer{ID: mech2.ID, Role: models.RoleMechanic}), pending.ID)

	// only the assigned mechanic sees the claimed request
	assert.Contains(t, list(Viewer{ID: mech1.ID, Role: models.RoleMechanic}), assigned.ID)
	assert.NotContains(t, list(Viewer{ID: mech2.ID, Role: models.RoleMechanic}), assigned.ID)

	// clients see their own requests only
	assert.ElementsMatch(t, []uint{pending.ID}, list(Viewer{ID: clientA.ID, Role: models.RoleClient}))
	assert.ElementsMatch(t, []uint{assigned.ID}, list(Viewer{ID: clientB.ID, Role: models.RoleClient}))
}

func TestCheckServiceRequest(t *testing.T) {
	db := openTestDB(t)

	client := makeUser(t, db, models.RoleClient)
	other := makeUser(t, db, models.RoleClient)
	mech1 := makeUser(t, db, models.RoleMechanic)
	mech2 := makeUser(t, db, models.RoleMechanic)
	admin := makeUser(t, db, models.RoleAdmin)

	assigned := makeRequest(t, db, client, mech1, models.StatusAccepted)
	unassigned := makeRequest(t, db, client, nil, models.StatusPending)

	assert.NoError(t, CheckServiceRequest(Viewer{ID: admin.ID, Role: models.RoleAdmin}, assigned))
	assert.NoError(t, CheckServiceRequest(Viewer{ID: client.ID, Role: models.RoleClient}, assigned))
	assert.ErrorIs(t, CheckServiceRequest(Viewer{ID: other.ID, Role: models.RoleClient}, assigned), ErrForbidden)

	assert.NoError(t, CheckServiceRequest(Viewer{ID: mech1.ID, Role: models.RoleMechanic}, assigned))
	assert.ErrorIs(t, CheckServiceRequest(Viewer{ID: mech2.ID, Role: models.RoleMechanic}, assigned), ErrForbidden)

	// the unassigned pool is open to every mechanic
	assert.NoError(t, CheckServiceRequest(Viewer{ID: mech2.ID, Role: models.RoleMechanic}, unassigned))
}

func TestReviewsVisibility(t *testing.T) {
	db := openTestDB(t)

	client := makeUser(t, db, models.RoleClient)
	otherClient := makeUser(t, db, models.RoleClient)
	mech1 := makeUser(t, db, models.RoleMechanic)
	mech2 := makeUser(t, db, models.RoleMechanic)

	sr := makeRequest(t, db, client, mech1, models.StatusCompleted)

	review := models.Review{
		ServiceRequestID: sr.ID,
		ClientID:         client.ID,
		Rating:           4,
		Comment:          "quick and friendly",
	}
	require.NoError(t, db.Create(&review).Error)

	count := func(v Viewer) int64 {
		var n int64
		require.NoError(t, Reviews(db.Model(&models.Review{}), v).Count(&n).Error)
		return n
	}

	assert.EqualValues(t, 1, count(Viewer{ID: client.ID, Role: models.RoleClient}))
	assert.EqualValues(t, 0, count(Viewer{ID: otherClient.ID, Role: models.RoleClient}))
	assert.EqualValues(t, 1, count(Viewer{ID: mech1.ID, Role: models.RoleMechanic}))
	assert.EqualValues(t, 0, count(Viewer{ID: mech2.ID, Role: models.RoleMechanic}))
}

func TestCheckReview(t *testing.T) {
	db := openTestDB(t)

	client := makeUser(t, db, models.RoleClient)
	mech1 := makeUser(t, db, models.RoleMechanic)
	mech2 := makeUser(t, db, models.RoleMechanic)

	sr := makeRequest(t, db, client, mech1, models.StatusCompleted)
	review := models.Review{
		ServiceRequestID: sr.ID,
		ClientID:         client.ID,
		Rating:           5,
	}
	require.NoError(t, db.Create(&review).Error)

	// mechanics need the request preloaded for the assignment check
	var loaded models.Review
	require.NoError(t, db.Preload("ServiceRequest").First(&loaded, review.ID).Error)

	assert.NoError(t, CheckReview(Viewer{ID: client.ID, Role: models.RoleClient}, &loaded))
	assert.NoError(t, CheckReview(Viewer{ID: mech1.ID, Role: models.RoleMechanic}, &loaded))
	assert.ErrorIs(t, CheckReview(Viewer{ID: mech2.ID, Role: models.RoleMechanic}, &loaded), ErrForbidden)
}

func TestCanEdit(t *testing.T) {
	client := Viewer{ID: uuid.New(), Role: models.RoleClient}
	admin := Viewer{ID: uuid.New(), Role: models.RoleAdmin}
	stranger := Viewer{ID: uuid.New(), Role: models.RoleClient}

	sr := &models.ServiceRequest{ClientID: client.ID}
	assert.True(t, CanEditServiceRequest(client, sr))
	assert.True(t, CanEditServiceRequest(admin, sr))
	assert.False(t, CanEditServiceRequest(stranger, sr))

	r := &models.Review{ClientID: client.ID}
	assert.True(t, CanEditReview(client, r))
	assert.True(t, CanEditReview(admin, r))
	assert.False(t, CanEditReview(stranger, r))
}
