package rating

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
		&models.MechanicProfile{},
		&models.ServiceType{},
		&models.ServiceRequest{},
		&models.Review{},
	))
	return db
}

type fixture struct {
	db       *gorm.DB
	svc      *RatingService
	mechanic *models.User
	client   *models.User
	stID     uint
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := openTestDB(t)

	mech := &models.User{Name: "mech", Email: uuid.NewString() + "@test.local", Password: "x", Role: models.RoleMechanic, IsActive: true}
	client := &models.User{Name: "client", Email: uuid.NewString() + "@test.local", Password: "x", Role: models.RoleClient, IsActive: true}
	require.NoError(t, db.Create(mech).Error)
	require.NoError(t, db.Create(client).Error)

	st := models.ServiceType{Name: "Towing"}
	require.NoError(t, db.Create(&st).Error)

	return &fixture{db: db, svc: NewRatingService(db), mechanic: mech, client: client, stID: st.ID}
}

func (f *fixture) addReview(t *testing.T, rating int) *models.Review {
	t.Helper()

	sr := models.ServiceRequest{
		ClientID:           f.client.ID,
		MechanicID:         &f.mechanic.ID,
		ServiceTypeID:      f.stID,
		ProblemDescription: "flat tire",
		LocationAddress:    "5th Ave",
		Status:             models.StatusCompleted,
	}
	require.NoError(t, f.db.Create(&sr).Error)

	r := models.Review{ServiceRequestID: sr.ID, ClientID: f.client.ID, Rating: rating}
	require.NoError(t, f.db.Create(&r).Error)
	return &r
}

func (f *fixture) profile(t *testing.T) models.MechanicProfile {
	t.Helper()
	var mp models.MechanicProfile
	require.NoError(t, f.db.First(&mp, "user_id = ?", f.mechanic.ID).Error)
	return mp
}

func TestRecompute(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.db.Create(&models.MechanicProfile{
		UserID:     f.mechanic.ID,
		GarageName: "Joe's Garage",
	}).Error)

	f.addReview(t, 5)
	f.addReview(t, 4)
	f.addReview(t, 3)

	require.NoError(t, f.svc.Recompute(f.mechanic.ID))

	mp := f.profile(t)
	assert.InDelta(t, 4.0, mp.AverageRating, 0.0001)
	assert.Equal(t, 3, mp.TotalReviews)
}

func TestRecomputeNoReviews(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.db.Create(&models.MechanicProfile{
		UserID:        f.mechanic.ID,
		GarageName:    "Joe's Garage",
		AverageRating: 4.2,
		TotalReviews:  7,
	}).Error)

	// stale aggregate resets to zero when nothing backs it
	require.NoError(t, f.svc.Recompute(f.mechanic.ID))

	mp := f.profile(t)
	assert.Zero(t, mp.AverageRating)
	assert.Zero(t, mp.TotalReviews)
}

func TestRecomputeAfterDelete(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.db.Create(&models.MechanicProfile{
		UserID:     f.mechanic.ID,
		GarageName: "Joe's Garage",
	}).Error)

	keep := f.addReview(t, 5)
	drop := f.addReview(t, 1)

	require.NoError(t, f.svc.Recompute(f.mechanic.ID))
	assert.InDelta(t, 3.0, f.profile(t).AverageRating, 0.0001)

	require.NoError(t, f.db.Delete(drop).Error)
	require.NoError(t, f.svc.Recompute(f.mechanic.ID))

	mp := f.profile(t)
	assert.InDelta(t, float64(keep.Rating), mp.AverageRating, 0.0001)
	assert.Equal(t, 1, mp.TotalReviews)
}

func TestRecomputeWithoutProfile(t *testing.T) {
	f := setup(t)

	f.addReview(t, 5)

	// mechanics without a profile are a silent no-op
	assert.NoError(t, f.svc.Recompute(f.mechanic.ID))
	assert.NoError(t, f.svc.Recompute(uuid.New()))
}

func TestRecomputeIgnoresOtherMechanics(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.db.Create(&models.MechanicProfile{
		UserID:     f.mechanic.ID,
		GarageName: "Joe's Garage",
	}).Error)

	other := &models.User{Name: "other", Email: uuid.NewString() + "@test.local", Password: "x", Role: models.RoleMechanic, IsActive: true}
	require.NoError(t, f.db.Create(other).Error)

	sr := models.ServiceRequest{
		ClientID:           f.client.ID,
		MechanicID:         &other.ID,
		ServiceTypeID:      f.stID,
		ProblemDescription: "overheating",
		LocationAddress:    "Elm St",
		Status:             models.StatusCompleted,
	}
	require.NoError(t, f.db.Create(&sr).Error)
	require.NoError(t, f.db.Create(&models.Review{ServiceRequestID: sr.ID, ClientID: f.client.ID, Rating: 1}).Error)

	f.addReview(t, 5)

	require.NoError(t, f.svc.Recompute(f.mechanic.ID))

	mp := f.profile(t)
	assert.InDelta(t, 5.0, mp.AverageRating, 0.0001)
	assert.Equal(t, 1, mp.TotalReviews)
}
