package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/automate-app/automate_be/internal/models"
	"github.com/automate-app/automate_be/internal/utils"
)

type MechanicProfileHandler struct {
	DB    *gorm.DB
	IDKey string // AES key for public directory ids; plain ids when empty
}

func NewMechanicProfileHandler(db *gorm.DB, idKey string) *MechanicProfileHandler {
	return &MechanicProfileHandler{DB: db, IDKey: idKey}
}

type MechanicProfileReq struct {
	GarageName     string `json:"garage_name"`
	Specialization string `json:"specialization"`
}

type MechanicProfileResponse struct {
	ID             string  `json:"id"`
	UserID         string  `json:"user_id,omitempty"`
	Name           string  `json:"name,omitempty"`
	GarageName     string  `json:"garage_name"`
	Specialization string  `json:"specialization"`
	AverageRating  float64 `json:"average_rating"`
	TotalReviews   int     `json:"total_reviews"`
	Verified       bool    `json:"verified"`
}

func (h *MechanicProfileHandler) publicID(id uint) string {
	if h.IDKey == "" {
		return utils.PlainID(id)
	}
	enc, err := utils.EncryptID(id, h.IDKey)
	if err != nil {
		logrus.WithError(err).Warn("encrypt mechanic id, falling back to plain")
		return utils.PlainID(id)
	}
	return enc
}

func (h *MechanicProfileHandler) toPublicResponse(mp *models.MechanicProfile) MechanicProfileResponse {
	resp := MechanicProfileResponse{
		ID:             h.publicID(mp.ID),
		GarageName:     mp.GarageName,
		Specialization: mp.Specialization,
		AverageRating:  mp.AverageRating,
		TotalReviews:   mp.TotalReviews,
		Verified:       mp.IsVerifiedByAdmin,
	}
	if mp.User != nil {
		resp.Name = mp.User.Name
	}
	return resp
}

func toOwnerResponse(mp *models.MechanicProfile) MechanicProfileResponse {
	return MechanicProfileResponse{
		ID:             utils.PlainID(mp.ID),
		UserID:         mp.UserID.String(),
		GarageName:     mp.GarageName,
		Specialization: mp.Specialization,
		AverageRating:  mp.AverageRating,
		TotalReviews:   mp.TotalReviews,
		Verified:       mp.IsVerifiedByAdmin,
	}
}

// ListPublic is the unauthenticated mechanic directory. Only verified
// profiles show unless ?verified=false (any value but "true" includes
// unverified ones too).
func (h *MechanicProfileHandler) ListPublic(c *fiber.Ctx) error {
	q := h.DB.Model(&models.MechanicProfile{}).Preload("User")

	if c.Query("verified", "true") == "true" {
		q = q.Where("is_verified_by_admin = ?", true)
	}

	if search := strings.TrimSpace(c.Query("q")); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where(
			"LOWER(garage_name) LIKE ? OR LOWER(specialization) LIKE ? OR user_id IN (SELECT id FROM users WHERE LOWER(email) LIKE ?)",
			like, like, like,
		)
	}

	switch c.Query("sort") {
	case "rating_asc":
		q = q.Order("average_rating ASC")
	default:
		q = q.Order("average_rating DESC")
	}

	var profiles []models.MechanicProfile
	if err := q.Find(&profiles).Error; err != nil {
		logrus.WithError(err).Error("list mechanic profiles")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch mechanics",
		})
	}

	out := make([]MechanicProfileResponse, 0, len(profiles))
	for i := range profiles {
		out = append(out, h.toPublicResponse(&profiles[i]))
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    out,
	})
}

func (h *MechanicProfileHandler) GetPublic(c *fiber.Ctx) error {
	id, err := utils.DecryptID(c.Params("id"), h.IDKey)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid mechanic ID",
		})
	}

	var mp models.MechanicProfile
	if err := h.DB.Preload("User").First(&mp, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Mechanic not found",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.toPublicResponse(&mp),
	})
}

// MyProfile returns the calling mechanic's own profile.
func (h *MechanicProfileHandler) MyProfile(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "Unauthorized",
		})
	}

	var mp models.MechanicProfile
	if err := h.DB.First(&mp, "user_id = ?", uid).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Mechanic profile not found",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    toOwnerResponse(&mp),
	})
}

// Create makes the one-per-user mechanic profile. Derived rating
// fields always start at zero regardless of the payload.
func (h *MechanicProfileHandler) Create(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "Unauthorized",
		})
	}

	var req MechanicProfileReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	garage := strings.TrimSpace(req.GarageName)
	if garage == "" {
		errs := FieldErrors{}
		errs.Add("garage_name", "Garage name is required")
		return validationFail(c, errs)
	}

	var existing models.MechanicProfile
	if err := h.DB.First(&existing, "user_id = ?", uid).Error; err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"message": "Profile already exists, use the edit endpoint instead",
		})
	} else if err != gorm.ErrRecordNotFound {
		logrus.WithError(err).Error("check existing mechanic profile")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Server error",
		})
	}

	mp := models.MechanicProfile{
		UserID:         uid,
		GarageName:     garage,
		Specialization: strings.TrimSpace(req.Specialization),
		AverageRating:  0,
		TotalReviews:   0,
	}

	if err := h.DB.Create(&mp).Error; err != nil {
		logrus.WithError(err).Error("create mechanic profile")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to create profile",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    toOwnerResponse(&mp),
	})
}

// Update edits the descriptive fields. The rating aggregate and the
// verification flag survive every update; only admins may touch the
// latter through Verify.
func (h *MechanicProfileHandler) Update(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "Unauthorized",
		})
	}

	var mp models.MechanicProfile
	if err := h.DB.First(&mp, "user_id = ?", uid).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Mechanic profile not found",
		})
	}

	var req MechanicProfileReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	garage := strings.TrimSpace(req.GarageName)
	if garage == "" {
		errs := FieldErrors{}
		errs.Add("garage_name", "Garage name is required")
		return validationFail(c, errs)
	}

	mp.GarageName = garage
	mp.Specialization = strings.TrimSpace(req.Specialization)

	if err := h.DB.Save(&mp).Error; err != nil {
		logrus.WithError(err).Error("update mechanic profile")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update profile",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    toOwnerResponse(&mp),
	})
}

type VerifyReq struct {
	Verify bool `json:"verify"`
}

// Verify flips the admin verification flag on a profile.
func (h *MechanicProfileHandler) Verify(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid profile ID",
		})
	}

	var mp models.MechanicProfile
	if err := h.DB.First(&mp, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Mechanic profile not found",
		})
	}

	var req VerifyReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	mp.IsVerifiedByAdmin = req.Verify
	if err := h.DB.Save(&mp).Error; err != nil {
		logrus.WithError(err).Error("verify mechanic profile")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update profile",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    toOwnerResponse(&mp),
	})
}

// Delete removes a profile; admin only (routed behind RequireRoles).
func (h *MechanicProfileHandler) Delete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid profile ID",
		})
	}

	var mp models.MechanicProfile
	if err := h.DB.First(&mp, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Mechanic profile not found",
		})
	}

	if err := h.DB.Delete(&mp).Error; err != nil {
		logrus.WithError(err).Error("delete mechanic profile")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to delete profile",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Mechanic profile deleted",
	})
}
