package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/automate-app/automate_be/internal/models"
)

type UserProfileHandler struct {
	DB *gorm.DB
}

func NewUserProfileHandler(db *gorm.DB) *UserProfileHandler {
	return &UserProfileHandler{DB: db}
}

type UserProfileReq struct {
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
	Address     string `json:"address"`
	City        string `json:"city"`
}

func validateUserProfile(req *UserProfileReq) FieldErrors {
	errors := FieldErrors{}
	if strings.TrimSpace(req.FullName) == "" {
		errors.Add("full_name", "Full name is required")
	}
	if e := strings.TrimSpace(req.Email); e != "" && !strings.Contains(e, "@") {
		errors.Add("email", "Invalid email format")
	}
	return errors
}

// Get returns the caller's contact profile.
func (h *UserProfileHandler) Get(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "Unauthorized",
		})
	}

	var profile models.UserProfile
	if err := h.DB.First(&profile, "user_id = ?", uid).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Profile not found",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    profile,
	})
}

// Create makes the one-per-user contact profile.
func (h *UserProfileHandler) Create(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "Unauthorized",
		})
	}

	var req UserProfileReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	if errors := validateUserProfile(&req); len(errors) > 0 {
		return validationFail(c, errors)
	}

	var existing models.UserProfile
	if err := h.DB.First(&existing, "user_id = ?", uid).Error; err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"message": "Profile already exists, use the edit endpoint instead",
		})
	} else if err != gorm.ErrRecordNotFound {
		logrus.WithError(err).Error("check existing user profile")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Server error",
		})
	}

	profile := models.UserProfile{
		UserID:      uid,
		FullName:    strings.TrimSpace(req.FullName),
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		Address:     strings.TrimSpace(req.Address),
		City:        strings.TrimSpace(req.City),
	}

	if err := h.DB.Create(&profile).Error; err != nil {
		logrus.WithError(err).Error("create user profile")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to create profile",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    profile,
	})
}

// Update edits the caller's contact profile.
func (h *UserProfileHandler) Update(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "Unauthorized",
		})
	}

	var profile models.UserProfile
	if err := h.DB.First(&profile, "user_id = ?", uid).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Profile not found",
		})
	}

	var req UserProfileReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	if errors := validateUserProfile(&req); len(errors) > 0 {
		return validationFail(c, errors)
	}

	profile.FullName = strings.TrimSpace(req.FullName)
	profile.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	profile.Email = strings.ToLower(strings.TrimSpace(req.Email))
	profile.Address = strings.TrimSpace(req.Address)
	profile.City = strings.TrimSpace(req.City)

	if err := h.DB.Save(&profile).Error; err != nil {
		logrus.WithError(err).Error("update user profile")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update profile",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    profile,
	})
}
