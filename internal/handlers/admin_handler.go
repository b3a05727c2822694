package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/automate-app/automate_be/internal/models"
)

type AdminHandler struct {
	DB *gorm.DB
}

func NewAdminHandler(db *gorm.DB) *AdminHandler {
	return &AdminHandler{DB: db}
}

type AdminUserResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

// ListUsers returns every account, newest first.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	var users []models.User
	if err := h.DB.Order("created_at DESC").Find(&users).Error; err != nil {
		logrus.WithError(err).Error("list users")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch users",
		})
	}

	out := make([]AdminUserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, AdminUserResponse{
			ID:       u.ID.String(),
			Name:     u.Name,
			Email:    u.Email,
			Phone:    u.Phone,
			Role:     string(u.Role),
			IsActive: u.IsActive,
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    out,
	})
}

type ChangeRoleReq struct {
	Role string `json:"role"`
}

var validRoles = map[models.Role]bool{
	models.RoleClient:   true,
	models.RoleMechanic: true,
	models.RoleAdmin:    true,
}

// ChangeRole reassigns a user's single role.
func (h *AdminHandler) ChangeRole(c *fiber.Ctx) error {
	uid, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid user ID",
		})
	}

	var req ChangeRoleReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	role := models.Role(strings.ToLower(strings.TrimSpace(req.Role)))
	if !validRoles[role] {
		errs := FieldErrors{}
		errs.Add("role", "Role must be one of: client, mechanic, admin")
		return validationFail(c, errs)
	}

	var u models.User
	if err := h.DB.First(&u, "id = ?", uid).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "User not found",
		})
	}

	if u.Role == role {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"message": "User already has this role",
		})
	}

	u.Role = role
	if err := h.DB.Save(&u).Error; err != nil {
		logrus.WithError(err).Error("change user role")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update user",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": AdminUserResponse{
			ID:       u.ID.String(),
			Name:     u.Name,
			Email:    u.Email,
			Phone:    u.Phone,
			Role:     string(u.Role),
			IsActive: u.IsActive,
		},
	})
}
