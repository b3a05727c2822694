package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/automate-app/automate_be/internal/models"
)

type ServiceTypeHandler struct {
	DB *gorm.DB
}

func NewServiceTypeHandler(db *gorm.DB) *ServiceTypeHandler {
	return &ServiceTypeHandler{DB: db}
}

// SeedServiceTypes inserts the default catalog when the table is
// empty. Called once on startup.
func SeedServiceTypes(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.ServiceType{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if err := db.Create(&models.DefaultServiceTypes).Error; err != nil {
		return err
	}
	logrus.WithField("count", len(models.DefaultServiceTypes)).Info("seeded service types")
	return nil
}

type ServiceTypeReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// List is public: clients need the catalog before they authenticate.
func (h *ServiceTypeHandler) List(c *fiber.Ctx) error {
	var types []models.ServiceType
	if err := h.DB.Order("name ASC").Find(&types).Error; err != nil {
		logrus.WithError(err).Error("list service types")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch service types",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    types,
	})
}

func (h *ServiceTypeHandler) Create(c *fiber.Ctx) error {
	var req ServiceTypeReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		errs := FieldErrors{}
		errs.Add("name", "Name is required")
		return validationFail(c, errs)
	}

	var existing models.ServiceType
	if err := h.DB.Where("LOWER(name) = ?", strings.ToLower(name)).First(&existing).Error; err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"message": "Service type already exists",
		})
	}

	st := models.ServiceType{Name: name, Description: strings.TrimSpace(req.Description)}
	if err := h.DB.Create(&st).Error; err != nil {
		logrus.WithError(err).Error("create service type")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to create service type",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    st,
	})
}

func (h *ServiceTypeHandler) Update(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid service type ID",
		})
	}

	var st models.ServiceType
	if err := h.DB.First(&st, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Service type not found",
		})
	}

	var req ServiceTypeReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		errs := FieldErrors{}
		errs.Add("name", "Name is required")
		return validationFail(c, errs)
	}

	st.Name = name
	st.Description = strings.TrimSpace(req.Description)

	if err := h.DB.Save(&st).Error; err != nil {
		logrus.WithError(err).Error("update service type")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update service type",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    st,
	})
}

func (h *ServiceTypeHandler) Delete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid service type ID",
		})
	}

	var st models.ServiceType
	if err := h.DB.First(&st, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Service type not found",
		})
	}

	var inUse int64
	if err := h.DB.Model(&models.ServiceRequest{}).
		Where("service_type_id = ?", st.ID).Count(&inUse).Error; err == nil && inUse > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"message": "Service type is used by existing requests",
		})
	}

	if err := h.DB.Delete(&st).Error; err != nil {
		logrus.WithError(err).Error("delete service type")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to delete service type",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Service type deleted",
	})
}
