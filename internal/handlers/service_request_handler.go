package handlers

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/automate-app/automate_be/internal/models"
	"github.com/automate-app/automate_be/internal/realtime"
	"github.com/automate-app/automate_be/internal/scope"
	"github.com/automate-app/automate_be/internal/services/advisor"
)

type ServiceRequestHandler struct {
	DB      *gorm.DB
	Advisor *advisor.AdvisorService
	Bridge  *realtime.Bridge
}

func NewServiceRequestHandler(db *gorm.DB, adv *advisor.AdvisorService, bridge *realtime.Bridge) *ServiceRequestHandler {
	return &ServiceRequestHandler{DB: db, Advisor: adv, Bridge: bridge}
}

type CreateServiceRequestReq struct {
	ServiceTypeID      uint     `json:"service_type_id"`
	ProblemDescription string   `json:"problem_description"`
	LocationAddress    string   `json:"location_address"`
	LocationLatitude   *float64 `json:"location_latitude"`
	LocationLongitude  *float64 `json:"location_longitude"`
}

type UpdateServiceRequestReq struct {
	ServiceTypeID      uint     `json:"service_type_id"`
	ProblemDescription string   `json:"problem_description"`
	LocationAddress    string   `json:"location_address"`
	LocationLatitude   *float64 `json:"location_latitude"`
	LocationLongitude  *float64 `json:"location_longitude"`
	Status             string   `json:"status"` // admin only
}

type ServiceRequestResponse struct {
	ID                 uint      `json:"id"`
	ClientID           string    `json:"client_id"`
	MechanicID         *string   `json:"mechanic_id,omitempty"`
	ServiceTypeID      uint      `json:"service_type_id"`
	ProblemDescription string    `json:"problem_description"`
	LocationAddress    string    `json:"location_address"`
	LocationLatitude   *float64  `json:"location_latitude,omitempty"`
	LocationLongitude  *float64  `json:"location_longitude,omitempty"`
	Status             string    `json:"status"`
	CreatedAt          time.Time `json:"created_at"`

	AiSuggestedServiceType string     `json:"ai_suggested_service_type,omitempty"`
	AiPossibleReasons      []string   `json:"ai_possible_reasons,omitempty"`
	AiUrgency              string     `json:"ai_urgency,omitempty"`
	AiRecommendTowing      *bool      `json:"ai_recommend_towing,omitempty"`
	AiCalculatedAt         *time.Time `json:"ai_calculated_at,omitempty"`

	Client      *UserMini `json:"client,omitempty"`
	Mechanic    *UserMini `json:"mechanic,omitempty"`
	ServiceType string    `json:"service_type,omitempty"`
}

type UserMini struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

func toServiceRequestResponse(sr *models.ServiceRequest) ServiceRequestResponse {
	resp := ServiceRequestResponse{
		ID:                 sr.ID,
		ClientID:           sr.ClientID.String(),
		ServiceTypeID:      sr.ServiceTypeID,
		ProblemDescription: sr.ProblemDescription,
		LocationAddress:    sr.LocationAddress,
		LocationLatitude:   sr.LocationLatitude,
		LocationLongitude:  sr.LocationLongitude,
		Status:             string(sr.Status),
		CreatedAt:          sr.CreatedAt,

		AiSuggestedServiceType: sr.AiSuggestedServiceType,
		AiUrgency:              sr.AiUrgency,
		AiRecommendTowing:      sr.AiRecommendTowing,
		AiCalculatedAt:         sr.AiCalculatedAt,
	}

	if sr.MechanicID != nil {
		mid := sr.MechanicID.String()
		resp.MechanicID = &mid
	}
	if len(sr.AiPossibleReasons) > 0 {
		var reasons []string
		if err := json.Unmarshal(sr.AiPossibleReasons, &reasons); err == nil {
			resp.AiPossibleReasons = reasons
		}
	}
	if sr.Client != nil {
		resp.Client = &UserMini{ID: sr.Client.ID.String(), Name: sr.Client.Name, Email: sr.Client.Email}
	}
	if sr.Mechanic != nil {
		resp.Mechanic = &UserMini{ID: sr.Mechanic.ID.String(), Name: sr.Mechanic.Name, Email: sr.Mechanic.Email}
	}
	if sr.ServiceType != nil {
		resp.ServiceType = sr.ServiceType.Name
	}
	return resp
}

// List returns the requests visible to the caller with optional
// filters and sorting on top of the role scope.
func (h *ServiceRequestHandler) List(c *fiber.Ctx) error {
	v, err := viewerFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "Unauthorized",
		})
	}

	filter := scope.RequestFilter{
		Search:        c.Query("q"),
		ServiceTypeID: uint(c.QueryInt("service_type_id", 0)),
		Sort:          c.Query("sort"),
	}
	if s := c.Query("status"); s != "" {
		filter.Status = models.ServiceStatus(strings.ToLower(s))
	}
	if from := c.Query("from"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			filter.From = &t
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			// inclusive through the end of the day
			end := t.AddDate(0, 0, 1).Add(-time.Nanosecond)
			filter.To = &end
		}
	}

	var requests []models.ServiceRequest
	q := scope.ServiceRequests(h.DB.Model(&models.ServiceRequest{}), v)
	if err := filter.Apply(q).
		Preload("Client").
		Preload("Mechanic").
		Preload("ServiceType").
		Find(&requests).Error; err != nil {
		logrus.WithError(err).Error("list service requests")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch service requests",
		})
	}

	out := make([]ServiceRequestResponse, 0, len(requests))
	for i := range requests {
		out = append(out, toServiceRequestResponse(&requests[i]))
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    out,
	})
}

// Get preserves the 404-vs-403 distinction: unknown id is NotFound,
// a real row outside the caller's scope is Forbidden.
func (h *ServiceRequestHandler) Get(c *fiber.Ctx) error {
	v, err := viewerFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "Unauthorized",
		})
	}

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request ID",
		})
	}

	var sr models.ServiceRequest
	if err := h.DB.
		Preload("Client").
		Preload("Mechanic").
		Preload("ServiceType").
		First(&sr, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Service request not found",
		})
	}

	if err := scope.CheckServiceRequest(v, &sr); err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Access denied",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    toServiceRequestResponse(&sr),
	})
}

// Create forces ownership, pending status and the server timestamp,
// then asks the advisor for triage. An oracle failure never blocks the
// save.
func (h *ServiceRequestHandler) Create(c *fiber.Ctx) error {
	v, err := viewerFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "Unauthorized",
		})
	}

	var req CreateServiceRequestReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	errors := FieldErrors{}
	desc := strings.TrimSpace(req.ProblemDescription)
	addr := strings.TrimSpace(req.LocationAddress)

	if req.ServiceTypeID == 0 {
		errors.Add("service_type_id", "Service type is required")
	}
	if desc == "" {
		errors.Add("problem_description", "Problem description is required")
	} else if len(desc) > 500 {
		errors.Add("problem_description", "Problem description must be at most 500 characters")
	}
	if addr == "" {
		errors.Add("location_address", "Location address is required")
	} else if len(addr) > 200 {
		errors.Add("location_address", "Location address must be at most 200 characters")
	}
	if len(errors) > 0 {
		return validationFail(c, errors)
	}

	var st models.ServiceType
	if err := h.DB.First(&st, "id = ?", req.ServiceTypeID).Error; err != nil {
		errs := FieldErrors{}
		errs.Add("service_type_id", "Unknown service type")
		return validationFail(c, errs)
	}

	sr := models.ServiceRequest{
		ClientID:           v.ID,
		ServiceTypeID:      req.ServiceTypeID,
		ProblemDescription: desc,
		LocationAddress:    addr,
		LocationLatitude:   req.LocationLatitude,
		LocationLongitude:  req.LocationLongitude,
		Status:             models.StatusPending,
		CreatedAt:          time.Now().UTC(),
	}

	// Best-effort triage; the request saves without advice on failure.
	if h.Advisor != nil {
		if advice, err := h.Advisor.Advise(c.Context(), desc); err != nil {
			logrus.WithError(err).Warn("advisor call failed, saving request without advice")
		} else {
			reasons, _ := json.Marshal(advice.PossibleReasons)
			now := time.Now().UTC()
			sr.AiSuggestedServiceType = advice.ServiceType
			sr.AiPossibleReasons = datatypes.JSON(reasons)
			sr.AiUrgency = advice.Urgency
			sr.AiRecommendTowing = &advice.RecommendTowing
			sr.AiCalculatedAt = &now
		}
	}

	if err := h.DB.Create(&sr).Error; err != nil {
		logrus.WithError(err).Error("create service request")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to create service request",
		})
	}

	if h.Bridge != nil {
		h.Bridge.Publish(c.Context(), realtime.Event{
			Type:       "request_created",
			TargetRole: string(models.RoleMechanic),
			Payload:    fiber.Map{"id": sr.ID, "service_type": st.Name, "location": sr.LocationAddress},
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    toServiceRequestResponse(&sr),
	})
}

// Accept claims a pending request for the calling mechanic. The write
// is a guarded update on mechanic_id IS NULL so two mechanics racing
// for the same request cannot both win. Admins may reassign freely.
func (h *ServiceRequestHandler) Accept(c *fiber.Ctx) error {
	v, err := viewerFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "Unauthorized",
		})
	}

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request ID",
		})
	}

	var sr models.ServiceRequest
	if err := h.DB.First(&sr, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Service request not found",
		})
	}

	if v.IsAdmin() {
		if err := h.DB.Model(&models.ServiceRequest{}).
			Where("id = ?", sr.ID).
			Updates(map[string]interface{}{
				"mechanic_id": v.ID,
				"status":      models.StatusAccepted,
			}).Error; err != nil {
			logrus.WithError(err).Error("accept service request")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to accept service request",
			})
		}
	} else {
		res := h.DB.Model(&models.ServiceRequest{}).
			Where("id = ? AND mechanic_id IS NULL", sr.ID).
			Updates(map[string]interface{}{
				"mechanic_id": v.ID,
				"status":      models.StatusAccepted,
			})
		if res.Error != nil {
			logrus.WithError(res.Error).Error("accept service request")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to accept service request",
			})
		}
		if res.RowsAffected == 0 {
			// someone else got there first
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"message": "Service request is already assigned",
			})
		}
	}

	if err := h.DB.
		Preload("Client").
		Preload("Mechanic").
		Preload("ServiceType").
		First(&sr, "id = ?", sr.ID).Error; err != nil {
		logrus.WithError(err).Error("reload service request")
	}

	if h.Bridge != nil {
		h.Bridge.Publish(c.Context(), realtime.Event{
			Type:       "request_accepted",
			TargetUser: sr.ClientID.String(),
			Payload:    fiber.Map{"id": sr.ID},
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    toServiceRequestResponse(&sr),
	})
}

// Complete moves an accepted request to its happy terminal state.
func (h *ServiceRequestHandler) Complete(c *fiber.Ctx) error {
	return h.finish(c, models.StatusCompleted, "request_completed")
}

// Reject moves an accepted request to its failure terminal state.
func (h *ServiceRequestHandler) Reject(c *fiber.Ctx) error {
	return h.finish(c, models.StatusRejected, "request_rejected")
}

func (h *ServiceRequestHandler) finish(c *fiber.Ctx, target models.ServiceStatus, event string) error {
	v, err := viewerFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "Unauthorized",
		})
	}

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request ID",
		})
	}

	var sr models.ServiceRequest
	if err := h.DB.First(&sr, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Service request not found",
		})
	}

	if !v.IsAdmin() && (sr.MechanicID == nil || *sr.MechanicID != v.ID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Only the assigned mechanic can do that",
		})
	}

	if sr.Status != models.StatusAccepted {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"message": "Only accepted requests can be " + string(target),
		})
	}

	sr.Status = target
	if err := h.DB.Save(&sr).Error; err != nil {
		logrus.WithError(err).Error("update service request status")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update service request",
		})
	}

	if h.Bridge != nil {
		h.Bridge.Publish(c.Context(), realtime.Event{
			Type:       event,
			TargetUser: sr.ClientID.String(),
			Payload:    fiber.Map{"id": sr.ID},
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    toServiceRequestResponse(&sr),
	})
}

// Update lets the owning client or an admin edit a request. Edits to
// terminal-state requests are not blocked; callers can re-open a
// completed request the same way the admin UI always could.
func (h *ServiceRequestHandler) Update(c *fiber.Ctx) error {
	v, err := viewerFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "Unauthorized",
		})
	}

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request ID",
		})
	}

	var sr models.ServiceRequest
	if err := h.DB.First(&sr, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Service request not found",
		})
	}

	if !scope.CanEditServiceRequest(v, &sr) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Access denied",
		})
	}

	var req UpdateServiceRequestReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	errors := FieldErrors{}
	desc := strings.TrimSpace(req.ProblemDescription)
	addr := strings.TrimSpace(req.LocationAddress)
	if desc == "" {
		errors.Add("problem_description", "Problem description is required")
	} else if len(desc) > 500 {
		errors.Add("problem_description", "Problem description must be at most 500 characters")
	}
	if addr == "" {
		errors.Add("location_address", "Location address is required")
	} else if len(addr) > 200 {
		errors.Add("location_address", "Location address must be at most 200 characters")
	}
	if len(errors) > 0 {
		return validationFail(c, errors)
	}

	if req.ServiceTypeID != 0 {
		var st models.ServiceType
		if err := h.DB.First(&st, "id = ?", req.ServiceTypeID).Error; err != nil {
			errs := FieldErrors{}
			errs.Add("service_type_id", "Unknown service type")
			return validationFail(c, errs)
		}
		sr.ServiceTypeID = req.ServiceTypeID
	}

	sr.ProblemDescription = desc
	sr.LocationAddress = addr
	sr.LocationLatitude = req.LocationLatitude
	sr.LocationLongitude = req.LocationLongitude

	if req.Status != "" && v.IsAdmin() {
		sr.Status = models.ServiceStatus(strings.ToLower(req.Status))
	}

	if err := h.DB.Save(&sr).Error; err != nil {
		// concurrent delete shows up here: re-check existence
		var check models.ServiceRequest
		if h.DB.First(&check, "id = ?", sr.ID).Error == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": "Service request not found",
			})
		}
		logrus.WithError(err).Error("update service request")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update service request",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    toServiceRequestResponse(&sr),
	})
}

// Delete removes a request; owning client or admin only.
func (h *ServiceRequestHandler) Delete(c *fiber.Ctx) error {
	v, err := viewerFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "Unauthorized",
		})
	}

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request ID",
		})
	}

	var sr models.ServiceRequest
	if err := h.DB.First(&sr, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Service request not found",
		})
	}

	if !scope.CanEditServiceRequest(v, &sr) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Access denied",
		})
	}

	if err := h.DB.Delete(&sr).Error; err != nil {
		logrus.WithError(err).Error("delete service request")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to delete service request",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Service request deleted",
	})
}
