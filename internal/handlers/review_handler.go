package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/automate-app/automate_be/internal/models"
	"github.com/automate-app/automate_be/internal/scope"
	"github.com/automate-app/automate_be/internal/services/rating"
)

type ReviewHandler struct {
	DB     *gorm.DB
	Rating *rating.RatingService
}

func NewReviewHandler(db *gorm.DB, rs *rating.RatingService) *ReviewHandler {
	return &ReviewHandler{DB: db, Rating: rs}
}

type CreateReviewReq struct {
	ServiceRequestID uint   `json:"service_request_id"`
	Rating           int    `json:"rating"`
	Comment          string `json:"comment"`
}

type UpdateReviewReq struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type ReviewResponse struct {
	ID               uint      `json:"id"`
	ServiceRequestID uint      `json:"service_request_id"`
	ClientID         string    `json:"client_id"`
	ClientName       string    `json:"client_name,omitempty"`
	Rating           int       `json:"rating"`
	Comment          string    `json:"comment"`
	CreatedAt        time.Time `json:"created_at"`
}

func toReviewResponse(r *models.Review) ReviewResponse {
	resp := ReviewResponse{
		ID:               r.ID,
		ServiceRequestID: r.ServiceRequestID,
		ClientID:         r.ClientID.String(),
		Rating:           r.Rating,
		Comment:          r.Comment,
		CreatedAt:        r.CreatedAt,
	}
	if r.Client != nil {
		resp.ClientName = r.Client.Name
	}
	return resp
}

func validateReviewFields(ratingVal int, comment string) FieldErrors {
	errors := FieldErrors{}
	if ratingVal < 1 || ratingVal > 5 {
		errors.Add("rating", "Rating must be between 1 and 5")
	}
	if len(comment) > 500 {
		errors.Add("comment", "Comment must be at most 500 characters")
	}
	return errors
}

// List returns reviews within the caller's scope: admins see all,
// mechanics see reviews on their requests, clients their own.
func (h *ReviewHandler) List(c *fiber.Ctx) error {
	v, err := viewerFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "Unauthorized",
		})
	}

	var reviews []models.Review
	if err := scope.Reviews(h.DB.Model(&models.Review{}), v).
		Preload("Client").
		Order("reviews.created_at DESC").
		Find(&reviews).Error; err != nil {
		logrus.WithError(err).Error("list reviews")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch reviews",
		})
	}

	out := make([]ReviewResponse, 0, len(reviews))
	for i := range reviews {
		out = append(out, toReviewResponse(&reviews[i]))
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    out,
	})
}

func (h *ReviewHandler) Get(c *fiber.Ctx) error {
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
			"message": "Invalid review ID",
		})
	}

	var review models.Review
	if err := h.DB.
		Preload("Client").
		Preload("ServiceRequest").
		First(&review, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Review not found",
		})
	}

	if err := scope.CheckReview(v, &review); err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Access denied",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    toReviewResponse(&review),
	})
}

// Create accepts one review per completed request, from the request's
// owning client only, then recomputes the mechanic's stored aggregate.
func (h *ReviewHandler) Create(c *fiber.Ctx) error {
	v, err := viewerFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "Unauthorized",
		})
	}

	var req CreateReviewReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	comment := strings.TrimSpace(req.Comment)
	errors := validateReviewFields(req.Rating, comment)
	if req.ServiceRequestID == 0 {
		errors.Add("service_request_id", "Service request is required")
	}
	if len(errors) > 0 {
		return validationFail(c, errors)
	}

	var sr models.ServiceRequest
	if err := h.DB.First(&sr, "id = ?", req.ServiceRequestID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Service request not found",
		})
	}

	// only the request's own client may review; admins can moderate
	// existing reviews but never author one on someone else's behalf
	if sr.ClientID != v.ID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Only the requesting client can leave a review",
		})
	}

	if sr.Status != models.StatusCompleted {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Only completed requests can be reviewed",
		})
	}

	if sr.MechanicID == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Request has no assigned mechanic",
		})
	}

	var existing models.Review
	if err := h.DB.First(&existing, "service_request_id = ?", sr.ID).Error; err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"message": "This request already has a review",
		})
	} else if err != gorm.ErrRecordNotFound {
		logrus.WithError(err).Error("check existing review")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Server error",
		})
	}

	review := models.Review{
		ServiceRequestID: sr.ID,
		ClientID:         v.ID,
		Rating:           req.Rating,
		Comment:          comment,
		CreatedAt:        time.Now().UTC(),
	}

	if err := h.DB.Create(&review).Error; err != nil {
		logrus.WithError(err).Error("create review")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to create review",
		})
	}

	if err := h.Rating.Recompute(*sr.MechanicID); err != nil {
		logrus.WithError(err).WithField("mechanic_id", sr.MechanicID).Error("recompute mechanic rating")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    toReviewResponse(&review),
	})
}

// Update lets the author or an admin edit a review. A rating change
// triggers the same full recompute as create.
func (h *ReviewHandler) Update(c *fiber.Ctx) error {
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
			"message": "Invalid review ID",
		})
	}

	var review models.Review
	if err := h.DB.Preload("ServiceRequest").First(&review, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Review not found",
		})
	}

	if !scope.CanEditReview(v, &review) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Access denied",
		})
	}

	var req UpdateReviewReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	comment := strings.TrimSpace(req.Comment)
	if errors := validateReviewFields(req.Rating, comment); len(errors) > 0 {
		return validationFail(c, errors)
	}

	ratingChanged := review.Rating != req.Rating
	review.Rating = req.Rating
	review.Comment = comment

	if err := h.DB.Save(&review).Error; err != nil {
		logrus.WithError(err).Error("update review")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update review",
		})
	}

	if ratingChanged && review.ServiceRequest != nil && review.ServiceRequest.MechanicID != nil {
		if err := h.Rating.Recompute(*review.ServiceRequest.MechanicID); err != nil {
			logrus.WithError(err).Error("recompute mechanic rating")
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    toReviewResponse(&review),
	})
}

// Delete removes a review and recomputes the mechanic's aggregate
// without it.
func (h *ReviewHandler) Delete(c *fiber.Ctx) error {
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
			"message": "Invalid review ID",
		})
	}

	var review models.Review
	if err := h.DB.Preload("ServiceRequest").First(&review, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Review not found",
		})
	}

	if !scope.CanEditReview(v, &review) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Access denied",
		})
	}

	var mechanicID *uuid.UUID
	if review.ServiceRequest != nil {
		mechanicID = review.ServiceRequest.MechanicID
	}

	if err := h.DB.Delete(&review).Error; err != nil {
		logrus.WithError(err).Error("delete review")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to delete review",
		})
	}

	if mechanicID != nil {
		if err := h.Rating.Recompute(*mechanicID); err != nil {
			logrus.WithError(err).Error("recompute mechanic rating")
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Review deleted",
	})
}
