package scope

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/automate-app/automate_be/internal/models"
)

// Viewer is the caller identity every query and by-id check receives
// explicitly. Handlers build it from the JWT locals; nothing below this
// layer reads ambient request state.
type Viewer struct {
	ID   uuid.UUID
	Role models.Role
}

var (
	// ErrForbidden means the row exists but is outside the viewer's
	// scope. Distinct from gorm.ErrRecordNotFound on purpose: unknown
	// id -> 404, known id outside scope -> 403.
	ErrForbidden = errors.New("forbidden")
)

func (v Viewer) IsAdmin() bool { return v.Role == models.RoleAdmin }

// ServiceRequests narrows db to the requests visible to the viewer.
// Admins see everything, mechanics see the unassigned pool plus their
// own assignments, clients see what they created.
func ServiceRequests(db *gorm.DB, v Viewer) *gorm.DB {
	switch v.Role {
	case models.RoleAdmin:
		return db
	case models.RoleMechanic:
		return db.Where("mechanic_id = ? OR mechanic_id IS NULL", v.ID)
	default:
		return db.Where("client_id = ?", v.ID)
	}
}

// Reviews narrows db to the reviews visible to the viewer. Mechanics
// see reviews attached to requests assigned to them.
func Reviews(db *gorm.DB, v Viewer) *gorm.DB {
	switch v.Role {
	case models.RoleAdmin:
		return db
	case models.RoleMechanic:
		return db.Where(
			"service_request_id IN (SELECT id FROM service_requests WHERE mechanic_id = ?)",
			v.ID,
		)
	default:
		return db.Where("client_id = ?", v.ID)
	}
}

// CheckServiceRequest is the by-id counterpart of ServiceRequests.
func CheckServiceRequest(v Viewer, sr *models.ServiceRequest) error {
	switch v.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleMechanic:
		if sr.MechanicID != nil && *sr.MechanicID != v.ID {
			return ErrForbidden
		}
		return nil
	default:
		if sr.ClientID != v.ID {
			return ErrForbidden
		}
		return nil
	}
}

// CheckReview expects r.ServiceRequest preloaded when the viewer is a
// mechanic.
func CheckReview(v Viewer, r *models.Review) error {
	switch v.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleMechanic:
		if r.ServiceRequest == nil || r.ServiceRequest.MechanicID == nil ||
			*r.ServiceRequest.MechanicID != v.ID {
			return ErrForbidden
		}
		return nil
	default:
		if r.ClientID != v.ID {
			return ErrForbidden
		}
		return nil
	}
}

// CanEditServiceRequest: owning client or admin.
func CanEditServiceRequest(v Viewer, sr *models.ServiceRequest) bool {
	return v.IsAdmin() || sr.ClientID == v.ID
}

// CanEditReview: author or admin.
func CanEditReview(v Viewer, r *models.Review) bool {
	return v.IsAdmin() || r.ClientID == v.ID
}
