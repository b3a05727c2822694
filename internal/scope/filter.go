package scope

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/automate-app/automate_be/internal/models"
)

// RequestFilter composes on top of the role scope. Zero values mean
// "no filter".
type RequestFilter struct {
	Search        string
	ServiceTypeID uint
	Status        models.ServiceStatus
	From          *time.Time
	To            *time.Time // inclusive day end, handler-resolved
	Sort          string     // date | date_desc | status | status_desc | type | type_desc
}

func (f RequestFilter) Apply(db *gorm.DB) *gorm.DB {
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		db = db.Where(
			`LOWER(problem_description) LIKE ?
			 OR LOWER(location_address) LIKE ?
			 OR client_id IN (SELECT id FROM users WHERE LOWER(email) LIKE ?)
			 OR mechanic_id IN (SELECT id FROM users WHERE LOWER(email) LIKE ?)`,
			like, like, like, like,
		)
	}
	if f.ServiceTypeID > 0 {
		db = db.Where("service_type_id = ?", f.ServiceTypeID)
	}
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}
	if f.From != nil {
		db = db.Where("service_requests.created_at >= ?", *f.From)
	}
	if f.To != nil {
		db = db.Where("service_requests.created_at <= ?", *f.To)
	}

	switch f.Sort {
	case "date":
		db = db.Order("service_requests.created_at ASC")
	case "status":
		db = db.Order("status ASC")
	case "status_desc":
		db = db.Order("status DESC")
	case "type":
		db = db.Order("(SELECT name FROM service_types WHERE service_types.id = service_requests.service_type_id) ASC")
	case "type_desc":
		db = db.Order("(SELECT name FROM service_types WHERE service_types.id = service_requests.service_type_id) DESC")
	default: // newest first
		db = db.Order("service_requests.created_at DESC")
	}
	return db
}
