package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/automate-app/automate_be/internal/models"
	"github.com/automate-app/automate_be/internal/scope"
)

func getUserUUID(c *fiber.Ctx) (uuid.UUID, error) {
	v := c.Locals("userId")
	if v == nil {
		return uuid.Nil, fmt.Errorf("unauthorized")
	}

	switch t := v.(type) {
	case uuid.UUID:
		return t, nil
	case string:
		return uuid.Parse(t)
	case []byte:
		return uuid.ParseBytes(t)
	default:
		return uuid.Nil, fmt.Errorf("invalid userId type: %T", v)
	}
}

// viewerFromCtx turns the JWT locals into the explicit identity the
// scope layer works with.
func viewerFromCtx(c *fiber.Ctx) (scope.Viewer, error) {
	uid, err := getUserUUID(c)
	if err != nil {
		return scope.Viewer{}, err
	}

	role, _ := c.Locals("role").(string)
	return scope.Viewer{ID: uid, Role: models.Role(role)}, nil
}
