// Package web provides HTTP request and response types for the line build API.
package web

import (
	"strconv"

	"github.com/dukex/lineforge/pkg/equipment"
	"github.com/dukex/lineforge/pkg/models"
	"github.com/dukex/lineforge/pkg/validation"
	"github.com/gofiber/fiber/v3"
)

// Request headers naming who performs a mutation.
const (
	HeaderActor         = "X-Actor"
	HeaderAgentAssisted = "X-Agent-Assisted"

	defaultActor = "api"
)

// CreateBuildRequest represents the request body for creating a new line build.
type CreateBuildRequest struct {
	ID        string            `json:"id,omitempty"`
	ItemID    string            `json:"itemId"              validate:"required"`
	Name      string            `json:"name,omitempty"`
	WorkUnits []models.WorkUnit `json:"workUnits,omitempty"`
}

// SetDependenciesRequest replaces a unit's predecessor list.
type SetDependenciesRequest struct {
	DependsOn []string `json:"dependsOn"`
}

// ValidateRequest carries the rule set a build is checked against.
type ValidateRequest struct {
	Rules []models.ValidationRule `json:"rules" validate:"required"`
}

// PromoteResponse is returned by a successful promotion.
type PromoteResponse struct {
	Build  *models.LineBuild `json:"build"`
	Report validation.Report `json:"report"`
}

// MatchEquipmentRequest holds the free-text equipment to resolve.
type MatchEquipmentRequest struct {
	Equipment string `json:"equipment" validate:"required"`
}

// MatchEquipmentResponse reports the canonical capability, if any.
type MatchEquipmentResponse struct {
	Equipment  string               `json:"equipment"`
	Matched    bool                 `json:"matched"`
	Capability equipment.Capability `json:"capability,omitempty"`
}

// actorFrom reads the acting user from the request headers.
func actorFrom(c fiber.Ctx) models.Actor {
	name := c.Get(HeaderActor)
	if name == "" {
		name = defaultActor
	}

	assisted, _ := strconv.ParseBool(c.Get(HeaderAgentAssisted))

	return models.Actor{Name: name, AgentAssisted: assisted}
}
