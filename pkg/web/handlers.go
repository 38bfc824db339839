// Package web provides HTTP handlers and REST API endpoints for line build management.
package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukex/lineforge/pkg/equipment"
	"github.com/dukex/lineforge/pkg/health"
	"github.com/dukex/lineforge/pkg/models"
	"github.com/dukex/lineforge/pkg/persistence"
	"github.com/dukex/lineforge/pkg/ruleset"
	"github.com/dukex/lineforge/pkg/services"
	"github.com/dukex/lineforge/pkg/validation"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	persistence persistence.Persistence
	builds      persistence.BuildRepository
	editor      *services.Editor
	publishing  *services.Publishing
	runner      *validation.Runner
	monitor     *health.Monitor
	vocabulary  *equipment.Vocabulary
	validator   *validator.Validate
	logger      *slog.Logger
}

// Dependencies groups what the handlers are built from. Monitor may be nil
// when no reasoning service is configured.
type Dependencies struct {
	Persistence persistence.Persistence
	Editor      *services.Editor
	Publishing  *services.Publishing
	Runner      *validation.Runner
	Monitor     *health.Monitor
	Vocabulary  *equipment.Vocabulary
	Validator   *validator.Validate
	Logger      *slog.Logger
}

func NewAPIHandlers(deps Dependencies) *APIHandlers {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	vocabulary := deps.Vocabulary
	if vocabulary == nil {
		vocabulary = equipment.Default
	}

	v := deps.Validator
	if v == nil {
		v = validator.New(validator.WithRequiredStructEnabled())
	}

	return &APIHandlers{
		persistence: deps.Persistence,
		builds:      deps.Persistence.BuildRepository(),
		editor:      deps.Editor,
		publishing:  deps.Publishing,
		runner:      deps.Runner,
		monitor:     deps.Monitor,
		vocabulary:  vocabulary,
		validator:   v,
		logger:      logger.With("module", "web"),
	}
}

// Register mounts every line build route on router.
func (h *APIHandlers) Register(router fiber.Router) {
	b := router.Group("/builds")
	b.Get("/", h.ListBuilds)
	b.Post("/", h.CreateBuild)
	b.Get("/:id", h.GetBuild)
	b.Post("/:id/units", h.AddWorkUnit)
	b.Patch("/:id/units/:unitId", h.EditWorkUnit)
	b.Delete("/:id/units/:unitId", h.RemoveWorkUnit)
	b.Put("/:id/units/:unitId/dependencies", h.SetDependencies)
	b.Post("/:id/validate", h.ValidateBuild)
	b.Post("/:id/promote", h.PromoteBuild)
	b.Post("/:id/archive", h.ArchiveBuild)
	b.Post("/:id/create-draft", h.CreateDraft)

	router.Get("/equipment", h.ListCapabilities)
	router.Post("/equipment/match", h.MatchEquipment)

	router.Get("/health", h.HealthCheck)
	router.Get("/health/semantic", h.SemanticHealth)
	router.Post("/health/semantic/reset", h.ResetSemanticHealth)
}

func (h *APIHandlers) ListBuilds(c fiber.Ctx) error {
	builds, err := h.builds.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"builds":      builds,
		"total_count": len(builds),
	})
}

func (h *APIHandlers) GetBuild(c fiber.Ctx) error {
	build, err := h.builds.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(build)
}

func (h *APIHandlers) CreateBuild(c fiber.Ctx) error {
	var req CreateBuildRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	build, err := h.editor.NewBuild(&models.LineBuild{
		ID:        req.ID,
		ItemID:    req.ItemID,
		Name:      req.Name,
		WorkUnits: req.WorkUnits,
	}, actorFrom(c))
	if err != nil {
		return handleServiceError(c, err)
	}

	if err := h.builds.Create(c.Context(), build); err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(build)
}

func (h *APIHandlers) AddWorkUnit(c fiber.Ctx) error {
	var unit models.WorkUnit
	if err := c.Bind().JSON(&unit); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	return h.mutate(c, fiber.StatusCreated, func(build *models.LineBuild) (*models.LineBuild, error) {
		return h.editor.AddWorkUnit(build, unit, actorFrom(c))
	})
}

func (h *APIHandlers) EditWorkUnit(c fiber.Ctx) error {
	var patch services.WorkUnitPatch
	if err := c.Bind().JSON(&patch); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	return h.mutate(c, fiber.StatusOK, func(build *models.LineBuild) (*models.LineBuild, error) {
		return h.editor.EditWorkUnit(build, c.Params("unitId"), patch, actorFrom(c))
	})
}

func (h *APIHandlers) RemoveWorkUnit(c fiber.Ctx) error {
	return h.mutate(c, fiber.StatusOK, func(build *models.LineBuild) (*models.LineBuild, error) {
		return h.editor.RemoveWorkUnit(build, c.Params("unitId"), actorFrom(c))
	})
}

func (h *APIHandlers) SetDependencies(c fiber.Ctx) error {
	var req SetDependenciesRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	return h.mutate(c, fiber.StatusOK, func(build *models.LineBuild) (*models.LineBuild, error) {
		return h.editor.SetDependencies(build, c.Params("unitId"), req.DependsOn, actorFrom(c))
	})
}

func (h *APIHandlers) ValidateBuild(c fiber.Ctx) error {
	rules, err := h.bindRules(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	build, err := h.builds.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	report, err := h.runner.Validate(c.Context(), build, rules)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(report)
}

// PromoteBuild validates the stored build and, when it is clean, promotes it
// within the same version compare-and-swap.
func (h *APIHandlers) PromoteBuild(c fiber.Ctx) error {
	rules, err := h.bindRules(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	build, err := h.builds.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	report, err := h.runner.Validate(c.Context(), build, rules)
	if err != nil {
		return internalError(c, err)
	}

	if !report.Promotable {
		detail := "line build has validation failures"
		if report.SkippedSemantic > 0 {
			detail = "semantic rules were not evaluated; promotion requires a complete validation"
		}

		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"type":   "promotion_blocked",
			"title":  http.StatusText(http.StatusConflict),
			"status": fiber.StatusConflict,
			"detail": detail,
			"report": report,
		})
	}

	promoted, err := h.publishing.Promote(build, report.Status, actorFrom(c))
	if err != nil {
		return handleServiceError(c, err)
	}

	if err := h.builds.Update(c.Context(), promoted, build.Version); err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(PromoteResponse{Build: promoted, Report: report})
}

func (h *APIHandlers) ArchiveBuild(c fiber.Ctx) error {
	return h.mutate(c, fiber.StatusOK, func(build *models.LineBuild) (*models.LineBuild, error) {
		return h.publishing.Archive(build, actorFrom(c))
	})
}

func (h *APIHandlers) CreateDraft(c fiber.Ctx) error {
	source, err := h.builds.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	draft, err := h.publishing.CreateDraft(source, actorFrom(c))
	if err != nil {
		return handleServiceError(c, err)
	}

	if err := h.builds.Create(c.Context(), draft); err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(draft)
}

func (h *APIHandlers) ListCapabilities(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"capabilities": h.vocabulary.Capabilities()})
}

func (h *APIHandlers) MatchEquipment(c fiber.Ctx) error {
	var req MatchEquipmentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	capability, ok := h.vocabulary.Match(req.Equipment)

	return c.JSON(MatchEquipmentResponse{
		Equipment:  req.Equipment,
		Matched:    ok,
		Capability: capability,
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	httpStatus := http.StatusOK
	repository := "ok"

	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
		repository = err.Error()
	}

	checkers := fiber.Map{"repository": repository}

	if h.monitor != nil {
		checkers["semantic"] = h.monitor.Health()
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"checkers":  checkers,
		"timestamp": time.Now().UTC(),
	})
}

// SemanticHealth reports the reasoning service health as seen by the
// semantic evaluator. It answers 503 while the monitor is unhealthy.
func (h *APIHandlers) SemanticHealth(c fiber.Ctx) error {
	if h.monitor == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"configured": false,
			"healthy":    false,
		})
	}

	snapshot := h.monitor.Health()

	httpStatus := fiber.StatusOK
	if !snapshot.Healthy {
		httpStatus = fiber.StatusServiceUnavailable
	}

	return c.Status(httpStatus).JSON(snapshot)
}

func (h *APIHandlers) ResetSemanticHealth(c fiber.Ctx) error {
	if h.monitor == nil {
		return notFound(c, "no reasoning service is configured")
	}

	h.monitor.Reset()
	h.logger.Info("Semantic health monitor reset", "actor", actorFrom(c).Name)

	return c.JSON(h.monitor.Health())
}

// mutate loads the build, applies fn and stores the result only if the
// stored version did not move in between.
func (h *APIHandlers) mutate(c fiber.Ctx, status int, fn func(*models.LineBuild) (*models.LineBuild, error)) error {
	id := c.Params("id")

	build, err := h.builds.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	next, err := fn(build)
	if err != nil {
		return handleServiceError(c, err)
	}

	if err := h.builds.Update(c.Context(), next, build.Version); err != nil {
		if persistence.IsVersionConflict(err) {
			h.logger.Warn("Concurrent line build mutation rejected", "build_id", id, "version", build.Version)
		}

		return handleServiceError(c, err)
	}

	return c.Status(status).JSON(next)
}

func (h *APIHandlers) bindRules(c fiber.Ctx) ([]models.ValidationRule, error) {
	var req ValidateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return nil, err
	}

	if err := ruleset.CheckRules(req.Rules); err != nil {
		return nil, err
	}

	return req.Rules, nil
}
