package web

import (
	"errors"

	"github.com/dukex/lineforge/pkg/graph"
	"github.com/dukex/lineforge/pkg/persistence"
	"github.com/dukex/lineforge/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func problem(c fiber.Ctx, status int, kind, detail string) error {
	p := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(kind).
		WithDetail(detail)

	return c.Status(status).JSON(p)
}

func badRequest(c fiber.Ctx, detail string) error {
	return problem(c, fiber.StatusBadRequest, "validation_error", detail)
}

func notFound(c fiber.Ctx, detail string) error {
	return problem(c, fiber.StatusNotFound, "not_found", detail)
}

func internalError(c fiber.Ctx, err error) error {
	p := problems.NewStatusProblem(fiber.StatusInternalServerError).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(p)
}

// handleServiceError provides typed error handling for service and store errors.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case services.IsValidationError(err):
		kind := "validation_error"

		var ge *graph.GraphError
		if errors.As(err, &ge) {
			kind = "graph_" + string(ge.Kind)
		}

		return problem(c, fiber.StatusBadRequest, kind, err.Error())

	case services.IsNotFoundError(err):
		return problem(c, fiber.StatusNotFound, "work_unit_not_found", err.Error())

	case persistence.IsBuildNotFound(err):
		return problem(c, fiber.StatusNotFound, "build_not_found", "line build not found")

	case persistence.IsVersionConflict(err), errors.Is(err, persistence.ErrBuildAlreadyExists):
		return problem(c, fiber.StatusConflict, "conflict", err.Error())

	case services.IsConflictError(err):
		return problem(c, fiber.StatusConflict, "conflict", err.Error())

	default:
		return internalError(c, err)
	}
}
