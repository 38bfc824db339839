package services

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/lineforge/pkg/aggregate"
	"github.com/dukex/lineforge/pkg/models"
	"github.com/google/uuid"
)

// Publishing moves builds through draft -> active -> archived.
type Publishing struct {
	now    func() time.Time
	logger *slog.Logger
}

// NewPublishing creates a new line build publishing service.
func NewPublishing(logger *slog.Logger) *Publishing {
	if logger == nil {
		logger = slog.Default()
	}

	return &Publishing{
		now:    time.Now,
		logger: logger.With("module", "build_publishing"),
	}
}

// WithClock returns a copy of the service using now for timestamps.
func (p *Publishing) WithClock(now func() time.Time) *Publishing {
	out := *p
	out.now = now

	return &out
}

// Promote makes a draft active. status must come from validating this very
// build after its last change, with no structured or semantic failures.
func (p *Publishing) Promote(build *models.LineBuild, status models.BuildValidationStatus, actor models.Actor) (*models.LineBuild, error) {
	const op = "promote"

	if err := requireDraft(op, build); err != nil {
		return nil, err
	}

	if status.BuildID != build.ID {
		return nil, newError(op, "promotion_blocked",
			fmt.Sprintf("validation status belongs to build %q", status.BuildID), ErrPromotionBlocked)
	}

	if status.LastChecked.Before(build.UpdatedAt) {
		return nil, newError(op, "promotion_blocked",
			"validation is older than the last change; validate again", ErrPromotionBlocked)
	}

	if !aggregate.CanPromote(status) {
		return nil, newError(op, "promotion_blocked",
			fmt.Sprintf("%d validation failure(s) must be fixed first", status.FailureCount), ErrPromotionBlocked)
	}

	next := build.Clone()
	next.Status = models.BuildStatusActive

	p.logger.Info("Promoting line build", "build_id", build.ID, "version", build.Version+1)

	return commit(next, p.now(), actor, ActionPromote, map[string]any{
		"lastChecked": status.LastChecked,
		"results":     len(status.Results),
	}), nil
}

// Archive retires an active build.
func (p *Publishing) Archive(build *models.LineBuild, actor models.Actor) (*models.LineBuild, error) {
	const op = "archive"

	if build == nil {
		return nil, newError(op, "build_nil", "", ErrBuildNil)
	}

	if build.Status != models.BuildStatusActive {
		return nil, newError(op, "build_not_active", "line build "+build.ID+" is "+string(build.Status), ErrBuildNotActive)
	}

	next := build.Clone()
	next.Status = models.BuildStatusArchived

	return commit(next, p.now(), actor, ActionArchive, nil), nil
}

// CreateDraft copies an active or archived build into a new draft with a
// fresh id, version and changelog.
func (p *Publishing) CreateDraft(build *models.LineBuild, actor models.Actor) (*models.LineBuild, error) {
	const op = "create_draft"

	if build == nil {
		return nil, newError(op, "build_nil", "", ErrBuildNil)
	}

	if build.IsDraft() {
		return nil, newError(op, "build_already_draft", "line build "+build.ID+" is already a draft", ErrBuildAlreadyDraft)
	}

	now := p.now()

	next := build.Clone()
	next.ID = uuid.NewString()
	next.Status = models.BuildStatusDraft
	next.Version = 0
	next.ChangeLog = nil
	next.CreatedAt = now

	return commit(next, now, actor, ActionCreateDraft, map[string]any{
		"sourceBuildId": build.ID,
		"sourceVersion": build.Version,
	}), nil
}
