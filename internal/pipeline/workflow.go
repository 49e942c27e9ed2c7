package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/caselabel/internal/model"
	"github.com/ppiankov/caselabel/internal/validate"
)

// LabelStore persists cases and labels
type LabelStore interface {
	CreateCase(ctx context.Context, c *model.LabellingCase) error
	GetCase(ctx context.Context, id string) (*model.LabellingCase, error)
	// AddLabel inserts label and moves its case from NEW to LABELED
	AddLabel(ctx context.Context, label *model.Label) error
}

// CaseGenerator produces synthetic case text
type CaseGenerator interface {
	GenerateCaseText(ctx context.Context, focusTopicID string) model.GeneratedCase
}

// ValidationError carries the field errors of a rejected label
type ValidationError struct {
	Result validate.Result
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Result.Errors))
	for i, fe := range e.Result.Errors {
		msgs[i] = fe.Error()
	}
	return fmt.Sprintf("label rejected: %s", strings.Join(msgs, "; "))
}

// Workflow validates labels before they reach the store
type Workflow struct {
	store     LabelStore
	validator *validate.Validator
	logger    *zap.Logger
	now       func() time.Time
}

// NewWorkflow creates a workflow
func NewWorkflow(store LabelStore, validator *validate.Validator, logger *zap.Logger) *Workflow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workflow{
		store:     store,
		validator: validator,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SubmitLabel validates label against its case and stores it. The stored
// label gets a fresh id, the schema version and a creation time.
func (w *Workflow) SubmitLabel(ctx context.Context, label model.Label) (*model.Label, error) {
	label.CaseID = strings.TrimSpace(label.CaseID)
	label.RaterID = strings.TrimSpace(label.RaterID)
	if label.CaseID == "" {
		return nil, fmt.Errorf("case id is required")
	}
	if label.RaterID == "" {
		return nil, fmt.Errorf("rater id is required")
	}

	c, err := w.store.GetCase(ctx, label.CaseID)
	if err != nil {
		return nil, fmt.Errorf("load case %s: %w", label.CaseID, err)
	}

	result := w.validator.Validate(label.LabelCandidate, validate.TextLength(c.Text))
	if !result.Valid {
		w.logger.Info("label rejected",
			zap.String("case", label.CaseID),
			zap.String("rater", label.RaterID),
			zap.Int("errors", len(result.Errors)))
		return nil, &ValidationError{Result: result}
	}

	label.ID = uuid.NewString()
	label.SchemaVersion = w.validator.Schema().Version()
	label.CreatedAt = w.now()

	if err := w.store.AddLabel(ctx, &label); err != nil {
		return nil, fmt.Errorf("store label: %w", err)
	}

	w.logger.Info("label stored",
		zap.String("id", label.ID),
		zap.String("case", label.CaseID),
		zap.String("rater", label.RaterID))

	return &label, nil
}

// SeedCase generates case text and stores it as a new AI-sourced case
func (w *Workflow) SeedCase(ctx context.Context, generator CaseGenerator, focusTopicID string, isCalibration bool) (*model.LabellingCase, error) {
	generated := generator.GenerateCaseText(ctx, focusTopicID)

	c := &model.LabellingCase{
		ID:            uuid.NewString(),
		Text:          generated.Text,
		Status:        model.CaseStatusNew,
		IsCalibration: isCalibration,
		Source:        model.CaseSourceAI,
		FocusTopicID:  generated.FocusTopicID,
		CreatedAt:     w.now(),
	}

	if err := w.store.CreateCase(ctx, c); err != nil {
		return nil, fmt.Errorf("store case: %w", err)
	}

	w.logger.Info("case seeded",
		zap.String("id", c.ID),
		zap.String("focus", c.FocusTopicID),
		zap.Bool("fallback", generated.Fallback))

	return c, nil
}
