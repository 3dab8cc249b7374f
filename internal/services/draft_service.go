package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/inkwell-app/inkwell/internal/core"
	"github.com/inkwell-app/inkwell/internal/models"
)

// DraftService consolidates extracted texts into one prompt and generates a
// draft, persisting both as immutable version snapshots.
type DraftService struct {
	db     core.DbClient
	llm    core.LLMProvider
	status *StatusService
}

func NewDraftService(db core.DbClient, llm core.LLMProvider, status *StatusService) *DraftService {
	return &DraftService{db: db, llm: llm, status: status}
}

// GenerateResult bundles the two versions produced by one generation run.
type GenerateResult struct {
	RawVersion   *models.Version `json:"raw_version"`
	DraftVersion *models.Version `json:"draft_version"`
}

// GenerateVersions builds the consolidated prompt from every done reference
// (optionally filtered by referenceIDs), sends it to the model as a single
// prompt, and persists the raw blob and the draft as two version rows.
// Nothing is persisted when no reference has usable extracted text.
func (s *DraftService) GenerateVersions(ctx context.Context, userID, projectID, goal, extraInstructions string, vocabulary, referenceIDs []string) (*GenerateResult, error) {
	project, err := s.requireProject(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if goal == "" {
		goal = project.Goal
	}
	if !ValidGoal(goal) {
		return nil, fmt.Errorf("unknown goal %q", goal)
	}

	st, err := s.status.ProjectStatus(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("project status: %w", err)
	}
	if !st.AllJobsComplete {
		return nil, fmt.Errorf("%d extraction job(s) still active for project %s", st.ActiveJobs, projectID)
	}

	refs, err := s.db.ListReferencesByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list references: %w", err)
	}
	usable := filterUsable(refs, referenceIDs)
	if len(usable) == 0 {
		return nil, core.ErrNoReferences
	}

	blob := buildConsolidatedPrompt(goal, project.Language, extraInstructions, vocabulary, usable)
	return s.generate(ctx, userID, projectID, goal, blob)
}

// Regenerate resends an edited consolidated blob, optionally with extra
// instructions appended. Not a structural retry, just a fresh prompt send.
func (s *DraftService) Regenerate(ctx context.Context, userID, projectID, editedBlob, extraInstructions string) (*GenerateResult, error) {
	project, err := s.requireProject(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if editedBlob == "" {
		return nil, fmt.Errorf("empty consolidated blob")
	}
	blob := editedBlob
	if extraInstructions != "" {
		blob = fmt.Sprintf("%s\n\nAdditional instructions: %s\n", editedBlob, extraInstructions)
	}
	return s.generate(ctx, userID, projectID, project.Goal, blob)
}

// ListVersions returns the project's version history, newest first.
func (s *DraftService) ListVersions(ctx context.Context, userID, projectID string) ([]models.Version, error) {
	if _, err := s.requireProject(ctx, userID, projectID); err != nil {
		return nil, err
	}
	return s.db.ListVersionsByProject(ctx, projectID)
}

func (s *DraftService) generate(ctx context.Context, userID, projectID, goal, blob string) (*GenerateResult, error) {
	draft, err := s.llm.Generate(ctx, "", blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrProviderFailure, err)
	}
	if draft == "" {
		return nil, fmt.Errorf("%w: model returned an empty draft", core.ErrProviderFailure)
	}

	now := time.Now()
	raw := &models.Version{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Kind:      models.VersionKindRaw,
		Goal:      goal,
		Content:   blob,
		CreatedBy: userID,
		CreatedAt: now,
	}
	if err := s.db.CreateVersion(ctx, raw); err != nil {
		return nil, fmt.Errorf("persist raw version: %w", err)
	}
	s.recordEvent(ctx, projectID, userID, "consolidation_created", raw.ID)

	out := &models.Version{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Kind:      models.VersionKindDraft,
		Goal:      goal,
		Content:   draft,
		CreatedBy: userID,
		CreatedAt: now,
	}
	if err := s.db.CreateVersion(ctx, out); err != nil {
		return nil, fmt.Errorf("persist draft version: %w", err)
	}
	s.recordEvent(ctx, projectID, userID, "draft_generated", out.ID)

	return &GenerateResult{RawVersion: raw, DraftVersion: out}, nil
}

func (s *DraftService) requireProject(ctx context.Context, userID, projectID string) (*models.Project, error) {
	project, err := s.db.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	if project == nil {
		return nil, fmt.Errorf("project %s: %w", projectID, core.ErrNotFound)
	}
	ok, err := s.db.HasProjectAccess(ctx, projectID, userID)
	if err != nil {
		return nil, fmt.Errorf("access check: %w", err)
	}
	if !ok {
		return nil, core.ErrAccessDenied
	}
	return project, nil
}

func filterUsable(refs []models.Reference, ids []string) []models.Reference {
	wanted := map[string]bool{}
	for _, id := range ids {
		wanted[id] = true
	}

	var out []models.Reference
	for _, r := range refs {
		if r.Status != models.RefStatusDone || r.ExtractedText == "" {
			continue
		}
		if len(wanted) > 0 && !wanted[r.ID] {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (s *DraftService) recordEvent(ctx context.Context, projectID, actorID, eventType, detail string) {
	evt := &models.TimelineEvent{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		ActorID:   actorID,
		EventType: eventType,
		Detail:    detail,
		CreatedAt: time.Now(),
	}
	if err := s.db.RecordEvent(ctx, evt); err != nil {
		log.Printf("record timeline event: %v", err)
	}
}
