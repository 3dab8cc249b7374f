package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-app/inkwell/internal/core"
	"github.com/inkwell-app/inkwell/internal/core/coretest"
	"github.com/inkwell-app/inkwell/internal/models"
)

func newDraftService(db *coretest.MemStore, ai *coretest.FakeLLM) *DraftService {
	return NewDraftService(db, ai, NewStatusService(db))
}

func seedDoneRef(t *testing.T, db *coretest.MemStore, id, name, text, notes string) {
	t.Helper()
	seedReference(t, db, models.Reference{
		ID:            id,
		Name:          name,
		Kind:          models.KindText,
		Status:        models.RefStatusDone,
		ExtractedText: text,
		UsageNotes:    notes,
	})
}

func TestGenerateVersions_PersistsRawAndDraft(t *testing.T) {
	db := coretest.NewMemStore()
	seedProject(t, db)
	seedDoneRef(t, db, "ref-1", "interview.txt", "the interview transcript", "")
	ai := &coretest.FakeLLM{Reply: "Dear readers, ..."}
	svc := newDraftService(db, ai)
	ctx := context.Background()

	res, err := svc.GenerateVersions(ctx, testOwner, testProject, "newsletter", "", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.VersionKindRaw, res.RawVersion.Kind)
	assert.Equal(t, models.VersionKindDraft, res.DraftVersion.Kind)
	assert.Equal(t, "Dear readers, ...", res.DraftVersion.Content)
	assert.Contains(t, res.RawVersion.Content, "the interview transcript")

	versions, err := db.ListVersionsByProject(ctx, testProject)
	require.NoError(t, err)
	assert.Len(t, versions, 2)
	assert.True(t, hasEvent(db, "consolidation_created"))
	assert.True(t, hasEvent(db, "draft_generated"))
}

func TestGenerateVersions_PromptContainsEverySourceOnce(t *testing.T) {
	db := coretest.NewMemStore()
	seedProject(t, db)
	seedDoneRef(t, db, "ref-1", "alpha.txt", "alpha body", "lead with this")
	seedDoneRef(t, db, "ref-2", "beta.txt", "beta body", "")
	ai := &coretest.FakeLLM{Reply: "draft"}
	svc := newDraftService(db, ai)

	_, err := svc.GenerateVersions(context.Background(), testOwner, testProject,
		"essay", "keep it under 800 words", []string{"monorepo", "trunk-based"}, nil)
	require.NoError(t, err)

	prompt := ai.LastUserPrompt
	assert.Equal(t, 1, strings.Count(prompt, "BEGIN SOURCE: alpha.txt"))
	assert.Equal(t, 1, strings.Count(prompt, "END SOURCE: alpha.txt"))
	assert.Equal(t, 1, strings.Count(prompt, "BEGIN SOURCE: beta.txt"))
	assert.Contains(t, prompt, "alpha body")
	assert.Contains(t, prompt, "beta body")
	assert.Contains(t, prompt, "Notes for this source: lead with this")
	assert.Contains(t, prompt, "Write the output in English.")
	assert.Contains(t, prompt, "- monorepo")
	assert.Contains(t, prompt, "- trunk-based")
	assert.Contains(t, prompt, "Additional instructions: keep it under 800 words")
	assert.Less(t, strings.Index(prompt, "Notes for this source: lead with this"),
		strings.Index(prompt, "BEGIN SOURCE: alpha.txt"), "notes prefix their source block")
}

func TestGenerateVersions_FiltersByReferenceIDs(t *testing.T) {
	db := coretest.NewMemStore()
	seedProject(t, db)
	seedDoneRef(t, db, "ref-1", "keep.txt", "keep me", "")
	seedDoneRef(t, db, "ref-2", "skip.txt", "skip me", "")
	ai := &coretest.FakeLLM{Reply: "draft"}
	svc := newDraftService(db, ai)

	_, err := svc.GenerateVersions(context.Background(), testOwner, testProject,
		"summary", "", nil, []string{"ref-1"})
	require.NoError(t, err)
	assert.Contains(t, ai.LastUserPrompt, "keep me")
	assert.NotContains(t, ai.LastUserPrompt, "skip me")
}

func TestGenerateVersions_NoUsableReferences(t *testing.T) {
	db := coretest.NewMemStore()
	seedProject(t, db)
	// A failed reference and a done-but-empty one both do not count.
	seedReference(t, db, models.Reference{ID: "ref-1", Kind: models.KindText, Status: models.RefStatusFailed})
	seedReference(t, db, models.Reference{ID: "ref-2", Kind: models.KindText, Status: models.RefStatusDone})
	ai := &coretest.FakeLLM{Reply: "never"}
	svc := newDraftService(db, ai)
	ctx := context.Background()

	_, err := svc.GenerateVersions(ctx, testOwner, testProject, "newsletter", "", nil, nil)
	assert.ErrorIs(t, err, core.ErrNoReferences)
	assert.Zero(t, ai.GenerateCalls)

	versions, _ := db.ListVersionsByProject(ctx, testProject)
	assert.Empty(t, versions, "nothing is persisted on ErrNoReferences")
}

func TestGenerateVersions_BlockedWhileJobsActive(t *testing.T) {
	db := coretest.NewMemStore()
	seedProject(t, db)
	seedDoneRef(t, db, "ref-1", "done.txt", "body", "")
	seedJobWithStatus(t, db, "j-active", models.JobStatusRunning)
	svc := newDraftService(db, &coretest.FakeLLM{Reply: "never"})

	_, err := svc.GenerateVersions(context.Background(), testOwner, testProject, "newsletter", "", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "still active")
}

func TestGenerateVersions_GoalDefaultsFromProject(t *testing.T) {
	db := coretest.NewMemStore()
	seedProject(t, db) // project goal is "newsletter"
	seedDoneRef(t, db, "ref-1", "a.txt", "body", "")
	ai := &coretest.FakeLLM{Reply: "draft"}
	svc := newDraftService(db, ai)

	res, err := svc.GenerateVersions(context.Background(), testOwner, testProject, "", "", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "newsletter", res.DraftVersion.Goal)

	_, err = svc.GenerateVersions(context.Background(), testOwner, testProject, "haiku", "", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown goal")
}

func TestGenerateVersions_EmptyModelDraftFails(t *testing.T) {
	db := coretest.NewMemStore()
	seedProject(t, db)
	seedDoneRef(t, db, "ref-1", "a.txt", "body", "")
	svc := newDraftService(db, &coretest.FakeLLM{Reply: ""})
	ctx := context.Background()

	_, err := svc.GenerateVersions(ctx, testOwner, testProject, "newsletter", "", nil, nil)
	assert.ErrorIs(t, err, core.ErrProviderFailure)

	versions, _ := db.ListVersionsByProject(ctx, testProject)
	assert.Empty(t, versions)
}

func TestRegenerate_SendsEditedBlob(t *testing.T) {
	db := coretest.NewMemStore()
	seedProject(t, db)
	ai := &coretest.FakeLLM{Reply: "second draft"}
	svc := newDraftService(db, ai)

	res, err := svc.Regenerate(context.Background(), testOwner, testProject,
		"edited consolidated text", "shorter this time")
	require.NoError(t, err)
	assert.Equal(t, "second draft", res.DraftVersion.Content)
	assert.Contains(t, ai.LastUserPrompt, "edited consolidated text")
	assert.Contains(t, ai.LastUserPrompt, "Additional instructions: shorter this time")

	_, err = svc.Regenerate(context.Background(), testOwner, testProject, "", "")
	assert.Error(t, err)
}

func TestDraft_AccessControl(t *testing.T) {
	db := coretest.NewMemStore()
	seedProject(t, db)
	svc := newDraftService(db, &coretest.FakeLLM{Reply: "x"})
	ctx := context.Background()

	_, err := svc.GenerateVersions(ctx, "user-intruder", testProject, "newsletter", "", nil, nil)
	assert.ErrorIs(t, err, core.ErrAccessDenied)

	_, err = svc.ListVersions(ctx, testOwner, "ghost-project")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
