package service_test

import (
	"context"
	"testing"

	"planner/internal/model"
	"planner/internal/repository"
	"planner/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createMindmapWithTeam(t *testing.T, db *gorm.DB, ownerID uuid.UUID) (*model.Mindmap, *model.Team) {
	t.Helper()
	ctx := context.Background()

	team := &model.Team{Name: "Crew", OwnerID: ownerID}
	require.NoError(t, repository.NewTeamRepository(db).Create(ctx, team))
	require.NoError(t, repository.NewTeamRepository(db).AddMember(ctx, &model.TeamMember{
		TeamID: team.ID, UserID: ownerID, IsAdmin: true,
	}))

	mindmap := &model.Mindmap{Title: "Roadmap", TeamID: &team.ID}
	require.NoError(t, repository.NewMindmapRepository(db).Create(ctx, mindmap))
	return mindmap, team
}

func createNode(t *testing.T, db *gorm.DB, mindmapID uuid.UUID, parentID *uuid.UUID, progress int) *model.MindmapNode {
	t.Helper()
	node := &model.MindmapNode{
		MindmapID: mindmapID,
		ParentID:  parentID,
		Title:     "Node",
		Progress:  progress,
	}
	require.NoError(t, repository.NewMindmapRepository(db).CreateNode(context.Background(), node))
	return node
}

func getNode(t *testing.T, db *gorm.DB, id uuid.UUID) *model.MindmapNode {
	t.Helper()
	node, err := repository.NewMindmapRepository(db).GetNode(context.Background(), id)
	require.NoError(t, err)
	return node
}

func TestProgress_TeamTaskRateFromAssignees(t *testing.T) {
	db := setupTestDB(t)
	ownerID := createTestUser(t, db)
	mindmap, team := createMindmapWithTeam(t, db, ownerID)
	node := createNode(t, db, mindmap.ID, nil, 0)
	svc := service.NewProgressService(db)
	ctx := context.Background()

	teamTaskRepo := repository.NewTeamTaskRepository(db)
	teamTask := &model.TeamTask{
		TeamID:       team.ID,
		ParentNodeID: &node.ID,
		Title:        "Ship feature",
		CreatedBy:    ownerID,
	}
	require.NoError(t, teamTaskRepo.Create(ctx, teamTask))

	assignees := make([]*model.TaskAssignee, 3)
	for i := range assignees {
		assignees[i] = &model.TaskAssignee{TeamTaskID: teamTask.ID, UserID: createTestUser(t, db)}
		require.NoError(t, teamTaskRepo.AddAssignee(ctx, assignees[i]))
	}

	// Two of three assignees done.
	for _, a := range assignees[:2] {
		a.Completed = true
		require.NoError(t, teamTaskRepo.UpdateAssignee(ctx, a))
	}

	rate, err := svc.RecomputeTeamTaskCompletion(ctx, teamTask.ID)
	require.NoError(t, err)
	assert.Equal(t, 67, rate)

	refreshed, err := teamTaskRepo.GetByID(ctx, teamTask.ID)
	require.NoError(t, err)
	assert.False(t, refreshed.Completed)
	// The node above the task picked up the rate.
	assert.Equal(t, 67, getNode(t, db, node.ID).Progress)

	// The last assignee finishing flips the denormalized flag.
	assignees[2].Completed = true
	require.NoError(t, teamTaskRepo.UpdateAssignee(ctx, assignees[2]))
	rate, err = svc.RecomputeTeamTaskCompletion(ctx, teamTask.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, rate)
	refreshed, err = teamTaskRepo.GetByID(ctx, teamTask.ID)
	require.NoError(t, err)
	assert.True(t, refreshed.Completed)
}

func TestProgress_ChildrenMeanRollsUpThreeLevels(t *testing.T) {
	db := setupTestDB(t)
	ownerID := createTestUser(t, db)
	mindmap, _ := createMindmapWithTeam(t, db, ownerID)
	svc := service.NewProgressService(db)
	ctx := context.Background()

	root := createNode(t, db, mindmap.ID, nil, 0)
	mid := createNode(t, db, mindmap.ID, &root.ID, 0)
	createNode(t, db, mindmap.ID, &mid.ID, 100)
	createNode(t, db, mindmap.ID, &mid.ID, 0)

	progress, err := svc.RecomputeNodeProgress(ctx, mid.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, progress)
	// The ancestor chain was refreshed too.
	assert.Equal(t, 50, getNode(t, db, root.ID).Progress)
}

func TestProgress_CardTaskRatio(t *testing.T) {
	db := setupTestDB(t)
	ownerID := createTestUser(t, db)
	mindmap, _ := createMindmapWithTeam(t, db, ownerID)
	node := createNode(t, db, mindmap.ID, nil, 0)
	svc := service.NewProgressService(db)
	ctx := context.Background()

	for _, completed := range []bool{true, false} {
		createTask(t, db, &model.Task{
			UserID:         ownerID,
			Title:          "Card item",
			Category:       model.CategoryOther,
			Priority:       model.PriorityMedium,
			Completed:      completed,
			TaskCardNodeID: &node.ID,
		})
	}

	progress, err := svc.RecomputeNodeProgress(ctx, node.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, progress)
	assert.Equal(t, 50, getNode(t, db, node.ID).Progress)
}

func TestProgress_ManualLeafValueStands(t *testing.T) {
	db := setupTestDB(t)
	ownerID := createTestUser(t, db)
	mindmap, _ := createMindmapWithTeam(t, db, ownerID)
	node := createNode(t, db, mindmap.ID, nil, 40)
	svc := service.NewProgressService(db)

	progress, err := svc.RecomputeNodeProgress(context.Background(), node.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, progress)
}

func TestProgress_MindmapMeanOverLeavesOnly(t *testing.T) {
	db := setupTestDB(t)
	ownerID := createTestUser(t, db)
	mindmap, _ := createMindmapWithTeam(t, db, ownerID)
	svc := service.NewProgressService(db)
	ctx := context.Background()

	// root is internal; only its two leaves count, alongside the loose
	// leaf. (100 + 0 + 50) / 3 = 50.
	root := createNode(t, db, mindmap.ID, nil, 0)
	createNode(t, db, mindmap.ID, &root.ID, 100)
	createNode(t, db, mindmap.ID, &root.ID, 0)
	createNode(t, db, mindmap.ID, nil, 50)

	progress, err := svc.MindmapProgress(ctx, mindmap.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, progress)
}

func TestProgress_LinkedTeamTaskDrivesNode(t *testing.T) {
	db := setupTestDB(t)
	ownerID := createTestUser(t, db)
	mindmap, team := createMindmapWithTeam(t, db, ownerID)
	svc := service.NewProgressService(db)
	ctx := context.Background()

	teamTaskRepo := repository.NewTeamTaskRepository(db)
	teamTask := &model.TeamTask{TeamID: team.ID, Title: "Linked work", CreatedBy: ownerID}
	require.NoError(t, teamTaskRepo.Create(ctx, teamTask))
	done := &model.TaskAssignee{TeamTaskID: teamTask.ID, UserID: ownerID, Completed: true}
	require.NoError(t, teamTaskRepo.AddAssignee(ctx, done))
	require.NoError(t, teamTaskRepo.AddAssignee(ctx, &model.TaskAssignee{
		TeamTaskID: teamTask.ID, UserID: createTestUser(t, db),
	}))

	node := &model.MindmapNode{MindmapID: mindmap.ID, Title: "Linked", TeamTaskID: &teamTask.ID}
	require.NoError(t, repository.NewMindmapRepository(db).CreateNode(ctx, node))

	progress, err := svc.RecomputeNodeProgress(ctx, node.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, progress)
}
