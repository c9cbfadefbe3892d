package service

import (
	"context"
	"math"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"planner/internal/model"
	"planner/internal/repository"
)

// maxTreeDepth caps recursive descent. The schema keeps node trees
// acyclic through cascade deletion, but a corrupted parent chain must not
// hang a request.
const maxTreeDepth = 32

// ProgressService computes 0–100 completion percentages for team tasks
// and mindmap node trees. Node progress is a write-through cache: every
// recomputation persists its result so list views can read it without a
// recursive descent.
type ProgressService struct {
	db *gorm.DB
}

func NewProgressService(db *gorm.DB) *ProgressService {
	return &ProgressService{db: db}
}

// RecomputeTeamTaskCompletion rederives a team task's completion rate
// from its assignees, persists the denormalized completed flag and
// refreshes the node chain above it. Returns the rate.
func (s *ProgressService) RecomputeTeamTaskCompletion(ctx context.Context, teamTaskID uuid.UUID) (int, error) {
	var rate int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		teamTaskRepo := repository.NewTeamTaskRepository(tx)
		task, err := teamTaskRepo.GetByID(ctx, teamTaskID)
		if err != nil {
			return err
		}

		rate, err = teamTaskRate(ctx, teamTaskRepo, task.ID)
		if err != nil {
			return err
		}
		task.Completed = rate == 100
		if err := teamTaskRepo.Update(ctx, task); err != nil {
			return err
		}

		if task.ParentNodeID != nil {
			if _, err := recomputeNodeChain(ctx, tx, *task.ParentNodeID); err != nil {
				return err
			}
		}
		return nil
	})
	return rate, err
}

// RecomputeNodeProgress recomputes a node's progress bottom-up, persists
// every visited node and refreshes the chain of ancestors.
func (s *ProgressService) RecomputeNodeProgress(ctx context.Context, nodeID uuid.UUID) (int, error) {
	var progress int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := recomputeNodeChain(ctx, tx, nodeID)
		progress = p
		return err
	})
	return progress, err
}

// MindmapProgress returns the map-level aggregate: the mean over leaf
// nodes only. Internal nodes are derivatives of their leaves and would
// double-count.
func (s *ProgressService) MindmapProgress(ctx context.Context, mindmapID uuid.UUID) (int, error) {
	var progress int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		mindmapRepo := repository.NewMindmapRepository(tx)
		nodes, err := mindmapRepo.ListNodes(ctx, mindmapID)
		if err != nil {
			return err
		}

		hasChildren := make(map[uuid.UUID]bool, len(nodes))
		for _, node := range nodes {
			if node.ParentID != nil {
				hasChildren[*node.ParentID] = true
			}
		}

		sum := 0
		leaves := 0
		for i := range nodes {
			if hasChildren[nodes[i].ID] {
				continue
			}
			p, err := computeNodeProgress(ctx, tx, &nodes[i], 0)
			if err != nil {
				return err
			}
			sum += p
			leaves++
		}
		if leaves > 0 {
			progress = sum / leaves
		}
		return nil
	})
	return progress, err
}

// recomputeNodeChain recomputes one node, then walks the parent chain
// upward refreshing each ancestor's cached progress.
func recomputeNodeChain(ctx context.Context, tx *gorm.DB, nodeID uuid.UUID) (int, error) {
	mindmapRepo := repository.NewMindmapRepository(tx)
	node, err := mindmapRepo.GetNode(ctx, nodeID)
	if err != nil {
		return 0, err
	}

	progress, err := computeNodeProgress(ctx, tx, node, 0)
	if err != nil {
		return 0, err
	}

	parentID := node.ParentID
	for depth := 0; parentID != nil && depth < maxTreeDepth; depth++ {
		parent, err := mindmapRepo.GetNode(ctx, *parentID)
		if err != nil {
			return progress, err
		}
		if _, err := computeNodeProgress(ctx, tx, parent, 0); err != nil {
			return progress, err
		}
		parentID = parent.ParentID
	}
	return progress, nil
}

// computeNodeProgress evaluates one node with the precedence: attached
// team-task subtasks, then a linked team task, then children, then the
// node's own value or its personal task card ratio. The result is
// persisted when it changed.
func computeNodeProgress(ctx context.Context, tx *gorm.DB, node *model.MindmapNode, depth int) (int, error) {
	if depth >= maxTreeDepth {
		return node.Progress, nil
	}

	mindmapRepo := repository.NewMindmapRepository(tx)
	teamTaskRepo := repository.NewTeamTaskRepository(tx)
	taskRepo := repository.NewTaskRepository(tx)

	subtasks, err := teamTaskRepo.ListByNode(ctx, node.ID)
	if err != nil {
		return 0, err
	}
	if len(subtasks) > 0 {
		sum := 0
		for _, subtask := range subtasks {
			rate, err := teamTaskRate(ctx, teamTaskRepo, subtask.ID)
			if err != nil {
				return 0, err
			}
			sum += rate
		}
		return persistNodeProgress(ctx, mindmapRepo, node, sum/len(subtasks))
	}

	if node.TeamTaskID != nil {
		rate, err := teamTaskRate(ctx, teamTaskRepo, *node.TeamTaskID)
		if err != nil {
			return 0, err
		}
		return persistNodeProgress(ctx, mindmapRepo, node, rate)
	}

	children, err := mindmapRepo.ListChildren(ctx, node.ID)
	if err != nil {
		return 0, err
	}
	if len(children) > 0 {
		sum := 0
		for i := range children {
			p, err := computeNodeProgress(ctx, tx, &children[i], depth+1)
			if err != nil {
				return 0, err
			}
			sum += p
		}
		return persistNodeProgress(ctx, mindmapRepo, node, sum/len(children))
	}

	cardTasks, err := taskRepo.ListByCardNode(ctx, node.ID)
	if err != nil {
		return 0, err
	}
	if len(cardTasks) > 0 {
		done := 0
		for _, task := range cardTasks {
			if task.Completed {
				done++
			}
		}
		return persistNodeProgress(ctx, mindmapRepo, node, ratio(done, len(cardTasks)))
	}

	// True leaf with nothing attached: the manually settable value stands.
	return node.Progress, nil
}

func persistNodeProgress(ctx context.Context, mindmapRepo *repository.MindmapRepository, node *model.MindmapNode, progress int) (int, error) {
	if node.Progress == progress {
		return progress, nil
	}
	node.Progress = progress
	if err := mindmapRepo.UpdateNode(ctx, node); err != nil {
		return 0, err
	}
	return progress, nil
}

// teamTaskRate is round(100 · completed assignees / assignees), 0 when
// nobody is assigned.
func teamTaskRate(ctx context.Context, teamTaskRepo *repository.TeamTaskRepository, teamTaskID uuid.UUID) (int, error) {
	assignees, err := teamTaskRepo.ListAssignees(ctx, teamTaskID)
	if err != nil {
		return 0, err
	}
	done := 0
	for _, assignee := range assignees {
		if assignee.Completed {
			done++
		}
	}
	return ratio(done, len(assignees)), nil
}

func ratio(done, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(done) / float64(total) * 100))
}
