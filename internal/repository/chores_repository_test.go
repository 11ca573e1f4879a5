package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	errorvalues "github.com/aidiy/backend/internal/error_values"
	"github.com/aidiy/backend/internal/repository"
	"github.com/aidiy/backend/pkg/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
)

const choreColumnsList = `id, parent_email, kid_username, title, description, category, difficulty, reward, status,
		due_date, assigned_goal_id, submitted_at, archived_at, approved_by, declined_at, declined_by, created_at, updated_at`

func TestGetChoreByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	repo := repository.NewChoresRepoWithConn(mock)
	ctx := context.Background()
	chore := entity.Chore{
		ID:          uuid.New(),
		ParentEmail: "parent@example.com",
		KidUsername: "super_kid",
		Title:       "Wash dishes",
		Description: "every plate",
		Category:    "home",
		Difficulty:  "Easy",
		Reward:      5,
		Status:      entity.ChoreStatusAssigned,
		DueDate:     "2026-09-30",
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	query := regexp.QuoteMeta(`SELECT ` + choreColumnsList + ` FROM chores WHERE id = $1;`)
	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(chore.ID).
			WillReturnRows(pgxmock.NewRows([]string{"id", "parent_email", "kid_username", "title", "description",
				"category", "difficulty", "reward", "status", "due_date", "assigned_goal_id", "submitted_at",
				"archived_at", "approved_by", "declined_at", "declined_by", "created_at", "updated_at"}).
				AddRow(chore.ID, chore.ParentEmail, chore.KidUsername, chore.Title, chore.Description,
					chore.Category, chore.Difficulty, chore.Reward, chore.Status, chore.DueDate,
					chore.AssignedGoalID, chore.SubmittedAt, chore.ArchivedAt, chore.ApprovedBy,
					chore.DeclinedAt, chore.DeclinedBy, chore.CreatedAt, chore.UpdatedAt))
		result, err := repo.GetByID(ctx, chore.ID)
		assert.NoError(t, err)
		assert.Equal(t, chore, *result)
	})
	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(chore.ID).
			WillReturnError(pgx.ErrNoRows)
		_, err := repo.GetByID(ctx, chore.ID)
		assert.ErrorIs(t, err, errorvalues.ErrChoreNotFound)
	})
	t.Run("db error", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(chore.ID).
			WillReturnError(errors.New("db error"))
		_, err := repo.GetByID(ctx, chore.ID)
		assert.Error(t, err)
	})
}

func TestAssignChoreToGoal(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	repo := repository.NewChoresRepoWithConn(mock)
	ctx := context.Background()
	choreID := uuid.New()
	goalID := uuid.New()
	query := regexp.QuoteMeta(`UPDATE chores SET assigned_goal_id = $1, status = 'Assigned', updated_at = NOW()
		WHERE id = $2;`)
	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(goalID, choreID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		err := repo.AssignToGoal(ctx, choreID, goalID)
		assert.NoError(t, err)
	})
	t.Run("not found", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(goalID, choreID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		err := repo.AssignToGoal(ctx, choreID, goalID)
		assert.ErrorIs(t, err, errorvalues.ErrChoreNotFound)
	})
}

func TestArchiveIfPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	repo := repository.NewChoresRepoWithConn(mock)
	ctx := context.Background()
	choreID := uuid.New()
	approvedBy := "parent@example.com"
	query := regexp.QuoteMeta(`UPDATE chores SET status = 'archived', archived_at = NOW(), approved_by = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'pending_approval';`)
	t.Run("pending chore is archived", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(approvedBy, choreID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		archived, err := repo.ArchiveIfPending(ctx, choreID, approvedBy)
		assert.NoError(t, err)
		assert.True(t, archived)
	})
	t.Run("already resolved chore matches nothing", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(approvedBy, choreID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		archived, err := repo.ArchiveIfPending(ctx, choreID, approvedBy)
		assert.NoError(t, err)
		assert.False(t, archived)
	})
	t.Run("db error", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(approvedBy, choreID).
			WillReturnError(errors.New("db error"))
		_, err := repo.ArchiveIfPending(ctx, choreID, approvedBy)
		assert.Error(t, err)
	})
}

func TestReassignIfPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	repo := repository.NewChoresRepoWithConn(mock)
	ctx := context.Background()
	choreID := uuid.New()
	declinedBy := "parent@example.com"
	query := regexp.QuoteMeta(`UPDATE chores SET status = 'Assigned', submitted_at = NULL,
		declined_at = NOW(), declined_by = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'pending_approval';`)
	t.Run("pending chore goes back to assigned", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(declinedBy, choreID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		reassigned, err := repo.ReassignIfPending(ctx, choreID, declinedBy)
		assert.NoError(t, err)
		assert.True(t, reassigned)
	})
	t.Run("already resolved chore matches nothing", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(declinedBy, choreID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		reassigned, err := repo.ReassignIfPending(ctx, choreID, declinedBy)
		assert.NoError(t, err)
		assert.False(t, reassigned)
	})
}

func TestCountAssigned(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	repo := repository.NewChoresRepoWithConn(mock)
	ctx := context.Background()
	kid := "super_kid"
	query := regexp.QuoteMeta(`SELECT COUNT(*) FROM chores WHERE kid_username = $1 AND status = 'Assigned';`)
	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(kid).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))
		count, err := repo.CountAssigned(ctx, kid)
		assert.NoError(t, err)
		assert.Equal(t, 3, count)
	})
	t.Run("db error", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(kid).
			WillReturnError(errors.New("db error"))
		_, err := repo.CountAssigned(ctx, kid)
		assert.Error(t, err)
	})
}
