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
	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
)

func TestCreateGoal(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	repo := repository.NewGoalsRepoWithConn(mock)
	ctx := context.Background()
	goal := entity.Goal{
		KidUsername:   "super_kid",
		KidName:       "Sammy",
		KidAvatar:     "🦊",
		ParentEmail:   "parent@example.com",
		Title:         "New Bike",
		Category:      "toys",
		Description:   "a red one",
		TargetAmount:  50,
		DurationWeeks: 4,
		Status:        entity.GoalStatusPendingApproval,
	}
	gid := uuid.New()
	query := regexp.QuoteMeta(`INSERT INTO goals
		(kid_username, kid_name, kid_avatar, parent_email, title, category, description, amount, duration, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id;`)
	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(goal.KidUsername, goal.KidName, goal.KidAvatar, goal.ParentEmail, goal.Title,
				goal.Category, goal.Description, goal.TargetAmount, goal.DurationWeeks, string(goal.Status)).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(gid))
		id, err := repo.Create(ctx, &goal)
		assert.NoError(t, err)
		assert.Equal(t, gid, id)
	})
	t.Run("db error", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(goal.KidUsername, goal.KidName, goal.KidAvatar, goal.ParentEmail, goal.Title,
				goal.Category, goal.Description, goal.TargetAmount, goal.DurationWeeks, string(goal.Status)).
			WillReturnError(errors.New("db error"))
		_, err := repo.Create(ctx, &goal)
		assert.Error(t, err)
	})
}

func TestApproveGoal(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	repo := repository.NewGoalsRepoWithConn(mock)
	ctx := context.Background()
	gid := uuid.New()
	approvedBy := "parent@example.com"
	at := time.Now()
	query := regexp.QuoteMeta(`UPDATE goals SET status = 'approved', approved_at = $1, approved_by = $2 WHERE id = $3;`)
	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(at, approvedBy, gid).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		err := repo.Approve(ctx, gid, approvedBy, at)
		assert.NoError(t, err)
	})
	t.Run("not found", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(at, approvedBy, gid).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		err := repo.Approve(ctx, gid, approvedBy, at)
		assert.ErrorIs(t, err, errorvalues.ErrGoalNotFound)
	})
	t.Run("db error", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(at, approvedBy, gid).
			WillReturnError(errors.New("db error"))
		err := repo.Approve(ctx, gid, approvedBy, at)
		assert.Error(t, err)
	})
}

func TestSetAssignedChores(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	repo := repository.NewGoalsRepoWithConn(mock)
	ctx := context.Background()
	gid := uuid.New()
	choreIDs := []uuid.UUID{uuid.New(), uuid.New()}
	query := regexp.QuoteMeta(`UPDATE goals SET assigned_chore_ids = $1, has_launched_mission = TRUE WHERE id = $2;`)
	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(choreIDs, gid).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		err := repo.SetAssignedChores(ctx, gid, choreIDs)
		assert.NoError(t, err)
	})
	t.Run("not found", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(choreIDs, gid).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		err := repo.SetAssignedChores(ctx, gid, choreIDs)
		assert.ErrorIs(t, err, errorvalues.ErrGoalNotFound)
	})
}

func TestCreditGoal(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	repo := repository.NewGoalsRepoWithConn(mock)
	ctx := context.Background()
	gid := uuid.New()
	now := time.Now().UTC()
	credit := repository.GoalCredit{
		NewSaved:    22.5,
		NewProgress: 45,
		Entry: entity.ProgressEntry{
			Date:       now,
			Amount:     12.5,
			ApprovedBy: "parent@example.com",
			ChoreIDs:   []uuid.UUID{uuid.New(), uuid.New()},
		},
	}
	entryJSON, err := sonic.Marshal(credit.Entry)
	if err != nil {
		t.Fatal(err)
	}
	query := regexp.QuoteMeta(`UPDATE goals SET
		saved = $1, progress = $2,
		progress_history = progress_history || $3::jsonb,
		status = CASE WHEN $4::timestamptz IS NOT NULL THEN 'completed' ELSE status END,
		completed_at = COALESCE($4, completed_at)
		WHERE id = $5;`)
	t.Run("partial credit keeps the goal open", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(credit.NewSaved, credit.NewProgress, entryJSON, credit.CompletedAt, gid).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		err := repo.Credit(ctx, gid, &credit)
		assert.NoError(t, err)
	})
	t.Run("completing credit stamps completed_at", func(t *testing.T) {
		done := credit
		done.CompletedAt = &now
		mock.ExpectExec(query).
			WithArgs(done.NewSaved, done.NewProgress, entryJSON, done.CompletedAt, gid).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		err := repo.Credit(ctx, gid, &done)
		assert.NoError(t, err)
	})
	t.Run("not found", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(credit.NewSaved, credit.NewProgress, entryJSON, credit.CompletedAt, gid).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		err := repo.Credit(ctx, gid, &credit)
		assert.ErrorIs(t, err, errorvalues.ErrGoalNotFound)
	})
	t.Run("db error", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(credit.NewSaved, credit.NewProgress, entryJSON, credit.CompletedAt, gid).
			WillReturnError(errors.New("db error"))
		err := repo.Credit(ctx, gid, &credit)
		assert.Error(t, err)
	})
}
