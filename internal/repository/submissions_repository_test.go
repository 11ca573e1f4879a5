package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	errorvalues "github.com/aidiy/backend/internal/error_values"
	"github.com/aidiy/backend/internal/repository"
	"github.com/aidiy/backend/pkg/entity"
	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	_ "github.com/lib/pq"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/pressly/goose"
	"github.com/stretchr/testify/assert"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var testSubmission = entity.PendingSubmission{
	GoalID:       uuid.New(),
	KidUsername:  "super_kid",
	ParentEmail:  "parent@example.com",
	EarnedAmount: 12.5,
	Chores: []entity.ChoreSnapshot{
		{ID: uuid.New(), Title: "Wash dishes", Reward: 5},
		{ID: uuid.New(), Title: "Walk the dog", Reward: 7.5},
	},
	Status: entity.SubmissionStatusPending,
}

func TestCreateSubmission(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	repo := repository.NewSubmissionsRepoWithConn(mock)
	ctx := context.Background()
	sid := uuid.New()
	choresJSON, err := sonic.Marshal(testSubmission.Chores)
	if err != nil {
		t.Fatal(err)
	}
	query := regexp.QuoteMeta(`INSERT INTO pending_submissions
		(goal_id, kid_username, parent_email, earned_amount, chores, status)
		VALUES ($1, $2, $3, $4, $5, 'pending') RETURNING id;`)
	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(testSubmission.GoalID, testSubmission.KidUsername, testSubmission.ParentEmail,
				testSubmission.EarnedAmount, choresJSON).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(sid))
		id, err := repo.Create(ctx, &testSubmission)
		assert.NoError(t, err)
		assert.Equal(t, sid, id)
	})
	t.Run("db error", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(testSubmission.GoalID, testSubmission.KidUsername, testSubmission.ParentEmail,
				testSubmission.EarnedAmount, choresJSON).
			WillReturnError(errors.New("db error"))
		_, err := repo.Create(ctx, &testSubmission)
		assert.Error(t, err)
	})
}

func TestGetSubmissionByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	repo := repository.NewSubmissionsRepoWithConn(mock)
	ctx := context.Background()
	sub := testSubmission
	sub.ID = uuid.New()
	sub.CreatedAt = time.Now()
	choresJSON, err := sonic.Marshal(sub.Chores)
	if err != nil {
		t.Fatal(err)
	}
	query := regexp.QuoteMeta(`SELECT id, goal_id, kid_username, parent_email, earned_amount, chores, status,
		created_at, resolved_at, resolved_by FROM pending_submissions WHERE id = $1;`)
	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(sub.ID).
			WillReturnRows(pgxmock.NewRows([]string{"id", "goal_id", "kid_username", "parent_email", "earned_amount",
				"chores", "status", "created_at", "resolved_at", "resolved_by"}).
				AddRow(sub.ID, sub.GoalID, sub.KidUsername, sub.ParentEmail, sub.EarnedAmount,
					choresJSON, sub.Status, sub.CreatedAt, sub.ResolvedAt, sub.ResolvedBy))
		result, err := repo.GetByID(ctx, sub.ID)
		assert.NoError(t, err)
		assert.Equal(t, sub, *result)
	})
	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(sub.ID).
			WillReturnError(pgx.ErrNoRows)
		_, err := repo.GetByID(ctx, sub.ID)
		assert.ErrorIs(t, err, errorvalues.ErrSubmissionNotFound)
	})
	t.Run("db error", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(sub.ID).
			WillReturnError(errors.New("db error"))
		_, err := repo.GetByID(ctx, sub.ID)
		assert.Error(t, err)
	})
}

func TestClaimSubmission(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	repo := repository.NewSubmissionsRepoWithConn(mock)
	ctx := context.Background()
	sid := uuid.New()
	resolvedBy := "parent@example.com"
	at := time.Now()
	query := regexp.QuoteMeta(`UPDATE pending_submissions SET status = $1, resolved_at = $2, resolved_by = $3
		WHERE id = $4 AND status = 'pending';`)
	t.Run("first decision wins the claim", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(string(entity.SubmissionStatusApproved), at, resolvedBy, sid).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		claimed, err := repo.Claim(ctx, sid, entity.SubmissionStatusApproved, resolvedBy, at)
		assert.NoError(t, err)
		assert.True(t, claimed)
	})
	t.Run("already resolved matches nothing", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(string(entity.SubmissionStatusDeclined), at, resolvedBy, sid).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		claimed, err := repo.Claim(ctx, sid, entity.SubmissionStatusDeclined, resolvedBy, at)
		assert.NoError(t, err)
		assert.False(t, claimed)
	})
	t.Run("db error", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(string(entity.SubmissionStatusApproved), at, resolvedBy, sid).
			WillReturnError(errors.New("db error"))
		_, err := repo.Claim(ctx, sid, entity.SubmissionStatusApproved, resolvedBy, at)
		assert.Error(t, err)
	})
}

// Exercises the goal, chore and submission repos together through one
// full approval cycle against a real database.
func TestWorkflowReposIntegrational(t *testing.T) {
	cfg := setupWorkflowTestDB(t)
	goals := repository.NewGoalsRepo(cfg)
	chores := repository.NewChoresRepo(cfg)
	submissions := repository.NewSubmissionsRepo(cfg)
	ctx := context.Background()
	parentEmail := "parent@example.com"
	kid := "super_kid"

	goalID, err := goals.Create(ctx, &entity.Goal{
		KidUsername:  kid,
		KidName:      "Sammy",
		ParentEmail:  parentEmail,
		Title:        "New Bike",
		TargetAmount: 50,
		Status:       entity.GoalStatusPendingApproval,
	})
	assert.NoError(t, err)

	choreIDs := make([]uuid.UUID, 2)
	for i, title := range []string{"Wash dishes", "Walk the dog"} {
		choreIDs[i], err = chores.Create(ctx, &entity.Chore{
			ParentEmail: parentEmail,
			KidUsername: kid,
			Title:       title,
			Description: "a chore",
			Category:    "home",
			Difficulty:  "Easy",
			Reward:      5,
			Status:      entity.ChoreStatusPending,
			DueDate:     "2026-09-30",
		})
		assert.NoError(t, err)
	}

	t.Run("goal approval", func(t *testing.T) {
		err := goals.Approve(ctx, goalID, parentEmail, time.Now().UTC())
		assert.NoError(t, err)
		goal, err := goals.GetByID(ctx, goalID)
		assert.NoError(t, err)
		assert.Equal(t, entity.GoalStatusApproved, goal.Status)
		assert.Equal(t, parentEmail, goal.ApprovedBy)
	})
	t.Run("mission launch", func(t *testing.T) {
		for _, id := range choreIDs {
			assert.NoError(t, chores.AssignToGoal(ctx, id, goalID))
		}
		assert.NoError(t, goals.SetAssignedChores(ctx, goalID, choreIDs))
		goal, err := goals.GetByID(ctx, goalID)
		assert.NoError(t, err)
		assert.True(t, goal.HasLaunchedMission)
		assert.Equal(t, choreIDs, goal.AssignedChoreIDs)
		count, err := chores.CountAssigned(ctx, kid)
		assert.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	var subID uuid.UUID
	t.Run("progress submission", func(t *testing.T) {
		snapshots := make([]entity.ChoreSnapshot, 0, 2)
		for _, id := range choreIDs {
			chore, err := chores.GetByID(ctx, id)
			assert.NoError(t, err)
			snapshots = append(snapshots, entity.ChoreSnapshot{ID: chore.ID, Title: chore.Title, Reward: chore.Reward})
			assert.NoError(t, chores.MarkPendingApproval(ctx, id, time.Now().UTC()))
		}
		subID, err = submissions.Create(ctx, &entity.PendingSubmission{
			GoalID:       goalID,
			KidUsername:  kid,
			ParentEmail:  parentEmail,
			EarnedAmount: 10,
			Chores:       snapshots,
		})
		assert.NoError(t, err)
		sub, err := submissions.GetByID(ctx, subID)
		assert.NoError(t, err)
		assert.Equal(t, entity.SubmissionStatusPending, sub.Status)
		assert.Equal(t, snapshots, sub.Chores)
	})
	t.Run("claim is single-shot", func(t *testing.T) {
		claimed, err := submissions.Claim(ctx, subID, entity.SubmissionStatusApproved, parentEmail, time.Now().UTC())
		assert.NoError(t, err)
		assert.True(t, claimed)
		claimed, err = submissions.Claim(ctx, subID, entity.SubmissionStatusDeclined, parentEmail, time.Now().UTC())
		assert.NoError(t, err)
		assert.False(t, claimed)
	})
	t.Run("archival is conditional", func(t *testing.T) {
		archived, err := chores.ArchiveIfPending(ctx, choreIDs[0], parentEmail)
		assert.NoError(t, err)
		assert.True(t, archived)
		archived, err = chores.ArchiveIfPending(ctx, choreIDs[0], parentEmail)
		assert.NoError(t, err)
		assert.False(t, archived)
		reassigned, err := chores.ReassignIfPending(ctx, choreIDs[1], parentEmail)
		assert.NoError(t, err)
		assert.True(t, reassigned)
		count, err := chores.CountAssigned(ctx, kid)
		assert.NoError(t, err)
		assert.Equal(t, 1, count)
	})
	t.Run("credit lands with its audit entry", func(t *testing.T) {
		now := time.Now().UTC()
		err := goals.Credit(ctx, goalID, &repository.GoalCredit{
			NewSaved:    10,
			NewProgress: 20,
			Entry: entity.ProgressEntry{
				Date:       now,
				Amount:     10,
				ApprovedBy: parentEmail,
				ChoreIDs:   choreIDs,
			},
		})
		assert.NoError(t, err)
		goal, err := goals.GetByID(ctx, goalID)
		assert.NoError(t, err)
		assert.Equal(t, 10.0, goal.SavedAmount)
		assert.Equal(t, 20.0, goal.Progress)
		assert.Equal(t, entity.GoalStatusApproved, goal.Status)
		assert.Nil(t, goal.CompletedAt)
		assert.Len(t, goal.ProgressHistory, 1)
		assert.Equal(t, 10.0, goal.ProgressHistory[0].Amount)
	})
	t.Run("completing credit closes the goal", func(t *testing.T) {
		now := time.Now().UTC()
		err := goals.Credit(ctx, goalID, &repository.GoalCredit{
			NewSaved:    50,
			NewProgress: 100,
			Entry: entity.ProgressEntry{
				Date:       now,
				Amount:     40,
				ApprovedBy: parentEmail,
			},
			CompletedAt: &now,
		})
		assert.NoError(t, err)
		goal, err := goals.GetByID(ctx, goalID)
		assert.NoError(t, err)
		assert.Equal(t, entity.GoalStatusCompleted, goal.Status)
		assert.NotNil(t, goal.CompletedAt)
		assert.Len(t, goal.ProgressHistory, 2)
	})
}

type testPGConfig struct {
	connStr string
}

func (cfg *testPGConfig) ConnString() string {
	return cfg.connStr
}

func setupWorkflowTestDB(t *testing.T) *testPGConfig {
	container, err := postgres.Run(context.Background(), "postgres:17",
		postgres.WithUsername("test_user"),
		postgres.WithDatabase("aidiy"),
		postgres.WithPassword("test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatal("error running test container: " + err.Error())
	}
	connStr, err := container.ConnectionString(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	connStr += "sslmode=disable"
	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatal(err)
	}
	err = goose.Up(conn, "../../migrations")
	if err != nil {
		t.Fatal(err)
	}
	conn.Close()
	t.Cleanup(func() {
		container.Terminate(context.Background())
	})
	return &testPGConfig{
		connStr: connStr,
	}
}
