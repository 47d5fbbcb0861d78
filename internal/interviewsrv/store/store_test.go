package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tansive/mockinterview/internal/common/uuid"
	"github.com/tansive/mockinterview/internal/interviewsrv/models"
)

func newSession(owner string, created time.Time) *models.Session {
	answer := "I would shard by tenant."
	return &models.Session{
		ID:       uuid.New(),
		OwnerID:  owner,
		Kind:     models.KindTechnical,
		Settings: models.Settings{Difficulty: "medium", Duration: "short", QuestionCount: 3},
		Status:   models.StatusInProgress,
		Questions: []models.QuestionRecord{{
			Index:    0,
			Question: "How would you scale the database?",
			Answer:   &answer,
			Feedback: &models.Feedback{Strengths: []string{"clear"}, Improvements: []string{"numbers"}, Rating: 5},
			AskedAt:  created.UTC(),
		}},
		CreatedAt: created.UTC(),
		UpdatedAt: created.UTC(),
	}
}

func storeUnderTest(t *testing.T) map[string]Store {
	ctx := context.Background()
	plain, err := OpenSQL(ctx, SQLOptions{Dialect: DialectSQLite, DSN: filepath.Join(t.TempDir(), "plain.db")})
	require.NoError(t, err)
	compressed, err := OpenSQL(ctx, SQLOptions{Dialect: DialectSQLite, DSN: filepath.Join(t.TempDir(), "snappy.db"), Table: "sessions_z", Compress: true})
	require.NoError(t, err)
	t.Cleanup(func() {
		plain.Close()
		compressed.Close()
	})
	return map[string]Store{
		"memory":        NewMemory(),
		"sqlite":        plain,
		"sqlite+snappy": compressed,
	}
}

func TestStores(t *testing.T) {
	ctx := context.Background()
	for name, st := range storeUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			base := time.Now().Add(-time.Hour).Truncate(time.Millisecond)
			s1 := newSession("alice", base)
			s2 := newSession("alice", base.Add(time.Minute))
			s3 := newSession("bob", base)

			for _, s := range []*models.Session{s1, s2, s3} {
				require.Nil(t, st.Save(ctx, s))
			}

			got, err := st.Load(ctx, s1.ID)
			require.Nil(t, err)
			assert.Equal(t, s1.ID, got.ID)
			assert.Equal(t, "How would you scale the database?", got.Questions[0].Question)
			assert.Equal(t, 5, got.Questions[0].Feedback.Rating)
			assert.True(t, s1.CreatedAt.Equal(got.CreatedAt))

			got.Status = models.StatusCompleted
			got.Report = &models.Report{OverallScore: 5, SkillScores: map[string]int{"Go": 5}}
			require.Nil(t, st.Save(ctx, got))

			again, err := st.Load(ctx, s1.ID)
			require.Nil(t, err)
			assert.Equal(t, models.StatusCompleted, again.Status)
			require.NotNil(t, again.Report)
			assert.Equal(t, 5.0, again.Report.OverallScore)

			list, err := st.ListByOwner(ctx, "alice", 0)
			require.Nil(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, s2.ID, list[0].ID)
			assert.Equal(t, s1.ID, list[1].ID)

			list, err = st.ListByOwner(ctx, "alice", 1)
			require.Nil(t, err)
			assert.Len(t, list, 1)

			_, err = st.Load(ctx, uuid.New())
			assert.ErrorIs(t, err, ErrNotFound)

			err = st.Save(ctx, &models.Session{ID: uuid.New()})
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestMemoryIsolation(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	s := newSession("alice", time.Now())
	require.Nil(t, m.Save(ctx, s))

	s.Questions[0].Question = "changed after save"
	got, err := m.Load(ctx, s.ID)
	require.Nil(t, err)
	assert.Equal(t, "How would you scale the database?", got.Questions[0].Question)

	got.Questions = nil
	again, _ := m.Load(ctx, s.ID)
	assert.Len(t, again.Questions, 1)
}

func TestNewSQLValidation(t *testing.T) {
	_, err := NewSQL(nil, DialectSQLite, "bad;name", false)
	assert.Error(t, err)
	_, err = NewSQL(nil, Dialect("oracle"), "", false)
	assert.Error(t, err)
}
