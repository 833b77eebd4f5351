package enrich_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/we-promise/sure-sub001/internal/enrich"
	"github.com/we-promise/sure-sub001/internal/ledger"
)

func testEntry() *ledger.Entry {
	return &ledger.Entry{
		ID:          uuid.New(),
		Description: "COFFEE SHOP AMSTERDAM",
		Category:    "",
		Merchant:    "",
	}
}

func TestService_Enrich(t *testing.T) {
	type testCase struct {
		name        string
		entry       func() *ledger.Entry
		attrs       map[string]string
		setupMock   func(m *enrich.MockRepository)
		wantApplied []string
		wantErr     bool
	}

	tests := []testCase{
		{
			name:  "AppliesUnlockedAttribute",
			entry: testEntry,
			attrs: map[string]string{"category": "dining"},
			setupMock: func(m *enrich.MockRepository) {
				m.EXPECT().
					Apply(gomock.Any(), gomock.Any(), gomock.Any(), enrich.Source("simplefin"), gomock.Any()).
					Return(nil)
			},
			wantApplied: []string{"category"},
		},
		{
			name: "SkipsLockedAttribute",
			entry: func() *ledger.Entry {
				e := testEntry()
				e.LockAttr("category", enrich.Lock{Source: enrich.SourceUser, At: time.Now()})
				return e
			},
			attrs:       map[string]string{"category": "dining"},
			wantApplied: nil,
		},
		{
			name: "SkipsUnchangedValue",
			entry: func() *ledger.Entry {
				e := testEntry()
				e.Category = "dining"
				return e
			},
			attrs:       map[string]string{"category": "dining"},
			wantApplied: nil,
		},
		{
			name:        "SkipsIgnoredAttribute",
			entry:       testEntry,
			attrs:       map[string]string{"external_id": "simplefin_tx1"},
			wantApplied: nil,
		},
		{
			name:    "UnknownAttributeIsAnError",
			entry:   testEntry,
			attrs:   map[string]string{"colour": "red"},
			wantErr: true,
		},
		{
			name:  "RepoError",
			entry: testEntry,
			attrs: map[string]string{"category": "dining"},
			setupMock: func(m *enrich.MockRepository) {
				m.EXPECT().
					Apply(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(errors.New("db error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := enrich.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			svc := enrich.NewService(repo)
			entry := tt.entry()

			applied, err := svc.Enrich(context.Background(), entry, tt.attrs, enrich.Source("simplefin"), nil)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.ElementsMatch(t, tt.wantApplied, applied)
		})
	}
}

func TestService_Enrich_MutatesEntity(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := enrich.NewMockRepository(ctrl)
	repo.EXPECT().
		Apply(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil)

	svc := enrich.NewService(repo)
	entry := testEntry()

	applied, err := svc.Enrich(context.Background(), entry, map[string]string{
		"category": "dining",
		"merchant": "Coffee Shop",
	}, enrich.SourceRule, nil)

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"category", "merchant"}, applied)
	assert.Equal(t, "dining", entry.Category)
	assert.Equal(t, "Coffee Shop", entry.Merchant)
}

func TestService_LockAttr(t *testing.T) {
	t.Run("LocksAndIsIdempotentPerHolder", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := enrich.NewMockRepository(ctrl)
		repo.EXPECT().SaveLocks(gomock.Any(), gomock.Any()).Return(nil)

		svc := enrich.NewService(repo)
		entry := testEntry()

		require.NoError(t, svc.LockAttr(context.Background(), entry, "category", enrich.SourceUser))
		assert.True(t, entry.Locked("category"))
		assert.Equal(t, enrich.SourceUser, entry.LockedAttributes["category"].Source)

		// Same holder locking again is a no-op: SaveLocks runs only once.
		require.NoError(t, svc.LockAttr(context.Background(), entry, "category", enrich.SourceUser))
	})

	t.Run("NewHolderTakesOverTheLock", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := enrich.NewMockRepository(ctrl)
		repo.EXPECT().SaveLocks(gomock.Any(), gomock.Any()).Return(nil).Times(2)

		svc := enrich.NewService(repo)
		entry := testEntry()

		require.NoError(t, svc.LockAttr(context.Background(), entry, "category", enrich.SourceAI))
		require.NoError(t, svc.LockAttr(context.Background(), entry, "category", enrich.SourceUser))

		assert.Equal(t, enrich.SourceUser, entry.LockedAttributes["category"].Source)
	})
}

func TestService_UnlockAttr(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := enrich.NewMockRepository(ctrl)
	repo.EXPECT().SaveLocks(gomock.Any(), gomock.Any()).Return(nil)

	svc := enrich.NewService(repo)
	entry := testEntry()
	entry.LockAttr("category", enrich.Lock{Source: enrich.SourceUser, At: time.Now()})

	require.NoError(t, svc.UnlockAttr(context.Background(), entry, "category"))
	assert.False(t, entry.Locked("category"))

	require.NoError(t, svc.UnlockAttr(context.Background(), entry, "category"))
}

func TestService_LockSavedAttributes(t *testing.T) {
	t.Run("LocksEveryChangedAttribute", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := enrich.NewMockRepository(ctrl)
		repo.EXPECT().SaveLocks(gomock.Any(), gomock.Any()).Return(nil)

		svc := enrich.NewService(repo)
		entry := testEntry()

		err := svc.LockSavedAttributes(context.Background(), entry, []string{"category", "notes"})
		require.NoError(t, err)

		assert.True(t, entry.Locked("category"))
		assert.True(t, entry.Locked("notes"))
		assert.False(t, entry.Locked("merchant"))
		assert.Equal(t, enrich.SourceUser, entry.LockedAttributes["category"].Source)
	})

	t.Run("IgnoredOnlyChangesSaveNothing", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := enrich.NewMockRepository(ctrl)
		svc := enrich.NewService(repo)

		err := svc.LockSavedAttributes(context.Background(), testEntry(), []string{"updated_at"})
		assert.NoError(t, err)
	})
}

func TestService_LockedAttributeSurvivesEnrichment(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := enrich.NewMockRepository(ctrl)
	repo.EXPECT().SaveLocks(gomock.Any(), gomock.Any()).Return(nil)

	svc := enrich.NewService(repo)
	entry := testEntry()
	entry.Category = "groceries"

	require.NoError(t, svc.LockSavedAttributes(context.Background(), entry, []string{"category"}))

	applied, err := svc.Enrich(context.Background(), entry, map[string]string{"category": "dining"}, enrich.SourceAI, nil)
	require.NoError(t, err)

	assert.Empty(t, applied)
	assert.Equal(t, "groceries", entry.Category)
}

func TestService_UserLockSurvivesSourceCacheClear(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := enrich.NewMockRepository(ctrl)
	repo.EXPECT().Apply(gomock.Any(), gomock.Any(), gomock.Any(), enrich.SourceAI, gomock.Any()).Return(nil)
	repo.EXPECT().SaveLocks(gomock.Any(), gomock.Any()).Return(nil)
	repo.EXPECT().ClearSourceFor(gomock.Any(), "entry", gomock.Any(), enrich.SourceAI).Return(nil)

	svc := enrich.NewService(repo)
	entry := testEntry()

	// The AI writes a value without taking a lock.
	_, err := svc.Enrich(context.Background(), entry, map[string]string{"category": "dining"}, enrich.SourceAI, nil)
	require.NoError(t, err)

	// The user overrides it; their save locks the attribute to them.
	entry.Category = "groceries"
	require.NoError(t, svc.LockSavedAttributes(context.Background(), entry, []string{"category"}))

	// Clearing the AI cache drops its records but must not release a lock
	// it does not hold.
	require.NoError(t, svc.ClearEntitySourceCache(context.Background(), entry, enrich.SourceAI))

	assert.True(t, entry.Locked("category"))
	assert.Equal(t, enrich.SourceUser, entry.LockedAttributes["category"].Source)
	assert.Equal(t, "groceries", entry.Category)

	applied, err := svc.Enrich(context.Background(), entry, map[string]string{"category": "dining"}, enrich.SourceAI, nil)
	require.NoError(t, err)
	assert.Empty(t, applied)
	assert.Equal(t, "groceries", entry.Category)
}

func TestService_ClearEntitySourceCacheReleasesOwnLocks(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := enrich.NewMockRepository(ctrl)
	repo.EXPECT().SaveLocks(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	repo.EXPECT().ClearSourceFor(gomock.Any(), "entry", gomock.Any(), enrich.SourceAI).Return(nil)

	svc := enrich.NewService(repo)
	entry := testEntry()

	require.NoError(t, svc.LockAttr(context.Background(), entry, "category", enrich.SourceAI))
	require.NoError(t, svc.LockAttr(context.Background(), entry, "notes", enrich.SourceUser))

	require.NoError(t, svc.ClearEntitySourceCache(context.Background(), entry, enrich.SourceAI))

	assert.False(t, entry.Locked("category"))
	assert.True(t, entry.Locked("notes"))
}

func TestService_ClearSourceCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := enrich.NewMockRepository(ctrl)
	repo.EXPECT().
		ClearSource(gomock.Any(), "entry", enrich.SourceAI).
		Return(nil)

	svc := enrich.NewService(repo)

	err := svc.ClearSourceCache(context.Background(), "entry", enrich.SourceAI)
	assert.NoError(t, err)
}
