package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/spacer/internal/domain/note"
	"github.com/rpggio/spacer/internal/repository"
	"github.com/rpggio/spacer/internal/scheduler"
	"github.com/stretchr/testify/require"
)

func TestNoteRepository_CreateGet(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewNoteRepository(db)

	n := &note.Note{ID: "n1", Path: "bio/cells.md", Title: "cells", Tags: []string{"bio"}, CreatedAt: t0}
	require.NoError(t, repo.Create(ctx, "tenant1", n))

	loaded, err := repo.Get(ctx, "tenant1", "n1")
	require.NoError(t, err)
	require.Equal(t, n, loaded)

	byPath, err := repo.GetByPath(ctx, "tenant1", "bio/cells.md")
	require.NoError(t, err)
	require.Equal(t, "n1", byPath.ID)

	_, err = repo.GetByPath(ctx, "tenant2", "bio/cells.md")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestNoteRepository_PathUniquePerTenant(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewNoteRepository(db)

	require.NoError(t, repo.Create(ctx, "tenant1", &note.Note{ID: "n1", Path: "a.md", CreatedAt: t0}))
	err := repo.Create(ctx, "tenant1", &note.Note{ID: "n2", Path: "a.md", CreatedAt: t0})
	require.ErrorIs(t, err, repository.ErrDuplicate)
	require.NoError(t, repo.Create(ctx, "tenant2", &note.Note{ID: "n3", Path: "a.md", CreatedAt: t0}))
}

func TestNoteRepository_ListCounts(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	notes := NewNoteRepository(db)
	cards := NewCardRepository(db)

	insertNote(t, db, "n1", "tenant1", "b.md")
	insertNote(t, db, "n2", "tenant1", "a.md")
	for _, id := range []string{"c1", "c2", "c3"} {
		require.NoError(t, cards.Create(ctx, "tenant1", newCard(id, "n1", t0)))
	}
	lapsed := scheduler.Transition(scheduler.InitialState(t0), scheduler.QualityBlackout, t0, false)
	require.NoError(t, cards.UpdateState(ctx, "tenant1", "c1", lapsed, t0, 1))
	graded := scheduler.Transition(scheduler.InitialState(t0), scheduler.QualityGood, t0, false)
	require.NoError(t, cards.UpdateState(ctx, "tenant1", "c2", graded, t0, 1))

	summaries, err := notes.List(ctx, "tenant1", t0.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	require.Equal(t, "a.md", summaries[0].Path)
	require.Zero(t, summaries[0].CardCount)

	require.Equal(t, "b.md", summaries[1].Path)
	require.Equal(t, 3, summaries[1].CardCount)
	require.Equal(t, 1, summaries[1].NewCount)
	require.Equal(t, 1, summaries[1].DueCount, "only the lapsed card is due within the hour")
}

func TestNoteRepository_Delete(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewNoteRepository(db)
	insertNote(t, db, "n1", "tenant1", "a.md")

	require.ErrorIs(t, repo.Delete(ctx, "tenant2", "n1"), repository.ErrNotFound)
	require.NoError(t, repo.Delete(ctx, "tenant1", "n1"))
	_, err := repo.Get(ctx, "tenant1", "n1")
	require.ErrorIs(t, err, repository.ErrNotFound)
}
