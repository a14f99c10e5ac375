package services

import (
	"context"
	"testing"

	"bookstore-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryAuthors(t *testing.T) {
	store := newFakeStore()
	svc := NewDirectoryService(store)
	ctx := context.Background()

	a, err := svc.CreateAuthor(ctx, models.AuthorRequest{Name: "To Hoai", Bio: "Dế Mèn"})
	require.NoError(t, err)
	assert.Equal(t, store.now, a.CreatedAt)

	// Authors may share a name.
	_, err = svc.CreateAuthor(ctx, models.AuthorRequest{Name: "To Hoai"})
	require.NoError(t, err)

	updated, err := svc.UpdateAuthor(ctx, a.ID, models.AuthorRequest{Name: "Tô Hoài"})
	require.NoError(t, err)
	assert.Equal(t, "Tô Hoài", updated.Name)
	assert.Equal(t, a.CreatedAt, updated.CreatedAt)

	list, err := svc.ListAuthors(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, svc.DeleteAuthor(ctx, a.ID))
	_, err = svc.GetAuthor(ctx, a.ID)
	require.ErrorIs(t, err, ErrAuthorNotFound)
	require.ErrorIs(t, svc.DeleteAuthor(ctx, a.ID), ErrAuthorNotFound)
	_, err = svc.UpdateAuthor(ctx, a.ID, models.AuthorRequest{Name: "x"})
	require.ErrorIs(t, err, ErrAuthorNotFound)
}

func TestDirectoryUniqueNames(t *testing.T) {
	store := newFakeStore()
	svc := NewDirectoryService(store)
	ctx := context.Background()

	p, err := svc.CreatePublisher(ctx, models.PublisherRequest{Name: "Kim Dong"})
	require.NoError(t, err)
	_, err = svc.CreatePublisher(ctx, models.PublisherRequest{Name: "Kim Dong"})
	require.ErrorIs(t, err, ErrPublisherExists)

	other, err := svc.CreatePublisher(ctx, models.PublisherRequest{Name: "Tre"})
	require.NoError(t, err)
	_, err = svc.UpdatePublisher(ctx, other.ID, models.PublisherRequest{Name: "Kim Dong"})
	require.ErrorIs(t, err, ErrPublisherExists)
	_, err = svc.UpdatePublisher(ctx, p.ID, models.PublisherRequest{Name: "Kim Dong", Website: "https://nxbkimdong.com.vn"})
	require.NoError(t, err)

	_, err = svc.CreateGenre(ctx, models.GenreRequest{Name: "Poetry"})
	require.NoError(t, err)
	_, err = svc.CreateGenre(ctx, models.GenreRequest{Name: "Poetry"})
	require.ErrorIs(t, err, ErrGenreExists)

	_, err = svc.CreateSupplier(ctx, models.SupplierRequest{Name: "Fahasa"})
	require.NoError(t, err)
	_, err = svc.CreateSupplier(ctx, models.SupplierRequest{Name: "Fahasa"})
	require.ErrorIs(t, err, ErrSupplierExists)
}

func TestDirectoryNotFound(t *testing.T) {
	svc := NewDirectoryService(newFakeStore())
	ctx := context.Background()

	_, err := svc.GetPublisher(ctx, 1)
	require.ErrorIs(t, err, ErrPublisherNotFound)
	_, err = svc.GetGenre(ctx, 1)
	require.ErrorIs(t, err, ErrGenreNotFound)
	_, err = svc.GetSupplier(ctx, 1)
	require.ErrorIs(t, err, ErrSupplierNotFound)
	require.ErrorIs(t, svc.DeleteGenre(ctx, 1), ErrGenreNotFound)
	require.ErrorIs(t, svc.DeleteSupplier(ctx, 1), ErrSupplierNotFound)
	_, err = svc.UpdateSupplier(ctx, 1, models.SupplierRequest{Name: "x"})
	require.ErrorIs(t, err, ErrSupplierNotFound)
}

func TestDeletingGenreUnlinksBooks(t *testing.T) {
	store := newFakeStore()
	dir := NewDirectoryService(store)
	catalog := newCatalog(store)
	ctx := context.Background()

	g, err := dir.CreateGenre(ctx, models.GenreRequest{Name: "Poetry"})
	require.NoError(t, err)
	b, err := catalog.CreateBook(ctx, models.BookRequest{ISBN: "1", Title: "Poems", GenreIDs: []int64{g.ID}})
	require.NoError(t, err)

	require.NoError(t, dir.DeleteGenre(ctx, g.ID))
	got, err := catalog.GetBook(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, got.GenreIDs)
}
