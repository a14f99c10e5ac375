package services

import (
	"context"
	"slices"
	"sort"

	"bookstore-service/database"
	"bookstore-service/models"
)

func getRow[T any](rows map[int64]T, id int64) (*T, error) {
	v, ok := rows[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &v, nil
}

// putRow stores v under id. A non-nil name rejects a second row with the
// same name, like the unique keys do.
func putRow[T any](rows map[int64]T, id int64, v T, name func(T) string) error {
	if name != nil {
		for other, existing := range rows {
			if other != id && name(existing) == name(v) {
				return database.ErrDuplicate
			}
		}
	}
	rows[id] = v
	return nil
}

func updateRow[T any](rows map[int64]T, id int64, v T, name func(T) string) error {
	if _, ok := rows[id]; !ok {
		return database.ErrNotFound
	}
	return putRow(rows, id, v, name)
}

func listRows[T any](rows map[int64]T) []T {
	ids := make([]int64, 0, len(rows))
	for id := range rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, rows[id])
	}
	return out
}

func deleteRow[T any](rows map[int64]T, id int64) error {
	if _, ok := rows[id]; !ok {
		return database.ErrNotFound
	}
	delete(rows, id)
	return nil
}

func publisherName(p models.Publisher) string { return p.Name }
func genreName(g models.Genre) string         { return g.Name }
func supplierName(s models.Supplier) string   { return s.Name }

func (f *fakeStore) addSupplier(name string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID()
	f.state.suppliers[id] = models.Supplier{ID: id, Name: name}
	return id
}

func (f *fakeStore) CreateAuthor(_ context.Context, a *models.Author) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID, a.CreatedAt, a.UpdatedAt = f.nextID(), f.now, f.now
	return putRow(f.state.authors, a.ID, *a, nil)
}

func (f *fakeStore) UpdateAuthor(_ context.Context, a *models.Author) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return updateRow(f.state.authors, a.ID, *a, nil)
}

func (f *fakeStore) GetAuthor(_ context.Context, id int64) (*models.Author, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return getRow(f.state.authors, id)
}

func (f *fakeStore) ListAuthors(_ context.Context) ([]models.Author, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return listRows(f.state.authors), nil
}

func (f *fakeStore) DeleteAuthor(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := deleteRow(f.state.authors, id); err != nil {
		return err
	}
	for bookID, b := range f.state.books {
		b.AuthorIDs = slices.DeleteFunc(slices.Clone(b.AuthorIDs), func(a int64) bool { return a == id })
		f.state.books[bookID] = b
	}
	return nil
}

func (f *fakeStore) CreatePublisher(_ context.Context, p *models.Publisher) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID, p.CreatedAt, p.UpdatedAt = f.nextID(), f.now, f.now
	return putRow(f.state.publishers, p.ID, *p, publisherName)
}

func (f *fakeStore) UpdatePublisher(_ context.Context, p *models.Publisher) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return updateRow(f.state.publishers, p.ID, *p, publisherName)
}

func (f *fakeStore) GetPublisher(_ context.Context, id int64) (*models.Publisher, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return getRow(f.state.publishers, id)
}

func (f *fakeStore) ListPublishers(_ context.Context) ([]models.Publisher, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return listRows(f.state.publishers), nil
}

func (f *fakeStore) DeletePublisher(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := deleteRow(f.state.publishers, id); err != nil {
		return err
	}
	for bookID, b := range f.state.books {
		if b.PublisherID != nil && *b.PublisherID == id {
			b.PublisherID = nil
			f.state.books[bookID] = b
		}
	}
	return nil
}

func (f *fakeStore) CreateGenre(_ context.Context, g *models.Genre) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g.ID, g.CreatedAt, g.UpdatedAt = f.nextID(), f.now, f.now
	return putRow(f.state.genres, g.ID, *g, genreName)
}

func (f *fakeStore) UpdateGenre(_ context.Context, g *models.Genre) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return updateRow(f.state.genres, g.ID, *g, genreName)
}

func (f *fakeStore) GetGenre(_ context.Context, id int64) (*models.Genre, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return getRow(f.state.genres, id)
}

func (f *fakeStore) ListGenres(_ context.Context) ([]models.Genre, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return listRows(f.state.genres), nil
}

func (f *fakeStore) DeleteGenre(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := deleteRow(f.state.genres, id); err != nil {
		return err
	}
	for bookID, b := range f.state.books {
		b.GenreIDs = slices.DeleteFunc(slices.Clone(b.GenreIDs), func(g int64) bool { return g == id })
		f.state.books[bookID] = b
	}
	return nil
}

func (f *fakeStore) CreateSupplier(_ context.Context, sp *models.Supplier) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sp.ID, sp.CreatedAt, sp.UpdatedAt = f.nextID(), f.now, f.now
	return putRow(f.state.suppliers, sp.ID, *sp, supplierName)
}

func (f *fakeStore) UpdateSupplier(_ context.Context, sp *models.Supplier) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return updateRow(f.state.suppliers, sp.ID, *sp, supplierName)
}

func (f *fakeStore) GetSupplier(_ context.Context, id int64) (*models.Supplier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return getRow(f.state.suppliers, id)
}

func (f *fakeStore) ListSuppliers(_ context.Context) ([]models.Supplier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return listRows(f.state.suppliers), nil
}

func (f *fakeStore) DeleteSupplier(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return deleteRow(f.state.suppliers, id)
}
