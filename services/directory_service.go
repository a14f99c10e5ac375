package services

import (
	"context"
	"errors"

	"bookstore-service/database"
	"bookstore-service/models"

	"go.uber.org/zap"
)

// DirectoryService manages the reference data books point at: authors,
// publishers, genres and suppliers.
type DirectoryService struct {
	store DirectoryStore
}

func NewDirectoryService(store DirectoryStore) *DirectoryService {
	return &DirectoryService{store: store}
}

// directoryErr maps store errors onto the entity's domain errors. exists may
// be nil for entities without a unique name.
func directoryErr(err, notFound, exists error) error {
	switch {
	case errors.Is(err, database.ErrNotFound):
		return notFound
	case exists != nil && errors.Is(err, database.ErrDuplicate):
		return exists
	default:
		return err
	}
}

func (s *DirectoryService) CreateAuthor(ctx context.Context, req models.AuthorRequest) (*models.Author, error) {
	a := req.Author()
	if err := s.store.CreateAuthor(ctx, a); err != nil {
		return nil, err
	}
	zap.L().Info("author created", zap.Int64("author_id", a.ID))
	return a, nil
}

func (s *DirectoryService) UpdateAuthor(ctx context.Context, id int64, req models.AuthorRequest) (*models.Author, error) {
	current, err := s.GetAuthor(ctx, id)
	if err != nil {
		return nil, err
	}
	a := req.Author()
	a.ID, a.CreatedAt = id, current.CreatedAt
	if err := s.store.UpdateAuthor(ctx, a); err != nil {
		return nil, directoryErr(err, ErrAuthorNotFound, nil)
	}
	return a, nil
}

func (s *DirectoryService) GetAuthor(ctx context.Context, id int64) (*models.Author, error) {
	a, err := s.store.GetAuthor(ctx, id)
	return a, directoryErr(err, ErrAuthorNotFound, nil)
}

func (s *DirectoryService) ListAuthors(ctx context.Context) ([]models.Author, error) {
	return s.store.ListAuthors(ctx)
}

func (s *DirectoryService) DeleteAuthor(ctx context.Context, id int64) error {
	if err := s.store.DeleteAuthor(ctx, id); err != nil {
		return directoryErr(err, ErrAuthorNotFound, nil)
	}
	zap.L().Info("author deleted", zap.Int64("author_id", id))
	return nil
}

func (s *DirectoryService) CreatePublisher(ctx context.Context, req models.PublisherRequest) (*models.Publisher, error) {
	p := req.Publisher()
	if err := s.store.CreatePublisher(ctx, p); err != nil {
		return nil, directoryErr(err, ErrPublisherNotFound, ErrPublisherExists)
	}
	zap.L().Info("publisher created", zap.Int64("publisher_id", p.ID), zap.String("name", p.Name))
	return p, nil
}

func (s *DirectoryService) UpdatePublisher(ctx context.Context, id int64, req models.PublisherRequest) (*models.Publisher, error) {
	current, err := s.GetPublisher(ctx, id)
	if err != nil {
		return nil, err
	}
	p := req.Publisher()
	p.ID, p.CreatedAt = id, current.CreatedAt
	if err := s.store.UpdatePublisher(ctx, p); err != nil {
		return nil, directoryErr(err, ErrPublisherNotFound, ErrPublisherExists)
	}
	return p, nil
}

func (s *DirectoryService) GetPublisher(ctx context.Context, id int64) (*models.Publisher, error) {
	p, err := s.store.GetPublisher(ctx, id)
	return p, directoryErr(err, ErrPublisherNotFound, nil)
}

func (s *DirectoryService) ListPublishers(ctx context.Context) ([]models.Publisher, error) {
	return s.store.ListPublishers(ctx)
}

// DeletePublisher leaves the publisher's books in place with no publisher.
func (s *DirectoryService) DeletePublisher(ctx context.Context, id int64) error {
	if err := s.store.DeletePublisher(ctx, id); err != nil {
		return directoryErr(err, ErrPublisherNotFound, nil)
	}
	zap.L().Info("publisher deleted", zap.Int64("publisher_id", id))
	return nil
}

func (s *DirectoryService) CreateGenre(ctx context.Context, req models.GenreRequest) (*models.Genre, error) {
	g := req.Genre()
	if err := s.store.CreateGenre(ctx, g); err != nil {
		return nil, directoryErr(err, ErrGenreNotFound, ErrGenreExists)
	}
	zap.L().Info("genre created", zap.Int64("genre_id", g.ID), zap.String("name", g.Name))
	return g, nil
}

func (s *DirectoryService) UpdateGenre(ctx context.Context, id int64, req models.GenreRequest) (*models.Genre, error) {
	current, err := s.GetGenre(ctx, id)
	if err != nil {
		return nil, err
	}
	g := req.Genre()
	g.ID, g.CreatedAt = id, current.CreatedAt
	if err := s.store.UpdateGenre(ctx, g); err != nil {
		return nil, directoryErr(err, ErrGenreNotFound, ErrGenreExists)
	}
	return g, nil
}

func (s *DirectoryService) GetGenre(ctx context.Context, id int64) (*models.Genre, error) {
	g, err := s.store.GetGenre(ctx, id)
	return g, directoryErr(err, ErrGenreNotFound, nil)
}

func (s *DirectoryService) ListGenres(ctx context.Context) ([]models.Genre, error) {
	return s.store.ListGenres(ctx)
}

func (s *DirectoryService) DeleteGenre(ctx context.Context, id int64) error {
	if err := s.store.DeleteGenre(ctx, id); err != nil {
		return directoryErr(err, ErrGenreNotFound, nil)
	}
	zap.L().Info("genre deleted", zap.Int64("genre_id", id))
	return nil
}

func (s *DirectoryService) CreateSupplier(ctx context.Context, req models.SupplierRequest) (*models.Supplier, error) {
	sp := req.Supplier()
	if err := s.store.CreateSupplier(ctx, sp); err != nil {
		return nil, directoryErr(err, ErrSupplierNotFound, ErrSupplierExists)
	}
	zap.L().Info("supplier created", zap.Int64("supplier_id", sp.ID), zap.String("name", sp.Name))
	return sp, nil
}

func (s *DirectoryService) UpdateSupplier(ctx context.Context, id int64, req models.SupplierRequest) (*models.Supplier, error) {
	current, err := s.GetSupplier(ctx, id)
	if err != nil {
		return nil, err
	}
	sp := req.Supplier()
	sp.ID, sp.CreatedAt = id, current.CreatedAt
	if err := s.store.UpdateSupplier(ctx, sp); err != nil {
		return nil, directoryErr(err, ErrSupplierNotFound, ErrSupplierExists)
	}
	return sp, nil
}

func (s *DirectoryService) GetSupplier(ctx context.Context, id int64) (*models.Supplier, error) {
	sp, err := s.store.GetSupplier(ctx, id)
	return sp, directoryErr(err, ErrSupplierNotFound, nil)
}

func (s *DirectoryService) ListSuppliers(ctx context.Context) ([]models.Supplier, error) {
	return s.store.ListSuppliers(ctx)
}

func (s *DirectoryService) DeleteSupplier(ctx context.Context, id int64) error {
	if err := s.store.DeleteSupplier(ctx, id); err != nil {
		return directoryErr(err, ErrSupplierNotFound, nil)
	}
	zap.L().Info("supplier deleted", zap.Int64("supplier_id", id))
	return nil
}
