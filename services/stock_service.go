package services

import (
	"context"
	"errors"
	"fmt"

	"bookstore-service/database"
	"bookstore-service/models"

	"go.uber.org/zap"
)

type ImportInput struct {
	SupplierID int64
	Note       string
	Lines      []models.StockImportLine
}

type StockService struct {
	tx database.Transactor
}

func NewStockService(tx database.Transactor) *StockService {
	return &StockService{tx: tx}
}

// ImportStock records a supplier delivery and adds its quantities to the
// books' available counts. One unknown book or an unknown supplier fails
// the whole import.
func (s *StockService) ImportStock(ctx context.Context, in ImportInput) (*models.StockImport, error) {
	if len(in.Lines) == 0 {
		return nil, &ValidationError{Err: fmt.Errorf("stock import needs at least one line")}
	}
	for _, line := range in.Lines {
		if line.Quantity < 1 {
			return nil, &ValidationError{Err: fmt.Errorf("quantity for book %d must be at least 1", line.BookID)}
		}
		if line.ImportPrice.IsNegative() {
			return nil, ErrInvalidPrice
		}
	}

	imp := &models.StockImport{SupplierID: in.SupplierID, Note: in.Note, Lines: in.Lines}
	err := s.tx.WithinTx(ctx, func(tx database.Tx) error {
		supplier, err := tx.GetSupplier(ctx, in.SupplierID)
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("%w: %d", ErrSupplierNotFound, in.SupplierID)
		}
		if err != nil {
			return err
		}
		imp.SupplierName = supplier.Name

		if err := tx.InsertStockImport(ctx, imp); err != nil {
			return err
		}
		for _, line := range in.Lines {
			ok, err := tx.IncrementStock(ctx, line.BookID, line.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: %d", ErrBookNotFound, line.BookID)
			}
			if err := tx.InsertStockImportLine(ctx, imp.ID, line); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, abortErr(err)
	}

	zap.L().Info("stock imported",
		zap.Int64("import_id", imp.ID),
		zap.Int64("supplier_id", imp.SupplierID),
		zap.String("supplier", imp.SupplierName),
		zap.Int("lines", len(imp.Lines)))
	return imp, nil
}
