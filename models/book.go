package models

import (
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type Book struct {
	ID             int64           `json:"id"`
	ISBN           string          `json:"isbn"`
	Title          string          `json:"title"`
	PublisherID    *int64          `json:"publisher_id"`
	AuthorIDs      []int64         `json:"author_ids"`
	GenreIDs       []int64         `json:"genre_ids"`
	Description    string          `json:"description"`
	Price          decimal.Decimal `json:"price"`
	AvailableCount int             `json:"available_count"`
	SoldCount      int             `json:"sold_count"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	DiscountedPrice *decimal.Decimal `json:"discounted_price,omitempty"`
	BestDiscountID  *int64           `json:"best_discount_id,omitempty"`
}

type BookRequest struct {
	ISBN           string          `json:"isbn" binding:"required,max=20"`
	Title          string          `json:"title" binding:"required,max=255"`
	PublisherID    *int64          `json:"publisher_id" binding:"omitempty,gt=0"`
	AuthorIDs      []int64         `json:"author_ids" binding:"omitempty,dive,gt=0"`
	GenreIDs       []int64         `json:"genre_ids" binding:"omitempty,dive,gt=0"`
	Description    string          `json:"description"`
	Price          decimal.Decimal `json:"price"`
	AvailableCount int             `json:"available_count" binding:"gte=0"`
}

func (r BookRequest) Book() *Book {
	return &Book{
		ISBN:           r.ISBN,
		Title:          r.Title,
		PublisherID:    r.PublisherID,
		AuthorIDs:      lo.Uniq(r.AuthorIDs),
		GenreIDs:       lo.Uniq(r.GenreIDs),
		Description:    r.Description,
		Price:          r.Price,
		AvailableCount: r.AvailableCount,
	}
}

const MaxPageSize = 100

type BookFilter struct {
	Query       string `form:"q"`
	AuthorID    int64  `form:"author_id" binding:"omitempty,gt=0"`
	GenreID     int64  `form:"genre_id" binding:"omitempty,gt=0"`
	PublisherID int64  `form:"publisher_id" binding:"omitempty,gt=0"`
	Sort        string `form:"sort" binding:"omitempty,oneof=price -price title -created_at"`
	Page        int    `form:"page" binding:"omitempty,gte=1"`
	PageSize    int    `form:"page_size" binding:"omitempty,gte=1"`
}

// Normalize fills defaults and clamps the page size.
func (f *BookFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	if f.Sort == "" {
		f.Sort = "-created_at"
	}
}

func (f BookFilter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

type BookPage struct {
	Items    []Book `json:"items"`
	Total    int    `json:"total"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}
