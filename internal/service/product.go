package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"

	"github.com/sakif/inventory-service/internal/apperror"
	"github.com/sakif/inventory-service/internal/metrics"
	"github.com/sakif/inventory-service/internal/model"
	"github.com/sakif/inventory-service/internal/optional"
	"github.com/sakif/inventory-service/internal/repository"
)

// ProductInput carries create and update data. Handlers fill it from either
// multipart form fields or a JSON body. Photo is nil when no file was sent.
type ProductInput struct {
	Title       optional.Field[string]  `json:"title"`
	Description optional.Field[string]  `json:"description"`
	Price       optional.Field[float64] `json:"price"`
	Photo       io.Reader               `json:"-"`
}

func (in ProductInput) empty() bool {
	return !in.Title.Set() && !in.Description.Set() && !in.Price.Set() && in.Photo == nil
}

// ProductService manages the caller's catalog and the photo files that go
// with it.
//
// PHOTO ORDERING:
// A new photo is written before the row that points at it is committed. If
// the transaction fails, the new file is removed again. The photo it replaced
// (or the photo of a deleted product) is removed only after the commit, so a
// failed write never leaves a row pointing at a missing file.
type ProductService struct {
	store  repository.Store
	photos PhotoFiles
	logger *slog.Logger
}

func NewProductService(store repository.Store, photos PhotoFiles, logger *slog.Logger) *ProductService {
	return &ProductService{store: store, photos: photos, logger: logger}
}

func (s *ProductService) Create(ctx context.Context, userID int64, in ProductInput) (*model.Product, error) {
	errs := fieldErrors{}
	title, ok := in.Title.Value()
	title = strings.TrimSpace(title)
	if !ok || title == "" {
		errs.add("title", "is required")
	}
	errs.check("title", title, "min=2,max=100")

	price, ok := in.Price.Value()
	if !ok {
		errs.add("price", "is required")
	}
	checkPrice(errs, price)

	description := trimOrNil(in.Description.Ptr())
	if description != nil {
		errs.check("description", *description, "max=500")
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	p := &model.Product{
		UserID:      userID,
		Title:       title,
		Description: description,
		Price:       price,
	}

	if in.Photo != nil {
		name, err := s.photos.Save(in.Photo)
		if err != nil {
			return nil, fmt.Errorf("service/product: saving photo: %w", err)
		}
		p.Photo = &name
	}

	err := s.store.WithinTx(ctx, func(q repository.Queries) error {
		if err := checkTitleFree(ctx, q, userID, p.Title, 0); err != nil {
			return err
		}
		return q.CreateProduct(ctx, p)
	})
	if err != nil {
		if p.Photo != nil {
			s.photos.RemoveQuietly(*p.Photo)
		}
		return nil, fmt.Errorf("service/product: creating product: %w", err)
	}

	metrics.RecordEvent("product", "create")
	s.logger.Info("product created",
		slog.Int64("productID", p.ID),
		slog.Int64("userID", userID),
		slog.Bool("photo", p.Photo != nil),
	)
	return p, nil
}

func (s *ProductService) List(ctx context.Context, userID int64) ([]model.Product, error) {
	products, err := s.store.ListProducts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/product: listing products: %w", err)
	}
	return products, nil
}

// Get returns one of the caller's products. A product owned by someone else
// is indistinguishable from a missing one.
func (s *ProductService) Get(ctx context.Context, userID, id int64) (*model.Product, error) {
	p, err := s.store.FindProduct(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("service/product: %w", err)
	}
	return p, nil
}

// Update applies the fields present in in. Sending description as null (or
// empty) clears it; title and price cannot be cleared.
func (s *ProductService) Update(ctx context.Context, userID, id int64, in ProductInput) (*model.Product, error) {
	if in.empty() {
		return nil, apperror.ValidationFailed("request", "No data provided for update")
	}

	errs := fieldErrors{}
	if in.Title.Set() {
		v, ok := in.Title.Value()
		if !ok || strings.TrimSpace(v) == "" {
			errs.add("title", "is required")
		}
		errs.check("title", strings.TrimSpace(v), "min=2,max=100")
	}
	if in.Price.Set() {
		v, ok := in.Price.Value()
		if !ok {
			errs.add("price", "is required")
		}
		checkPrice(errs, v)
	}
	if d := trimOrNil(in.Description.Ptr()); d != nil {
		errs.check("description", *d, "max=500")
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	var newPhoto string
	if in.Photo != nil {
		name, err := s.photos.Save(in.Photo)
		if err != nil {
			return nil, fmt.Errorf("service/product: saving photo: %w", err)
		}
		newPhoto = name
	}

	var (
		updated  *model.Product
		oldPhoto *string
	)
	err := s.store.WithinTx(ctx, func(q repository.Queries) error {
		p, err := q.GetProduct(ctx, id)
		if err != nil {
			return err
		}
		if p.UserID != userID {
			return apperror.Forbidden("you do not have access to this product")
		}

		if v, ok := in.Title.Value(); ok {
			p.Title = strings.TrimSpace(v)
			if err := checkTitleFree(ctx, q, userID, p.Title, p.ID); err != nil {
				return err
			}
		}
		if v, ok := in.Price.Value(); ok {
			p.Price = v
		}
		if in.Description.Set() {
			p.Description = trimOrNil(in.Description.Ptr())
		}
		if newPhoto != "" {
			oldPhoto = p.Photo
			p.Photo = &newPhoto
		}

		if err := q.UpdateProduct(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		if newPhoto != "" {
			s.photos.RemoveQuietly(newPhoto)
		}
		return nil, fmt.Errorf("service/product: updating product %d: %w", id, err)
	}

	if oldPhoto != nil {
		s.photos.RemoveQuietly(*oldPhoto)
	}

	metrics.RecordEvent("product", "update")
	s.logger.Info("product updated", slog.Int64("productID", id))
	return updated, nil
}

// Delete removes the product and its line items from every order. Orders
// that contained it keep their other line items.
func (s *ProductService) Delete(ctx context.Context, userID, id int64) error {
	var photo *string
	err := s.store.WithinTx(ctx, func(q repository.Queries) error {
		p, err := q.FindProduct(ctx, id, userID)
		if err != nil {
			return err
		}
		photo = p.Photo
		return q.DeleteProduct(ctx, id, userID)
	})
	if err != nil {
		return fmt.Errorf("service/product: deleting product %d: %w", id, err)
	}

	if photo != nil {
		s.photos.RemoveQuietly(*photo)
	}

	metrics.RecordEvent("product", "delete")
	s.logger.Info("product deleted", slog.Int64("productID", id))
	return nil
}

// PhotoPath resolves a photo name to a file path, provided one of the
// caller's products uses it.
func (s *ProductService) PhotoPath(ctx context.Context, userID int64, name string) (string, error) {
	path, err := s.photos.Path(name)
	if err != nil {
		return "", err
	}

	owned, err := s.store.ProductPhotoOwned(ctx, userID, name)
	if err != nil {
		return "", fmt.Errorf("service/product: checking photo owner: %w", err)
	}
	if !owned {
		return "", apperror.NotFound("photo", name)
	}
	return path, nil
}

// checkPrice rejects non-finite values before the range check; "Inf" parses
// as a float and would pass gte.
func checkPrice(errs fieldErrors, price float64) {
	if math.IsInf(price, 0) || math.IsNaN(price) {
		errs.add("price", "must be a finite number")
	}
	errs.check("price", price, "gte=0.01")
}

func checkTitleFree(ctx context.Context, q repository.ProductRepository, userID int64, title string, excludeID int64) error {
	taken, err := q.ProductTitleTaken(ctx, userID, title, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return apperror.ValidationFailed("title", "Product title already exists for this user")
	}
	return nil
}
