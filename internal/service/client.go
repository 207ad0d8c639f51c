package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/inventory-service/internal/apperror"
	"github.com/sakif/inventory-service/internal/metrics"
	"github.com/sakif/inventory-service/internal/model"
	"github.com/sakif/inventory-service/internal/optional"
	"github.com/sakif/inventory-service/internal/repository"
)

type CreateClientInput struct {
	FirstName string  `json:"first_name" validate:"required,min=3,max=50"`
	LastName  *string `json:"last_name"  validate:"omitempty,min=3,max=50"`
	Phone     *string `json:"phone"      validate:"omitempty,min=2,max=20"`
}

// UpdateClientInput is a partial update. last_name and phone accept null to
// clear them; first_name cannot be cleared.
type UpdateClientInput struct {
	FirstName optional.Field[string] `json:"first_name"`
	LastName  optional.Field[string] `json:"last_name"`
	Phone     optional.Field[string] `json:"phone"`
}

// ClientService manages the caller's contacts.
//
// Reading, changing or deleting a client that exists but belongs to someone
// else is Forbidden; an id that does not exist at all is NotFound.
type ClientService struct {
	store  repository.Store
	logger *slog.Logger
}

func NewClientService(store repository.Store, logger *slog.Logger) *ClientService {
	return &ClientService{store: store, logger: logger}
}

func (s *ClientService) Create(ctx context.Context, userID int64, in CreateClientInput) (*model.Client, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = trimOrNil(in.LastName)
	in.Phone = trimOrNil(in.Phone)

	if err := checkStruct(in); err != nil {
		return nil, err
	}

	c := &model.Client{
		UserID:    userID,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Phone:     in.Phone,
	}
	err := s.store.WithinTx(ctx, func(q repository.Queries) error {
		return q.CreateClient(ctx, c)
	})
	if err != nil {
		return nil, fmt.Errorf("service/client: creating client: %w", err)
	}

	metrics.RecordEvent("client", "create")
	s.logger.Info("client created", slog.Int64("clientID", c.ID), slog.Int64("userID", userID))
	return c, nil
}

func (s *ClientService) List(ctx context.Context, userID int64) ([]model.Client, error) {
	clients, err := s.store.ListClients(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/client: listing clients: %w", err)
	}
	return clients, nil
}

func (s *ClientService) Get(ctx context.Context, userID, id int64) (*model.Client, error) {
	c, err := ownedClient(ctx, s.store, userID, id)
	if err != nil {
		return nil, fmt.Errorf("service/client: %w", err)
	}
	return c, nil
}

func (s *ClientService) Update(ctx context.Context, userID, id int64, in UpdateClientInput) (*model.Client, error) {
	if !in.FirstName.Set() && !in.LastName.Set() && !in.Phone.Set() {
		return nil, apperror.ValidationFailed("request", "at least one of first_name, last_name, phone is required")
	}

	errs := fieldErrors{}
	if in.FirstName.Set() {
		v, ok := in.FirstName.Value()
		if !ok {
			errs.add("first_name", "is required")
		}
		errs.check("first_name", strings.TrimSpace(v), "min=3,max=50")
	}
	if v, ok := in.LastName.Value(); ok {
		errs.check("last_name", strings.TrimSpace(v), "min=3,max=50")
	}
	if v, ok := in.Phone.Value(); ok {
		errs.check("phone", strings.TrimSpace(v), "min=2,max=20")
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	var updated *model.Client
	err := s.store.WithinTx(ctx, func(q repository.Queries) error {
		c, err := ownedClient(ctx, q, userID, id)
		if err != nil {
			return err
		}

		if v, ok := in.FirstName.Value(); ok {
			c.FirstName = strings.TrimSpace(v)
		}
		if in.LastName.Set() {
			c.LastName = trimOrNil(in.LastName.Ptr())
		}
		if in.Phone.Set() {
			c.Phone = trimOrNil(in.Phone.Ptr())
		}

		if err := q.UpdateClient(ctx, c); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("service/client: updating client %d: %w", id, err)
	}

	metrics.RecordEvent("client", "update")
	s.logger.Info("client updated", slog.Int64("clientID", id))
	return updated, nil
}

// Delete removes the client; orders that referenced it keep existing with
// client_id cleared.
func (s *ClientService) Delete(ctx context.Context, userID, id int64) error {
	err := s.store.WithinTx(ctx, func(q repository.Queries) error {
		if _, err := ownedClient(ctx, q, userID, id); err != nil {
			return err
		}
		return q.DeleteClient(ctx, id, userID)
	})
	if err != nil {
		return fmt.Errorf("service/client: deleting client %d: %w", id, err)
	}

	metrics.RecordEvent("client", "delete")
	s.logger.Info("client deleted", slog.Int64("clientID", id))
	return nil
}

// ownedClient loads a client and separates "missing" from "someone else's".
func ownedClient(ctx context.Context, q repository.ClientRepository, userID, id int64) (*model.Client, error) {
	c, err := q.GetClient(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, apperror.Forbidden("you do not have access to this client")
	}
	return c, nil
}

// trimOrNil trims s and maps an empty result to nil.
func trimOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
