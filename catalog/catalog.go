package catalog

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"smartdine/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const listCacheKey = "foods:all"

type Store interface {
	Create(ctx context.Context, food *models.FoodItem) error
	Get(ctx context.Context, id string) (*models.FoodItem, error)
	List(ctx context.Context) ([]models.FoodItem, error)
	Delete(ctx context.Context, id string) error
	SetImages(ctx context.Context, id, image, thumbnail string) error
}

// Cache holds the serialized menu. A miss or a cache failure falls through
// to the store.
type Cache interface {
	RdxGet(ctx context.Context, key string) (string, error)
	RdxSet(ctx context.Context, key, value string) error
	RdxDel(ctx context.Context, keys ...string) error
}

type NewFood struct {
	Name              string  `json:"name"`
	Price             float64 `json:"price"`
	QuantityAvailable int     `json:"quantityAvailable"`
	Offer             string  `json:"offer"`
	Image             string  `json:"image"`
	Description       string  `json:"description"`
	Type              string  `json:"type"`
	Category          string  `json:"category"`
}

func (f NewFood) validate() error {
	var missing []string
	for field, v := range map[string]string{
		"name":        f.Name,
		"description": f.Description,
		"category":    f.Category,
		"type":        f.Type,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return errors.Wrapf(models.ErrInvalidArgument, "missing required food fields: %s", strings.Join(missing, ", "))
	}
	if len(f.Name) > 100 {
		return errors.Wrap(models.ErrInvalidArgument, "name must be at most 100 characters")
	}
	if f.Price < 0 {
		return errors.Wrap(models.ErrInvalidArgument, "price must be a non-negative number")
	}
	if f.QuantityAvailable < 0 {
		return errors.Wrap(models.ErrInvalidArgument, "quantityAvailable must be a non-negative integer")
	}
	return nil
}

// Service manages the menu. Reads go through the cache when one is set.
type Service struct {
	store Store
	cache Cache
}

func NewService(store Store, cache Cache) *Service {
	return &Service{store: store, cache: cache}
}

func (s *Service) List(ctx context.Context) ([]models.FoodItem, error) {
	if s.cache != nil {
		if cached, err := s.cache.RdxGet(ctx, listCacheKey); err == nil {
			var foods []models.FoodItem
			if err := json.Unmarshal([]byte(cached), &foods); err == nil {
				return foods, nil
			}
		}
	}

	foods, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if foods == nil {
		foods = []models.FoodItem{}
	}

	if s.cache != nil {
		if raw, err := json.Marshal(foods); err == nil {
			if err := s.cache.RdxSet(ctx, listCacheKey, string(raw)); err != nil {
				log.WithError(err).Warn("cache menu")
			}
		}
	}
	return foods, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.FoodItem, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in NewFood) (*models.FoodItem, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := time.Now()
	food := &models.FoodItem{
		ID:                uuid.NewString(),
		Name:              strings.TrimSpace(in.Name),
		Price:             models.RoundMoney(in.Price),
		QuantityAvailable: in.QuantityAvailable,
		Description:       in.Description,
		Type:              in.Type,
		Category:          in.Category,
		Offer:             in.Offer,
		Image:             in.Image,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.store.Create(ctx, food); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	log.WithFields(log.Fields{"food": food.ID, "name": food.Name}).Info("food item added")
	return food, nil
}

// Delete removes a catalog entry. Orders keep their snapshotted lines.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	log.WithField("food", id).Info("food item deleted")
	return nil
}

func (s *Service) SetImages(ctx context.Context, id, image, thumbnail string) error {
	if err := s.store.SetImages(ctx, id, image, thumbnail); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.RdxDel(ctx, listCacheKey); err != nil {
		log.WithError(err).Warn("invalidate menu cache")
	}
}
