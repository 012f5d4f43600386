package menu

import (
	"context"
	"fmt"
	"time"

	"ms-canteen/internal/models"
	"ms-canteen/internal/order"
	"ms-canteen/internal/utils"
)

type MenuDBLayer interface {
	CreateItem(ctx context.Context, item models.FoodItem) error
	GetItemByID(ctx context.Context, id string) (*models.FoodItem, error)
	UpdateItem(ctx context.Context, item models.FoodItem) error
	DeleteItem(ctx context.Context, id string) error
	ListByStall(ctx context.Context, stallID string, availableOnly bool) ([]models.FoodItem, error)
}

type MenuService struct {
	DB MenuDBLayer
}

func NewMenuService(db MenuDBLayer) *MenuService {
	return &MenuService{DB: db}
}

func validateItem(req models.FoodItemRequest) error {
	if req.Name == "" {
		return fmt.Errorf("%w: item name is required", order.ErrValidation)
	}
	if req.Price < 0 {
		return fmt.Errorf("%w: item price cannot be negative", order.ErrValidation)
	}
	return nil
}

func (s *MenuService) AddItem(ctx context.Context, req models.FoodItemRequest) (*models.FoodItem, error) {
	if err := validateItem(req); err != nil {
		return nil, err
	}
	if req.StallID == "" {
		return nil, fmt.Errorf("%w: stall reference is required", order.ErrValidation)
	}

	available := true
	if req.Available != nil {
		available = *req.Available
	}

	item := models.FoodItem{
		ItemID:    utils.GenerateItemID(),
		Name:      req.Name,
		Price:     req.Price,
		StallID:   req.StallID,
		Available: available,
		CreatedAt: time.Now(),
	}

	if err := s.DB.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create food item: %w", err)
	}
	return &item, nil
}

func (s *MenuService) UpdateItem(ctx context.Context, id string, req models.FoodItemRequest) (*models.FoodItem, error) {
	if err := validateItem(req); err != nil {
		return nil, err
	}

	item, err := s.DB.GetItemByID(ctx, id)
	if err != nil {
		return nil, err
	}

	item.Name = req.Name
	item.Price = req.Price
	if req.Available != nil {
		item.Available = *req.Available
	}
	item.UpdatedAt = time.Now()

	if err := s.DB.UpdateItem(ctx, *item); err != nil {
		return nil, fmt.Errorf("failed to update food item: %w", err)
	}
	return item, nil
}

func (s *MenuService) RemoveItem(ctx context.Context, id string) error {
	return s.DB.DeleteItem(ctx, id)
}

// StallMenu returns what customers can order from a stall right now.
func (s *MenuService) StallMenu(ctx context.Context, stallID string) ([]models.FoodItem, error) {
	if stallID == "" {
		return nil, fmt.Errorf("%w: stall reference is required", order.ErrValidation)
	}
	return s.DB.ListByStall(ctx, stallID, true)
}

// StallInventory returns everything including unavailable items, for admin.
func (s *MenuService) StallInventory(ctx context.Context, stallID string) ([]models.FoodItem, error) {
	if stallID == "" {
		return nil, fmt.Errorf("%w: stall reference is required", order.ErrValidation)
	}
	return s.DB.ListByStall(ctx, stallID, false)
}
