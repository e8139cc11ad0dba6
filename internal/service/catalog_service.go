package service

import (
	"context"
	"log/slog"

	"github.com/vicraft/backend/internal/models"
	"github.com/vicraft/backend/internal/repository"
)

// CatalogService exposes the sales and model catalog to the API surface.
type CatalogService struct {
	catalog *repository.CatalogRepository
	log     *slog.Logger
}

func NewCatalogService(catalog *repository.CatalogRepository, log *slog.Logger) *CatalogService {
	return &CatalogService{catalog: catalog, log: log}
}

// EnsureDefaults seeds the catalog on first boot.
func (s *CatalogService) EnsureDefaults(ctx context.Context) error {
	return s.catalog.EnsureDefaults(ctx)
}

func (s *CatalogService) Models(ctx context.Context, taskType models.TaskType) ([]models.Model, error) {
	return s.catalog.ListModels(ctx, taskType)
}

func (s *CatalogService) CoinPackages(ctx context.Context) ([]models.CoinPackage, error) {
	return s.catalog.ListCoinPackages(ctx)
}

func (s *CatalogService) SubscriptionPackages(ctx context.Context) ([]models.SubscriptionPackage, error) {
	return s.catalog.ListSubscriptionPackages(ctx)
}

func (s *CatalogService) UpsertModel(ctx context.Context, m *models.Model) error {
	if err := s.catalog.UpsertModel(ctx, m); err != nil {
		return err
	}
	s.log.Info("model upserted", "shortapi", m.ShortAPI, "type", m.Type)
	return nil
}

func (s *CatalogService) UpsertCoinPackage(ctx context.Context, p *models.CoinPackage) error {
	if err := s.catalog.UpsertCoinPackage(ctx, p); err != nil {
		return err
	}
	s.log.Info("coin package upserted", "package_id", p.PackageID, "price", p.Price)
	return nil
}

func (s *CatalogService) UpsertSubscriptionPackage(ctx context.Context, p *models.SubscriptionPackage) error {
	if err := s.catalog.UpsertSubscriptionPackage(ctx, p); err != nil {
		return err
	}
	s.log.Info("subscription package upserted", "plan_id", p.PlanID, "cycle", p.BillingCycle, "price", p.Price)
	return nil
}
