package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vicraft/backend/internal/models"
)

// CatalogRepository serves the static sales and model catalog: generation
// models with their declared parameters, coin packages and subscription plans.
type CatalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) ListModels(ctx context.Context, taskType models.TaskType) ([]models.Model, error) {
	query := `
		SELECT id, title, type, shortapi, COALESCE(description, ''), parameters, active, sort_order, created_at
		FROM models WHERE active = 1`
	args := []any{}
	if taskType != "" {
		query += ` AND type = ?`
		args = append(args, taskType)
	}
	query += ` ORDER BY sort_order ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()

	var out []models.Model
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (r *CatalogRepository) FindModel(ctx context.Context, shortapi string) (*models.Model, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, type, shortapi, COALESCE(description, ''), parameters, active, sort_order, created_at
		FROM models WHERE shortapi = ? AND active = 1`, shortapi)
	if err != nil {
		return nil, fmt.Errorf("find model: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("find model: %w", err)
		}
		return nil, ErrNotFound
	}
	return scanModel(rows)
}

func scanModel(rows *sql.Rows) (*models.Model, error) {
	var m models.Model
	var parameters sql.NullString
	if err := rows.Scan(
		&m.ID, &m.Title, &m.Type, &m.ShortAPI, &m.Description,
		&parameters, &m.Active, &m.SortOrder, &m.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("scan model: %w", err)
	}
	if parameters.Valid && parameters.String != "" {
		if err := json.Unmarshal([]byte(parameters.String), &m.Parameters); err != nil {
			return nil, fmt.Errorf("decode model parameters for %s: %w", m.ShortAPI, err)
		}
	}
	return &m, nil
}

// UpsertModel creates or replaces a catalog model keyed by its provider id.
func (r *CatalogRepository) UpsertModel(ctx context.Context, m *models.Model) error {
	parameters, err := json.Marshal(m.Parameters)
	if err != nil {
		return fmt.Errorf("encode model parameters: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO models (title, type, shortapi, description, parameters, active, sort_order)
		VALUES (?, ?, ?, NULLIF(?, ''), ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			title = VALUES(title), type = VALUES(type), description = VALUES(description),
			parameters = VALUES(parameters), active = VALUES(active), sort_order = VALUES(sort_order)`,
		m.Title, m.Type, m.ShortAPI, m.Description, parameters, m.Active, m.SortOrder,
	)
	if err != nil {
		return fmt.Errorf("upsert model: %w", err)
	}
	return nil
}

func (r *CatalogRepository) ListCoinPackages(ctx context.Context) ([]models.CoinPackage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, package_id, coins, bonus_coins, price, active, sort_order
		FROM coin_packages WHERE active = 1
		ORDER BY sort_order ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list coin packages: %w", err)
	}
	defer rows.Close()

	var out []models.CoinPackage
	for rows.Next() {
		var p models.CoinPackage
		if err := rows.Scan(&p.ID, &p.PackageID, &p.Coins, &p.BonusCoins, &p.Price, &p.Active, &p.SortOrder); err != nil {
			return nil, fmt.Errorf("scan coin package: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *CatalogRepository) FindCoinPackage(ctx context.Context, packageID string) (*models.CoinPackage, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, package_id, coins, bonus_coins, price, active, sort_order
		FROM coin_packages WHERE package_id = ? AND active = 1`, packageID)

	var p models.CoinPackage
	err := row.Scan(&p.ID, &p.PackageID, &p.Coins, &p.BonusCoins, &p.Price, &p.Active, &p.SortOrder)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan coin package: %w", err)
	}
	return &p, nil
}

func (r *CatalogRepository) UpsertCoinPackage(ctx context.Context, p *models.CoinPackage) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO coin_packages (package_id, coins, bonus_coins, price, active, sort_order)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			coins = VALUES(coins), bonus_coins = VALUES(bonus_coins), price = VALUES(price),
			active = VALUES(active), sort_order = VALUES(sort_order)`,
		p.PackageID, p.Coins, p.BonusCoins, p.Price, p.Active, p.SortOrder,
	)
	if err != nil {
		return fmt.Errorf("upsert coin package: %w", err)
	}
	return nil
}

func (r *CatalogRepository) ListSubscriptionPackages(ctx context.Context) ([]models.SubscriptionPackage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, plan_id, billing_cycle, coins, price, active, sort_order
		FROM subscription_packages WHERE active = 1
		ORDER BY sort_order ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list subscription packages: %w", err)
	}
	defer rows.Close()

	var out []models.SubscriptionPackage
	for rows.Next() {
		var p models.SubscriptionPackage
		if err := rows.Scan(&p.ID, &p.PlanID, &p.BillingCycle, &p.Coins, &p.Price, &p.Active, &p.SortOrder); err != nil {
			return nil, fmt.Errorf("scan subscription package: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *CatalogRepository) FindSubscriptionPackage(ctx context.Context, planID, billingCycle string) (*models.SubscriptionPackage, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, plan_id, billing_cycle, coins, price, active, sort_order
		FROM subscription_packages WHERE plan_id = ? AND billing_cycle = ? AND active = 1`,
		planID, billingCycle)

	var p models.SubscriptionPackage
	err := row.Scan(&p.ID, &p.PlanID, &p.BillingCycle, &p.Coins, &p.Price, &p.Active, &p.SortOrder)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan subscription package: %w", err)
	}
	return &p, nil
}

func (r *CatalogRepository) UpsertSubscriptionPackage(ctx context.Context, p *models.SubscriptionPackage) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subscription_packages (plan_id, billing_cycle, coins, price, active, sort_order)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			coins = VALUES(coins), price = VALUES(price),
			active = VALUES(active), sort_order = VALUES(sort_order)`,
		p.PlanID, p.BillingCycle, p.Coins, p.Price, p.Active, p.SortOrder,
	)
	if err != nil {
		return fmt.Errorf("upsert subscription package: %w", err)
	}
	return nil
}

func (r *CatalogRepository) countRows(ctx context.Context, table string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// EnsureDefaults seeds the sales catalog on first boot so a fresh deployment
// can sell something before an operator configures real packages.
func (r *CatalogRepository) EnsureDefaults(ctx context.Context) error {
	n, err := r.countRows(ctx, "coin_packages")
	if err != nil {
		return err
	}
	if n == 0 {
		for i, p := range defaultCoinPackages {
			p.Active = true
			p.SortOrder = i
			if err := r.UpsertCoinPackage(ctx, &p); err != nil {
				return err
			}
		}
	}

	n, err = r.countRows(ctx, "subscription_packages")
	if err != nil {
		return err
	}
	if n == 0 {
		for i, p := range defaultSubscriptionPackages {
			p.Active = true
			p.SortOrder = i
			if err := r.UpsertSubscriptionPackage(ctx, &p); err != nil {
				return err
			}
		}
	}

	n, err = r.countRows(ctx, "models")
	if err != nil {
		return err
	}
	if n == 0 {
		for i, m := range defaultModels {
			m.Active = true
			m.SortOrder = i
			if err := r.UpsertModel(ctx, &m); err != nil {
				return err
			}
		}
	}
	return nil
}

func floatPtr(v float64) *float64 { return &v }

var imageParams = []models.ModelParameter{
	{Name: "num_images", Type: "int", Default: 1, Min: floatPtr(1), Max: floatPtr(4)},
	{Name: "aspect_ratio", Type: "string", Default: "1:1", Enum: []any{"1:1", "16:9", "9:16", "4:3", "3:4"}},
}

var imageEditParams = []models.ModelParameter{
	{Name: "image_urls", Type: "list<string>", Required: true},
	{Name: "num_images", Type: "int", Default: 1, Min: floatPtr(1), Max: floatPtr(4)},
}

var videoParams = []models.ModelParameter{
	{Name: "duration", Type: "string", Default: "5", Enum: []any{"5", "10"}},
	{Name: "resolution", Type: "string", Default: "720p", Enum: []any{"720p", "1080p"}},
}

var imageToVideoParams = []models.ModelParameter{
	{Name: "image_url", Type: "string", Required: true},
	{Name: "duration", Type: "string", Default: "5", Enum: []any{"5", "10"}},
	{Name: "resolution", Type: "string", Default: "720p", Enum: []any{"720p", "1080p"}},
}

var defaultModels = []models.Model{
	{Title: "Flux 1.0", Type: models.TaskText2Image, ShortAPI: "shortapi/flux-1.0/text-to-image", Parameters: imageParams},
	{Title: "Nano Banana", Type: models.TaskText2Image, ShortAPI: "google/nano-banana/text-to-image", Parameters: imageParams},
	{Title: "Flux 1.0 Remix", Type: models.TaskImage2Image, ShortAPI: "shortapi/flux-1.0/image-to-image", Parameters: imageEditParams},
	{Title: "Nano Banana Edit", Type: models.TaskImage2Image, ShortAPI: "google/nano-banana/edit", Parameters: imageEditParams},
	{Title: "Vidu Q2", Type: models.TaskText2Video, ShortAPI: "vidu/vidu-q2/text-to-video", Parameters: videoParams},
	{Title: "Kling 2.6", Type: models.TaskText2Video, ShortAPI: "kwaivgi/kling-2.6/text-to-video", Parameters: videoParams},
	{Title: "Vidu Q2 Motion", Type: models.TaskImage2Video, ShortAPI: "vidu/vidu-q2/image-to-video", Parameters: imageToVideoParams},
	{Title: "Kling 2.6 Motion", Type: models.TaskImage2Video, ShortAPI: "kwaivgi/kling-2.6/image-to-video", Parameters: imageToVideoParams},
}

var defaultCoinPackages = []models.CoinPackage{
	{PackageID: "starter", Coins: 500, BonusCoins: 0, Price: 4.99},
	{PackageID: "standard", Coins: 1200, BonusCoins: 100, Price: 9.99},
	{PackageID: "plus", Coins: 2600, BonusCoins: 400, Price: 19.99},
	{PackageID: "mega", Coins: 7000, BonusCoins: 1500, Price: 49.99},
}

var defaultSubscriptionPackages = []models.SubscriptionPackage{
	{PlanID: models.TierLite, BillingCycle: models.CycleWeek, Coins: 600, Price: 6.99},
	{PlanID: models.TierLite, BillingCycle: models.CycleYear, Coins: 31200, Price: 99.99},
	{PlanID: models.TierPro, BillingCycle: models.CycleWeek, Coins: 1500, Price: 14.99},
	{PlanID: models.TierPro, BillingCycle: models.CycleYear, Coins: 78000, Price: 199.99},
	{PlanID: models.TierMax, BillingCycle: models.CycleWeek, Coins: 4000, Price: 29.99},
	{PlanID: models.TierMax, BillingCycle: models.CycleYear, Coins: 208000, Price: 399.99},
}
