// Package store is the data access layer for deployd. It persists
// deployments and API key digests in SQLite through Bun.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"deployd/pkg/types"
)

// DeploymentModel maps the `deployments` table for Bun queries.
type DeploymentModel struct {
	bun.BaseModel `bun:"table:deployments"`
	ID            string    `bun:"id,pk"`
	ModelID       string    `bun:"model_id,notnull"`
	UserID        string    `bun:"user_id,notnull"`
	APIName       string    `bun:"api_name,notnull"`
	Host          string    `bun:"host,notnull"`
	Port          int       `bun:"port,notnull"`
	Endpoint      string    `bun:"endpoint"`
	Status        string    `bun:"status,notnull"`
	EstVRAMMB     int       `bun:"est_vram_mb"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
	UpdatedAt     time.Time `bun:"updated_at,notnull"`
}

// APIKeyModel maps the `api_keys` table. Only the digest is stored.
type APIKeyModel struct {
	bun.BaseModel `bun:"table:api_keys"`
	ID            string    `bun:"id,pk"`
	DeploymentID  string    `bun:"deployment_id,notnull"`
	Digest        string    `bun:"digest,notnull,unique"`
	Hint          string    `bun:"hint"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
}

// Store owns the database handle.
type Store struct {
	db  *sql.DB
	bun *bun.DB
}

// Open opens (or creates) the SQLite database at path and ensures the
// schema exists. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	sqldb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc sqlite misbehaves with concurrent writers on one file.
	sqldb.SetMaxOpenConns(1)
	bdb := bun.NewDB(sqldb, sqlitedialect.New())
	s := &Store{db: sqldb, bun: bdb}
	if err := s.migrate(context.Background()); err != nil {
		_ = sqldb.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.bun.Close() }

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.bun.NewCreateTable().Model((*DeploymentModel)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create deployments table: %w", err)
	}
	if _, err := s.bun.NewCreateTable().Model((*APIKeyModel)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create api_keys table: %w", err)
	}
	return nil
}

// CreateDeployment inserts a new deployment row.
func (s *Store) CreateDeployment(ctx context.Context, d types.Deployment) error {
	m := deploymentToModel(d)
	if _, err := s.bun.NewInsert().Model(&m).Exec(ctx); err != nil {
		return fmt.Errorf("insert deployment: %w", err)
	}
	return nil
}

// UpdateDeploymentStatus sets the status and bumps updated_at.
func (s *Store) UpdateDeploymentStatus(ctx context.Context, id, status string) error {
	res, err := s.bun.NewUpdate().Model((*DeploymentModel)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update deployment %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetDeployment returns the deployment with the given id, or nil when absent.
func (s *Store) GetDeployment(ctx context.Context, id string) (*types.Deployment, error) {
	var m DeploymentModel
	err := s.bun.NewSelect().Model(&m).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	d := modelToDeployment(m)
	return &d, nil
}

// ListDeployments returns deployments ordered by creation time, newest
// first. A non-empty userID filters to that user.
func (s *Store) ListDeployments(ctx context.Context, userID string) ([]types.Deployment, error) {
	var ms []DeploymentModel
	q := s.bun.NewSelect().Model(&ms).Order("created_at DESC")
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]types.Deployment, 0, len(ms))
	for _, m := range ms {
		out = append(out, modelToDeployment(m))
	}
	return out, nil
}

// ActiveDeployments returns all non-terminated deployments, oldest first,
// for orchestrator rehydration at startup.
func (s *Store) ActiveDeployments(ctx context.Context) ([]types.Deployment, error) {
	var ms []DeploymentModel
	err := s.bun.NewSelect().Model(&ms).
		Where("status != ?", "terminated").
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]types.Deployment, 0, len(ms))
	for _, m := range ms {
		out = append(out, modelToDeployment(m))
	}
	return out, nil
}

// FailStaleProvisioning marks deployments stuck in provisioning as failed.
// Called once at startup: anything still provisioning did not survive the
// previous process.
func (s *Store) FailStaleProvisioning(ctx context.Context) (int64, error) {
	res, err := s.bun.NewUpdate().Model((*DeploymentModel)(nil)).
		Set("status = ?", "failed").
		Set("updated_at = ?", time.Now().UTC()).
		Where("status = ?", "provisioning").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("fail stale provisioning: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// CompleteStaleDraining marks deployments stuck in draining as terminated.
// Called once at startup: a drain interrupted by a crash never finishes on
// its own, and draining rows would otherwise hold their api_name forever.
func (s *Store) CompleteStaleDraining(ctx context.Context) (int64, error) {
	res, err := s.bun.NewUpdate().Model((*DeploymentModel)(nil)).
		Set("status = ?", "terminated").
		Set("updated_at = ?", time.Now().UTC()).
		Where("status = ?", "draining").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("complete stale draining: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// InsertAPIKey stores the digest record for a deployment's key.
func (s *Store) InsertAPIKey(ctx context.Context, id, deploymentID, digest, hint string) error {
	m := APIKeyModel{
		ID:           id,
		DeploymentID: deploymentID,
		Digest:       digest,
		Hint:         hint,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := s.bun.NewInsert().Model(&m).Exec(ctx); err != nil {
		return fmt.Errorf("insert api key: %w", err)
	}
	return nil
}

// DeleteAPIKeysForDeployment removes all key rows issued for a deployment,
// so keys for failed or terminated deployments stop resolving.
func (s *Store) DeleteAPIKeysForDeployment(ctx context.Context, deploymentID string) error {
	if _, err := s.bun.NewDelete().Model((*APIKeyModel)(nil)).
		Where("deployment_id = ?", deploymentID).
		Exec(ctx); err != nil {
		return fmt.Errorf("delete api keys for %s: %w", deploymentID, err)
	}
	return nil
}

// FindDeploymentByKeyDigest resolves a key digest to its deployment, or nil.
func (s *Store) FindDeploymentByKeyDigest(ctx context.Context, digest string) (*types.Deployment, error) {
	var k APIKeyModel
	err := s.bun.NewSelect().Model(&k).Where("digest = ?", digest).Limit(1).Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return s.GetDeployment(ctx, k.DeploymentID)
}

func deploymentToModel(d types.Deployment) DeploymentModel {
	return DeploymentModel{
		ID:        d.ID,
		ModelID:   d.ModelID,
		UserID:    d.UserID,
		APIName:   d.APIName,
		Host:      d.Host,
		Port:      d.Port,
		Endpoint:  d.Endpoint,
		Status:    d.Status,
		EstVRAMMB: d.EstVRAMMB,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func modelToDeployment(m DeploymentModel) types.Deployment {
	return types.Deployment{
		ID:        m.ID,
		ModelID:   m.ModelID,
		UserID:    m.UserID,
		APIName:   m.APIName,
		Host:      m.Host,
		Port:      m.Port,
		Endpoint:  m.Endpoint,
		Status:    m.Status,
		EstVRAMMB: m.EstVRAMMB,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
