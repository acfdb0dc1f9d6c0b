package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"presale-ledger-go/internal/models"
	"presale-ledger-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateStage inserts a stage definition. Seeding is idempotent on the stage
// number: an existing stage is left untouched so restarts never reset
// counters.
func (s *Service) CreateStage(ctx context.Context, params store.StageParams) (*models.Stage, error) {
	if params.Price.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("stage price must be positive, got %s", params.Price.String())
	}
	if params.TokensAvailable.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("stage allocation must be positive, got %s", params.TokensAvailable.String())
	}

	var existingId string
	err := s.db.QueryRowContext(ctx, queryGetStageByNumber, params.Number).Scan(&existingId)
	if err == nil {
		zap.L().Debug("Stage already seeded", zap.Int("stage_number", params.Number))
		return s.getStageById(ctx, existingId)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check existing stage: %w", err)
	}

	id := uuid.New().String()
	_, err = s.db.ExecContext(ctx, queryInsertStage,
		id, params.Number, params.Price.String(), params.TokensAvailable.String(), params.Active)
	if err != nil {
		return nil, fmt.Errorf("failed to create stage: %w", err)
	}

	zap.L().Info("Stage created",
		zap.String("stage_id", id),
		zap.Int("stage_number", params.Number),
		zap.String("price", params.Price.String()),
		zap.String("tokens_available", params.TokensAvailable.String()),
		zap.Bool("active", params.Active))

	return s.getStageById(ctx, id)
}

func (s *Service) GetActiveStage(ctx context.Context) (*models.Stage, error) {
	stage, err := scanStage(s.db.QueryRowContext(ctx, queryGetActiveStage))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNoActiveStage
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active stage: %w", err)
	}
	return stage, nil
}

func (s *Service) GetStages(ctx context.Context) ([]models.Stage, error) {
	rows, err := s.db.QueryContext(ctx, queryGetStages)
	if err != nil {
		return nil, fmt.Errorf("failed to get stages: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}()

	var stages []models.Stage
	for rows.Next() {
		stage, err := scanStage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stage: %w", err)
		}
		stages = append(stages, *stage)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stage rows: %w", err)
	}
	return stages, nil
}

// ActivateStage makes the given stage the single active one. Both updates run
// in one transaction so no observer ever sees two active stages.
func (s *Service) ActivateStage(ctx context.Context, stageId string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, queryActivateStage, stageId)
	if err != nil {
		return fmt.Errorf("failed to activate stage: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("stage %s not found", stageId)
	}

	if _, err := tx.ExecContext(ctx, queryDeactivateOtherStages, stageId); err != nil {
		return fmt.Errorf("failed to deactivate other stages: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Stage activated", zap.String("stage_id", stageId))
	return nil
}

func (s *Service) getStageById(ctx context.Context, stageId string) (*models.Stage, error) {
	const query = `
		SELECT id, stage_number, price, tokens_available, tokens_sold, total_raised, participants, active, version, created_at, updated_at
		FROM stages
		WHERE id = ?`
	stage, err := scanStage(s.db.QueryRowContext(ctx, query, stageId))
	if err != nil {
		return nil, fmt.Errorf("failed to get stage %s: %w", stageId, err)
	}
	return stage, nil
}

func scanStage(row rowScanner) (*models.Stage, error) {
	var st models.Stage
	var priceStr, availStr, soldStr, raisedStr string
	err := row.Scan(&st.Id, &st.Number, &priceStr, &availStr, &soldStr, &raisedStr,
		&st.Participants, &st.Active, &st.Version, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if st.Price, err = decimal.NewFromString(priceStr); err != nil {
		return nil, fmt.Errorf("failed to parse price %q: %w", priceStr, err)
	}
	if st.TokensAvailable, err = decimal.NewFromString(availStr); err != nil {
		return nil, fmt.Errorf("failed to parse tokens_available %q: %w", availStr, err)
	}
	if st.TokensSold, err = decimal.NewFromString(soldStr); err != nil {
		return nil, fmt.Errorf("failed to parse tokens_sold %q: %w", soldStr, err)
	}
	if st.TotalRaised, err = decimal.NewFromString(raisedStr); err != nil {
		return nil, fmt.Errorf("failed to parse total_raised %q: %w", raisedStr, err)
	}
	return &st, nil
}
