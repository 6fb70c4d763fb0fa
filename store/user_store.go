package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"quizfunnel/api/models"

	log "github.com/sirupsen/logrus"
)

// OperatorStore keeps dashboard accounts.
type OperatorStore struct {
	db *sql.DB
}

func NewOperatorStore(db *sql.DB) *OperatorStore {
	return &OperatorStore{db: db}
}

// CreateOperator returns models.ErrConflict when the email is taken.
func (s *OperatorStore) CreateOperator(ctx context.Context, email string, hashedPassword []byte) (*models.Operator, error) {
	op := &models.Operator{}
	query := `
		INSERT INTO operators (email, hashed_password)
		VALUES ($1, $2)
		RETURNING id, email, created_at, updated_at;
	`
	err := s.db.QueryRowContext(ctx, query, email, hashedPassword).Scan(
		&op.ID,
		&op.Email,
		&op.CreatedAt,
		&op.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, models.ErrConflict
		}
		return nil, fmt.Errorf("failed to create operator: %w", err)
	}

	log.WithFields(log.Fields{"operator_id": op.ID, "email": op.Email}).Info("Operator created")
	return op, nil
}

func (s *OperatorStore) GetOperatorByEmail(ctx context.Context, email string) (*models.Operator, error) {
	op := &models.Operator{}
	query := `
		SELECT id, email, hashed_password, created_at, updated_at
		FROM operators
		WHERE email = $1;
	`
	err := s.db.QueryRowContext(ctx, query, email).Scan(
		&op.ID,
		&op.Email,
		&op.HashedPassword,
		&op.CreatedAt,
		&op.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get operator by email: %w", err)
	}
	return op, nil
}
