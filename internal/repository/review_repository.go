package repository

import (
	"context"
	"database/sql"
	"fmt"

	"storefront/internal/database"
	"storefront/internal/domain"

	"github.com/google/uuid"
)

// ReviewRepository reads product reviews for the catalog detail page
type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) error
	ListApprovedByProduct(ctx context.Context, productID uuid.UUID) ([]domain.Review, error)
}

type reviewRepository struct {
	db *sql.DB
}

func NewReviewRepository(db *sql.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(ctx context.Context, review *domain.Review) error {
	query := `
		INSERT INTO reviews (id, product_id, user_id, rating, title, comment, is_approved, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`
	_, err := database.Conn(ctx, r.db).ExecContext(
		ctx,
		query,
		review.ID,
		review.ProductID,
		review.UserID,
		review.Rating,
		nullString(review.Title),
		review.Comment,
		review.IsApproved,
		review.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

// ListApprovedByProduct returns approved, live reviews newest first, each with its author.
// Reviews written by deleted accounts keep showing, without an author.
func (r *reviewRepository) ListApprovedByProduct(ctx context.Context, productID uuid.UUID) ([]domain.Review, error) {
	query := `
		SELECT rv.id, rv.product_id, rv.user_id, rv.rating, rv.title, rv.comment, rv.is_approved,
		       rv.created_at, u.id, u.name
		FROM reviews rv
		LEFT JOIN users u ON u.id = rv.user_id AND u.deleted_at IS NULL
		WHERE rv.product_id = $1 AND rv.is_approved AND rv.deleted_at IS NULL
		ORDER BY rv.created_at DESC
	`

	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []domain.Review{}
	for rows.Next() {
		var (
			review   domain.Review
			title    sql.NullString
			authorID uuid.NullUUID
			author   sql.NullString
		)
		if err := rows.Scan(
			&review.ID,
			&review.ProductID,
			&review.UserID,
			&review.Rating,
			&title,
			&review.Comment,
			&review.IsApproved,
			&review.CreatedAt,
			&authorID,
			&author,
		); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		review.Title = title.String
		if authorID.Valid {
			review.User = &domain.UserSummary{ID: authorID.UUID, Name: author.String}
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reviews: %w", err)
	}

	return reviews, nil
}
