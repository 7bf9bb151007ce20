package gormstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/weiawesome/follow-graph/pkg/database"
	"github.com/weiawesome/follow-graph/pkg/follow"
)

// ErrUnknownFlag is returned by UpdateFlag for flags without a column.
var ErrUnknownFlag = errors.New("unknown relation flag")

// isUniqueViolation reports whether err is a unique-constraint violation.
// GORM reports these as gorm.ErrDuplicatedKey when TranslateError is set.
func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// Store implements follow.Store using GORM.
type Store struct {
	db *gorm.DB
}

// New creates a GORM-backed relation store.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the follows table and its indexes.
func Migrate(db *gorm.DB) error {
	return database.AutoMigrate(db, &FollowModel{})
}

// Create inserts the relation for d's pair. When the pair already exists,
// either found up front or reported by the unique index after losing a race,
// the stored row is returned unchanged.
func (s *Store) Create(ctx context.Context, d follow.Draft) (*follow.Relation, bool, error) {
	pair := follow.All(follow.ForFollower(d.Follower), follow.ForFollowable(d.Followable))

	existing, err := s.First(ctx, pair)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	model := newModel(d)
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model)
	if result.Error != nil && !isUniqueViolation(result.Error) {
		return nil, false, fmt.Errorf("insert follow: %w", result.Error)
	}
	if result.Error == nil && result.RowsAffected > 0 {
		rel := model.toDomain()
		return &rel, true, nil
	}

	// Lost the race against a concurrent insert of the same pair.
	existing, err = s.First(ctx, pair)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("insert follow %s -> %s: conflicting row vanished", d.Follower, d.Followable)
	}
	return existing, false, nil
}

// Delete removes the relation with the given id. Deleting a missing row is
// not an error.
func (s *Store) Delete(ctx context.Context, id uint64) error {
	err := s.db.WithContext(ctx).Delete(&FollowModel{}, id).Error
	if err != nil {
		return fmt.Errorf("delete follow: %w", err)
	}
	return nil
}

// UpdateFlag sets a single flag column on the relation with the given id.
func (s *Store) UpdateFlag(ctx context.Context, id uint64, flag follow.Flag, value bool) error {
	col, ok := flagColumns[flag]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFlag, flag)
	}
	err := s.db.WithContext(ctx).
		Model(&FollowModel{}).
		Where("id = ?", id).
		Update(col, value).Error
	if err != nil {
		return fmt.Errorf("update follow %s: %w", col, err)
	}
	return nil
}

// Find returns the relations matching p, oldest first.
func (s *Store) Find(ctx context.Context, p follow.Predicate, opts follow.ListOptions) ([]follow.Relation, error) {
	q := s.scoped(ctx, p).Order("created_at ASC").Order("id ASC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}

	var models []FollowModel
	if err := q.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("find follows: %w", err)
	}

	rels := make([]follow.Relation, 0, len(models))
	for _, m := range models {
		rels = append(rels, m.toDomain())
	}
	return rels, nil
}

// First returns the oldest relation matching p, or nil.
func (s *Store) First(ctx context.Context, p follow.Predicate) (*follow.Relation, error) {
	var models []FollowModel
	err := s.scoped(ctx, p).Order("created_at ASC").Order("id ASC").Limit(1).Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("find follow: %w", err)
	}
	if len(models) == 0 {
		return nil, nil
	}
	rel := models[0].toDomain()
	return &rel, nil
}

// Count returns the number of relations matching p.
func (s *Store) Count(ctx context.Context, p follow.Predicate) (int64, error) {
	var count int64
	if err := s.scoped(ctx, p).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count follows: %w", err)
	}
	return count, nil
}

// Exists reports whether any relation matches p.
func (s *Store) Exists(ctx context.Context, p follow.Predicate) (bool, error) {
	var ids []uint64
	if err := s.scoped(ctx, p).Limit(1).Pluck("id", &ids).Error; err != nil {
		return false, fmt.Errorf("check follow: %w", err)
	}
	return len(ids) > 0, nil
}

// DeleteInvolving removes every relation where ref is follower or followable.
func (s *Store) DeleteInvolving(ctx context.Context, ref follow.EntityRef) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("(follower_type = ? AND follower_id = ?) OR (followable_type = ? AND followable_id = ?)",
			string(ref.Type), ref.ID, string(ref.Type), ref.ID).
		Delete(&FollowModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete follows of %s: %w", ref, result.Error)
	}
	return result.RowsAffected, nil
}

func (s *Store) scoped(ctx context.Context, p follow.Predicate) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&FollowModel{})
	for _, c := range p.Conditions() {
		q = q.Where(clause.Eq{Column: clause.Column{Name: columns[c.Field]}, Value: c.Value})
	}
	return q
}

// Ensure interface is satisfied at compile time.
var _ follow.Store = (*Store)(nil)
