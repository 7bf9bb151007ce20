package gormstore

import (
	"time"

	"github.com/weiawesome/follow-graph/pkg/follow"
)

// FollowModel is the GORM model for the follows table. At most one row exists
// per ordered (follower, followable) pair.
type FollowModel struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement"`
	FollowerType   string    `gorm:"column:follower_type;type:varchar(64);not null;uniqueIndex:uidx_follow_pair,priority:1;index:idx_follows_follower,priority:1"`
	FollowerID     string    `gorm:"column:follower_id;type:varchar(64);not null;uniqueIndex:uidx_follow_pair,priority:2;index:idx_follows_follower,priority:2"`
	FollowableType string    `gorm:"column:followable_type;type:varchar(64);not null;uniqueIndex:uidx_follow_pair,priority:3;index:idx_follows_followable,priority:1"`
	FollowableID   string    `gorm:"column:followable_id;type:varchar(64);not null;uniqueIndex:uidx_follow_pair,priority:4;index:idx_follows_followable,priority:2"`
	Blocked        bool      `gorm:"column:blocked;not null"`
	Unconfirmed    bool      `gorm:"column:unconfirmed;not null"`
	HasRights      bool      `gorm:"column:has_rights;not null"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (FollowModel) TableName() string { return "follows" }

func newModel(d follow.Draft) FollowModel {
	return FollowModel{
		FollowerType:   string(d.Follower.Type),
		FollowerID:     d.Follower.ID,
		FollowableType: string(d.Followable.Type),
		FollowableID:   d.Followable.ID,
		Blocked:        d.Blocked,
		Unconfirmed:    d.Unconfirmed,
	}
}

func (m FollowModel) toDomain() follow.Relation {
	return follow.Relation{
		ID:          m.ID,
		Follower:    follow.Ref(follow.TypeTag(m.FollowerType), m.FollowerID),
		Followable:  follow.Ref(follow.TypeTag(m.FollowableType), m.FollowableID),
		Blocked:     m.Blocked,
		Unconfirmed: m.Unconfirmed,
		HasRights:   m.HasRights,
		CreatedAt:   m.CreatedAt,
	}
}

var columns = map[follow.Field]string{
	follow.FieldBlocked:        "blocked",
	follow.FieldUnconfirmed:    "unconfirmed",
	follow.FieldHasRights:      "has_rights",
	follow.FieldFollowerType:   "follower_type",
	follow.FieldFollowerID:     "follower_id",
	follow.FieldFollowableType: "followable_type",
	follow.FieldFollowableID:   "followable_id",
}

var flagColumns = map[follow.Flag]string{
	follow.FlagBlocked:     "blocked",
	follow.FlagUnconfirmed: "unconfirmed",
	follow.FlagHasRights:   "has_rights",
}
