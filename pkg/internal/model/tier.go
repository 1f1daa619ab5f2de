package model

// StorageTier 存储等级，storage_limit_mb 为该等级用户的总容量上限.
type StorageTier struct {
	ID             uint    `gorm:"primaryKey" json:"-"`
	TierLevel      int     `gorm:"uniqueIndex;not null" json:"tier_level"`
	Name           string  `gorm:"size:64;not null" json:"name"`
	StorageLimitMB float64 `gorm:"column:storage_limit_mb;not null" json:"storage_limit_mb"`
}

// TableName 指定表名.
func (StorageTier) TableName() string {
	return "storage_tiers"
}

// DefaultTiers 迁移时写入的默认等级.
func DefaultTiers() []StorageTier {
	return []StorageTier{
		{TierLevel: 0, Name: "free", StorageLimitMB: 500},
	}
}
