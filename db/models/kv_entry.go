package models

type KVEntry struct {
	Key       string `gorm:"column:key;type:text;primaryKey"`
	Value     string `gorm:"column:value;type:text;not null"`
	UpdatedAt int64  `gorm:"column:updated_at;not null"`
}

func (KVEntry) TableName() string { return "kv_entries" }
