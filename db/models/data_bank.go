package models

type DataBank struct {
	ID           string  `gorm:"column:id;type:text;primaryKey"`
	Name         string  `gorm:"column:name;type:text;not null"`
	Description  string  `gorm:"column:description;type:text"`
	Entries      *string `gorm:"column:entries;type:text"`
	CreatedAt    int64   `gorm:"column:created_at;not null"`
	LastModified int64   `gorm:"column:last_modified;not null"`
}

func (DataBank) TableName() string { return "data_banks" }
