package models

type MemoryItem struct {
	ID           string   `gorm:"column:id;type:text;primaryKey"`
	TenantID     *string  `gorm:"column:tenant_id;type:text"`
	PersonaID    *string  `gorm:"column:persona_id;type:text"`
	ProjectID    *string  `gorm:"column:project_id;type:text"`
	ContactID    *string  `gorm:"column:contact_id;type:text"`
	Type         string   `gorm:"column:type;type:text"`
	Content      string   `gorm:"column:content;type:text;not null"`
	Metadata     *string  `gorm:"column:metadata;type:text"`
	Lineage      *string  `gorm:"column:lineage;type:text"`
	Importance   float64  `gorm:"column:importance;default:1.0"`
	Pinned       bool     `gorm:"column:pinned;default:false"`
	TTLSeconds   *int64   `gorm:"column:ttl_seconds"`
	AccessCount  int64    `gorm:"column:access_count;default:0"`
	LastAccessed *int64   `gorm:"column:last_accessed"`
	CreatedAt    int64    `gorm:"column:created_at;not null"`
	UpdatedAt    int64    `gorm:"column:updated_at;not null"`
}

func (MemoryItem) TableName() string { return "memory_items" }
