package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Site 执勤站点表，对应 sites
type Site struct {
	SiteID   string `gorm:"type:uuid;primaryKey"        json:"site_id"`
	Name     string `gorm:"type:varchar(100);not null"  json:"name"`
	Address  string `gorm:"type:varchar(200)"           json:"address,omitempty"`
	IsActive bool   `gorm:"not null;default:true"       json:"is_active"`
	SoftDeleteModel
}

// TableName 指定表名
func (Site) TableName() string { return "sites" }

// BeforeCreate 补齐主键
func (s *Site) BeforeCreate(_ *gorm.DB) error {
	if s.SiteID == "" {
		s.SiteID = uuid.NewString()
	}
	return nil
}
