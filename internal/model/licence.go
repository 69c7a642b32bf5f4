package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Licence 上岗证表，对应 licences
type Licence struct {
	LicenceID     string    `gorm:"type:uuid;primaryKey"        json:"licence_id"`
	GuardID       string    `gorm:"type:uuid;not null;index"    json:"guard_id"`
	LicenceType   string    `gorm:"type:varchar(50);not null"   json:"licence_type"`
	LicenceNumber string    `gorm:"type:varchar(50);not null"   json:"licence_number"`
	ExpiryDate    time.Time `gorm:"type:date;not null;index"    json:"expiry_date"`
	SoftDeleteModel

	Guard *User `gorm:"foreignKey:GuardID;references:UserID" json:"guard,omitempty"`
}

// TableName 指定表名
func (Licence) TableName() string { return "licences" }

// BeforeCreate 补齐主键
func (l *Licence) BeforeCreate(_ *gorm.DB) error {
	if l.LicenceID == "" {
		l.LicenceID = uuid.NewString()
	}
	return nil
}
