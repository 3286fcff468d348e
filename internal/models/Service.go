// internal/models/service.go
package models

import (
	"database/sql/driver"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// TextList is stored as a Postgres text[] column (array literal text elsewhere).
type TextList []string

func (l TextList) Value() (driver.Value, error) {
	return pq.StringArray(l).Value()
}

func (l *TextList) Scan(src interface{}) error {
	var arr pq.StringArray
	if err := arr.Scan(src); err != nil {
		return err
	}
	*l = TextList(arr)
	return nil
}

func (TextList) GormDataType() string {
	return "text_list"
}

func (TextList) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

// Service is a clinic or department offered in one of the sites.
type Service struct {
	gorm.Model

	Name        string   `json:"name" gorm:"not null" validate:"required"`
	Specialties TextList `json:"specialties" validate:"min=1,dive,required"`
	Floor       TextList `json:"floor,omitempty" validate:"omitempty,min=1,dive,required"`
	Suite       TextList `json:"suite,omitempty" validate:"omitempty,min=1,dive,required"`
	Phone       string   `json:"phone"`
	Hours       string   `json:"hours"`

	BuildingID *uint `json:"building_id" gorm:"index"`
	Building   *Site `json:"building,omitempty" gorm:"foreignKey:BuildingID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
}
