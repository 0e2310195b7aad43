package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Row is one data record of a sheet, keyed by header label. Headers are
// mutable at runtime, so rows carry no fixed schema.
type Row = map[string]string

type ExcelFile struct {
	gorm.Model
	OwnerID uint `gorm:"index;not null"`
	Owner   User

	Name    string                      `gorm:"size:255;not null"`
	Headers datatypes.JSONSlice[string] `gorm:"not null"`
	Rows    datatypes.JSONSlice[Row]    `gorm:"not null"`
}
