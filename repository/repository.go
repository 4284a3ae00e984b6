package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned for any lookup that matched no row.
var ErrNotFound = errors.New("record not found")

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// updateByID writes every column of model to the row with its primary key.
// Unlike Save it never inserts, so a row removed meanwhile stays removed.
func updateByID(db *gorm.DB, model any) error {
	res := db.Model(model).Select("*").Omit(clause.Associations).Updates(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
