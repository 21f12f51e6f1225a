package model

import "gorm.io/gorm"

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&PidVersion{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&Pid{}); err != nil {
		return err
	}

	return db.AutoMigrate(&Document{})
}
