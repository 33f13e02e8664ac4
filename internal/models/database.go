package models

import (
	"fmt"

	"github.com/raterly/backend/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func InitDB(cfg *config.DatabaseConfig) error {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}

	DB = db
	return nil
}

func AutoMigrate() error {
	return DB.AutoMigrate(
		&User{},
		&GuestUser{},
		&Business{},
		&Branch{},
		&Survey{},
		&Question{},
		&Star{},
		&Tag{},
		&Review{},
		&Answer{},
		&DailyDigest{},
	)
}

func GetDB() *gorm.DB {
	return DB
}

// SeedDefaultData creates the default star scale, overall questions and tags
// if they do not exist yet.
func SeedDefaultData() error {
	var starCount int64
	DB.Model(&Star{}).Where("is_default = ?", true).Count(&starCount)
	if starCount == 0 {
		for v := 1; v <= 5; v++ {
			star := Star{Value: v, IsDefault: true}
			if err := DB.Create(&star).Error; err != nil {
				return err
			}
		}
	}

	var questionCount int64
	DB.Model(&Question{}).Where("is_default = ?", true).Count(&questionCount)
	if questionCount == 0 {
		defaults := []Question{
			{Text: "How was your overall experience?", IsOverall: true, IsDefault: true},
			{Text: "How would you rate the service?", IsOverall: true, IsDefault: true},
			{Text: "How likely are you to recommend us?", IsOverall: true, IsDefault: true},
		}
		for _, q := range defaults {
			q.IsActive = true
			q.ShowToGuest = true
			q.ShowToUser = true
			if err := DB.Create(&q).Error; err != nil {
				return err
			}
		}
	}

	var tagCount int64
	DB.Model(&Tag{}).Where("is_default = ?", true).Count(&tagCount)
	if tagCount == 0 {
		var lowStar, highStar Star
		if err := DB.Where("is_default = ? AND value = ?", true, 1).First(&lowStar).Error; err != nil {
			return err
		}
		if err := DB.Where("is_default = ? AND value = ?", true, 5).First(&highStar).Error; err != nil {
			return err
		}
		var firstQuestion Question
		if err := DB.Where("is_default = ?", true).Order("id ASC").First(&firstQuestion).Error; err != nil {
			return err
		}

		defaults := []Tag{
			{Name: "Slow service", QuestionID: firstQuestion.ID, StarID: lowStar.ID},
			{Name: "Rude staff", QuestionID: firstQuestion.ID, StarID: lowStar.ID},
			{Name: "Friendly staff", QuestionID: firstQuestion.ID, StarID: highStar.ID},
			{Name: "Great value", QuestionID: firstQuestion.ID, StarID: highStar.ID},
		}
		for _, t := range defaults {
			t.IsDefault = true
			t.IsActive = true
			if err := DB.Create(&t).Error; err != nil {
				return err
			}
		}
	}

	return nil
}
