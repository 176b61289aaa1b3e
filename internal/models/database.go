package models

import (
	"fmt"

	"github.com/huangang/adsentry/internal/config"
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
		&RefreshToken{},
		&VideoAsset{},
		&ReviewRun{},
		&ReviewIssue{},
		&AIUsageLog{},
		&DailyDigest{},
		&IMBot{},
		&SystemConfig{},
		&SystemLog{},
		&SchedulerLock{},
	)
}

func GetDB() *gorm.DB {
	return DB
}

// SeedDefaultData creates default data if not exists
func SeedDefaultData() error {
	defaultConfigs := []SystemConfig{
		{Key: "digest_enabled", Value: "false", Type: "bool", Group: "digest", Label: "Enable Daily Digest"},
		{Key: "digest_time", Value: "09:00", Type: "string", Group: "digest", Label: "Daily Digest Time (HH:MM)"},
		{Key: "digest_country_code", Value: "NONE", Type: "string", Group: "digest", Label: "Holiday Country for Digest Skip"},
		{Key: "digest_skip_holidays", Value: "true", Type: "bool", Group: "digest", Label: "Skip Digest on Holidays"},
		{Key: "log_retention_days", Value: "30", Type: "int", Group: "retention", Label: "System Log Retention Days"},
		{Key: "report_retention_days", Value: "90", Type: "int", Group: "retention", Label: "Report Artifact Retention Days"},
		{Key: "evidence_retention_days", Value: "90", Type: "int", Group: "retention", Label: "Evidence Screenshot Retention Days"},
		{Key: "email_enabled", Value: "false", Type: "bool", Group: "email", Label: "Enable Email Notifications"},
		{Key: "email_host", Value: "", Type: "string", Group: "email", Label: "SMTP Host"},
		{Key: "email_port", Value: "587", Type: "int", Group: "email", Label: "SMTP Port"},
		{Key: "email_username", Value: "", Type: "string", Group: "email", Label: "SMTP Username"},
		{Key: "email_password", Value: "", Type: "string", Group: "email", Label: "SMTP Password"},
		{Key: "email_from", Value: "", Type: "string", Group: "email", Label: "Sender Address"},
		{Key: "email_use_tls", Value: "false", Type: "bool", Group: "email", Label: "Use Implicit TLS (port 465)"},
		{Key: "email_recipients", Value: "", Type: "string", Group: "email", Label: "Notification Recipients (comma separated)"},
		{Key: "ldap_enabled", Value: "false", Type: "bool", Group: "ldap", Label: "Enable LDAP Authentication"},
		{Key: "ldap_host", Value: "", Type: "string", Group: "ldap", Label: "LDAP Host"},
		{Key: "ldap_port", Value: "389", Type: "int", Group: "ldap", Label: "LDAP Port"},
		{Key: "ldap_base_dn", Value: "", Type: "string", Group: "ldap", Label: "Base DN"},
		{Key: "ldap_bind_dn", Value: "", Type: "string", Group: "ldap", Label: "Bind DN"},
		{Key: "ldap_bind_password", Value: "", Type: "string", Group: "ldap", Label: "Bind Password"},
		{Key: "ldap_user_filter", Value: "(uid=%s)", Type: "string", Group: "ldap", Label: "User Search Filter"},
		{Key: "ldap_use_ssl", Value: "false", Type: "bool", Group: "ldap", Label: "Use LDAPS"},
	}

	for _, cfg := range defaultConfigs {
		var count int64
		DB.Model(&SystemConfig{}).Where("`key` = ?", cfg.Key).Count(&count)
		if count == 0 {
			if err := DB.Create(&cfg).Error; err != nil {
				return err
			}
		}
	}

	return nil
}
