package services

import (
	"strconv"
	"strings"

	"github.com/huangang/adsentry/internal/models"
	"gorm.io/gorm"
)

type SystemConfigService struct {
	db *gorm.DB
}

func NewSystemConfigService(db *gorm.DB) *SystemConfigService {
	return &SystemConfigService{db: db}
}

func (s *SystemConfigService) Get(key string) (string, error) {
	var cfg models.SystemConfig
	if err := s.db.Where("`key` = ?", key).First(&cfg).Error; err != nil {
		return "", err
	}
	return cfg.Value, nil
}

func (s *SystemConfigService) GetWithDefault(key, defaultValue string) string {
	value, err := s.Get(key)
	if err != nil {
		return defaultValue
	}
	return value
}

func (s *SystemConfigService) Set(key, value string) error {
	var cfg models.SystemConfig
	err := s.db.Where("`key` = ?", key).First(&cfg).Error
	if err == gorm.ErrRecordNotFound {
		cfg = models.SystemConfig{
			Key:   key,
			Value: value,
		}
		return s.db.Create(&cfg).Error
	}
	if err != nil {
		return err
	}
	return s.db.Model(&cfg).Update("value", value).Error
}

func (s *SystemConfigService) GetByGroup(group string) ([]models.SystemConfig, error) {
	var configs []models.SystemConfig
	if err := s.db.Where("`group` = ?", group).Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}

type DigestConfigResponse struct {
	Enabled      bool   `json:"enabled"`
	Time         string `json:"time"`
	CountryCode  string `json:"country_code"`
	SkipHolidays bool   `json:"skip_holidays"`
}

func (s *SystemConfigService) GetDigestConfig() *DigestConfigResponse {
	return &DigestConfigResponse{
		Enabled:      s.GetWithDefault("digest_enabled", "false") == "true",
		Time:         s.GetWithDefault("digest_time", "09:00"),
		CountryCode:  s.GetWithDefault("digest_country_code", "NONE"),
		SkipHolidays: s.GetWithDefault("digest_skip_holidays", "true") == "true",
	}
}

type UpdateDigestConfigRequest struct {
	Enabled      *bool   `json:"enabled"`
	Time         *string `json:"time"`
	CountryCode  *string `json:"country_code"`
	SkipHolidays *bool   `json:"skip_holidays"`
}

func (s *SystemConfigService) UpdateDigestConfig(req *UpdateDigestConfigRequest) error {
	if req.Enabled != nil {
		if err := s.Set("digest_enabled", strconv.FormatBool(*req.Enabled)); err != nil {
			return err
		}
	}
	if req.Time != nil {
		if err := s.Set("digest_time", *req.Time); err != nil {
			return err
		}
	}
	if req.CountryCode != nil {
		if err := s.Set("digest_country_code", *req.CountryCode); err != nil {
			return err
		}
	}
	if req.SkipHolidays != nil {
		if err := s.Set("digest_skip_holidays", strconv.FormatBool(*req.SkipHolidays)); err != nil {
			return err
		}
	}
	return nil
}

type RetentionConfigResponse struct {
	LogRetentionDays      int `json:"log_retention_days"`
	ReportRetentionDays   int `json:"report_retention_days"`
	EvidenceRetentionDays int `json:"evidence_retention_days"`
}

func (s *SystemConfigService) GetRetentionConfig() *RetentionConfigResponse {
	return &RetentionConfigResponse{
		LogRetentionDays:      s.GetIntWithDefault("log_retention_days", 30),
		ReportRetentionDays:   s.GetIntWithDefault("report_retention_days", 90),
		EvidenceRetentionDays: s.GetIntWithDefault("evidence_retention_days", 90),
	}
}

type UpdateRetentionConfigRequest struct {
	LogRetentionDays      *int `json:"log_retention_days" binding:"omitempty,min=1"`
	ReportRetentionDays   *int `json:"report_retention_days" binding:"omitempty,min=1"`
	EvidenceRetentionDays *int `json:"evidence_retention_days" binding:"omitempty,min=1"`
}

func (s *SystemConfigService) UpdateRetentionConfig(req *UpdateRetentionConfigRequest) error {
	if req.LogRetentionDays != nil {
		if err := s.Set("log_retention_days", strconv.Itoa(*req.LogRetentionDays)); err != nil {
			return err
		}
	}
	if req.ReportRetentionDays != nil {
		if err := s.Set("report_retention_days", strconv.Itoa(*req.ReportRetentionDays)); err != nil {
			return err
		}
	}
	if req.EvidenceRetentionDays != nil {
		if err := s.Set("evidence_retention_days", strconv.Itoa(*req.EvidenceRetentionDays)); err != nil {
			return err
		}
	}
	return nil
}

// GetIntWithDefault parses the stored value as an int, falling back when
// the key is missing or malformed.
func (s *SystemConfigService) GetIntWithDefault(key string, defaultValue int) int {
	value, err := s.Get(key)
	if err != nil {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return defaultValue
	}
	return parsed
}

type LDAPConfigResponse struct {
	Enabled     bool   `json:"enabled"`
	Host        string `json:"host"`
	Port        int    `json:"port"`
	BaseDN      string `json:"base_dn"`
	BindDN      string `json:"bind_dn"`
	UserFilter  string `json:"user_filter"`
	UseSSL      bool   `json:"use_ssl"`
	PasswordSet bool   `json:"password_set"`
}

func (s *SystemConfigService) GetLDAPConfig() *LDAPConfigResponse {
	port, _ := strconv.Atoi(s.GetWithDefault("ldap_port", "389"))
	return &LDAPConfigResponse{
		Enabled:     s.GetWithDefault("ldap_enabled", "false") == "true",
		Host:        s.GetWithDefault("ldap_host", ""),
		Port:        port,
		BaseDN:      s.GetWithDefault("ldap_base_dn", ""),
		BindDN:      s.GetWithDefault("ldap_bind_dn", ""),
		UserFilter:  s.GetWithDefault("ldap_user_filter", "(uid=%s)"),
		UseSSL:      s.GetWithDefault("ldap_use_ssl", "false") == "true",
		PasswordSet: s.GetWithDefault("ldap_bind_password", "") != "",
	}
}

type UpdateLDAPConfigRequest struct {
	Enabled      *bool   `json:"enabled"`
	Host         *string `json:"host"`
	Port         *int    `json:"port"`
	BaseDN       *string `json:"base_dn"`
	BindDN       *string `json:"bind_dn"`
	BindPassword *string `json:"bind_password"`
	UserFilter   *string `json:"user_filter"`
	UseSSL       *bool   `json:"use_ssl"`
}

func (s *SystemConfigService) UpdateLDAPConfig(req *UpdateLDAPConfigRequest) error {
	if req.Enabled != nil {
		if err := s.Set("ldap_enabled", strconv.FormatBool(*req.Enabled)); err != nil {
			return err
		}
	}
	if req.Host != nil {
		if err := s.Set("ldap_host", *req.Host); err != nil {
			return err
		}
	}
	if req.Port != nil {
		if err := s.Set("ldap_port", strconv.Itoa(*req.Port)); err != nil {
			return err
		}
	}
	if req.BaseDN != nil {
		if err := s.Set("ldap_base_dn", *req.BaseDN); err != nil {
			return err
		}
	}
	if req.BindDN != nil {
		if err := s.Set("ldap_bind_dn", *req.BindDN); err != nil {
			return err
		}
	}
	if req.BindPassword != nil && *req.BindPassword != "" {
		if err := s.Set("ldap_bind_password", *req.BindPassword); err != nil {
			return err
		}
	}
	if req.UserFilter != nil {
		if err := s.Set("ldap_user_filter", *req.UserFilter); err != nil {
			return err
		}
	}
	if req.UseSSL != nil {
		if err := s.Set("ldap_use_ssl", strconv.FormatBool(*req.UseSSL)); err != nil {
			return err
		}
	}
	return nil
}

type EmailConfigResponse struct {
	Enabled     bool     `json:"enabled"`
	Host        string   `json:"host"`
	Port        int      `json:"port"`
	Username    string   `json:"username"`
	From        string   `json:"from"`
	UseTLS      bool     `json:"use_tls"`
	Recipients  []string `json:"recipients"`
	PasswordSet bool     `json:"password_set"`
}

func (s *SystemConfigService) GetEmailConfig() *EmailConfigResponse {
	port, _ := strconv.Atoi(s.GetWithDefault("email_port", "587"))
	recipients := []string{}
	for _, addr := range strings.Split(s.GetWithDefault("email_recipients", ""), ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			recipients = append(recipients, addr)
		}
	}
	return &EmailConfigResponse{
		Enabled:     s.GetWithDefault("email_enabled", "false") == "true",
		Host:        s.GetWithDefault("email_host", ""),
		Port:        port,
		Username:    s.GetWithDefault("email_username", ""),
		From:        s.GetWithDefault("email_from", ""),
		UseTLS:      s.GetWithDefault("email_use_tls", "false") == "true",
		Recipients:  recipients,
		PasswordSet: s.GetWithDefault("email_password", "") != "",
	}
}

type UpdateEmailConfigRequest struct {
	Enabled    *bool     `json:"enabled"`
	Host       *string   `json:"host"`
	Port       *int      `json:"port"`
	Username   *string   `json:"username"`
	Password   *string   `json:"password"`
	From       *string   `json:"from"`
	UseTLS     *bool     `json:"use_tls"`
	Recipients *[]string `json:"recipients"`
}

func (s *SystemConfigService) UpdateEmailConfig(req *UpdateEmailConfigRequest) error {
	if req.Enabled != nil {
		if err := s.Set("email_enabled", strconv.FormatBool(*req.Enabled)); err != nil {
			return err
		}
	}
	if req.Host != nil {
		if err := s.Set("email_host", *req.Host); err != nil {
			return err
		}
	}
	if req.Port != nil {
		if err := s.Set("email_port", strconv.Itoa(*req.Port)); err != nil {
			return err
		}
	}
	if req.Username != nil {
		if err := s.Set("email_username", *req.Username); err != nil {
			return err
		}
	}
	if req.Password != nil && *req.Password != "" {
		if err := s.Set("email_password", *req.Password); err != nil {
			return err
		}
	}
	if req.From != nil {
		if err := s.Set("email_from", *req.From); err != nil {
			return err
		}
	}
	if req.UseTLS != nil {
		if err := s.Set("email_use_tls", strconv.FormatBool(*req.UseTLS)); err != nil {
			return err
		}
	}
	if req.Recipients != nil {
		if err := s.Set("email_recipients", strings.Join(*req.Recipients, ",")); err != nil {
			return err
		}
	}
	return nil
}
