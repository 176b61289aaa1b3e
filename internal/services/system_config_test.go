package services

import (
	"testing"
)

func TestLDAPConfigResponse_Defaults(t *testing.T) {
	cfg := &LDAPConfigResponse{
		Enabled:     false,
		Host:        "",
		Port:        389,
		BaseDN:      "",
		BindDN:      "",
		UserFilter:  "(uid=%s)",
		UseSSL:      false,
		PasswordSet: false,
	}

	if cfg.Enabled {
		t.Error("Enabled should be false by default")
	}
	if cfg.Host != "" {
		t.Errorf("Host should be empty, got %s", cfg.Host)
	}
	if cfg.Port != 389 {
		t.Errorf("default port should be 389, got %d", cfg.Port)
	}
	if cfg.BaseDN != "" {
		t.Errorf("BaseDN should be empty, got %s", cfg.BaseDN)
	}
	if cfg.BindDN != "" {
		t.Errorf("BindDN should be empty, got %s", cfg.BindDN)
	}
	if cfg.UserFilter != "(uid=%s)" {
		t.Errorf("default UserFilter should be (uid=%%s), got %s", cfg.UserFilter)
	}
	if cfg.UseSSL {
		t.Error("UseSSL should be false by default")
	}
	if cfg.PasswordSet {
		t.Error("PasswordSet should be false by default")
	}
}

func TestDigestConfigResponse_Structure(t *testing.T) {
	cfg := &DigestConfigResponse{
		Enabled:      true,
		Time:         "09:00",
		CountryCode:  "CN",
		SkipHolidays: true,
	}

	if !cfg.Enabled {
		t.Error("Enabled should be true")
	}
	if cfg.Time != "09:00" {
		t.Errorf("Time = %q, expected %q", cfg.Time, "09:00")
	}
	if cfg.CountryCode != "CN" {
		t.Errorf("CountryCode = %q, expected %q", cfg.CountryCode, "CN")
	}
	if !cfg.SkipHolidays {
		t.Error("SkipHolidays should be true")
	}
}

func TestRetentionConfigResponse_Structure(t *testing.T) {
	cfg := &RetentionConfigResponse{
		LogRetentionDays:      30,
		ReportRetentionDays:   90,
		EvidenceRetentionDays: 90,
	}

	if cfg.LogRetentionDays != 30 {
		t.Errorf("LogRetentionDays = %d, expected 30", cfg.LogRetentionDays)
	}
	if cfg.ReportRetentionDays != 90 {
		t.Errorf("ReportRetentionDays = %d, expected 90", cfg.ReportRetentionDays)
	}
	if cfg.EvidenceRetentionDays != 90 {
		t.Errorf("EvidenceRetentionDays = %d, expected 90", cfg.EvidenceRetentionDays)
	}
}

func TestEmailConfigResponse_Structure(t *testing.T) {
	cfg := &EmailConfigResponse{
		Enabled:     true,
		Host:        "smtp.example.com",
		Port:        587,
		Username:    "bot@example.com",
		From:        "AdSentry <bot@example.com>",
		UseTLS:      false,
		Recipients:  []string{"a@example.com", "b@example.com"},
		PasswordSet: true,
	}

	if !cfg.Enabled {
		t.Error("Enabled should be true")
	}
	if cfg.Host != "smtp.example.com" {
		t.Errorf("Host = %q", cfg.Host)
	}
	if cfg.Port != 587 {
		t.Errorf("Port = %d, expected 587", cfg.Port)
	}
	if len(cfg.Recipients) != 2 {
		t.Errorf("Recipients should have 2 items, got %d", len(cfg.Recipients))
	}
	if !cfg.PasswordSet {
		t.Error("PasswordSet should be true")
	}
}

func TestUpdateLDAPConfigRequest_PartialUpdate(t *testing.T) {
	enabled := true
	host := "ldap.example.com"
	port := 636

	req := &UpdateLDAPConfigRequest{
		Enabled: &enabled,
		Host:    &host,
		Port:    &port,
	}

	if req.Enabled == nil || *req.Enabled != true {
		t.Error("Enabled should be set to true")
	}
	if req.Host == nil || *req.Host != "ldap.example.com" {
		t.Error("Host should be set")
	}
	if req.Port == nil || *req.Port != 636 {
		t.Error("Port should be set to 636")
	}
	if req.BaseDN != nil {
		t.Error("BaseDN should be nil (not set)")
	}
	if req.BindPassword != nil {
		t.Error("BindPassword should be nil (not set)")
	}
}

func TestUpdateDigestConfigRequest_PartialUpdate(t *testing.T) {
	enabled := false
	country := "US"

	req := &UpdateDigestConfigRequest{
		Enabled:     &enabled,
		CountryCode: &country,
	}

	if req.Enabled == nil || *req.Enabled != false {
		t.Error("Enabled should be set to false")
	}
	if req.CountryCode == nil || *req.CountryCode != "US" {
		t.Error("CountryCode should be set to US")
	}
	if req.Time != nil {
		t.Error("Time should be nil (not set)")
	}
	if req.SkipHolidays != nil {
		t.Error("SkipHolidays should be nil (not set)")
	}
}

func TestUpdateRetentionConfigRequest_PartialUpdate(t *testing.T) {
	logDays := 14
	evidenceDays := 30

	req := &UpdateRetentionConfigRequest{
		LogRetentionDays:      &logDays,
		EvidenceRetentionDays: &evidenceDays,
	}

	if req.LogRetentionDays == nil || *req.LogRetentionDays != 14 {
		t.Error("LogRetentionDays should be set to 14")
	}
	if req.EvidenceRetentionDays == nil || *req.EvidenceRetentionDays != 30 {
		t.Error("EvidenceRetentionDays should be set to 30")
	}
	if req.ReportRetentionDays != nil {
		t.Error("ReportRetentionDays should be nil (not set)")
	}
}

func TestUpdateEmailConfigRequest_PartialUpdate(t *testing.T) {
	enabled := true
	host := "smtp.example.com"
	recipients := []string{"ops@example.com"}

	req := &UpdateEmailConfigRequest{
		Enabled:    &enabled,
		Host:       &host,
		Recipients: &recipients,
	}

	if req.Enabled == nil || *req.Enabled != true {
		t.Error("Enabled should be set to true")
	}
	if req.Host == nil || *req.Host != "smtp.example.com" {
		t.Error("Host should be set")
	}
	if req.Recipients == nil || len(*req.Recipients) != 1 {
		t.Error("Recipients should have 1 item")
	}
	if req.Password != nil {
		t.Error("Password should be nil (not set)")
	}
	if req.UseTLS != nil {
		t.Error("UseTLS should be nil (not set)")
	}
}
