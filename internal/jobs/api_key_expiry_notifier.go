// api_key_expiry_notifier.go implements the APIKeyExpiryNotifier background job, which
// periodically scans for ROTATING API keys approaching the end of their grace window
// and sends a warning email to the owning organization's contact address. Notification
// state is persisted in the database (expiry_notified_at column) so emails are sent
// exactly once even across server restarts. The job is a no-op when
// notifications.enabled is false or when the SMTP host is not configured, so it is
// always safe to start regardless of deployment environment.
package jobs

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/oneredboot/orb-integration-hub/internal/config"
	"github.com/oneredboot/orb-integration-hub/internal/db/models"
	"github.com/oneredboot/orb-integration-hub/internal/db/repositories"
	"github.com/oneredboot/orb-integration-hub/internal/telemetry"
)

// APIKeyExpiryNotifier periodically emails organization contacts whose rotating
// API keys are about to stop working.
type APIKeyExpiryNotifier struct {
	apiKeyRepo *repositories.APIKeyRepository
	orgRepo    *repositories.OrganizationRepository
	appRepo    *repositories.ApplicationRepository
	cfg        *config.NotificationsConfig
	interval   time.Duration
	stopChan   chan struct{}
}

// NewAPIKeyExpiryNotifier creates a new APIKeyExpiryNotifier.
// The check interval comes from cfg.KeyExpiryCheckIntervalHours (default 24h).
func NewAPIKeyExpiryNotifier(
	apiKeyRepo *repositories.APIKeyRepository,
	orgRepo *repositories.OrganizationRepository,
	appRepo *repositories.ApplicationRepository,
	cfg *config.NotificationsConfig,
) *APIKeyExpiryNotifier {
	hours := cfg.KeyExpiryCheckIntervalHours
	if hours <= 0 {
		hours = 24
	}
	return &APIKeyExpiryNotifier{
		apiKeyRepo: apiKeyRepo,
		orgRepo:    orgRepo,
		appRepo:    appRepo,
		cfg:        cfg,
		interval:   time.Duration(hours) * time.Hour,
		stopChan:   make(chan struct{}),
	}
}

// Start begins the background expiry-notification loop.
// It runs an initial check immediately, then repeats on the configured interval.
// The loop exits when ctx is cancelled or Stop() is called.
func (n *APIKeyExpiryNotifier) Start(ctx context.Context) {
	if !n.cfg.Enabled {
		log.Println("API key expiry notifier: disabled (notifications.enabled=false)")
		return
	}
	if n.cfg.SMTP.Host == "" {
		log.Println("API key expiry notifier: disabled (notifications.smtp.host not set)")
		return
	}

	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	log.Printf("API key expiry notifier started (check interval: %v, warning window: %d days)",
		n.interval, n.cfg.KeyExpiryWarningDays)

	// Run once immediately on startup
	n.runCheck(ctx)

	for {
		select {
		case <-ticker.C:
			n.runCheck(ctx)
		case <-n.stopChan:
			log.Println("API key expiry notifier stopped")
			return
		case <-ctx.Done():
			log.Println("API key expiry notifier context cancelled")
			return
		}
	}
}

// Stop signals the background loop to exit.
func (n *APIKeyExpiryNotifier) Stop() {
	close(n.stopChan)
}

// runCheck queries for rotating keys near their grace deadline and sends warning emails.
func (n *APIKeyExpiryNotifier) runCheck(ctx context.Context) {
	warningDays := n.cfg.KeyExpiryWarningDays
	if warningDays <= 0 {
		warningDays = 3
	}

	keys, err := n.apiKeyRepo.FindExpiringRotating(ctx, warningDays)
	if err != nil {
		log.Printf("API key expiry notifier: failed to query expiring keys: %v", err)
		return
	}

	if len(keys) == 0 {
		return
	}

	log.Printf("API key expiry notifier: found %d rotating key(s) approaching expiry", len(keys))

	for _, key := range keys {
		org, err := n.orgRepo.GetByID(ctx, key.OrganizationID)
		if err != nil {
			log.Printf("API key expiry notifier: could not retrieve organization %s for key %s: %v",
				key.OrganizationID, key.ID, err)
			continue
		}
		if org == nil || org.ContactEmail == "" {
			continue
		}

		appName := key.ApplicationID
		if app, err := n.appRepo.GetByID(ctx, key.ApplicationID); err == nil && app != nil {
			appName = app.Name
		}

		if err := n.sendExpiryEmail(org.ContactEmail, org.DisplayName, appName, key, *key.ExpiresAt); err != nil {
			log.Printf("API key expiry notifier: failed to send email to %s: %v", org.ContactEmail, err)
			continue
		}

		if err := n.apiKeyRepo.MarkExpiryNotificationSent(ctx, key.ID); err != nil {
			log.Printf("API key expiry notifier: failed to mark notification sent for key %s: %v", key.ID, err)
			continue
		}
		telemetry.APIKeyExpiryNotificationsSentTotal.Inc()
	}
}

// sendExpiryEmail composes and delivers a plain-text warning email via SMTP.
func (n *APIKeyExpiryNotifier) sendExpiryEmail(toEmail, orgName, appName string, key *models.APIKey, expiresAt time.Time) error {
	daysLeft := int(time.Until(expiresAt).Hours()/24) + 1
	if daysLeft < 0 {
		daysLeft = 0
	}

	subject := fmt.Sprintf("Action Required: %s %s API key stops working in %d day(s)",
		appName, key.Environment.Label(), daysLeft)
	body := strings.Join([]string{
		fmt.Sprintf("Hello %s,", orgName),
		"",
		fmt.Sprintf("The previous %s API key for application '%s' (%s) was rotated and its grace period ends on %s (%d day(s) from now).",
			key.Environment.Label(), appName, key.KeyPrefix, expiresAt.UTC().Format(time.RFC1123), daysLeft),
		"",
		"Integrations still sending the old key will start receiving 401 responses after that date.",
		"To avoid service disruption:",
		"  1. Log in to the Orb Integration Hub console.",
		"  2. Open the application's Security tab and copy the replacement key.",
		"  3. Update your integration's credentials before the grace period ends.",
		"",
		"If all integrations already use the new key, no action is required.",
		"",
		"— Orb Integration Hub",
	}, "\r\n")

	smtpCfg := &n.cfg.SMTP
	headers := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n",
		smtpCfg.From, toEmail, subject,
	)
	msg := []byte(headers + body + "\r\n")

	addr := fmt.Sprintf("%s:%d", smtpCfg.Host, smtpCfg.Port)
	auth := smtp.PlainAuth("", smtpCfg.Username, smtpCfg.Password, smtpCfg.Host)

	if smtpCfg.UseTLS {
		return sendMailTLS(addr, smtpCfg.Host, auth, smtpCfg.From, []string{toEmail}, msg)
	}
	return smtp.SendMail(addr, auth, smtpCfg.From, []string{toEmail}, msg)
}

// sendMailTLS connects via implicit TLS (port 465 / SMTPS) and sends a message.
// Use this when UseTLS=true and the port is 465; for port 587 STARTTLS,
// smtp.SendMail handles the upgrade automatically — but we call this path for
// both so the config is unambiguous: UseTLS=true always means an encrypted connection.
func sendMailTLS(addr, host string, auth smtp.Auth, from string, to []string, msg []byte) error {
	tlsConfig := &tls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
	}

	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		// Fall back to STARTTLS via the standard smtp.SendMail path (port 587 pattern)
		return smtp.SendMail(addr, auth, from, to, msg)
	}
	defer conn.Close()

	hostname, _, _ := net.SplitHostPort(addr)
	c, err := smtp.NewClient(conn, hostname)
	if err != nil {
		return fmt.Errorf("smtp new client: %w", err)
	}
	defer c.Quit() //nolint:errcheck

	if auth != nil {
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(from); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	for _, addr := range to {
		if err := c.Rcpt(addr); err != nil {
			return fmt.Errorf("smtp RCPT TO %s: %w", addr, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	return w.Close()
}
