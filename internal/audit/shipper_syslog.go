//go:build !windows

package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/syslog"
	"sync"
)

// SyslogShipper writes entries to syslog at LOG_AUTH.NOTICE, where most
// SIEM collectors already pick up authentication events.
type SyslogShipper struct {
	writer *syslog.Writer
	mu     sync.Mutex
}

func newSyslogShipper(cfg *SyslogConfig) (Shipper, error) {
	tag := cfg.Tag
	if tag == "" {
		tag = "orb-audit"
	}

	writer, err := syslog.Dial(cfg.Network, cfg.Address, syslog.LOG_NOTICE|syslog.LOG_AUTH, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to dial syslog: %w", err)
	}

	return &SyslogShipper{writer: writer}, nil
}

// Ship writes the entry as one JSON record.
func (ss *SyslogShipper) Ship(ctx context.Context, entry *LogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.writer.Notice(string(data))
}

// Close closes the syslog connection.
func (ss *SyslogShipper) Close() error {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.writer.Close()
}
