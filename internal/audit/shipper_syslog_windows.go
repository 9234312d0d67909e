//go:build windows

package audit

import "errors"

// log/syslog does not exist on Windows; a syslog destination in the config
// is a deployment mistake there, not something to skip silently.
func newSyslogShipper(cfg *SyslogConfig) (Shipper, error) {
	return nil, errors.New("syslog shipper is not supported on windows")
}
