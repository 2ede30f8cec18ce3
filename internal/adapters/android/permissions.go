package android

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

const permissionWriteSecureSettings = "android.permission.WRITE_SECURE_SETTINGS"

// Linux uids that hold WRITE_SECURE_SETTINGS on stock builds.
const (
	uidRoot   = 0
	uidSystem = 1000
	uidShell  = 2000
)

// PermissionChecker answers permission and power-management queries by
// reading package manager, appops and deviceidle state.
type PermissionChecker struct {
	runner      CommandRunner
	packageName string
	uid         func() int
	logger      *slog.Logger
}

// NewPermissionChecker creates permission adapter. With an empty packageName
// the checks apply to this process instead of an installed app.
func NewPermissionChecker(runner CommandRunner, packageName string, logger *slog.Logger) *PermissionChecker {
	return &PermissionChecker{
		runner:      runner,
		packageName: strings.TrimSpace(packageName),
		uid:         os.Getuid,
		logger:      logger,
	}
}

// HasElevatedPermission reports whether WRITE_SECURE_SETTINGS is held.
func (c *PermissionChecker) HasElevatedPermission(ctx context.Context) bool {
	if c.packageName == "" {
		switch c.uid() {
		case uidRoot, uidSystem, uidShell:
			return true
		default:
			return false
		}
	}
	out, ok := output(ctx, c.runner, queryTimeout, "dumpsys", "package", c.packageName)
	if !ok {
		c.debug("package permission query failed", "package", c.packageName)
		return false
	}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, permissionWriteSecureSettings+":") {
			return strings.Contains(line, "granted=true")
		}
	}
	return false
}

// HasExactSchedulingPermission reports whether exact alarms are allowed.
// The daemon keeps its own timers, so without a package this is always true.
func (c *PermissionChecker) HasExactSchedulingPermission(ctx context.Context) bool {
	if c.packageName == "" {
		return true
	}
	out, ok := output(ctx, c.runner, queryTimeout, "cmd", "appops", "get", c.packageName, "SCHEDULE_EXACT_ALARM")
	if !ok {
		c.debug("appops query failed", "package", c.packageName)
		return false
	}
	text := strings.ToLower(out)
	if strings.Contains(text, "no operations") {
		// Releases before exact alarm gating report nothing.
		return true
	}
	return strings.Contains(text, "allow")
}

// HasBatteryOptimizationExemption reports whether the package is on the
// deviceidle whitelist.
func (c *PermissionChecker) HasBatteryOptimizationExemption(ctx context.Context) bool {
	if c.packageName == "" {
		return false
	}
	out, ok := output(ctx, c.runner, queryTimeout, "dumpsys", "deviceidle", "whitelist")
	if !ok {
		c.debug("deviceidle query failed", "package", c.packageName)
		return false
	}
	for _, line := range strings.Split(out, "\n") {
		// Lines look like "user,com.example.app,10123".
		parts := strings.Split(strings.TrimSpace(line), ",")
		if len(parts) >= 2 && parts[1] == c.packageName {
			return true
		}
	}
	return false
}

func (c *PermissionChecker) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
