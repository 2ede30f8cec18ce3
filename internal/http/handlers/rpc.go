package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/creachadair/jrpc2/jhttp"

	"github.com/micro-ha/airplane-scheduler/internal/domain/airplane"
)

const (
	codeInvalidParams  = jrpc2.Code(-32602)
	codeSettingsFailed = jrpc2.Code(-32010)
)

// ToggleParams is the input for toggleAirplaneMode.
type ToggleParams struct {
	Enable       *bool  `json:"enable"`
	ScheduleID   string `json:"scheduleId,omitempty"`
	ScheduleName string `json:"scheduleName,omitempty"`
}

// ProbeResult is the response for probeCapabilities.
type ProbeResult struct {
	Tiers    []airplane.Tier `json:"tiers"`
	BestTier airplane.Tier   `json:"bestTier"`
	ProbedAt time.Time       `json:"probedAt"`
}

// RPCServer exposes the host method bridge over JSON-RPC 2.0.
type RPCServer struct {
	api    *API
	bridge jhttp.Bridge
}

// NewRPCServer registers every bridge method against api.
func NewRPCServer(api *API) *RPCServer {
	rs := &RPCServer{api: api}
	methods := handler.Map{
		"hasExactAlarmPermission":          handler.New(rs.hasExactAlarmPermission),
		"hasBatteryOptimizationExemption":  handler.New(rs.hasBatteryOptimizationExemption),
		"hasWriteSecureSettingsPermission": handler.New(rs.hasWriteSecureSettingsPermission),
		"hasRoot":                          handler.New(rs.hasRoot),
		"probeCapabilities":                handler.New(rs.probeCapabilities),
		"toggleAirplaneMode":               handler.New(rs.toggleAirplaneMode),
		"isAirplaneModeOn":                 handler.New(rs.isAirplaneModeOn),
		"openAirplaneModeSettings":         handler.New(rs.openAirplaneModeSettings),
	}
	rs.bridge = jhttp.NewBridge(methods, nil)
	return rs
}

func (rs *RPCServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rs.bridge.ServeHTTP(w, r)
}

// Close shuts down the bridge server.
func (rs *RPCServer) Close() error {
	return rs.bridge.Close()
}

func (rs *RPCServer) hasExactAlarmPermission(ctx context.Context) (bool, error) {
	return rs.api.capabilities.HostCapabilities(ctx, false).ExactSchedulingPermission, nil
}

func (rs *RPCServer) hasBatteryOptimizationExemption(ctx context.Context) (bool, error) {
	return rs.api.capabilities.HostCapabilities(ctx, false).BatteryOptimizationExempt, nil
}

func (rs *RPCServer) hasWriteSecureSettingsPermission(ctx context.Context) (bool, error) {
	return rs.api.capabilities.HostCapabilities(ctx, false).ElevatedPermission, nil
}

func (rs *RPCServer) hasRoot(ctx context.Context) (bool, error) {
	host := rs.api.capabilities.HostCapabilities(ctx, true)
	return host.Root != nil && *host.Root, nil
}

func (rs *RPCServer) probeCapabilities(ctx context.Context) (*ProbeResult, error) {
	snapshot := rs.api.capabilities.Probe(ctx)
	result := &ProbeResult{BestTier: snapshot.Best(), ProbedAt: snapshot.ProbedAt}
	for _, tier := range []airplane.Tier{
		airplane.TierUnprivileged,
		airplane.TierElevatedSettingsWrite,
		airplane.TierRootShell,
		airplane.TierManualFallback,
	} {
		if snapshot.Has(tier) {
			result.Tiers = append(result.Tiers, tier)
		}
	}
	return result, nil
}

func (rs *RPCServer) toggleAirplaneMode(ctx context.Context, p *ToggleParams) (*airplane.ToggleOutcome, error) {
	if p.Enable == nil {
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "missing required param: enable"}
	}
	desired := airplane.DesiredState(*p.Enable)
	req := toggleRequest{Enable: p.Enable, ScheduleID: p.ScheduleID, ScheduleName: p.ScheduleName}
	outcome := rs.api.toggler.Apply(ctx, desired, req.event(desired))
	return &outcome, nil
}

func (rs *RPCServer) isAirplaneModeOn(ctx context.Context) (bool, error) {
	return rs.api.state.ReadState(ctx), nil
}

func (rs *RPCServer) openAirplaneModeSettings(ctx context.Context) (bool, error) {
	if err := rs.api.surface.OpenSettings(ctx); err != nil {
		return false, &jrpc2.Error{Code: codeSettingsFailed, Message: strings.TrimSpace(err.Error())}
	}
	return true, nil
}
