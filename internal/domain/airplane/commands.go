package airplane

import "fmt"

const (
	// SettingAirplaneModeOn is the global settings key holding airplane mode.
	SettingAirplaneModeOn = "airplane_mode_on"
	// ActionAirplaneModeChanged is the system broadcast sent after a change.
	ActionAirplaneModeChanged = "android.intent.action.AIRPLANE_MODE_CHANGED"
	// ActionAirplaneModeSettings opens the airplane mode settings screen.
	ActionAirplaneModeSettings = "android.settings.AIRPLANE_MODE_SETTINGS"
	// ActionWirelessSettings is the fallback settings screen.
	ActionWirelessSettings = "android.settings.WIRELESS_SETTINGS"
	// AppBroadcastChanged is published to UI subscribers after every apply.
	AppBroadcastChanged = "com.airplane.scheduler.AIRPLANE_MODE_CHANGED"
)

// Radios are toggled in this order after the setting and broadcast.
var Radios = []string{"data", "wifi", "bluetooth", "telephony"}

// SettingsPutCommand writes airplane_mode_on.
func SettingsPutCommand(desired DesiredState) string {
	return fmt.Sprintf("settings put global %s %s", SettingAirplaneModeOn, desired.SettingValue())
}

// BroadcastCommand emits the airplane mode changed broadcast.
func BroadcastCommand(desired DesiredState) string {
	return fmt.Sprintf("am broadcast -a %s --ez state %t", ActionAirplaneModeChanged, bool(desired))
}

// RadioCommand toggles one radio subsystem.
func RadioCommand(radio string, desired DesiredState) string {
	return fmt.Sprintf("svc %s %s", radio, desired.RadioAction())
}

// RootCommands returns the privileged command sequence in execution order.
func RootCommands(desired DesiredState) []string {
	out := make([]string, 0, 2+len(Radios))
	out = append(out, SettingsPutCommand(desired), BroadcastCommand(desired))
	for _, radio := range Radios {
		out = append(out, RadioCommand(radio, desired))
	}
	return out
}
