package translator

const (
	// HubBrightnessMax is the top of the hub dimmer scale.
	HubBrightnessMax = 100
	// PlatformBrightnessMax is the top of the host brightness scale.
	PlatformBrightnessMax = 255
)

// ToPlatformBrightness converts a hub dimmer level (0..100) to host
// brightness (0..255). The result is truncated, so 50 maps to 127.
func ToPlatformBrightness(hub int) int {
	hub = clamp(hub, HubBrightnessMax)
	return int(float64(hub) / HubBrightnessMax * PlatformBrightnessMax)
}

// ToHubBrightness converts host brightness (0..255) to a hub dimmer level
// (0..100), truncating like ToPlatformBrightness.
func ToHubBrightness(platform int) int {
	platform = clamp(platform, PlatformBrightnessMax)
	return int(float64(platform) / PlatformBrightnessMax * HubBrightnessMax)
}

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
