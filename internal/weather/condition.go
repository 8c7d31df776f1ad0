package weather

// IconKey is the coarse display category for a weather condition.
type IconKey string

const (
	IconSunny        IconKey = "Sunny"
	IconCloudy       IconKey = "Cloudy"
	IconPartlyCloudy IconKey = "PartlyCloudy"
	IconRainy        IconKey = "Rainy"
	IconSnowy        IconKey = "Snowy"
	IconWindy        IconKey = "Windy"
	IconThunderstorm IconKey = "Thunderstorm"
	IconFoggy        IconKey = "Foggy"
	IconGeneric      IconKey = "Generic"
)

// windOverrideKmh is the wind speed above which a mild condition is shown as
// windy. Thunderstorm, snow and rain are visually more significant than wind
// and are never overridden.
const windOverrideKmh = 30

type condition struct {
	Label       string
	Description string
}

// wmoConditions maps WMO weather codes to a coarse label and a
// human-readable description.
var wmoConditions = map[int]condition{
	0:  {"Clear", "Clear sky"},
	1:  {"Mostly Clear", "Mainly clear"},
	2:  {"Partly Cloudy", "Partly cloudy"},
	3:  {"Cloudy", "Overcast"},
	45: {"Fog", "Fog"},
	48: {"Fog", "Depositing rime fog"},
	51: {"Drizzle", "Light drizzle"},
	53: {"Drizzle", "Moderate drizzle"},
	55: {"Drizzle", "Dense drizzle"},
	56: {"Freezing Drizzle", "Light freezing drizzle"},
	57: {"Freezing Drizzle", "Dense freezing drizzle"},
	61: {"Rain", "Slight rain"},
	63: {"Rain", "Moderate rain"},
	65: {"Rain", "Heavy rain"},
	66: {"Freezing Rain", "Light freezing rain"},
	67: {"Freezing Rain", "Heavy freezing rain"},
	71: {"Snow", "Slight snow fall"},
	73: {"Snow", "Moderate snow fall"},
	75: {"Snow", "Heavy snow fall"},
	77: {"Snow", "Snow grains"},
	80: {"Rain Showers", "Slight rain showers"},
	81: {"Rain Showers", "Moderate rain showers"},
	82: {"Rain Showers", "Violent rain showers"},
	85: {"Snow Showers", "Slight snow showers"},
	86: {"Snow Showers", "Heavy snow showers"},
	95: {"Thunderstorm", "Thunderstorm"},
	96: {"Thunderstorm", "Thunderstorm with slight hail"},
	99: {"Thunderstorm", "Thunderstorm with heavy hail"},
}

// DescribeCode returns the label and description for a WMO weather code.
// Unrecognized codes map to the catch-all pair.
func DescribeCode(code int) (label, description string) {
	if c, ok := wmoConditions[code]; ok {
		return c.Label, c.Description
	}
	return "Unknown", "Unknown weather code"
}

// IconForCode maps a WMO weather code to its icon category.
func IconForCode(code int) IconKey {
	switch {
	case code == 0:
		return IconSunny
	case code >= 1 && code <= 2:
		return IconPartlyCloudy
	case code == 3:
		return IconCloudy
	case code == 45 || code == 48:
		return IconFoggy
	case (code >= 51 && code <= 57) || (code >= 61 && code <= 67) || (code >= 80 && code <= 82):
		return IconRainy
	case (code >= 71 && code <= 77) || (code >= 85 && code <= 86):
		return IconSnowy
	case code >= 95 && code <= 99:
		return IconThunderstorm
	default:
		return IconGeneric
	}
}

// applyWindOverride promotes mild conditions to Windy in high wind. Severe
// categories keep their icon regardless of wind speed.
func applyWindOverride(icon IconKey, windSpeedKmh float64) IconKey {
	if windSpeedKmh <= windOverrideKmh {
		return icon
	}
	switch icon {
	case IconThunderstorm, IconSnowy, IconRainy:
		return icon
	}
	return IconWindy
}
