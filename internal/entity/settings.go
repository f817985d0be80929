package entity

// Names of the persisted settings.
const (
	SettingAPIKey  = "options.apiKey"
	SettingDevMode = "options.devMode"
)
