package service

import (
	"macroclock/bridge"
	"macroclock/host"
	"macroclock/store"
)

// Services is the global service container
type Services struct {
	Settings *SettingsService
	Health   *HealthService
	Logs     *LogBuffer
	Webview  *host.Webview
}

// GlobalServices is the global service instance
var GlobalServices *Services

// InitServices initializes all services
func InitServices(b *bridge.Bridge, st store.Store, webview *host.Webview, link *host.WatchLink, logs *LogBuffer) {
	GlobalServices = &Services{
		Settings: NewSettingsService(b),
		Health:   NewHealthService(st, webview, link),
		Logs:     logs,
		Webview:  webview,
	}
}
