package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"macroclock/bridge"
	"macroclock/host"
	"macroclock/models"
	"macroclock/service"

	"github.com/gin-gonic/gin"
)

// deliveryWaitTimeout bounds POST /api/webview/closed?wait=1.
var deliveryWaitTimeout = 30 * time.Second

// ShowConfiguration opens the configuration page for the stored settings
func ShowConfiguration(c *gin.Context) {
	resp, err := service.GlobalServices.Settings.ShowConfiguration(c.Request.Context())
	if err != nil {
		fail(c, CodeInternal, "Failed to open configuration page", err.Error())
		return
	}

	if c.Query("redirect") == "1" {
		c.Redirect(http.StatusFound, resp.URL)
		return
	}
	ok(c, resp)
}

// GetConfigurationQR serves the QR code of the current configuration page
func GetConfigurationQR(c *gin.Context) {
	png, err := service.GlobalServices.Webview.QRCodePNG()
	if err != nil {
		if errors.Is(err, host.ErrNoPage) {
			fail(c, CodeNotFound, "No configuration page opened", err.Error())
			return
		}
		fail(c, CodeInternal, "Failed to render QR code", err.Error())
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

// WebviewClosed accepts the encoded response of the configuration page,
// either as JSON {"response": "..."} or as the raw `response` query value.
func WebviewClosed(c *gin.Context) {
	response, found := rawQueryValue(c.Request.URL.RawQuery, "response")
	if c.Request.Method == http.MethodPost {
		var req models.WebviewClosedRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, CodeInvalidRequest, "Invalid request", err.Error())
			return
		}
		response, found = req.Response, true
	}
	if !found {
		fail(c, CodeInvalidRequest, "Missing response", "response is required")
		return
	}

	d, err := service.GlobalServices.Settings.WebviewClosed(c.Request.Context(), response)
	if err != nil {
		switch {
		case errors.Is(err, bridge.ErrMalformedResponse):
			fail(c, CodeInvalidRequest, "Malformed configuration response", err.Error())
		case errors.Is(err, bridge.ErrStoreWrite):
			fail(c, CodeInternal, "Failed to store settings", err.Error())
		default:
			fail(c, CodeInternal, "Failed to handle configuration response", err.Error())
		}
		return
	}

	if c.Query("wait") != "1" {
		ok(c, gin.H{"saved": true, "delivery": service.DeliveryStatus(d)})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), deliveryWaitTimeout)
	defer cancel()
	o, err := d.Wait(ctx)
	if err != nil {
		respond(c, CodeResourceBusy, "Delivery still pending", gin.H{
			"saved":    true,
			"delivery": service.DeliveryStatus(d),
		})
		return
	}
	if !o.Acked {
		fail(c, CodeBadGateway, "Watchface rejected settings", service.DeliveryStatus(d))
		return
	}
	ok(c, gin.H{"saved": true, "delivery": service.DeliveryStatus(d)})
}

// GetSettings returns the stored settings record
func GetSettings(c *gin.Context) {
	rec := service.GlobalServices.Settings.Current(c.Request.Context())
	ok(c, gin.H{
		"stored":        rec != nil,
		"record":        rec,
		"last_delivery": service.GlobalServices.Settings.LastDelivery(),
	})
}

// HealthCheck reports store and watch link health
func HealthCheck(c *gin.Context) {
	health := service.GlobalServices.Health.Check(c.Request.Context())
	if health.Status != "ok" {
		respond(c, CodeUnavailable, "Service degraded", health)
		return
	}
	ok(c, health)
}

// GetLogs returns recent diagnostic log entries
func GetLogs(c *gin.Context) {
	ok(c, service.GlobalServices.Logs.Entries())
}

// ClearLogs wipes the buffered log entries
func ClearLogs(c *gin.Context) {
	service.GlobalServices.Logs.Clear()
	ok(c, gin.H{"ok": true})
}

// rawQueryValue returns the still-encoded value of key. The configuration
// page percent-encodes its response, so gin's decoded query would strip
// one layer too many.
func rawQueryValue(rawQuery, key string) (string, bool) {
	for _, part := range strings.Split(rawQuery, "&") {
		name, value, _ := strings.Cut(part, "=")
		if n, err := url.QueryUnescape(name); err == nil && n == key {
			return value, true
		}
	}
	return "", false
}
