package handlers

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const shutdownCodeTTL = 5 * time.Minute

// loopbackOnly rejects requests whose TCP peer is not on this machine.
// The peer address is used rather than forwarding headers, which a phone
// on the same network could set.
func loopbackOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
		if ip := net.ParseIP(host); err != nil || ip == nil || !ip.IsLoopback() {
			fail(c, CodeForbidden, "Shutdown is only available from this machine", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

// shutdownGuard holds the bcrypt hash of the one pending confirmation code.
// The plaintext is handed to the caller once and never kept, so neither
// /api/health nor a later request can read it back.
type shutdownGuard struct {
	mu        sync.Mutex
	hash      []byte
	expiresAt time.Time
}

var shutdownMgr = &shutdownGuard{}

// shutdownChan is set by main; nil disables the signal.
var shutdownChan chan bool

// SetShutdownChannel sets the channel VerifyAndShutdown signals on.
func SetShutdownChannel(ch chan bool) {
	shutdownChan = ch
}

func (g *shutdownGuard) issue() (string, time.Time, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", time.Time{}, err
	}
	code := fmt.Sprintf("%06d", n.Int64())
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", time.Time{}, err
	}

	g.mu.Lock()
	g.hash = hash
	g.expiresAt = time.Now().Add(shutdownCodeTTL)
	expiresAt := g.expiresAt
	g.mu.Unlock()
	return code, expiresAt, nil
}

// verify consumes the pending code on a match or once it has expired.
func (g *shutdownGuard) verify(code string) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch {
	case g.hash == nil:
		return "No shutdown code generated"
	case time.Now().After(g.expiresAt):
		g.hash = nil
		return "Shutdown code expired"
	case bcrypt.CompareHashAndPassword(g.hash, []byte(code)) != nil:
		return "Invalid shutdown code"
	}
	g.hash = nil
	return ""
}

// GenerateShutdownCode issues a 6-digit confirmation code valid for 5 minutes
func GenerateShutdownCode(c *gin.Context) {
	code, expiresAt, err := shutdownMgr.issue()
	if err != nil {
		fail(c, CodeInternal, "Failed to generate code", err.Error())
		return
	}
	ok(c, gin.H{"code": code, "expires_at": expiresAt.Unix()})
}

// VerifyAndShutdown checks the confirmation code and signals shutdown
func VerifyAndShutdown(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, CodeInvalidRequest, "Invalid request", err.Error())
		return
	}
	if reason := shutdownMgr.verify(req.Code); reason != "" {
		fail(c, CodeInvalidRequest, reason, nil)
		return
	}

	ok(c, gin.H{"ok": true})

	go func() {
		// Let the response reach the client first.
		time.Sleep(500 * time.Millisecond)
		logrus.Warn("Shutdown requested via API")
		if shutdownChan != nil {
			shutdownChan <- true
		}
	}()
}
