// rate_limit.go
package middleware

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter limita por IP de cliente. Las IPs dentro de los rangos exentos no se limitan.
// Los visitantes inactivos se limpian en Cleanup.
type IPRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	exempt   []*net.IPNet
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

func NewIPRateLimiter(perSecond float64, burst int) *IPRateLimiter {
	return &IPRateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(perSecond),
		burst:    burst,
		now:      time.Now,
	}
}

// Exempt agrega rangos CIDR que nunca se limitan (las IPs del proveedor de pagos).
func (l *IPRateLimiter) Exempt(cidrs ...string) error {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			return fmt.Errorf("rango inválido %q: %w", c, err)
		}
		nets = append(nets, n)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.exempt = append(l.exempt, nets...)
	return nil
}

func (l *IPRateLimiter) isExempt(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, n := range l.exempt {
		if n.Contains(parsed) {
			return true
		}
	}
	return false
}

func (l *IPRateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.isExempt(ip) {
		return true
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = l.now()
	return v.limiter.AllowN(v.lastSeen, 1)
}

// Cleanup borra los visitantes que no aparecen hace más de maxIdle.
func (l *IPRateLimiter) Cleanup(maxIdle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-maxIdle)
	for ip, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, ip)
		}
	}
}

func (l *IPRateLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// CallbackRateLimit descarta los callbacks que exceden el límite pero igual responde 200,
// si no el proveedor reintenta y el tráfico crece.
func CallbackRateLimit(l *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			logger.Warn().
				Str("ip", c.ClientIP()).
				Str("orderId", c.Param("orderId")).
				Msg("Callback descartado por límite de tasa")
			c.JSON(http.StatusOK, gin.H{"message": "Callback received"})
			c.Abort()
			return
		}
		c.Next()
	}
}
