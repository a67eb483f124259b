package respserver

import (
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxTrackedIPs bounds the limiter table before idle entries are pruned.
const maxTrackedIPs = 4096

// limiterIdle is how long an address must be quiet before its limiter
// can be dropped.
const limiterIdle = time.Minute

type ipLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// limiters applies an accept rate limit per remote IP.
type limiters struct {
	limit rate.Limit
	burst int

	mu   sync.Mutex
	byIP map[string]*ipLimiter
}

// newLimiters returns nil when perSecond <= 0, which disables limiting.
func newLimiters(perSecond float64, burst int) *limiters {
	if perSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = max(int(perSecond), 1)
	}
	return &limiters{
		limit: rate.Limit(perSecond),
		burst: burst,
		byIP:  make(map[string]*ipLimiter),
	}
}

// allow reports whether a new connection from addr may be served.
func (l *limiters) allow(addr net.Addr, now time.Time) bool {
	if l == nil {
		return true
	}
	ip := hostOf(addr)

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.byIP[ip]
	if !ok {
		if len(l.byIP) >= maxTrackedIPs {
			l.prune(now)
		}
		entry = &ipLimiter{lim: rate.NewLimiter(l.limit, l.burst)}
		l.byIP[ip] = entry
	}
	entry.lastSeen = now
	return entry.lim.AllowN(now, 1)
}

func (l *limiters) prune(now time.Time) {
	for ip, entry := range l.byIP {
		if now.Sub(entry.lastSeen) > limiterIdle {
			delete(l.byIP, ip)
		}
	}
}

func (l *limiters) tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byIP)
}

func hostOf(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	s := addr.String()
	if host, _, err := net.SplitHostPort(s); err == nil {
		return host
	}
	return s
}
