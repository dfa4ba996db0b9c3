package proxy

import (
	"strings"
	"sync"
)

// Credential is one proxy endpoint from the fixed pool. The server goes to
// the browser launcher; the username and password are supplied separately
// through the auth handler, since the proxy flag cannot carry them.
type Credential struct {
	Server   string
	Username string
	Password string
}

// Pool hands out proxy credentials round-robin. The cursor is process-wide
// and resets on process start.
type Pool struct {
	mu      sync.Mutex
	entries []Credential
	cursor  int
}

// NewPool parses ip:port:username:password entries. Entries without
// credentials (ip:port) are accepted. Malformed entries are skipped.
func NewPool(raw []string) *Pool {
	p := &Pool{}
	for _, line := range raw {
		parts := strings.Split(strings.TrimSpace(line), ":")
		switch len(parts) {
		case 2:
			p.entries = append(p.entries, Credential{Server: parts[0] + ":" + parts[1]})
		case 4:
			p.entries = append(p.entries, Credential{
				Server:   parts[0] + ":" + parts[1],
				Username: parts[2],
				Password: parts[3],
			})
		}
	}
	return p
}

// Size returns the number of usable entries.
func (p *Pool) Size() int {
	return len(p.entries)
}

// Next returns the next credential in round-robin order, or false when the
// pool is empty.
func (p *Pool) Next() (Credential, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.entries) == 0 {
		return Credential{}, false
	}
	c := p.entries[p.cursor%len(p.entries)]
	p.cursor++
	return c, true
}
