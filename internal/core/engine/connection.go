package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/yndnr/sidermem-go/internal/core/domain"
	"github.com/yndnr/sidermem-go/internal/core/session"
	"github.com/yndnr/sidermem-go/internal/telemetry/logger"
	"github.com/yndnr/sidermem-go/pkg/resp"
)

// AUTH [username] password
func cmdAuth(e *Engine, c *call) (resp.Reply, error) {
	user, pass := session.DefaultUser, ""
	switch len(c.args) {
	case 1:
		pass = c.args[0]
	case 2:
		user, pass = c.args[0], c.args[1]
	default:
		return nil, domain.ErrSyntax
	}
	if err := e.authenticate(c.sess, user, pass); err != nil {
		return nil, err
	}
	return resp.OK, nil
}

func (e *Engine) authenticate(sess *session.Session, user, pass string) error {
	if e.verifier == nil {
		return domain.ErrAuthNotConfigured
	}
	if !e.verifier.Verify(user, pass) {
		e.logger.Warn("authentication failed", "session", sess.ID(), "addr", sess.Addr(), "user", user)
		return domain.ErrWrongPass
	}
	sess.SetAuthenticated(user, true)
	return nil
}

// HELLO [protover [AUTH username password] [SETNAME clientname]]
func cmdHello(e *Engine, c *call) (resp.Reply, error) {
	if len(c.args) > 0 {
		proto, err := strconv.ParseInt(c.args[0], 10, 64)
		if err != nil {
			return nil, domain.ErrProtoInteger
		}
		if proto != 2 {
			return nil, domain.ErrNoProto
		}
	}

	var name string
	var setName bool
	for i := 1; i < len(c.args); i++ {
		switch opt := strings.ToUpper(c.args[i]); {
		case opt == "AUTH" && i+2 < len(c.args):
			if err := e.authenticate(c.sess, c.args[i+1], c.args[i+2]); err != nil {
				return nil, err
			}
			i += 2
		case opt == "SETNAME" && i+1 < len(c.args):
			name, setName = c.args[i+1], true
			if !validClientName(name) {
				return nil, domain.ErrClientName
			}
			i++
		default:
			return nil, domain.ErrSyntax
		}
	}

	if e.verifier != nil && !c.sess.Authenticated() {
		return nil, domain.ErrNoAuth
	}
	if setName {
		c.sess.SetName(name)
	}

	return resp.ArrayOf(
		"server", e.server.Name,
		"version", e.server.Version,
		"proto", 2,
		"id", c.sess.Num(),
		"mode", e.server.Mode,
		"role", e.server.Role,
		"modules", resp.Array{},
	), nil
}

// PING [message]
func cmdPing(_ *Engine, c *call) (resp.Reply, error) {
	switch len(c.args) {
	case 0:
		return resp.Pong, nil
	case 1:
		return resp.Bulk(c.args[0]), nil
	}
	return nil, domain.ErrWrongArity(c.name)
}

// ECHO message
func cmdEcho(_ *Engine, c *call) (resp.Reply, error) {
	return resp.Bulk(c.args[0]), nil
}

// QUIT
func cmdQuit(_ *Engine, c *call) (resp.Reply, error) {
	c.sess.Deactivate()
	return resp.OK, nil
}

// SELECT index
func cmdSelect(_ *Engine, c *call) (resp.Reply, error) {
	db, err := parseInt(c.args[0])
	if err != nil {
		return nil, err
	}
	if db != 0 {
		return nil, domain.ErrDBIndex
	}
	c.sess.SetDB(0)
	return resp.OK, nil
}

// ============================================================================
// CLIENT
// ============================================================================

var invalidNameChars = regexp.MustCompile(`[^0-9a-zA-Z_-]`)

func validClientName(name string) bool {
	return !invalidNameChars.MatchString(name)
}

// CLIENT SETNAME name | GETNAME | ID | LIST
func cmdClient(e *Engine, c *call) (resp.Reply, error) {
	sub, rest := strings.ToLower(c.args[0]), c.args[1:]
	switch sub {
	case "setname":
		if len(rest) != 1 {
			return nil, domain.ErrWrongArity("client|setname")
		}
		if !validClientName(rest[0]) {
			return nil, domain.ErrClientName
		}
		c.sess.SetName(rest[0])
		return resp.OK, nil
	case "getname":
		if len(rest) != 0 {
			return nil, domain.ErrWrongArity("client|getname")
		}
		name := c.sess.Name()
		return bulkOrNull(name, name != ""), nil
	case "id":
		if len(rest) != 0 {
			return nil, domain.ErrWrongArity("client|id")
		}
		return resp.Int(c.sess.Num()), nil
	case "list":
		return resp.Bulk(e.clientList()), nil
	}
	return nil, domain.ErrUnknownSubcommand(c.args[0], "client")
}

func (e *Engine) clientList() string {
	now := e.now()
	var b strings.Builder
	for _, s := range e.sessions.List() {
		cmd, last := s.LastCommand()
		if cmd == "" {
			cmd = "NULL"
		}
		idle := int64(0)
		if !last.IsZero() {
			idle = max(int64(now.Sub(last).Seconds()), 0)
		}
		age := max(int64(now.Sub(s.Created()).Seconds()), 0)
		fmt.Fprintf(&b, "id=%d addr=%s laddr=%s name=%s db=%d user=%s age=%d idle=%d cmd=%s\n",
			s.Num(), s.Addr(), s.LocalAddr(), s.Name(), s.DB(), s.User(), age, idle, cmd)
	}
	return b.String()
}

// ============================================================================
// COMMAND
// ============================================================================

// COMMAND [COUNT | INFO name [name ...]]
func cmdCommand(e *Engine, c *call) (resp.Reply, error) {
	if len(c.args) == 0 {
		names := e.commandNames()
		out := make(resp.Array, len(names))
		for i, n := range names {
			out[i] = e.commands[n].info()
		}
		return out, nil
	}

	switch strings.ToLower(c.args[0]) {
	case "count":
		return resp.Int(len(e.commands)), nil
	case "info":
		out := make(resp.Array, 0, len(c.args)-1)
		for _, n := range c.args[1:] {
			if cmd, ok := e.commands[strings.ToLower(n)]; ok {
				out = append(out, cmd.info())
			} else {
				out = append(out, resp.Null)
			}
		}
		return out, nil
	}
	return nil, domain.ErrUnknownSubcommand(c.args[0], "command")
}

// ============================================================================
// Server
// ============================================================================

// TIME
func cmdTime(e *Engine, _ *call) (resp.Reply, error) {
	now := e.now()
	return resp.Array{
		resp.Bulk(strconv.FormatInt(now.Unix(), 10)),
		resp.Bulk(strconv.Itoa(now.Nanosecond() / 1000)),
	}, nil
}

// SHUTDOWN [NOSAVE|SAVE]
func cmdShutdown(e *Engine, c *call) (resp.Reply, error) {
	logger.L(c.ctx).Warn("shutdown requested", "addr", c.sess.Addr())
	if e.shutdown != nil {
		go e.shutdown()
	}
	return resp.OK, nil
}
