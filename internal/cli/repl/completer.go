package repl

import (
	"sort"
	"strings"
)

// commandNames lists the server verbs plus the REPL built-ins.
var commandNames = []string{
	// strings
	"append", "decr", "decrby", "get", "getdel", "getex", "getrange", "getset",
	"incr", "incrby", "incrbyfloat", "mget", "mset", "msetnx", "psetex", "set",
	"setex", "setnx", "setrange", "strlen", "substr",
	// hashes
	"hdel", "hexists", "hget", "hgetall", "hincrby", "hincrbyfloat", "hkeys",
	"hlen", "hmget", "hmset", "hscan", "hset", "hsetnx", "hstrlen", "hvals",
	// lists
	"lindex", "llen", "lpop", "lpos", "lpush", "lpushx", "lrange", "lrem",
	"lset", "ltrim", "rpop", "rpush", "rpushx",
	// keys and expiry
	"dbsize", "del", "exists", "expire", "expireat", "expiretime", "flushall",
	"flushdb", "keys", "persist", "pexpire", "pexpireat", "pexpiretime", "pttl",
	"rename", "renamenx", "scan", "ttl", "type", "unlink",
	// transactions and pub/sub
	"discard", "exec", "multi",
	"psubscribe", "publish", "pubsub channels", "pubsub numpat", "pubsub numsub",
	"punsubscribe", "subscribe", "unsubscribe",
	// connection and admin
	"auth", "client getname", "client id", "client list", "client setname",
	"command", "command count", "command info", "echo", "hello", "info",
	"ping", "select", "shutdown", "time",
	// built-ins
	"exit", "help", "history", "quit",
}

// Completer provides command completion for the REPL.
type Completer struct {
	commands []string
}

// NewCompleter creates a new Completer.
func NewCompleter() *Completer {
	commands := append([]string(nil), commandNames...)
	sort.Strings(commands)
	return &Completer{commands: commands}
}

// Complete returns the commands starting with prefix, ignoring case.
func (c *Completer) Complete(prefix string) []string {
	prefix = strings.ToLower(strings.TrimLeft(prefix, " "))
	var suggestions []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			suggestions = append(suggestions, cmd)
		}
	}
	return suggestions
}
