package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yndnr/sidermem-go/pkg/resp"
)

type handlerFunc func(e *Engine, c *call) (resp.Reply, error)

// command is one entry of the command table. Arity counts the command
// name: a positive value is an exact count, a negative value a minimum.
// first, last and step locate key arguments as reported by COMMAND.
type command struct {
	name       string
	arity      int
	flags      []string
	first      int
	last       int
	step       int
	categories []string
	handler    handlerFunc
}

func (c *command) acceptsArgs(n int) bool {
	switch {
	case c.arity > 0:
		return n == c.arity-1
	case c.arity == -1:
		return true
	}
	if n < -c.arity-1 {
		return false
	}
	return c.step <= 1 || n%c.step == 0
}

func (c *command) hasFlag(flag string) bool {
	for _, f := range c.flags {
		if f == flag {
			return true
		}
	}
	return false
}

// info renders the COMMAND reply entry.
func (c *command) info() resp.Array {
	return resp.Array{
		resp.Bulk(c.name),
		resp.Int(c.arity),
		statuses(c.flags),
		resp.Int(c.first),
		resp.Int(c.last),
		resp.Int(c.step),
		statuses(c.categories),
	}
}

func statuses(ss []string) resp.Array {
	out := make(resp.Array, len(ss))
	for i, s := range ss {
		out[i] = resp.Status(s)
	}
	return out
}

type commandDef struct {
	arity      int
	flags      []string
	first      int
	last       int
	step       int
	categories []string
}

func tags(s ...string) []string { return s }

// commandTable is the static arity, flag and key-position table.
var commandTable = map[string]commandDef{
	// strings
	"append":      {3, tags("write", "denyoom", "fast"), 1, 1, 1, tags("@write", "@string", "@fast")},
	"decr":        {2, tags("write", "denyoom", "fast"), 1, 1, 1, tags("@write", "@string", "@fast")},
	"decrby":      {3, tags("write", "denyoom", "fast"), 1, 1, 1, tags("@write", "@string", "@fast")},
	"get":         {2, tags("readonly", "fast"), 1, 1, 1, tags("@read", "@string", "@fast")},
	"getdel":      {2, tags("write", "fast"), 1, 1, 1, tags("@write", "@string", "@fast")},
	"getex":       {-2, tags("write", "fast"), 1, 1, 1, tags("@write", "@string", "@fast")},
	"getrange":    {4, tags("readonly"), 1, 1, 1, tags("@read", "@string", "@slow")},
	"getset":      {3, tags("write", "denyoom", "fast"), 1, 1, 1, tags("@write", "@string", "@fast")},
	"incr":        {2, tags("write", "denyoom", "fast"), 1, 1, 1, tags("@write", "@string", "@fast")},
	"incrby":      {3, tags("write", "denyoom", "fast"), 1, 1, 1, tags("@write", "@string", "@fast")},
	"incrbyfloat": {3, tags("write", "denyoom", "fast"), 1, 1, 1, tags("@write", "@string", "@fast")},
	"mget":        {-2, tags("readonly", "fast"), 1, -1, 1, tags("@read", "@string", "@fast")},
	"mset":        {-3, tags("write", "denyoom"), 1, -1, 2, tags("@write", "@string", "@slow")},
	"msetnx":      {-3, tags("write", "denyoom"), 1, -1, 2, tags("@write", "@string", "@slow")},
	"psetex":      {4, tags("write", "denyoom"), 1, 1, 1, tags("@write", "@string", "@slow")},
	"set":         {-3, tags("write", "denyoom"), 1, 1, 1, tags("@write", "@string", "@slow")},
	"setex":       {4, tags("write", "denyoom"), 1, 1, 1, tags("@write", "@string", "@slow")},
	"setnx":       {3, tags("write", "denyoom", "fast"), 1, 1, 1, tags("@write", "@string", "@fast")},
	"setrange":    {4, tags("write", "denyoom"), 1, 1, 1, tags("@write", "@string", "@slow")},
	"strlen":      {2, tags("readonly", "fast"), 1, 1, 1, tags("@read", "@string", "@fast")},
	"substr":      {4, tags("readonly"), 1, 1, 1, tags("@read", "@string", "@slow")},

	// hashes
	"hdel":         {-3, tags("write", "fast"), 1, 1, 1, tags("@write", "@hash", "@fast")},
	"hexists":      {3, tags("readonly", "fast"), 1, 1, 1, tags("@read", "@hash", "@fast")},
	"hget":         {3, tags("readonly", "fast"), 1, 1, 1, tags("@read", "@hash", "@fast")},
	"hgetall":      {2, tags("readonly", "random"), 1, 1, 1, tags("@read", "@hash", "@slow")},
	"hincrby":      {4, tags("write", "denyoom", "fast"), 1, 1, 1, tags("@write", "@hash", "@fast")},
	"hincrbyfloat": {4, tags("write", "denyoom", "fast"), 1, 1, 1, tags("@write", "@hash", "@fast")},
	"hkeys":        {2, tags("readonly", "sort_for_script"), 1, 1, 1, tags("@read", "@hash", "@slow")},
	"hlen":         {2, tags("readonly", "fast"), 1, 1, 1, tags("@read", "@hash", "@fast")},
	"hmget":        {-3, tags("readonly", "fast"), 1, 1, 1, tags("@read", "@hash", "@fast")},
	"hmset":        {-4, tags("write", "denyoom", "fast"), 1, 1, 1, tags("@write", "@hash", "@fast")},
	"hscan":        {-3, tags("readonly", "random"), 1, 1, 1, tags("@read", "@hash", "@slow")},
	"hset":         {-4, tags("write", "denyoom", "fast"), 1, 1, 1, tags("@write", "@hash", "@fast")},
	"hsetnx":       {4, tags("write", "denyoom", "fast"), 1, 1, 1, tags("@write", "@hash", "@fast")},
	"hstrlen":      {3, tags("readonly", "fast"), 1, 1, 1, tags("@read", "@hash", "@fast")},
	"hvals":        {2, tags("readonly", "sort_for_script"), 1, 1, 1, tags("@read", "@hash", "@slow")},

	// lists
	"lindex": {3, tags("readonly"), 1, 1, 1, tags("@read", "@list", "@slow")},
	"llen":   {2, tags("readonly", "fast"), 1, 1, 1, tags("@read", "@list", "@fast")},
	"lpop":   {-2, tags("write", "fast"), 1, 1, 1, tags("@write", "@list", "@fast")},
	"lpos":   {-3, tags("readonly"), 1, 1, 1, tags("@read", "@list", "@slow")},
	"lpush":  {-3, tags("write", "denyoom", "fast"), 1, 1, 1, tags("@write", "@list", "@fast")},
	"lpushx": {-3, tags("write", "denyoom", "fast"), 1, 1, 1, tags("@write", "@list", "@fast")},
	"lrange": {4, tags("readonly"), 1, 1, 1, tags("@read", "@list", "@slow")},
	"lrem":   {4, tags("write"), 1, 1, 1, tags("@write", "@list", "@slow")},
	"lset":   {4, tags("write", "denyoom"), 1, 1, 1, tags("@write", "@list", "@slow")},
	"ltrim":  {4, tags("write"), 1, 1, 1, tags("@write", "@list", "@slow")},
	"rpop":   {-2, tags("write", "fast"), 1, 1, 1, tags("@write", "@list", "@fast")},
	"rpush":  {-3, tags("write", "denyoom", "fast"), 1, 1, 1, tags("@write", "@list", "@fast")},
	"rpushx": {-3, tags("write", "denyoom", "fast"), 1, 1, 1, tags("@write", "@list", "@fast")},

	// keyspace
	"dbsize":   {1, tags("readonly", "fast"), 0, 0, 0, tags("@keyspace", "@read", "@fast")},
	"del":      {-2, tags("write"), 1, -1, 1, tags("@keyspace", "@write", "@slow")},
	"exists":   {-2, tags("readonly", "fast"), 1, -1, 1, tags("@keyspace", "@read", "@fast")},
	"flushall": {-1, tags("write"), 0, 0, 0, tags("@keyspace", "@write", "@slow", "@dangerous")},
	"flushdb":  {-1, tags("write"), 0, 0, 0, tags("@keyspace", "@write", "@slow", "@dangerous")},
	"keys":     {2, tags("readonly", "sort_for_script"), 0, 0, 0, tags("@keyspace", "@read", "@slow", "@dangerous")},
	"rename":   {3, tags("write"), 1, 2, 1, tags("@keyspace", "@write", "@slow")},
	"renamenx": {3, tags("write", "fast"), 1, 2, 1, tags("@keyspace", "@write", "@fast")},
	"scan":     {-2, tags("readonly", "random"), 0, 0, 0, tags("@keyspace", "@read", "@slow")},
	"type":     {2, tags("readonly", "fast"), 1, 1, 1, tags("@keyspace", "@read", "@fast")},
	"unlink":   {-2, tags("write", "fast"), 1, -1, 1, tags("@keyspace", "@write", "@fast")},

	// expiry
	"expire":      {-3, tags("write", "fast"), 1, 1, 1, tags("@keyspace", "@write", "@fast")},
	"expireat":    {-3, tags("write", "fast"), 1, 1, 1, tags("@keyspace", "@write", "@fast")},
	"expiretime":  {2, tags("readonly", "random", "fast"), 1, 1, 1, tags("@keyspace", "@read", "@fast")},
	"persist":     {2, tags("write", "fast"), 1, 1, 1, tags("@keyspace", "@write", "@fast")},
	"pexpire":     {-3, tags("write", "fast"), 1, 1, 1, tags("@keyspace", "@write", "@fast")},
	"pexpireat":   {-3, tags("write", "fast"), 1, 1, 1, tags("@keyspace", "@write", "@fast")},
	"pexpiretime": {2, tags("readonly", "random", "fast"), 1, 1, 1, tags("@keyspace", "@read", "@fast")},
	"pttl":        {2, tags("readonly", "random", "fast"), 1, 1, 1, tags("@keyspace", "@read", "@fast")},
	"ttl":         {2, tags("readonly", "random", "fast"), 1, 1, 1, tags("@keyspace", "@read", "@fast")},

	// transactions
	"discard": {1, tags("noscript", "loading", "stale", "fast"), 0, 0, 0, tags("@fast", "@transaction")},
	"exec":    {1, tags("noscript", "loading", "stale", "skip_slowlog"), 0, 0, 0, tags("@slow", "@transaction")},
	"multi":   {1, tags("noscript", "loading", "stale", "fast"), 0, 0, 0, tags("@fast", "@transaction")},

	// pub/sub
	"psubscribe":   {-2, tags("pubsub", "noscript", "loading", "stale"), 0, 0, 0, tags("@pubsub", "@slow")},
	"publish":      {3, tags("pubsub", "loading", "stale", "fast"), 0, 0, 0, tags("@pubsub", "@fast")},
	"pubsub":       {-2, tags("pubsub", "random", "loading", "stale"), 0, 0, 0, tags("@pubsub", "@slow")},
	"punsubscribe": {-1, tags("pubsub", "noscript", "loading", "stale"), 0, 0, 0, tags("@pubsub", "@slow")},
	"subscribe":    {-2, tags("pubsub", "noscript", "loading", "stale"), 0, 0, 0, tags("@pubsub", "@slow")},
	"unsubscribe":  {-1, tags("pubsub", "noscript", "loading", "stale"), 0, 0, 0, tags("@pubsub", "@slow")},

	// connection and server
	"auth":     {-2, tags("noscript", "loading", "stale", "fast", "no_auth"), 0, 0, 0, tags("@fast", "@connection")},
	"client":   {-2, tags("admin", "noscript", "random", "loading", "stale"), 0, 0, 0, tags("@admin", "@slow", "@dangerous", "@connection")},
	"command":  {-1, tags("random", "loading", "stale"), 0, 0, 0, tags("@slow", "@connection")},
	"echo":     {2, tags("fast"), 0, 0, 0, tags("@fast", "@connection")},
	"hello":    {-1, tags("noscript", "loading", "stale", "fast", "no_auth"), 0, 0, 0, tags("@fast", "@connection")},
	"info":     {-1, tags("random", "loading", "stale"), 0, 0, 0, tags("@slow", "@dangerous")},
	"ping":     {-1, tags("stale", "fast"), 0, 0, 0, tags("@fast", "@connection")},
	"quit":     {1, tags(), 0, 0, 0, tags()},
	"select":   {2, tags("loading", "stale", "fast"), 0, 0, 0, tags("@keyspace", "@fast")},
	"shutdown": {-1, tags("admin", "noscript", "loading", "stale"), 0, 0, 0, tags("@admin", "@slow", "@dangerous")},
	"time":     {1, tags("random", "loading", "stale", "fast"), 0, 0, 0, tags("@fast")},
}

// handlers maps every command name to its implementation.
var handlers = map[string]handlerFunc{
	"append":      cmdAppend,
	"decr":        cmdDecr,
	"decrby":      cmdDecrBy,
	"get":         cmdGet,
	"getdel":      cmdGetDel,
	"getex":       cmdGetEx,
	"getrange":    cmdGetRange,
	"getset":      cmdGetSet,
	"incr":        cmdIncr,
	"incrby":      cmdIncrBy,
	"incrbyfloat": cmdIncrByFloat,
	"mget":        cmdMGet,
	"mset":        cmdMSet,
	"msetnx":      cmdMSetNX,
	"psetex":      cmdPSetEx,
	"set":         cmdSet,
	"setex":       cmdSetEx,
	"setnx":       cmdSetNX,
	"setrange":    cmdSetRange,
	"strlen":      cmdStrlen,
	"substr":      cmdGetRange,

	"hdel":         cmdHDel,
	"hexists":      cmdHExists,
	"hget":         cmdHGet,
	"hgetall":      cmdHGetAll,
	"hincrby":      cmdHIncrBy,
	"hincrbyfloat": cmdHIncrByFloat,
	"hkeys":        cmdHKeys,
	"hlen":         cmdHLen,
	"hmget":        cmdHMGet,
	"hmset":        cmdHMSet,
	"hscan":        cmdHScan,
	"hset":         cmdHSet,
	"hsetnx":       cmdHSetNX,
	"hstrlen":      cmdHStrlen,
	"hvals":        cmdHVals,

	"lindex": cmdLIndex,
	"llen":   cmdLLen,
	"lpop":   cmdLPop,
	"lpos":   cmdLPos,
	"lpush":  cmdLPush,
	"lpushx": cmdLPushX,
	"lrange": cmdLRange,
	"lrem":   cmdLRem,
	"lset":   cmdLSet,
	"ltrim":  cmdLTrim,
	"rpop":   cmdRPop,
	"rpush":  cmdRPush,
	"rpushx": cmdRPushX,

	"dbsize":   cmdDBSize,
	"del":      cmdDel,
	"exists":   cmdExists,
	"flushall": cmdFlush,
	"flushdb":  cmdFlush,
	"keys":     cmdKeys,
	"rename":   cmdRename,
	"renamenx": cmdRenameNX,
	"scan":     cmdScan,
	"type":     cmdType,
	"unlink":   cmdDel,

	"expire":      cmdExpire,
	"expireat":    cmdExpireAt,
	"expiretime":  cmdExpireTime,
	"persist":     cmdPersist,
	"pexpire":     cmdPExpire,
	"pexpireat":   cmdPExpireAt,
	"pexpiretime": cmdPExpireTime,
	"pttl":        cmdPTTL,
	"ttl":         cmdTTL,

	"discard": cmdDiscard,
	"exec":    cmdExec,
	"multi":   cmdMulti,

	"psubscribe":   cmdPSubscribe,
	"publish":      cmdPublish,
	"pubsub":       cmdPubSub,
	"punsubscribe": cmdPUnsubscribe,
	"subscribe":    cmdSubscribe,
	"unsubscribe":  cmdUnsubscribe,

	"auth":     cmdAuth,
	"client":   cmdClient,
	"command":  cmdCommand,
	"echo":     cmdEcho,
	"hello":    cmdHello,
	"info":     cmdInfo,
	"ping":     cmdPing,
	"quit":     cmdQuit,
	"select":   cmdSelect,
	"shutdown": cmdShutdown,
	"time":     cmdTime,
}

// buildCommands joins the table with the handlers and checks that both
// name the same commands.
func buildCommands() (map[string]*command, error) {
	var missing, orphan []string
	out := make(map[string]*command, len(commandTable))
	for name, s := range commandTable {
		h, ok := handlers[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		out[name] = &command{
			name:       name,
			arity:      s.arity,
			flags:      s.flags,
			first:      s.first,
			last:       s.last,
			step:       s.step,
			categories: s.categories,
			handler:    h,
		}
	}
	for name := range handlers {
		if _, ok := commandTable[name]; !ok {
			orphan = append(orphan, name)
		}
	}
	if len(missing) > 0 || len(orphan) > 0 {
		sort.Strings(missing)
		sort.Strings(orphan)
		return nil, fmt.Errorf("engine: command table mismatch: no handler for [%s], no table entry for [%s]",
			strings.Join(missing, " "), strings.Join(orphan, " "))
	}
	return out, nil
}

// commandNames returns the registered names in order.
func (e *Engine) commandNames() []string {
	names := make([]string, 0, len(e.commands))
	for name := range e.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
