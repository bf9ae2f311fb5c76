package redis

import goredis "github.com/redis/go-redis/v9"

// The two limiter mutations must be indivisible relative to every other
// worker in the fleet, so both run as Lua scripts.

// acquireScript prunes expired slots, then adds the jid iff the live
// count — not counting a slot the jid already holds — is below the
// limit. A jid holding a slot is readmitted with a refreshed expiry, so
// a redelivered running job is not throttled by its own slot.
//
// KEYS[1]: slot ZSET (member = jid, score = expiry in unix ms)
// ARGV[1]: now in unix ms
// ARGV[2]: slot ttl in ms
// ARGV[3]: limit
// ARGV[4]: jid
//
// Returns 1 when the slot was acquired, 0 otherwise.
var acquireScript = goredis.NewScript(`
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", ARGV[1])
local active = redis.call("ZCARD", KEYS[1])
if redis.call("ZSCORE", KEYS[1], ARGV[4]) then
	active = active - 1
end
if active < tonumber(ARGV[3]) then
	redis.call("ZADD", KEYS[1], tonumber(ARGV[1]) + tonumber(ARGV[2]), ARGV[4])
	redis.call("PEXPIRE", KEYS[1], ARGV[2])
	return 1
end
return 0
`)

// incrWindowScript increments the window counter, setting its expiry
// when this increment created it.
//
// KEYS[1]: window counter key
// ARGV[1]: period in ms
//
// Returns the post-increment value.
var incrWindowScript = goredis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)
