package redis

// Redis key naming for throttle data.
// All keys are prefixed with "throttle:" to avoid collisions.

const keyPrefix = "throttle:"

// slotsKey returns the ZSET key tracking active jids for a throttling
// key: throttle:slots:{key}. Member scores are expiry timestamps.
func slotsKey(key string) string { return keyPrefix + "slots:" + key }

// windowKey returns the counter key for a threshold window:
// throttle:window:{key}.
func windowKey(key string) string { return keyPrefix + "window:" + key }
