package redis

import "strings"

// Queue keys share the store's "throttle:" namespace.

const queuePrefix = "throttle:queue:"

// queueKey returns the list key for a queue: throttle:queue:{name}
func queueKey(name string) string { return queuePrefix + name }

// queueName recovers the queue name from a list key, as returned by
// BLPOP's reply.
func queueName(key string) string { return strings.TrimPrefix(key, queuePrefix) }
