package strategy

// throttlingKey builds the bucket identity a limiter tracks state under:
// the job class name, optionally extended with a suffix derived from the
// job's arguments. Stores namespace keys further by limiter kind, so the
// concurrency and threshold buckets of one class never collide.
func throttlingKey(class string, keyFn KeyFunc, args []any) string {
	if keyFn == nil {
		return class
	}
	suffix := keyFn(args)
	if suffix == "" {
		return class
	}
	return class + ":" + suffix
}
