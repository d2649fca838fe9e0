package constants

import "time"

// Redis cache keys and TTLs.
// Pattern: queuedesk:{concern}:{office}

const (
	CACHE_PREFIX = "queuedesk"
)

// Board data turns over with every claim, so TTLs stay short: the
// cache only absorbs display-board polling bursts.
const (
	TTL_BOARD        = 5 * time.Second
	TTL_QUEUE_STATUS = 5 * time.Second
	TTL_NOW_SERVING  = 12 * time.Hour
)

const (
	CACHE_KEY_BOARD       = CACHE_PREFIX + ":board:"       // + office
	CACHE_KEY_NOW_SERVING = CACHE_PREFIX + ":now-serving:" // + office
)

func BuildBoardKey(office string) string {
	return CACHE_KEY_BOARD + office
}

func BuildNowServingKey(office string) string {
	return CACHE_KEY_NOW_SERVING + office
}
