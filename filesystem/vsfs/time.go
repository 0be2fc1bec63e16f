package vsfs

import "time"

// currentWallClockSeconds returns seconds since the epoch truncated to
// 32 bits, matching the on-disk ctime/mtime width. This wraps in 2106; the
// format does not provide room to fix that, and the contract is preserved
// as specified rather than worked around.
func currentWallClockSeconds() uint32 {
	return uint32(time.Now().Unix())
}
