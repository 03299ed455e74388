package epg

import "time"

func msToTime(utcMs int64) time.Time {
	return time.UnixMilli(utcMs).UTC()
}
