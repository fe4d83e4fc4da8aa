package core

import "runtime"

// currentGoroutineID parses the id out of the "goroutine 123 [running]:" stack header.
func currentGoroutineID() uint64 {
	b := make([]byte, 64)
	b = b[:runtime.Stack(b, false)]
	var id uint64
	for i := len("goroutine "); i < len(b); i++ {
		if b[i] < '0' || b[i] > '9' {
			break
		}
		id = id*10 + uint64(b[i]-'0')
	}
	return id
}
