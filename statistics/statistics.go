package statistics

import (
	"fmt"
	"sync"
)

type statisticsData struct {
	dataMap map[string]int

	mutex sync.Mutex
}

var stats = &statisticsData{
	dataMap: make(map[string]int),
}

func Set(key string, value int) {
	stats.mutex.Lock()
	defer stats.mutex.Unlock()

	stats.dataMap[key] = value
}

func Change(key string, value int) {
	stats.mutex.Lock()
	defer stats.mutex.Unlock()

	stats.dataMap[key] += value
}

// Snapshot copies the counters for callers that render them elsewhere.
func Snapshot() map[string]int {
	stats.mutex.Lock()
	defer stats.mutex.Unlock()

	ret := make(map[string]int, len(stats.dataMap))
	for key, value := range stats.dataMap {
		ret[key] = value
	}

	return ret
}

func Display() string {
	stats.mutex.Lock()
	defer stats.mutex.Unlock()

	result := "Statistics results are:\n"
	for key, value := range stats.dataMap {
		result += fmt.Sprintf("Number of %s solves is %d\n", key, value)
	}

	return result
}
