package app

import (
	"os"
	"strconv"
	"sync"
)

// TestModeEnv makes main return before dialing redis or binding a port.
const TestModeEnv = "MEMBERDASH_TEST_MODE"

var testMode = sync.OnceValue(func() bool {
	return parseTestMode(os.Getenv(TestModeEnv))
})

func parseTestMode(raw string) bool {
	on, err := strconv.ParseBool(raw)
	return err == nil && on
}

// InTestMode reports whether the process runs under tests. The flag is read once.
func InTestMode() bool {
	return testMode()
}
