package app

import (
	"os"
	"strconv"
	"sync"
)

// testModeEnv short-circuits the entrypoints so compiling and vetting the
// binaries never opens sockets or connects to Postgres.
const testModeEnv = "QUILLBOOKS_TEST_MODE"

var inTestMode = sync.OnceValue(func() bool {
	on, _ := strconv.ParseBool(os.Getenv(testModeEnv))
	return on
})

// InTestMode reports whether the entrypoints should skip runtime startup.
func InTestMode() bool {
	return inTestMode()
}
