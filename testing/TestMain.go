// Package testing puts test binaries into test mode. Import it for side
// effects from packages whose tests construct the application wiring.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

const testModeEnv = "TASKFORGE_TEST_MODE"

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv(testModeEnv, "1")
		if os.Getenv("JWT_SECRET") == "" {
			_ = os.Setenv("JWT_SECRET", "taskforge-test-secret")
		}
	})
}

func init() {
	ensureTestMode()
}

// TestMain can be assigned by packages that want an explicit entry point.
func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
