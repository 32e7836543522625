package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("REPLENISH_TEST_MODE") == "" {
			_ = os.Setenv("REPLENISH_TEST_MODE", "1")
		}
	})
}
