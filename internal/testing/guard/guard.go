package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("CLINIC_TEST_MODE") == "" {
			_ = os.Setenv("CLINIC_TEST_MODE", "1")
		}
	})
}
