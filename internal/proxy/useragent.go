package proxy

import (
	"fmt"
	"math/rand"
)

// Browser templates for User-Agent rotation. Versions are randomized
// per call so upstream fingerprinting sees a fresh string on every
// request.
var uaTemplates = []func() string{
	func() string {
		return fmt.Sprintf("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%d.0.%d.%d Safari/537.36",
			120+rand.Intn(18), 5000+rand.Intn(2000), rand.Intn(200))
	},
	func() string {
		return fmt.Sprintf("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%d.0.%d.%d Safari/537.36",
			120+rand.Intn(18), 5000+rand.Intn(2000), rand.Intn(200))
	},
	func() string {
		return fmt.Sprintf("Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:%d.0) Gecko/20100101 Firefox/%d.0",
			121+rand.Intn(15), 121+rand.Intn(15))
	},
	func() string {
		return fmt.Sprintf("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/%d.%d Safari/605.1.15",
			16+rand.Intn(3), rand.Intn(6))
	},
	func() string {
		return fmt.Sprintf("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%d.0.%d.%d Safari/537.36",
			120+rand.Intn(18), 5000+rand.Intn(2000), rand.Intn(200))
	},
}

// UserAgent returns a freshly randomized browser User-Agent.
func UserAgent() string {
	return uaTemplates[rand.Intn(len(uaTemplates))]()
}
