package config

// Constants defining default values for application configuration
const (
	DefaultDBPath        = "./analytics.db"
	DefaultWordcloudRoot = "./static/wordclouds"
	DefaultStopwordsPath = ""
	DefaultFontPath      = "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf"

	DefaultServerPort = 8080
	DefaultServerHost = "" // Empty string means all interfaces

	DefaultWorkerCount = 2  // CPU-bound pool size; excess work queues
	DefaultInterval    = 15 // Minutes between extraction runs, 0 = one-shot
	DefaultFetchLimit  = 1000

	DefaultMaxFeatures       = 2000
	DefaultTopTerms          = 50
	DefaultKeywordsPerDoc    = 20
	DefaultWordcloudMaxWords = 200

	DefaultLogLevel = "debug"
)
