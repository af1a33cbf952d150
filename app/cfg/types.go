package cfg

type Cfg struct {
	// Storage
	DBPath   string
	ShowsDir string

	// Feed polling
	FeedURLs          []string
	WorkerCount       int
	SchedulerInterval int
	FetchTimeout      int
	UserAgent         string

	// Download client
	TransmissionRemote string
	TransmissionHost   string
	TransmissionAuth   string
	DryRun             bool

	// HTTP API
	Port         string
	BaseUrl      string
	APIAccessKey string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
