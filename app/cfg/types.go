package cfg

type Cfg struct {
	// Database configuration
	DBPath string

	// Application configuration
	SourcesDir        string
	Port              string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string

	// Duplicate linking tuning
	DuplicateThreshold   float64
	TitleWeight          float64
	BodyWeight           float64
	TimeWeight           float64
	DuplicateWindowHours int

	// Topic analysis tuning
	LookbackDays  int
	TopicCount    int
	WordsPerTopic int
	ClusterSeed   int64

	// Topic selection tuning
	ExcludeDays    int
	MinPosts       int
	PreferTrending bool

	// Content generation
	LLMEndpoint     string
	LLMAPIKey       string
	LLMModel        string
	ContentFormat   string
	ContentTone     string
	ContentLanguage string

	// Publishing
	TelegramToken   string
	TelegramChannel string
	RenderEndpoint  string
	EnablePublish   bool
	PublishRetries  int

	// Pipeline scheduling
	PipelineInterval int

	// Retention
	PostRetentionDays      int
	UsedTopicRetentionDays int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
