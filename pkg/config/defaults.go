package config

const (
	defaultSQLitePath = "stamps.db"

	defaultExtractionProvider = "gemini"
	defaultExtractionTarget   = "https://generativelanguage.googleapis.com"
	defaultExtractionModel    = "gemini-3-pro-preview"

	defaultAPIListen = ":8090"

	defaultSyncDebounceMS    = 1500
	defaultSyncLoadTimeoutMS = 10000
	defaultSyncSaveTimeoutMS = 15000
	defaultSyncBatchSize     = 450
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			SQLitePath: defaultSQLitePath,
		},
		Extraction: ExtractionConfig{
			Provider: defaultExtractionProvider,
			Target:   defaultExtractionTarget,
			Model:    defaultExtractionModel,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Sync: SyncConfig{
			DebounceMS:    defaultSyncDebounceMS,
			LoadTimeoutMS: defaultSyncLoadTimeoutMS,
			SaveTimeoutMS: defaultSyncSaveTimeoutMS,
			BatchSize:     defaultSyncBatchSize,
		},
	}
}
