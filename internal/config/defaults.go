package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 7700
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "./data/documents.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "./data/index.bleve"
	}
	if cfg.Search.NumberResults == 0 {
		cfg.Search.NumberResults = 10
	}
	if cfg.Search.CharContext == 0 {
		cfg.Search.CharContext = 35
	}
	if cfg.Search.UpdateGroupSize == 0 {
		cfg.Search.UpdateGroupSize = 1000
	}
}
