package command

const (
	JSONOutputFlag = "json"
	LogLevelFlag   = "log-level"
	ConfigFlag     = "config"
	DataDirFlag    = "data-dir"
	DBBackendFlag  = "db-backend"
)
