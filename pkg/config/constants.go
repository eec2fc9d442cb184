package config

const (
	EnvPrefix = "printforge"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "PRINTFORGE_DB_DSN"
	EnvDBHost = "PRINTFORGE_DB_HOST"
	EnvDBUser = "PRINTFORGE_DB_USER"
	EnvDBName = "PRINTFORGE_DB_NAME"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
