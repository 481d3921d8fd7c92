package config

import (
	"fmt"
	"strings"
)

type EnvVars struct {
	s Settings
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := e.s.Port
	if port == "" {
		port = "8080"
	}
	if port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.s.AppName
}

func (e EnvVars) GetEnv() string {
	if e.s.Env == "" {
		return "DEV"
	}
	return strings.ToUpper(e.s.Env)
}

func (e EnvVars) IsProduction() bool {
	return e.GetEnv() == "PROD"
}

func (e EnvVars) GetLogLevel() string {
	return e.s.LogLevel
}

func (e EnvVars) GetSeedFile() string {
	return e.s.SeedFile
}
