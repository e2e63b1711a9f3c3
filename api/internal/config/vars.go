package config

const EnvConfigPath = "CONFIG_PATH"
