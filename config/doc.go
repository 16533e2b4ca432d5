// Package config loads the runtime configuration and team definitions.
//
// A project has one config.yaml with model credentials, tool settings and
// runtime paths, plus one YAML file per team under the teams directory.
// Values of the form ${VAR}, ${VAR:-default} and $VAR in config.yaml are
// expanded from the environment after optional .env files are loaded.
package config
