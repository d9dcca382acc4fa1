package main

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Environment variables read after .env is loaded. Flags win over them.
const (
	envModule       = "SANTA_MODULE"
	envInputBaseURL = "SANTA_INPUT_BASE_URL"
	envInputCache   = "SANTA_INPUT_CACHE"
	envAllowHosts   = "SANTA_ALLOW_HOSTS"
	envPort         = "PORT"
)

func loadEnv() {
	// A missing .env is normal.
	_ = godotenv.Load()
}

func envOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// stringSetting returns the flag value when set on the command line, then
// the environment, then the flag default.
func stringSetting(cmd *cobra.Command, flag, envKey string) string {
	f := cmd.Flags().Lookup(flag)
	if f == nil {
		return envOrDefault(envKey, "")
	}
	if f.Changed {
		return f.Value.String()
	}
	return envOrDefault(envKey, f.DefValue)
}

func listSetting(cmd *cobra.Command, flag, envKey string) []string {
	values, _ := cmd.Flags().GetStringSlice(flag)
	if cmd.Flags().Changed(flag) {
		return values
	}
	if env := envList(envKey); len(env) > 0 {
		return env
	}
	return values
}
