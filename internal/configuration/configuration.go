// Package configuration reads the settings of the command-line tools from
// env-style configuration files.
package configuration

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

const (
	KeyDevice       = "SIMPLEFS_DEVICE"
	KeyVerifyWrites = "SIMPLEFS_VERIFY_WRITES"
	KeyMmap         = "SIMPLEFS_MMAP"
	KeyLogLevel     = "SIMPLEFS_LOG_LEVEL"
	KeyFuseDebug    = "SIMPLEFS_FUSE_DEBUG"
	KeyAllowOther   = "SIMPLEFS_ALLOW_OTHER"
	KeyFSName       = "SIMPLEFS_FSNAME"

	DefaultFSName = "simplefs"
)

type genericConfigProvider interface {
	Read(filenames ...string) (envMap map[string]string, err error)
}

// Config holds the settings shared by the command-line tools.
type Config struct {
	Device       string
	VerifyWrites bool
	Mmap         bool
	LogLevel     slog.Level
	FuseDebug    bool
	AllowOther   bool
	FSName       string
}

// DefaultConfig returns the [Config] used when no file sets a value.
func DefaultConfig() Config {
	return Config{
		LogLevel: slog.LevelInfo,
		FSName:   DefaultFSName,
	}
}

// Handler is the principal implementation of the configuration [Handler].
type Handler struct {
	genericHandler genericConfigProvider
}

// NewHandler returns a pointer to a new configuration [Handler].
func NewHandler(genericHandler genericConfigProvider) *Handler {
	return &Handler{
		genericHandler: genericHandler,
	}
}

// ReadGeneric reads generic configuration files into a map (map[key]value).
func (c *Handler) ReadGeneric(filenames ...string) (map[string]string, error) {
	return c.genericHandler.Read(filenames...)
}

// Load returns a [Config] with the values of the given files applied over
// [DefaultConfig]. Without files, the defaults are returned unchanged.
func (c *Handler) Load(filenames ...string) (Config, error) {
	config := DefaultConfig()

	if len(filenames) == 0 {
		return config, nil
	}

	envMap, err := c.ReadGeneric(filenames...)
	if err != nil {
		return config, fmt.Errorf("(config) failed to read: %w", err)
	}

	if v := c.MapKeyToString(envMap, KeyDevice); v != "" {
		config.Device = v
	}

	if v := c.MapKeyToString(envMap, KeyFSName); v != "" {
		config.FSName = v
	}

	if v := c.MapKeyToString(envMap, KeyLogLevel); v != "" {
		if err := config.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return config, fmt.Errorf("(config) invalid %s: %w", KeyLogLevel, err)
		}
	}

	for key, dst := range map[string]*bool{
		KeyVerifyWrites: &config.VerifyWrites,
		KeyMmap:         &config.Mmap,
		KeyFuseDebug:    &config.FuseDebug,
		KeyAllowOther:   &config.AllowOther,
	} {
		v, ok, err := c.MapKeyToBool(envMap, key)
		if err != nil {
			return config, fmt.Errorf("(config) invalid %s: %w", key, err)
		}
		if ok {
			*dst = v
		}
	}

	return config, nil
}

// MapKeyToString returns the value of a key, or an empty string.
func (c *Handler) MapKeyToString(envMap map[string]string, key string) string {
	if value, exists := envMap[key]; exists {
		return value
	}

	return ""
}

// MapKeyToBool returns the value of a key as bool. Besides the values
// understood by [strconv.ParseBool], "yes" and "no" are accepted. The second
// return value reports whether the key was set at all.
func (c *Handler) MapKeyToBool(envMap map[string]string, key string) (bool, bool, error) {
	value := strings.ToLower(strings.TrimSpace(c.MapKeyToString(envMap, key)))

	switch value {
	case "":
		return false, false, nil
	case "yes", "y", "on":
		return true, true, nil
	case "no", "n", "off":
		return false, true, nil
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, true, fmt.Errorf("%q: %w", value, err)
	}

	return b, true, nil
}
