package settings

import (
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Setting keys. They double as flag names.
const (
	KeyURL        = "glpi-url"
	KeyUserToken  = "glpi-usertoken"
	KeyAppToken   = "glpi-apptoken"
	KeyGroupsFile = "groups-config"
)

// DefaultGroupsFileName is looked up beside the executable when nothing
// else names a groups file.
const DefaultGroupsFileName = "glpi-api.yml"

var envBindings = []struct {
	key string
	env string
}{
	{KeyURL, "GLPI_API_URL"},
	{KeyUserToken, "GLPI_API_USERTOKEN"},
	{KeyAppToken, "GLPI_API_APPTOKEN"},
	{KeyGroupsFile, "GLPI_GROUPS_FILE"},
}

// EnvVar returns the environment variable bound to key, if any.
func EnvVar(key string) string {
	for _, b := range envBindings {
		if b.key == key {
			return b.env
		}
	}
	return ""
}

// Bind wires every setting key to its GLPI_* environment variable and, when
// present in flags, to the flag of the same name.
func Bind(v *viper.Viper, flags *pflag.FlagSet) error {
	for _, b := range envBindings {
		if err := v.BindEnv(b.key, b.env); err != nil {
			return err
		}
		if f := flags.Lookup(b.key); f != nil {
			if err := v.BindPFlag(b.key, f); err != nil {
				return err
			}
		}
	}
	return nil
}

// ApplyDefaults registers the settings file as the lowest-precedence
// source. s may be nil.
func ApplyDefaults(v *viper.Viper, s *Settings) {
	groupsFile := DefaultGroupsFile()
	if s != nil {
		setIf(v, KeyURL, s.URL)
		setIf(v, KeyAppToken, s.AppToken)
		setIf(v, KeyUserToken, s.UserToken)
		if s.GroupsFile != "" {
			groupsFile = s.GroupsFile
		}
	}
	v.SetDefault(KeyGroupsFile, groupsFile)
}

func setIf(v *viper.Viper, key, value string) {
	if value != "" {
		v.SetDefault(key, value)
	}
}

// DefaultGroupsFile returns glpi-api.yml in the executable's directory.
func DefaultGroupsFile() string {
	exe, err := os.Executable()
	if err != nil {
		return DefaultGroupsFileName
	}
	return filepath.Join(filepath.Dir(exe), DefaultGroupsFileName)
}

// Missing returns the connection keys that resolve to an empty value.
func Missing(v *viper.Viper) []string {
	var missing []string
	for _, key := range []string{KeyURL, KeyUserToken, KeyAppToken} {
		if v.GetString(key) == "" {
			missing = append(missing, key)
		}
	}
	return missing
}
