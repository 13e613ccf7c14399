// Package config loads the optional TOML settings file. The file carries
// the same settings as the CLI flags so that credentials need not appear on
// the command line; explicit flags always override file values.
package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// File holds the settings read from a TOML config file. Zero values mean
// "not set"; the CLI layer merges flags over these.
type File struct {
	SharePointURL      string `toml:"sharepoint_url"`
	SharePointUsername string `toml:"sharepoint_username"`
	SharePointPassword string `toml:"sharepoint_password"`
	SharePointFolder   string `toml:"sharepoint_folder"`
	S3Bucket           string `toml:"s3_bucket"`
	S3Prefix           string `toml:"s3_prefix"`
	AWSProfile         string `toml:"aws_profile"`
	Concurrency        int    `toml:"concurrency"`
}

// Load reads and parses a TOML config file. Unknown keys are fatal so that
// a typo in a credentials file fails loudly instead of being ignored.
func Load(path string) (*File, error) {
	var cfg File

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}

		return nil, fmt.Errorf("unknown keys in config file %s: %s", path, strings.Join(keys, ", "))
	}

	return &cfg, nil
}
