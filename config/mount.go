package config

// MountOptions holds high-level settings for exporting a sandbox tree over FUSE.
// No go-fuse types are exposed here.
type MountOptions struct {
	Debug  bool   `yaml:"debug,omitempty" json:"debug,omitempty"` // fuse debug logs
	FsName string `yaml:"fs_name,omitempty" json:"fs_name,omitempty"`
	Name   string `yaml:"name,omitempty" json:"name,omitempty"`
}
