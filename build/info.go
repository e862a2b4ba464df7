package build

import "runtime/debug"

type Info struct {
	Path       string `json:"path,omitempty"`
	Version    string `json:"version,omitempty"`
	GoVersion  string `json:"goVersion,omitempty"`
	CommitHash string `json:"commitHash,omitempty"`
	CommitTime string `json:"commitTime,omitempty"`
	Dirty      bool   `json:"dirty,omitempty"`
}

func GetBuildInfo() *Info {
	result := &Info{}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return result
	}

	result.Path = bi.Main.Path
	result.Version = bi.Main.Version
	result.GoVersion = bi.GoVersion

	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			result.CommitHash = s.Value
		case "vcs.time":
			result.CommitTime = s.Value
		case "vcs.modified":
			result.Dirty = s.Value == "true"
		}
	}
	return result
}

func (i *Info) CommitOrUnknown() string {
	if i == nil || i.CommitHash == "" {
		return "unknown"
	}
	return i.CommitHash
}
