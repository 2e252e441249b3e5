package platform

import "sort"

// Platform is a supported release target: a release tag paired with the
// compiler triple that produces binaries for it.
type Platform struct {
	Name   string `json:"name" yaml:"name"`
	Triple string `json:"triple" yaml:"triple"`
	OS     string `json:"os" yaml:"os"`
	Arch   string `json:"arch" yaml:"arch"`
}

// Request returns a Request whose triple and tag agree by construction.
func (p Platform) Request() Request {
	return Request{CompilerTriple: p.Triple, ReleaseTag: p.Name}
}

var (
	LinuxAMD64     = Platform{Name: "linux-amd64", Triple: "x86_64-unknown-linux-gnu", OS: "linux", Arch: "amd64"}
	LinuxARM64     = Platform{Name: "linux-arm64", Triple: "aarch64-unknown-linux-gnu", OS: "linux", Arch: "arm64"}
	LinuxAMD64Musl = Platform{Name: "linux-amd64-musl", Triple: "x86_64-unknown-linux-musl", OS: "linux", Arch: "amd64"}
	LinuxARM64Musl = Platform{Name: "linux-arm64-musl", Triple: "aarch64-unknown-linux-musl", OS: "linux", Arch: "arm64"}
	DarwinAMD64    = Platform{Name: "darwin-amd64", Triple: "x86_64-apple-darwin", OS: "darwin", Arch: "amd64"}
	DarwinARM64    = Platform{Name: "darwin-arm64", Triple: "aarch64-apple-darwin", OS: "darwin", Arch: "arm64"}
	WindowsAMD64   = Platform{Name: "windows-amd64", Triple: "x86_64-pc-windows-msvc", OS: "windows", Arch: "amd64"}
)

var catalog = map[string]Platform{}

func init() {
	for _, p := range []Platform{
		LinuxAMD64, LinuxARM64,
		LinuxAMD64Musl, LinuxARM64Musl,
		DarwinAMD64, DarwinARM64,
		WindowsAMD64,
	} {
		catalog[p.Name] = p
	}
}

// Lookup finds a platform by its release tag.
func Lookup(name string) (Platform, bool) {
	p, ok := catalog[name]
	return p, ok
}

// LookupByTriple finds a platform by its compiler triple.
func LookupByTriple(triple string) (Platform, bool) {
	for _, p := range catalog {
		if p.Triple == triple {
			return p, true
		}
	}
	return Platform{}, false
}

// All returns every catalog entry sorted by name.
func All() []Platform {
	out := make([]Platform, 0, len(catalog))
	for _, p := range catalog {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns every catalog release tag, sorted.
func Names() []string {
	all := All()
	names := make([]string, len(all))
	for i, p := range all {
		names[i] = p.Name
	}
	return names
}
