package release

// BinaryBaseName is the fixed name of the project executable.
const BinaryBaseName = "gh-jj"

// FileNameFor returns the release file name for a platform tag:
// "<BinaryBaseName>-<tag>". It is a pure function of tag.
func FileNameFor(tag string) string {
	return BinaryBaseName + "-" + tag
}
