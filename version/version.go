package version

var (
	// Version is the release version, Commit the git commit the binary was
	// built on and BuildTime the build timestamp. Embedded by --ldflags.
	Version   = "v0.1.0"
	Commit    string
	BuildTime string
)
