package common

const (
	// SrcFileExtension is the required suffix of a Modelica source file.
	SrcFileExtension = ".mo"

	// PackageClassFile is the file that defines a package directory's class.
	PackageClassFile = "package.mo"

	// PackageOrderFile lists the declaration order of a package directory's
	// sibling files and subdirectories.
	PackageOrderFile = "package.order"

	// ProjectFileName is the optional top-level project configuration file:
	// additional MODELICAPATH roots and a default root class, decoded with
	// go-toml.
	ProjectFileName = "rumoca.toml"

	// Version is the translator core's version string.
	Version = "0.1.0"
)

// ModelicaPathEnv is the environment variable holding the MODELICAPATH search
// list.
const ModelicaPathEnv = "MODELICAPATH"
