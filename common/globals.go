package common

// ClamcVersion is the current clamc version as a string.
const ClamcVersion string = "0.1.0"

// ConfigFileName is the name of the project configuration file read from the
// compilation root.
const ConfigFileName string = "clam-config.toml"

// McoreFileExt is the file extension for a serialized MCore program.
const McoreFileExt string = ".mcore.json"

// InternalParamsVar is the environment variable holding internal parameter
// overrides.
const InternalParamsVar string = "MOONC_INTERNAL_PARAMS"
