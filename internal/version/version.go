package version

// Version is reported by `exmon --version`.
var Version = "exmon 0.1.0"
