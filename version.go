package espalier

// Version is the library version, also reported by the CLI.
const Version = "0.4.0"
