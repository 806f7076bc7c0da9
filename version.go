package weave

// Version is the library version reported by the CLI and the HTTP /info endpoint.
var Version = "0.1.0"
