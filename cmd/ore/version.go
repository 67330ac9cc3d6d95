package main

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"
