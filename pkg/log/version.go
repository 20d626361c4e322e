package log

// Version is the current version of the log module.
const Version = "1.1.0"
