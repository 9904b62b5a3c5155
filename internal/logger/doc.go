// Package logger builds the structured zap loggers used by the commands.
package logger
