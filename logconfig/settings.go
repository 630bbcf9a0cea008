package logconfig

import (
	"strings"

	myLogger "github.com/sirupsen/logrus"
)

// This output format is used in the test (has terminal).
func ConfigDebugLogger() {
	myLogger.SetReportCaller(true)
	myLogger.SetLevel(myLogger.DebugLevel)
	myLogger.SetFormatter(textFormatter())
}

func ConfigInfoLogger() {
	myLogger.SetReportCaller(false)
	myLogger.SetLevel(myLogger.InfoLevel)
	myLogger.SetFormatter(textFormatter())
}

// This output format is used in production: one json object per line.
func ConfigProductionLogger() {
	myLogger.SetReportCaller(false)
	myLogger.SetLevel(myLogger.InfoLevel)
	myLogger.SetFormatter(&myLogger.JSONFormatter{})
}

// Configure applies a level name ("debug", "info", ...) and a format
// ("text" or "json"). Unknown levels fall back to info.
func Configure(level string, format string) {
	lvl, err := myLogger.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = myLogger.InfoLevel
	}
	myLogger.SetLevel(lvl)
	myLogger.SetReportCaller(lvl >= myLogger.DebugLevel)

	if strings.EqualFold(strings.TrimSpace(format), "json") {
		myLogger.SetFormatter(&myLogger.JSONFormatter{})
		return
	}
	myLogger.SetFormatter(textFormatter())
}

func textFormatter() *myLogger.TextFormatter {
	return &myLogger.TextFormatter{
		ForceColors:            true,
		DisableTimestamp:       true,
		DisableLevelTruncation: true,
		PadLevelText:           true,
	}
}
