package logconfig

import (
	"testing"

	myLogger "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestConfigure(t *testing.T) {
	defer ConfigInfoLogger()

	Configure("debug", "json")
	assert.Equal(t, myLogger.DebugLevel, myLogger.GetLevel())
	_, ok := myLogger.StandardLogger().Formatter.(*myLogger.JSONFormatter)
	assert.True(t, ok)

	Configure("nonsense", "text")
	assert.Equal(t, myLogger.InfoLevel, myLogger.GetLevel())
	_, ok = myLogger.StandardLogger().Formatter.(*myLogger.TextFormatter)
	assert.True(t, ok)

	ConfigProductionLogger()
	assert.Equal(t, myLogger.InfoLevel, myLogger.GetLevel())
	_, ok = myLogger.StandardLogger().Formatter.(*myLogger.JSONFormatter)
	assert.True(t, ok)
}
