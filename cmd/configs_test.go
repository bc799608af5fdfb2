package cmd

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/samogod/musegen/pkg/hparams"
	"github.com/samogod/musegen/pkg/midimix"
	"github.com/samogod/musegen/pkg/modelconfig"
	"github.com/samogod/musegen/pkg/musicvae"
)

func TestDescribeModel(t *testing.T) {
	builtins := modelconfig.Builtins()
	assert.Equal(t, "MusicVAE(HierarchicalLstmDecoder)", describeModel(builtins[modelconfig.HierdecTrio16Bar].Model()))
	assert.Equal(t, "-", describeModel(nil))
	assert.Equal(t, "TrioConverter", describeModel(musicvae.TrioConverter{}))
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "-", formatValue(nil))
	assert.Equal(t, "lakh", formatValue("lakh"))
	assert.Contains(t, formatValue(hparams.HParams{"z_size": 512}), `"z_size": 512`)
	assert.Contains(t, formatValue(musicvae.TrioConverter{StepsPerQuarter: 4}), `"kind":"TrioConverter"`)
}

func TestJoinRanges(t *testing.T) {
	assert.Equal(t, "25-31,40-48", joinRanges(midimix.DefaultRanges))
}

func TestLogLevelFollowsVerbose(t *testing.T) {
	defer func() { Verbose = false }()

	Verbose = false
	assert.Equal(t, logrus.InfoLevel, logLevel())
	Verbose = true
	assert.Equal(t, logrus.DebugLevel, logLevel())
}

func TestHelpUsesDebugHeading(t *testing.T) {
	help := rootCmd.HelpTemplate()
	assert.Contains(t, help, "DEBUG:\n   -v, -verbose")
	assert.NotContains(t, help, "OPTIMIZATION")
}
