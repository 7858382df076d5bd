package driver

import (
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gnatfetch/gnatfetch/internal/config"
	"github.com/gnatfetch/gnatfetch/internal/logger"
)

type CommonOpts struct {
	LogBuilder  *logger.Builder
	Log         *zap.Logger
	Config      *config.Global
	Credentials config.Credentials
	Verbose     []string

	// Storage receives downloaded files. Defaults to the host's filesystem.
	Storage billy.Filesystem
}

func NewCommonOpts() *CommonOpts {
	conf := config.Default()
	return &CommonOpts{
		LogBuilder: logger.NewBuilder(os.Stderr),
		Config:     &conf,
		Storage:    osfs.New("/"),
	}
}

func (c *CommonOpts) Parse() error {
	for _, domain := range c.Verbose {
		c.LogBuilder.SetDomainLevel(domain, zapcore.DebugLevel)
	}
	c.Log = c.LogBuilder.Domain(logger.CLIDomain)

	if err := config.Parse(c.LogBuilder.Domain(logger.InitDomain), c.Config); err != nil {
		return err
	}

	c.Credentials = config.LoadCredentials(os.LookupEnv)
	if c.Credentials.IsSet() {
		c.Log.Debug("Using GitHub credentials from environment.", zap.String("variable", c.Credentials.Source()))
	}
	return nil
}
