package main

import (
	"os"

	"github.com/sirupsen/logrus"

	cfg "github.com/signlearn/gesture-session/config"
)

// Version is overridden at build time with -ldflags "-X main.Version=...".
var Version = "0.1.0"

func main() {
	log := logrus.New()
	if err := newRootCmd(log).Execute(); err != nil {
		log.WithError(err).Error("gesture-session failed")
		os.Exit(1)
	}
}

func configureLogger(log *logrus.Logger, c *cfg.Root) {
	log.SetLevel(c.LogLevel())
	if c.Pipeline.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}
