// Command cli administers the school backend from a terminal.
package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/cace/core"
	"github.com/trezcool/cace/services/backend"
	logsvc "github.com/trezcool/cace/services/logger"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(log.New(os.Stderr, "CLI : ", log.LstdFlags), conf)
	logger.Enable(!conf.Debug)

	backends, err := backend.NewFactory(backend.Options{
		BaseURL: conf.Backend.BaseURL,
		Timeout: conf.Backend.Timeout,
		Logger:  logger,
	})
	errAndDie(logger, err)

	tokenPath, err := defaultTokenPath()
	errAndDie(logger, err)

	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		conf:       conf,
		backends:   backends,
		tokens:     tokenFile{path: tokenPath},
		validate:   validate,
		translator: translator,
		out:        os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			if errors.Is(err, backend.ErrUnauthorized) {
				err = errors.New("session expired, run login again")
			}
			log.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(logger core.Logger, err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
