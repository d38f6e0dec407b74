// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package survival

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"

	"github.com/aneuploidy/survival/sheet"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// analysisCmd runs the aneuploidy analyses, the TP53 analyses, or
// both, over the inputs found in one directory.
type analysisCmd struct {
	aneuploidy bool
	mutation   bool
	// nil means coxRegressor{}
	regressor Regressor
}

func (cmd *analysisCmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	err := cmd.run(prog, args, stdin, stdout, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	} else if errors.As(err, new(usageError)) {
		fmt.Fprintf(stderr, "%s\n", err)
		return 2
	} else if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return 1
	}
	return 0
}

type usageError struct{ error }

func (cmd *analysisCmd) run(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	pprof := flags.String("pprof", "", "serve Go profile data at http://`[addr]:port`")
	inputDir := flags.String("i", "", "input `directory` containing clinical, aneuploidy and mutation data")
	outputDir := flags.String("o", "", "output `directory` (default: same as -i)")
	debug := flags.Bool("debug", false, "log skipped regressions")
	err := flags.Parse(args)
	if err == flag.ErrHelp {
		return err
	} else if err != nil {
		return usageError{err}
	} else if flags.NArg() > 0 {
		return usageError{fmt.Errorf("errant command line arguments after parsed flags: %v", flags.Args())}
	} else if *inputDir == "" {
		return usageError{errors.New("missing required flag: -i")}
	}
	if *outputDir == "" {
		*outputDir = *inputDir
	}
	if *debug {
		log.SetLevel(log.DebugLevel)
	}
	if *pprof != "" {
		go func() {
			log.Println(http.ListenAndServe(*pprof, nil))
		}()
	}
	regressor := cmd.regressor
	if regressor == nil {
		regressor = coxRegressor{}
	}
	if err := maybeMkdir(*outputDir); err != nil {
		return err
	}

	fnm, err := sheet.Find(*inputDir, clinicalBasename)
	if err != nil {
		return err
	}
	log.Infof("reading clinical data from %s", fnm)
	records, err := loadClinical(fnm)
	if err != nil {
		return err
	}
	clinical, summary := extractEndpoints(records)
	log.Infof("%d clinical records in %d cancer types", len(clinical), len(summary))

	var anu *AneuploidyTable
	if cmd.aneuploidy || cmd.mutation {
		fnm, err := sheet.Find(*inputDir, aneuploidyBasename)
		if err != nil {
			if cmd.aneuploidy {
				return err
			}
			// the TP53 + aneuploidy score analysis is skipped
			log.Warn(err)
		} else {
			log.Infof("reading aneuploidy data from %s", fnm)
			anu, err = loadAneuploidy(fnm)
			if err != nil {
				return err
			}
			log.Infof("%d samples, %d features", len(anu.Samples), len(anu.Features))
		}
	}

	if cmd.aneuploidy {
		if err := writeEndpointSummary(*outputDir, summary); err != nil {
			return err
		}
		for _, a := range analyses {
			err = multierr.Append(err, runAnalysis(a, anu, clinical, regressor, *outputDir))
		}
	}
	if cmd.mutation {
		fnm, ferr := sheet.Find(*inputDir, mutationBasename)
		if ferr != nil {
			return multierr.Append(err, ferr)
		}
		log.Infof("reading mutation data from %s", fnm)
		mutations, merr := loadMutations(fnm)
		if merr != nil {
			return multierr.Append(err, merr)
		}
		err = multierr.Append(err, runMutationAnalysis(mutations, anu, clinical, regressor, *outputDir))
	}
	return err
}
